// Package fleet maintains a refreshable in-memory snapshot of scaling
// groups and launch templates so the replacement loop never pages
// through the compute API inline.
package fleet

import (
	"context"
	"log/slog"
	"sync"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
)

// Cache holds the latest known fleet state. Refreshes merge by name
// under a short lock; readers get snapshot copies and never block a
// refresh beyond the map swap.
type Cache struct {
	compute cloudapi.ComputeAPI
	logger  *slog.Logger

	mu        sync.RWMutex
	groups    map[string]cloudapi.GroupDescriptor
	templates map[string]cloudapi.LaunchTemplateDescriptor
}

// NewCache creates an empty cache. Both maps report empty until the
// first refresh completes; callers treat empty as not ready.
func NewCache(compute cloudapi.ComputeAPI, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		compute:   compute,
		logger:    logger,
		groups:    make(map[string]cloudapi.GroupDescriptor),
		templates: make(map[string]cloudapi.LaunchTemplateDescriptor),
	}
}

// RefreshGroups pages through every scaling group and merges by name.
func (c *Cache) RefreshGroups(ctx context.Context) error {
	groups, err := c.compute.DescribeGroups(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, desc := range groups {
		c.groups[desc.Name] = desc
	}
	c.mu.Unlock()

	c.logger.Debug("group cache refreshed", "groups", len(groups))
	return nil
}

// RefreshLaunchTemplates pages through every launch template and merges
// by name.
func (c *Cache) RefreshLaunchTemplates(ctx context.Context) error {
	templates, err := c.compute.DescribeLaunchTemplates(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	for _, desc := range templates {
		c.templates[desc.Name] = desc
	}
	c.mu.Unlock()

	c.logger.Debug("launch template cache refreshed", "templates", len(templates))
	return nil
}

// Groups returns a snapshot copy of the group map.
func (c *Cache) Groups() map[string]cloudapi.GroupDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]cloudapi.GroupDescriptor, len(c.groups))
	for name, desc := range c.groups {
		out[name] = desc
	}
	return out
}

// LaunchTemplates returns a snapshot copy of the template map.
func (c *Cache) LaunchTemplates() map[string]cloudapi.LaunchTemplateDescriptor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]cloudapi.LaunchTemplateDescriptor, len(c.templates))
	for name, desc := range c.templates {
		out[name] = desc
	}
	return out
}

// Group looks up one group by name.
func (c *Cache) Group(name string) (cloudapi.GroupDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	desc, ok := c.groups[name]
	return desc, ok
}

// LaunchTemplate looks up one launch template by name.
func (c *Cache) LaunchTemplate(name string) (cloudapi.LaunchTemplateDescriptor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	desc, ok := c.templates[name]
	return desc, ok
}

// Ready reports whether both maps have been populated. A partial view
// must not drive reconciliation: acting on it would recreate resources
// that exist but are not cached yet.
func (c *Cache) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.groups) > 0 && len(c.templates) > 0
}
