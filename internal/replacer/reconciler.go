package replacer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
	"github.com/patoarvizu/knotifier/internal/fleet"
	"github.com/patoarvizu/knotifier/internal/metrics"
	"github.com/patoarvizu/knotifier/internal/pricing"
	"github.com/patoarvizu/knotifier/internal/savings"
)

// PriceSource is the read-only view of the price engine the reconciler
// needs.
type PriceSource interface {
	CheapestOf(preferred []string) (pricing.Record, error)
}

// Controller runs the per-cycle replacement loop. Tallies are owned by
// the controller's own cycle; the single-flight guard in Cycle keeps
// cycles from overlapping, so they need no locking of their own.
type Controller struct {
	queue    cloudapi.QueueAPI
	compute  cloudapi.ComputeAPI
	cache    *fleet.Cache
	prices   PriceSource
	onDemand cloudapi.OnDemandPriceAPI
	ledger   *savings.Ledger
	logger   *slog.Logger

	queueName string
	dryRun    bool

	url     string
	runMu   sync.Mutex
	tallies map[string]*Tally
}

// Config holds controller dependencies. Queue, Compute, Cache, and
// Prices are required; OnDemand and Ledger are optional and only feed
// savings estimates.
type Config struct {
	Queue     cloudapi.QueueAPI
	Compute   cloudapi.ComputeAPI
	Cache     *fleet.Cache
	Prices    PriceSource
	OnDemand  cloudapi.OnDemandPriceAPI
	Ledger    *savings.Ledger
	QueueName string
	DryRun    bool
	Logger    *slog.Logger
}

// New creates a replacement controller.
func New(cfg Config) (*Controller, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("queue boundary is required")
	}
	if cfg.Compute == nil {
		return nil, fmt.Errorf("compute boundary is required")
	}
	if cfg.Cache == nil {
		return nil, fmt.Errorf("fleet cache is required")
	}
	if cfg.Prices == nil {
		return nil, fmt.Errorf("price source is required")
	}
	if cfg.QueueName == "" {
		return nil, fmt.Errorf("queue name is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Controller{
		queue:     cfg.Queue,
		compute:   cfg.Compute,
		cache:     cfg.Cache,
		prices:    cfg.Prices,
		onDemand:  cfg.OnDemand,
		ledger:    cfg.Ledger,
		logger:    cfg.Logger,
		queueName: cfg.QueueName,
		dryRun:    cfg.DryRun,
		tallies:   make(map[string]*Tally),
	}, nil
}

// Cycle runs one drain-and-reconcile pass. A cycle that would overlap
// a still-running one is skipped, not queued.
func (c *Controller) Cycle(ctx context.Context) error {
	if !c.runMu.TryLock() {
		c.logger.Warn("previous replacement cycle still running, skipping")
		metrics.ReconcileCycles.WithLabelValues("skipped").Inc()
		return nil
	}
	defer c.runMu.Unlock()

	if err := c.drain(ctx); err != nil {
		c.logger.Warn("notification drain failed", "error", err)
		metrics.ExternalAPIErrors.WithLabelValues("ReceiveMessage").Inc()
	}

	return c.reconcile(ctx)
}

// Tallies returns a copy of the outstanding tallies, for tests and
// introspection.
func (c *Controller) Tallies() map[string]Tally {
	out := make(map[string]Tally, len(c.tallies))
	for name, tally := range c.tallies {
		out[name] = *tally
	}
	return out
}

// reconcile processes every outstanding tally. A group that fails keeps
// its tally for the next cycle; the rest of the groups still run.
func (c *Controller) reconcile(ctx context.Context) error {
	if len(c.tallies) == 0 {
		metrics.ReconcileCycles.WithLabelValues("complete").Inc()
		return nil
	}

	if !c.cache.Ready() {
		// Reconciling against a partial view would recreate resources
		// that exist but are not cached yet.
		c.logger.Debug("fleet cache not ready, skipping cycle", "pending_groups", len(c.tallies))
		metrics.ReconcileCycles.WithLabelValues("skipped").Inc()
		return nil
	}

	mutated := false
	failures := 0
	for groupName, tally := range c.tallies {
		if err := c.reconcileGroup(ctx, tally, &mutated); err != nil {
			failures++
			switch {
			case errors.Is(err, cloudapi.ErrNoEligiblePriceData):
				c.logger.Debug("no eligible price data yet, keeping tally", "group", groupName)
			case errors.Is(err, cloudapi.ErrNotReady):
				c.logger.Debug("dependencies not ready, keeping tally", "group", groupName)
			default:
				c.logger.Error("group reconciliation failed, keeping tally",
					"group", groupName,
					"error", err,
				)
			}
			continue
		}

		delete(c.tallies, groupName)
		metrics.ReplacementsPending.WithLabelValues(groupName).Set(0)
	}

	if c.dryRun {
		// Messages were not acknowledged, so the next cycle re-reads
		// and re-reports them; carrying tallies over would double-count.
		clear(c.tallies)
	}

	if mutated && !c.dryRun {
		if err := c.cache.RefreshGroups(ctx); err != nil {
			c.logger.Warn("post-reconcile group refresh failed", "error", err)
			metrics.ExternalAPIErrors.WithLabelValues("DescribeAutoScalingGroups").Inc()
		}
	}

	if failures > 0 {
		metrics.ReconcileCycles.WithLabelValues("partial").Inc()
		return fmt.Errorf("%d of %d groups failed reconciliation", failures, failures+len(c.tallies))
	}
	metrics.ReconcileCycles.WithLabelValues("complete").Inc()
	return nil
}

// reconcileGroup ensures the derived launch template and the paired
// spot group exist for one tally.
func (c *Controller) reconcileGroup(ctx context.Context, tally *Tally, mutated *bool) error {
	preferred := splitPreferredTypes(tally.Tag(cloudapi.TagPreferredTypes))
	record, err := c.prices.CheapestOf(preferred)
	if err != nil {
		return err
	}

	c.logger.Debug("selected replacement instance type",
		"group", tally.GroupName,
		"instance_type", record.InstanceType,
		"zone", record.AvailabilityZone,
		"weighted_price", record.WeightedPrice,
	)

	templateName, err := c.ensureLaunchTemplate(ctx, tally, record.InstanceType, mutated)
	if err != nil {
		return err
	}

	if err := c.ensureSpotGroup(ctx, tally, templateName, mutated); err != nil {
		return err
	}

	c.reportSavings(ctx, tally, record)
	return nil
}

// ensureLaunchTemplate creates the derived spot template if the cache
// does not have it. Create-if-absent is not atomic against concurrent
// external mutation, so a duplicate-name conflict is a no-op.
func (c *Controller) ensureLaunchTemplate(ctx context.Context, tally *Tally, instanceType string, mutated *bool) (string, error) {
	derived := cloudapi.DerivedTemplateName(tally.LaunchTemplateName, instanceType)
	if _, ok := c.cache.LaunchTemplate(derived); ok {
		return derived, nil
	}

	source, ok := c.cache.LaunchTemplate(tally.LaunchTemplateName)
	if !ok {
		return "", fmt.Errorf("source template %q not cached: %w", tally.LaunchTemplateName, cloudapi.ErrNotReady)
	}

	desc := cloudapi.LaunchTemplateDescriptor{
		Name:           derived,
		ImageID:        source.ImageID,
		KeyName:        source.KeyName,
		SecurityGroups: source.SecurityGroups,
		UserData:       source.UserData,
		InstanceType:   instanceType,
		SpotPrice:      tally.Tag(cloudapi.TagSpotPrice),
	}

	if c.dryRun {
		c.logger.Info("dry-run: would create launch template",
			"name", derived,
			"instance_type", instanceType,
			"spot_price", desc.SpotPrice,
		)
		return derived, nil
	}

	if err := c.compute.CreateLaunchTemplate(ctx, desc); err != nil {
		if errors.Is(err, cloudapi.ErrAlreadyExists) {
			c.logger.Debug("launch template appeared concurrently", "name", derived)
		} else {
			metrics.ExternalAPIErrors.WithLabelValues("CreateLaunchTemplate").Inc()
			return "", err
		}
	} else {
		metrics.LaunchTemplatesCreated.Inc()
	}
	*mutated = true

	if err := c.cache.RefreshLaunchTemplates(ctx); err != nil {
		c.logger.Warn("launch template refresh failed", "error", err)
		metrics.ExternalAPIErrors.WithLabelValues("DescribeLaunchTemplateVersions").Inc()
	}

	return derived, nil
}

// ensureSpotGroup creates the paired spot group, or adds the tally's
// count to its desired capacity when it already exists. Capacity is
// only ever added to: earlier cycles may have granted capacity that new
// terminations have not absorbed yet.
func (c *Controller) ensureSpotGroup(ctx context.Context, tally *Tally, templateName string, mutated *bool) error {
	spotName := cloudapi.SpotGroupName(tally.GroupName)

	existing, ok := c.cache.Group(spotName)
	if ok {
		newDesired := existing.DesiredCapacity + tally.NewInstances
		if c.dryRun {
			c.logger.Info("dry-run: would update spot group",
				"name", spotName,
				"desired", newDesired,
				"launch_template", templateName,
			)
			return nil
		}
		if err := c.compute.UpdateGroup(ctx, spotName, templateName, newDesired); err != nil {
			metrics.ExternalAPIErrors.WithLabelValues("UpdateAutoScalingGroup").Inc()
			return err
		}
		metrics.SpotGroupsUpdated.Inc()
		*mutated = true
		return nil
	}

	source := tally.Group
	desc := cloudapi.GroupDescriptor{
		Name:                   spotName,
		LaunchTemplateName:     templateName,
		DesiredCapacity:        tally.NewInstances,
		MinSize:                source.MinSize,
		MaxSize:                source.MaxSize,
		AvailabilityZones:      source.AvailabilityZones,
		LoadBalancerNames:      source.LoadBalancerNames,
		HealthCheckType:        source.HealthCheckType,
		HealthCheckGracePeriod: source.HealthCheckGracePeriod,
		Tags: map[string]string{
			cloudapi.TagGroupType: cloudapi.GroupTypeSpot,
			cloudapi.TagName:      spotName,
		},
	}

	if c.dryRun {
		c.logger.Info("dry-run: would create spot group",
			"name", spotName,
			"desired", desc.DesiredCapacity,
			"launch_template", templateName,
		)
		return nil
	}

	if err := c.compute.CreateGroup(ctx, desc); err != nil {
		if errors.Is(err, cloudapi.ErrAlreadyExists) {
			// Created by a concurrent actor after our cache snapshot;
			// the next cycle sees it and updates instead.
			c.logger.Debug("spot group appeared concurrently", "name", spotName)
			*mutated = true
			return nil
		}
		metrics.ExternalAPIErrors.WithLabelValues("CreateAutoScalingGroup").Inc()
		return err
	}
	metrics.SpotGroupsCreated.Inc()
	*mutated = true
	return nil
}

// reportSavings logs the estimated hourly savings of the replacement.
// Best effort: pricing lookups never fail a reconciliation.
func (c *Controller) reportSavings(ctx context.Context, tally *Tally, record pricing.Record) {
	if c.onDemand == nil {
		return
	}

	onDemandPrice, err := c.onDemand.OnDemandPrice(ctx, record.InstanceType)
	if err != nil {
		c.logger.Debug("on-demand price lookup failed", "instance_type", record.InstanceType, "error", err)
		return
	}

	estimate := (onDemandPrice - record.WeightedPrice) * float64(tally.NewInstances)
	if estimate < 0 {
		estimate = 0
	}
	metrics.EstimatedSavingsUSDHourly.WithLabelValues(tally.GroupName, record.InstanceType).Set(estimate)
	if c.ledger != nil {
		c.ledger.Record(tally.GroupName, record.InstanceType, record.AvailabilityZone,
			tally.NewInstances, record.WeightedPrice, onDemandPrice)
		return
	}
	c.logger.Info("estimated replacement savings",
		"group", tally.GroupName,
		"instance_type", record.InstanceType,
		"ondemand_price", onDemandPrice,
		"weighted_price", record.WeightedPrice,
		"instances", tally.NewInstances,
		"savings_hourly_usd", estimate,
	)
}

// queueURL resolves and memoizes the notification queue URL.
func (c *Controller) queueURL(ctx context.Context) (string, error) {
	if c.url != "" {
		return c.url, nil
	}
	url, err := c.queue.EnsureQueue(ctx, c.queueName)
	if err != nil {
		return "", err
	}
	c.url = url
	return url, nil
}

func splitPreferredTypes(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
