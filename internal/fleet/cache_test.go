package fleet

import (
	"context"
	"errors"
	"testing"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
)

func TestCacheNotReadyUntilBothRefreshed(t *testing.T) {
	compute := cloudapi.NewFakeComputeAPI()
	compute.AddGroup(cloudapi.GroupDescriptor{Name: "web-od"})
	compute.AddLaunchTemplate(cloudapi.LaunchTemplateDescriptor{Name: "web"})

	cache := NewCache(compute, nil)
	if cache.Ready() {
		t.Fatal("empty cache must not be ready")
	}

	if err := cache.RefreshGroups(context.Background()); err != nil {
		t.Fatalf("RefreshGroups: %v", err)
	}
	if cache.Ready() {
		t.Fatal("cache with only groups must not be ready")
	}

	if err := cache.RefreshLaunchTemplates(context.Background()); err != nil {
		t.Fatalf("RefreshLaunchTemplates: %v", err)
	}
	if !cache.Ready() {
		t.Fatal("cache with groups and templates must be ready")
	}
}

func TestRefreshMergesByName(t *testing.T) {
	compute := cloudapi.NewFakeComputeAPI()
	compute.AddGroup(cloudapi.GroupDescriptor{Name: "web-od", DesiredCapacity: 3})

	cache := NewCache(compute, nil)
	if err := cache.RefreshGroups(context.Background()); err != nil {
		t.Fatalf("RefreshGroups: %v", err)
	}

	compute.AddGroup(cloudapi.GroupDescriptor{Name: "web-od", DesiredCapacity: 5})
	compute.AddGroup(cloudapi.GroupDescriptor{Name: "api-od", DesiredCapacity: 2})
	if err := cache.RefreshGroups(context.Background()); err != nil {
		t.Fatalf("RefreshGroups: %v", err)
	}

	group, ok := cache.Group("web-od")
	if !ok {
		t.Fatal("web-od not cached")
	}
	if group.DesiredCapacity != 5 {
		t.Errorf("DesiredCapacity = %d, want 5", group.DesiredCapacity)
	}
	if _, ok := cache.Group("api-od"); !ok {
		t.Error("api-od not cached after second refresh")
	}
}

func TestRefreshFailureLeavesCacheIntact(t *testing.T) {
	compute := cloudapi.NewFakeComputeAPI()
	compute.AddGroup(cloudapi.GroupDescriptor{Name: "web-od"})

	cache := NewCache(compute, nil)
	if err := cache.RefreshGroups(context.Background()); err != nil {
		t.Fatalf("RefreshGroups: %v", err)
	}

	compute.FailOn["DescribeGroups"] = errors.New("throttled")
	if err := cache.RefreshGroups(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}

	if _, ok := cache.Group("web-od"); !ok {
		t.Error("failed refresh must not evict cached groups")
	}
}

func TestSnapshotsAreCopies(t *testing.T) {
	compute := cloudapi.NewFakeComputeAPI()
	compute.AddGroup(cloudapi.GroupDescriptor{Name: "web-od"})
	compute.AddLaunchTemplate(cloudapi.LaunchTemplateDescriptor{Name: "web"})

	cache := NewCache(compute, nil)
	if err := cache.RefreshGroups(context.Background()); err != nil {
		t.Fatalf("RefreshGroups: %v", err)
	}
	if err := cache.RefreshLaunchTemplates(context.Background()); err != nil {
		t.Fatalf("RefreshLaunchTemplates: %v", err)
	}

	groups := cache.Groups()
	delete(groups, "web-od")
	if _, ok := cache.Group("web-od"); !ok {
		t.Error("mutating a snapshot must not affect the cache")
	}

	templates := cache.LaunchTemplates()
	delete(templates, "web")
	if _, ok := cache.LaunchTemplate("web"); !ok {
		t.Error("mutating a template snapshot must not affect the cache")
	}
}
