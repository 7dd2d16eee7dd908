// Package cloudapi defines the boundaries to the compute fleet, the
// termination notification queue, and the spot price history source.
// Implementations live in the aws subpackage; deterministic fakes for
// tests and dry runs live alongside the interfaces.
package cloudapi

import "context"

// Well-known group tag keys and values.
const (
	TagGroupType      = "GroupType"
	TagPreferredTypes = "PreferredTypes"
	TagSpotPrice      = "SpotPrice"
	TagName           = "Name"

	GroupTypeOnDemand = "OnDemand"
	GroupTypeSpot     = "Spot"
)

// SpotGroupSuffix is appended to an on-demand group name to derive the
// name of its paired spot-backed group.
const SpotGroupSuffix = "-spot"

// GroupDescriptor is a point-in-time snapshot of one scaling group.
type GroupDescriptor struct {
	Name                   string
	LaunchTemplateName     string
	DesiredCapacity        int32
	MinSize                int32
	MaxSize                int32
	AvailabilityZones      []string
	LoadBalancerNames      []string
	HealthCheckType        string
	HealthCheckGracePeriod int32
	Tags                   map[string]string
}

// Tag returns the value of a group tag, or "" when absent.
func (g GroupDescriptor) Tag(key string) string {
	return g.Tags[key]
}

// IsOnDemand reports whether the group is tagged as on-demand capacity.
func (g GroupDescriptor) IsOnDemand() bool {
	return g.Tag(TagGroupType) == GroupTypeOnDemand
}

// SpotGroupName derives the paired spot group name for an on-demand group.
func SpotGroupName(onDemandGroup string) string {
	return onDemandGroup + SpotGroupSuffix
}

// LaunchTemplateDescriptor is an immutable, named instance blueprint.
// Templates are versioned by name and never edited in place.
type LaunchTemplateDescriptor struct {
	Name           string
	ImageID        string
	KeyName        string
	SecurityGroups []string
	UserData       string
	InstanceType   string
	SpotPrice      string
}

// DerivedTemplateName derives the template name for a replacement
// instance type from the on-demand group's base template name.
func DerivedTemplateName(base, instanceType string) string {
	return base + "-" + instanceType
}

// ComputeAPI is the mutating boundary to the fleet-management service.
// Describe calls page internally and return complete listings. Create
// calls surface ErrAlreadyExists on duplicate names so callers can
// treat the conflict as a no-op.
type ComputeAPI interface {
	DescribeGroups(ctx context.Context) ([]GroupDescriptor, error)
	DescribeLaunchTemplates(ctx context.Context) ([]LaunchTemplateDescriptor, error)
	CreateLaunchTemplate(ctx context.Context, desc LaunchTemplateDescriptor) error
	CreateGroup(ctx context.Context, desc GroupDescriptor) error
	UpdateGroup(ctx context.Context, name string, launchTemplateName string, desiredCapacity int32) error
}
