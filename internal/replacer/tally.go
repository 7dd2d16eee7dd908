// Package replacer implements the replacement control loop: it drains
// termination notifications into per-group tallies and reconciles each
// tally against the fleet by ensuring a spot launch template and a
// paired spot group exist with the right capacity.
package replacer

import "github.com/patoarvizu/knotifier/internal/cloudapi"

// Tally is the replacement debt owed to one on-demand group in the
// current cycle. Exactly one tally exists per group; repeated
// terminations increment NewInstances rather than create duplicates.
// Apart from that single counter the value is fixed at creation.
type Tally struct {
	GroupName          string
	LaunchTemplateName string
	OriginalCapacity   int32
	NewInstances       int32
	Group              cloudapi.GroupDescriptor
	Tags               map[string]string
}

// newTally snapshots the group at the time of its first termination
// event in the cycle.
func newTally(group cloudapi.GroupDescriptor) *Tally {
	tags := make(map[string]string, len(group.Tags))
	for key, value := range group.Tags {
		tags[key] = value
	}
	return &Tally{
		GroupName:          group.Name,
		LaunchTemplateName: group.LaunchTemplateName,
		OriginalCapacity:   group.DesiredCapacity,
		NewInstances:       1,
		Group:              group,
		Tags:               tags,
	}
}

// increment records one more termination for the group.
func (t *Tally) increment() {
	t.NewInstances++
}

// Tag returns a tag captured at tally creation, or "" when absent.
func (t *Tally) Tag(key string) string {
	return t.Tags[key]
}
