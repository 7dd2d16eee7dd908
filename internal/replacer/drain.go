package replacer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/patoarvizu/knotifier/internal/cloudapi"
	"github.com/patoarvizu/knotifier/internal/metrics"
)

// terminationEvent is the notification event emitted when scaling
// policy terminates an instance.
const terminationEvent = "autoscaling:EC2_INSTANCE_TERMINATE"

// receiveBatchSize bounds one drain pass.
const receiveBatchSize = 10

// envelope is the outer queue payload; the inner notification is
// JSON-encoded inside Message.
type envelope struct {
	Message string `json:"Message"`
}

// notification is the scaling event we care about.
type notification struct {
	Event     string `json:"Event"`
	GroupName string `json:"AutoScalingGroupName"`
}

// drain folds currently available termination notifications into the
// per-group tallies.
//
// Acknowledgement policy: a message whose group is not cached yet is
// left on the queue for a later cycle; every other message is deleted
// exactly once, including malformed ones, so a poison message never
// loops forever.
func (c *Controller) drain(ctx context.Context) error {
	queueURL, err := c.queueURL(ctx)
	if err != nil {
		return err
	}

	messages, err := c.queue.Receive(ctx, queueURL, receiveBatchSize)
	if err != nil {
		return err
	}

	for _, message := range messages {
		outcome := c.fold(message.Body)
		metrics.NotificationsProcessed.WithLabelValues(outcome).Inc()
		if outcome == outcomeDeferred {
			continue
		}
		if c.dryRun {
			c.logger.Info("dry-run: would delete queue message", "outcome", outcome)
			continue
		}
		if err := c.queue.Delete(ctx, queueURL, message.Handle); err != nil {
			c.logger.Warn("failed to delete queue message", "error", err)
			metrics.ExternalAPIErrors.WithLabelValues("DeleteMessage").Inc()
		}
	}

	return nil
}

const (
	outcomeTallied   = "tallied"
	outcomeIgnored   = "ignored"
	outcomeMalformed = "malformed"
	outcomeDeferred  = "deferred"
)

// fold classifies one message body and, for a valid termination of an
// on-demand group, records it against the group's tally.
func (c *Controller) fold(body string) string {
	event, err := parseNotification(body)
	if err != nil {
		c.logger.Warn("malformed queue message", "error", err)
		return outcomeMalformed
	}

	group, ok := c.cache.Group(event.GroupName)
	if !ok {
		// The group may exist but not be cached yet; leave the message
		// for a later cycle.
		c.logger.Debug("group not cached yet, deferring notification", "group", event.GroupName)
		return outcomeDeferred
	}

	if event.Event != terminationEvent || !group.IsOnDemand() {
		c.logger.Debug("ignoring notification",
			"group", event.GroupName,
			"event", event.Event,
			"group_type", group.Tag(cloudapi.TagGroupType),
		)
		return outcomeIgnored
	}

	if tally, exists := c.tallies[event.GroupName]; exists {
		tally.increment()
	} else {
		c.tallies[event.GroupName] = newTally(group)
	}

	tally := c.tallies[event.GroupName]
	metrics.ReplacementsPending.WithLabelValues(event.GroupName).Set(float64(tally.NewInstances))
	c.logger.Info("termination tallied",
		"group", event.GroupName,
		"replacements_pending", tally.NewInstances,
		"original_capacity", tally.OriginalCapacity,
	)

	return outcomeTallied
}

// parseNotification unwraps the two-layer JSON payload.
func parseNotification(body string) (notification, error) {
	var outer envelope
	if err := json.Unmarshal([]byte(body), &outer); err != nil {
		return notification{}, fmt.Errorf("parse envelope: %w", err)
	}

	var event notification
	if err := json.Unmarshal([]byte(outer.Message), &event); err != nil {
		return notification{}, fmt.Errorf("parse notification: %w", err)
	}
	if event.GroupName == "" {
		return notification{}, fmt.Errorf("notification missing AutoScalingGroupName")
	}

	return event, nil
}
