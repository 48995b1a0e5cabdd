package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-stock/jobs"
)

// Triggerer enqueues maintenance tasks by type.
type Triggerer interface {
	Trigger(ctx context.Context, taskType string) (*asynq.TaskInfo, error)
}

// Inspector reads queue state.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI runs the `jobs` subcommands against the queue.
type JobsCLI struct {
	client    Triggerer
	inspector Inspector
	out       io.Writer
}

// NewJobsCLI wires the CLI helpers.
func NewJobsCLI(client Triggerer, inspector Inspector, out io.Writer) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector, out: out}
}

// Run dispatches args: `trigger <task>`, `stats` or `scheduled [n]`.
func (c *JobsCLI) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: jobs trigger <stock:reconcile|idempotency:cleanup> | jobs stats | jobs scheduled")
	}
	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs trigger: task type required")
		}
		if c.client == nil {
			return errors.New("jobs cli: client not configured")
		}
		info, err := c.client.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case "stats":
		stats, err := c.InspectQueue()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(c.out, "queue=%s pending=%d active=%d scheduled=%d retry=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry)
		return err
	case "scheduled":
		size := 10
		if len(args) > 1 {
			if _, err := fmt.Sscanf(args[1], "%d", &size); err != nil {
				return fmt.Errorf("jobs scheduled: invalid size %q", args[1])
			}
		}
		tasks, err := c.ListScheduled(size)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if _, err := fmt.Fprintf(c.out, "%s %s next=%s\n", t.ID, t.Type, t.NextProcessAt.Format("2006-01-02T15:04:05Z07:00")); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("jobs: unknown command %q", args[0])
	}
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
}

// InspectQueue reports the metrics of the default queue.
func (c *JobsCLI) InspectQueue() (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
	}
	return stats, nil
}

// ListScheduled returns up to size scheduled tasks.
func (c *JobsCLI) ListScheduled(size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errors.New("jobs cli: inspector not configured")
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}
