// Package cli implements the `odyssey jobs` operator commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-crm/jobs"
)

const (
	exitOK    = 0
	exitFail  = 1
	exitUsage = 2

	usage = "usage: jobs trigger NAME | jobs stats | jobs scheduled"
)

var errNotConnected = errors.New("jobs cli: not connected to redis")

// JobsCLI talks to the job queue on behalf of an operator.
type JobsCLI struct {
	client    *jobs.Client
	inspector *asynq.Inspector
}

// NewJobsCLI connects the enqueue client and the queue inspector to the redis
// behind opts.
func NewJobsCLI(opts asynq.RedisClientOpt) (*JobsCLI, error) {
	client, err := jobs.NewClient(opts)
	if err != nil {
		return nil, err
	}
	return &JobsCLI{client: client, inspector: asynq.NewInspector(opts)}, nil
}

// Close releases both redis connections.
func (c *JobsCLI) Close() error {
	var errs []error
	if c.inspector != nil {
		errs = append(errs, c.inspector.Close())
	}
	if c.client != nil {
		errs = append(errs, c.client.Close())
	}
	return errors.Join(errs...)
}

// Trigger enqueues the named reminder task for immediate processing.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errNotConnected
	}
	info, err := c.client.Enqueue(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("jobs cli: %w", err)
	}
	return info, nil
}

// Stats reports the default queue counters, as served by GET /api/jobs/health.
func (c *JobsCLI) Stats(ctx context.Context) (jobs.QueueHealth, error) {
	if c == nil || c.inspector == nil {
		return jobs.QueueHealth{}, errNotConnected
	}
	return jobs.InspectQueue(c.inspector)
}

// Scheduled lists up to size tasks waiting in the default queue.
func (c *JobsCLI) Scheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error) {
	if c == nil || c.inspector == nil {
		return nil, errNotConnected
	}
	if size <= 0 {
		size = 10
	}
	return c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(size), asynq.Page(1))
}

// JobsRunner is what RunJobs needs from JobsCLI.
type JobsRunner interface {
	Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error)
	Stats(ctx context.Context) (jobs.QueueHealth, error)
	Scheduled(ctx context.Context, size int) ([]*asynq.TaskInfo, error)
}

// RunJobs executes one jobs subcommand, writing its report to out, and returns
// the process exit code.
func RunJobs(ctx context.Context, runner JobsRunner, args []string, out io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(out, usage)
		return exitUsage
	}
	cmd := args[0]
	fail := func(err error) int {
		fmt.Fprintf(out, "jobs %s: %v\n", cmd, err)
		return exitFail
	}

	switch cmd {
	case "trigger":
		if len(args) < 2 {
			fmt.Fprintf(out, "jobs trigger: name required (%s)\n", strings.Join(jobs.TaskNames(), ", "))
			return exitUsage
		}
		info, err := runner.Trigger(ctx, args[1])
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	case "stats":
		s, err := runner.Stats(ctx)
		if err != nil {
			return fail(err)
		}
		fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d paused=%t\n",
			s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Paused)
	case "scheduled":
		tasks, err := runner.Scheduled(ctx, 20)
		if err != nil {
			return fail(err)
		}
		if len(tasks) == 0 {
			fmt.Fprintln(out, "no scheduled tasks")
		}
		for _, t := range tasks {
			fmt.Fprintf(out, "%s %s %s\n", t.ID, t.Type, t.NextProcessAt.Format(time.RFC3339))
		}
	default:
		fmt.Fprintf(out, "jobs: unknown subcommand %q\n%s\n", cmd, usage)
		return exitUsage
	}
	return exitOK
}
