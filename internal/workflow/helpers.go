package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/edvin/vpshost/internal/activity"
)

const taskQueue = "vpshost-tasks"

// TaskQueue returns the Temporal task queue shared by all workers.
func TaskQueue() string { return taskQueue }

// dbActivityCtx returns a context with the standard options for short
// database activities: quick timeout, a few retries.
func dbActivityCtx(ctx workflow.Context) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:    3,
			InitialInterval:    time.Second,
			MaximumInterval:    10 * time.Second,
			BackoffCoefficient: 2.0,
		},
	})
}

// singleAttemptCtx returns a context for activities whose retry semantics
// the workflow controls itself (creation is terminal on failure; each poll
// counts as exactly one attempt).
func singleAttemptCtx(ctx workflow.Context, timeout time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})
}

// markInstanceFailed records a terminal provisioning failure. Best-effort:
// a write error is logged, since the primary failure matters more.
func markInstanceFailed(ctx workflow.Context, instanceID, message string) {
	logger := workflow.GetLogger(ctx)

	var found bool
	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "MarkInstanceFailed", activity.MarkInstanceFailedParams{
		ID:      instanceID,
		Message: message,
	}).Get(ctx, &found)
	if err != nil {
		logger.Error("failed to mark instance failed", "instance_id", instanceID, "error", err)
		return
	}
	if !found {
		logger.Warn("instance row gone before failure could be recorded", "instance_id", instanceID)
	}
}
