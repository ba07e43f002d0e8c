package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/platform"
)

// TeardownInstanceWorkflow reacts to a payment refund: it destroys the
// customer's cloud machine and removes the instance record. Idempotent —
// an unknown or already-deleted charge reference is a no-op.
//
// The database record is the authoritative customer-facing state: a failed
// machine deletion is logged for operational cleanup but never blocks
// removal of the record.
func TeardownInstanceWorkflow(ctx workflow.Context, chargeRef string) error {
	logger := workflow.GetLogger(ctx)
	dbCtx := dbActivityCtx(ctx)

	var inst *model.Instance
	if err := workflow.ExecuteActivity(dbCtx, "GetInstanceByChargeRef", chargeRef).Get(ctx, &inst); err != nil {
		return fmt.Errorf("look up instance for charge: %w", err)
	}
	if inst == nil {
		logger.Info("no instance for refunded charge, nothing to tear down", "charge_ref", chargeRef)
		return nil
	}

	providerID := ""
	if inst.ProviderID != nil {
		providerID = *inst.ProviderID
	} else {
		// Degraded tag-match recovery: the provider id was never persisted
		// (creation partially failed), so re-associate via the customer tag.
		logger.Warn("provider id missing, falling back to tag match",
			"instance_id", inst.ID,
			"customer_id", inst.CustomerID)
		err := workflow.ExecuteActivity(dbCtx, "FindCloudInstanceByTag", platform.CustomerTag(inst.CustomerID)).Get(ctx, &providerID)
		if err != nil {
			logger.Error("tag-match lookup failed, machine may be stranded",
				"instance_id", inst.ID,
				"error", err)
		}
	}

	if providerID != "" {
		err := workflow.ExecuteActivity(singleAttemptCtx(ctx, time.Minute), "DeleteCloudInstance", providerID).Get(ctx, nil)
		if err != nil {
			logger.Error("machine deletion failed, continuing with record cleanup",
				"instance_id", inst.ID,
				"provider_id", providerID,
				"error", err)
		}
	} else {
		logger.Info("no cloud machine to delete", "instance_id", inst.ID)
	}

	if err := workflow.ExecuteActivity(dbCtx, "DeleteInstanceRecord", inst.ID).Get(ctx, nil); err != nil {
		return fmt.Errorf("delete instance record: %w", err)
	}

	logger.Info("instance torn down", "instance_id", inst.ID, "charge_ref", chargeRef)
	return nil
}
