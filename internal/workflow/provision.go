package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/vpshost/internal/activity"
	"github.com/edvin/vpshost/internal/cloud"
	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/platform"
)

const (
	defaultPollInterval    = 10 * time.Second
	defaultPollMaxAttempts = 30
)

// ProvisionInstanceParams holds the arguments for ProvisionInstanceWorkflow.
// Poll settings come from config so tests can inject short intervals; zero
// values fall back to the defaults.
type ProvisionInstanceParams struct {
	InstanceID      string        `json:"instance_id"`
	PollInterval    time.Duration `json:"poll_interval"`
	PollMaxAttempts int           `json:"poll_max_attempts"`
}

// ProvisionInstanceWorkflow creates the cloud machine for an instance row
// and polls until it is active with an assigned IPv4 address. It runs
// detached from the customer-facing request; the instance row is the only
// channel back to the customer.
//
// Creation failure is terminal (status=failed, no automatic retry).
// Transient poll errors count against the attempt budget but never abort
// the loop on their own; exhausting the budget is terminal.
func ProvisionInstanceWorkflow(ctx workflow.Context, params ProvisionInstanceParams) error {
	logger := workflow.GetLogger(ctx)

	if params.PollInterval <= 0 {
		params.PollInterval = defaultPollInterval
	}
	if params.PollMaxAttempts <= 0 {
		params.PollMaxAttempts = defaultPollMaxAttempts
	}

	var inst *model.Instance
	err := workflow.ExecuteActivity(dbActivityCtx(ctx), "GetInstanceByID", params.InstanceID).Get(ctx, &inst)
	if err != nil {
		return fmt.Errorf("get instance: %w", err)
	}

	// A restarted worker resumes polling for rows that already have a
	// machine; only fresh rows create one.
	var providerID string
	if inst.ProviderID != nil {
		providerID = *inst.ProviderID
	} else {
		var created activity.CloudInstanceResult
		err = workflow.ExecuteActivity(singleAttemptCtx(ctx, 2*time.Minute), "CreateCloudInstance", activity.CreateCloudInstanceParams{
			Name: "vpshost-" + inst.ID,
			Plan: inst.Plan,
			Tag:  platform.CustomerTag(inst.CustomerID),
		}).Get(ctx, &created)
		if err != nil {
			markInstanceFailed(ctx, inst.ID, fmt.Sprintf("machine creation failed: %v", err))
			return fmt.Errorf("create cloud instance: %w", err)
		}

		providerID = created.ProviderID
		var provisionalIP *string
		if created.IPAddress != "" {
			provisionalIP = &created.IPAddress
		}
		err = workflow.ExecuteActivity(dbActivityCtx(ctx), "SetInstanceProvider", activity.SetInstanceProviderParams{
			ID:         inst.ID,
			ProviderID: providerID,
			IPAddress:  provisionalIP,
		}).Get(ctx, nil)
		if err != nil {
			return fmt.Errorf("persist provider id: %w", err)
		}
	}

	// Poll unconditionally, even when the create response already carried
	// an address: the provider may hand out descriptors before the network
	// interface is attached, and "active" is decided by Get, not Create.
	for attempt := 1; attempt <= params.PollMaxAttempts; attempt++ {
		var m activity.CloudInstanceResult
		err := workflow.ExecuteActivity(singleAttemptCtx(ctx, 30*time.Second), "GetCloudInstance", providerID).Get(ctx, &m)
		if err != nil {
			// Transient fetch error: one spent attempt, not a verdict.
			logger.Warn("machine status fetch failed",
				"instance_id", inst.ID,
				"attempt", attempt,
				"error", err)
		} else if m.Status == cloud.MachineStatusActive && m.IPAddress != "" {
			var found bool
			err := workflow.ExecuteActivity(dbActivityCtx(ctx), "MarkInstanceRunning", activity.MarkInstanceRunningParams{
				ID:        inst.ID,
				IPAddress: m.IPAddress,
			}).Get(ctx, &found)
			if err != nil {
				return fmt.Errorf("mark instance running: %w", err)
			}
			if !found {
				logger.Warn("instance deleted while provisioning, machine may be stranded",
					"instance_id", inst.ID,
					"provider_id", providerID)
			}
			return nil
		}

		if attempt < params.PollMaxAttempts {
			if err := workflow.Sleep(ctx, params.PollInterval); err != nil {
				return err
			}
		}
	}

	msg := fmt.Sprintf("machine not active with address after %d attempts", params.PollMaxAttempts)
	markInstanceFailed(ctx, inst.ID, msg)
	return fmt.Errorf("provision instance %s: %s", inst.ID, msg)
}
