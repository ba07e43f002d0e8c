package core

import (
	"context"
	"errors"
	"fmt"

	"go.temporal.io/api/serviceerror"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/workflow"
)

type RefundService struct {
	tc temporalclient.Client
}

func NewRefundService(tc temporalclient.Client) *RefundService {
	return &RefundService{tc: tc}
}

// HandleRefund starts the teardown workflow for the charge. The workflow ID
// is derived from the charge reference so redelivered webhooks collapse into
// the single already-running (or completed) teardown.
func (s *RefundService) HandleRefund(ctx context.Context, event model.RefundEvent) error {
	if event.ChargeRef == "" {
		return fmt.Errorf("refund event missing charge_ref: %w", ErrNotFound)
	}

	_, err := s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("teardown-%s", event.ChargeRef),
		TaskQueue: workflow.TaskQueue(),
	}, "TeardownInstanceWorkflow", event.ChargeRef)
	if err != nil {
		var already *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &already) {
			return nil
		}
		return fmt.Errorf("start TeardownInstanceWorkflow: %w", err)
	}
	return nil
}
