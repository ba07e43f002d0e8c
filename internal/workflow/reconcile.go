package workflow

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"

	"github.com/edvin/vpshost/internal/activity"
	"github.com/edvin/vpshost/internal/verify"
)

const (
	defaultCheckDelay  = 2 * time.Second
	defaultGuardMaxAge = 30 * time.Minute
)

// ReconcileDomainsParams holds the arguments for ReconcileDomainsWorkflow.
type ReconcileDomainsParams struct {
	// CheckDelay is the pause between consecutive domains, bounding load
	// on DNS resolvers and customer machines.
	CheckDelay time.Duration `json:"check_delay"`
	// GuardMaxAge is how old a live guard row may be before it is treated
	// as a crashed run rather than an overlapping one.
	GuardMaxAge time.Duration `json:"guard_max_age"`
}

// ReconcileDomainsWorkflow is the periodic certificate-state sweep: it
// re-derives the canonical status of every previously-touched domain from
// live checks and persists the result. Domains are checked strictly in
// sequence. A sweep that would overlap a still-running one skips itself.
func ReconcileDomainsWorkflow(ctx workflow.Context, params ReconcileDomainsParams) error {
	logger := workflow.GetLogger(ctx)

	if params.CheckDelay <= 0 {
		params.CheckDelay = defaultCheckDelay
	}
	if params.GuardMaxAge <= 0 {
		params.GuardMaxAge = defaultGuardMaxAge
	}

	dbCtx := dbActivityCtx(ctx)

	var runID string
	err := workflow.ExecuteActivity(dbCtx, "BeginReconcileRun", activity.BeginReconcileRunParams{
		MaxAge: params.GuardMaxAge,
	}).Get(ctx, &runID)
	if err != nil {
		return fmt.Errorf("begin reconcile run: %w", err)
	}
	if runID == "" {
		logger.Info("previous reconciliation run still live, skipping sweep")
		return nil
	}

	var items []activity.DomainWithInstance
	if err := workflow.ExecuteActivity(dbCtx, "ListDomainsForReconcile").Get(ctx, &items); err != nil {
		_ = workflow.ExecuteActivity(dbCtx, "FinishReconcileRun", activity.FinishReconcileRunParams{
			RunID:  runID,
			Failed: true,
		}).Get(ctx, nil)
		return fmt.Errorf("list domains: %w", err)
	}

	counts := make(map[string]int)
	checked := 0

	for i, item := range items {
		// The three checks carry their own bounded timeouts; one slow or
		// unreachable domain must not stall the rest of the sweep beyond
		// the activity deadline.
		var out verify.Outcome
		err := workflow.ExecuteActivity(singleAttemptCtx(ctx, 2*time.Minute), "VerifyDomain", activity.VerifyDomainParams{
			Domain:   item.Domain,
			Instance: item.Instance,
		}).Get(ctx, &out)
		if err != nil {
			logger.Warn("domain verification failed",
				"hostname", item.Domain.Hostname,
				"error", err)
		} else {
			err = workflow.ExecuteActivity(dbCtx, "SaveDomainVerification", activity.SaveDomainVerificationParams{
				DomainID:     item.Domain.ID,
				Status:       out.Status,
				SSLEnabled:   out.SSLEnabled,
				DNSValid:     out.DNSValid,
				CertPresent:  out.Cert.Bool(),
				TLSReachable: out.TLSReachable,
				ExpectedIP:   out.ExpectedIP,
				Diagnostic:   out.Diagnostic,
			}).Get(ctx, nil)
			if err != nil {
				logger.Warn("failed to persist verification",
					"hostname", item.Domain.Hostname,
					"error", err)
			} else {
				counts[out.Status]++
				checked++
			}
		}

		if i < len(items)-1 {
			if err := workflow.Sleep(ctx, params.CheckDelay); err != nil {
				return err
			}
		}
	}

	err = workflow.ExecuteActivity(dbCtx, "FinishReconcileRun", activity.FinishReconcileRunParams{
		RunID:          runID,
		DomainsChecked: checked,
		StatusCounts:   counts,
	}).Get(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish reconcile run: %w", err)
	}

	logger.Info("reconciliation sweep finished",
		"domains_checked", checked,
		"active", counts["active"],
		"pending", counts["pending"],
		"orphaned", counts["orphaned"],
		"unreachable", counts["unreachable"],
		"none", counts["none"])
	return nil
}
