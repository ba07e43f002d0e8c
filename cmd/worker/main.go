package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"go.temporal.io/api/serviceerror"
	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/vpshost/internal/activity"
	"github.com/edvin/vpshost/internal/cloud"
	"github.com/edvin/vpshost/internal/config"
	"github.com/edvin/vpshost/internal/db"
	"github.com/edvin/vpshost/internal/logging"
	"github.com/edvin/vpshost/internal/metrics"
	"github.com/edvin/vpshost/internal/sshexec"
	"github.com/edvin/vpshost/internal/verify"
	"github.com/edvin/vpshost/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	tc, err := temporalclient.Dial(temporalclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	defer tc.Close()

	w := worker.New(tc, workflow.TaskQueue(), worker.Options{})

	// Register activities
	coreDB := activity.NewCoreDB(pool)
	w.RegisterActivity(coreDB)

	cloudClient := cloud.NewClient(cfg.CloudAPIURL, cfg.CloudAPIToken)
	w.RegisterActivity(activity.NewCloud(cloudClient, cfg.CloudRegion, cfg.CloudImage))

	executor := sshexec.NewExecutor(cfg.SSHDialTimeout)
	checker := verify.NewChecker(executor, logger, cfg.DNSTimeout, cfg.TLSTimeout)
	w.RegisterActivity(activity.NewVerify(checker))

	// Register workflows
	w.RegisterWorkflow(workflow.ProvisionInstanceWorkflow)
	w.RegisterWorkflow(workflow.TeardownInstanceWorkflow)
	w.RegisterWorkflow(workflow.ReconcileDomainsWorkflow)

	if cfg.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsAddr)
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", workflow.TaskQueue()).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	registerReconcileSchedule(ctx, tc, cfg, logger)
	resumeProvisioning(ctx, tc, coreDB, cfg, logger)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}

// registerReconcileSchedule creates the periodic certificate reconciliation
// schedule. An already-existing schedule is left alone so re-deploys do not
// fail.
func registerReconcileSchedule(ctx context.Context, tc temporalclient.Client, cfg *config.Config, logger zerolog.Logger) {
	const scheduleID = "domain-reconcile-cron"

	_, err := tc.ScheduleClient().Create(ctx, temporalclient.ScheduleOptions{
		ID: scheduleID,
		Spec: temporalclient.ScheduleSpec{
			CronExpressions: []string{cfg.ReconcileCron},
		},
		Action: &temporalclient.ScheduleWorkflowAction{
			ID:        scheduleID,
			Workflow:  workflow.ReconcileDomainsWorkflow,
			Args:      []interface{}{workflow.ReconcileDomainsParams{CheckDelay: cfg.ReconcileDelay}},
			TaskQueue: workflow.TaskQueue(),
		},
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") || strings.Contains(err.Error(), "AlreadyExists") {
			logger.Info().Str("id", scheduleID).Msg("cron schedule already exists, skipping")
		} else {
			logger.Fatal().Err(err).Str("id", scheduleID).Msg("failed to create cron schedule")
		}
	} else {
		logger.Info().Str("id", scheduleID).Str("cron", cfg.ReconcileCron).Msg("created cron schedule")
	}
}

// resumeProvisioning re-dispatches provisioning for instances stuck in
// "provisioning" after a restart. Workflow IDs are derived from the instance
// ID, so instances whose workflow is still running are rejected by Temporal
// and skipped.
func resumeProvisioning(ctx context.Context, tc temporalclient.Client, coreDB *activity.CoreDB, cfg *config.Config, logger zerolog.Logger) {
	ids, err := coreDB.ListProvisioningInstanceIDs(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("failed to list provisioning instances for resume")
		return
	}

	for _, id := range ids {
		_, err := tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
			ID:        fmt.Sprintf("provision-instance-%s", id),
			TaskQueue: workflow.TaskQueue(),
		}, workflow.ProvisionInstanceWorkflow, workflow.ProvisionInstanceParams{
			InstanceID:      id,
			PollInterval:    cfg.PollInterval,
			PollMaxAttempts: cfg.PollMaxAttempts,
		})
		if err != nil {
			var already *serviceerror.WorkflowExecutionAlreadyStarted
			if errors.As(err, &already) {
				continue
			}
			logger.Error().Err(err).Str("instance_id", id).Msg("failed to resume provisioning")
			continue
		}
		logger.Info().Str("instance_id", id).Msg("resumed provisioning workflow")
	}
}
