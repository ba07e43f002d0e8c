package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/vpshost/internal/config"
	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/platform"
	"github.com/edvin/vpshost/internal/workflow"
)

type InstanceService struct {
	db  DB
	tc  temporalclient.Client
	cfg *config.Config
}

func NewInstanceService(db DB, tc temporalclient.Client, cfg *config.Config) *InstanceService {
	return &InstanceService{db: db, tc: tc, cfg: cfg}
}

// Create inserts a provisioning instance row for the customer and starts
// the detached provisioning workflow. It returns immediately; readiness is
// reported through the row's status. At most one non-terminal instance may
// exist per customer; violations return ErrInstanceExists.
func (s *InstanceService) Create(ctx context.Context, customerID, planName string, chargeRef *string) (*model.Instance, error) {
	plan, err := model.PlanByName(planName)
	if err != nil {
		return nil, err
	}

	var exists bool
	err = s.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM instances WHERE customer_id = $1 AND status NOT IN ($2, $3))`,
		customerID, model.StatusFailed, model.StatusDeleted).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check existing instance: %w", err)
	}
	if exists {
		return nil, ErrInstanceExists
	}

	now := time.Now()
	inst := &model.Instance{
		ID:           platform.NewID(),
		CustomerID:   customerID,
		Status:       model.StatusProvisioning,
		LoginUser:    s.cfg.SSHUser,
		LoginSecret:  platform.NewSecret(),
		Plan:         plan.Name,
		SpecSnapshot: plan.Snapshot(),
		ChargeRef:    chargeRef,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO instances (id, customer_id, status, login_user, login_secret, plan, spec_snapshot, charge_ref, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		inst.ID, inst.CustomerID, inst.Status, inst.LoginUser, inst.LoginSecret,
		inst.Plan, inst.SpecSnapshot, inst.ChargeRef, inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		// The partial unique index backs the pre-check against races.
		if isUniqueViolation(err) {
			return nil, ErrInstanceExists
		}
		return nil, fmt.Errorf("insert instance: %w", err)
	}

	_, err = s.tc.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		ID:        fmt.Sprintf("provision-instance-%s", inst.ID),
		TaskQueue: workflow.TaskQueue(),
	}, "ProvisionInstanceWorkflow", workflow.ProvisionInstanceParams{
		InstanceID:      inst.ID,
		PollInterval:    s.cfg.PollInterval,
		PollMaxAttempts: s.cfg.PollMaxAttempts,
	})
	if err != nil {
		return nil, fmt.Errorf("start ProvisionInstanceWorkflow: %w", err)
	}

	return inst, nil
}

func (s *InstanceService) GetByID(ctx context.Context, id string) (*model.Instance, error) {
	var inst model.Instance
	err := s.db.QueryRow(ctx,
		`SELECT id, customer_id, provider_id, status, ip_address, login_user, login_secret,
		        plan, spec_snapshot, charge_ref, status_message, created_at, updated_at
		 FROM instances WHERE id = $1`, id,
	).Scan(&inst.ID, &inst.CustomerID, &inst.ProviderID, &inst.Status, &inst.IPAddress,
		&inst.LoginUser, &inst.LoginSecret, &inst.Plan, &inst.SpecSnapshot, &inst.ChargeRef,
		&inst.StatusMessage, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get instance %s: %w", id, err)
	}
	return &inst, nil
}

func (s *InstanceService) List(ctx context.Context, limit int, cursor string) ([]model.Instance, bool, error) {
	query := `SELECT id, customer_id, provider_id, status, ip_address, login_user, login_secret,
	                 plan, spec_snapshot, charge_ref, status_message, created_at, updated_at
	          FROM instances`
	args := []any{}
	argIdx := 1

	if cursor != "" {
		query += fmt.Sprintf(` WHERE id > $%d`, argIdx)
		args = append(args, cursor)
		argIdx++
	}

	query += ` ORDER BY id`
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list instances: %w", err)
	}
	defer rows.Close()

	var instances []model.Instance
	for rows.Next() {
		var inst model.Instance
		if err := rows.Scan(&inst.ID, &inst.CustomerID, &inst.ProviderID, &inst.Status, &inst.IPAddress,
			&inst.LoginUser, &inst.LoginSecret, &inst.Plan, &inst.SpecSnapshot, &inst.ChargeRef,
			&inst.StatusMessage, &inst.CreatedAt, &inst.UpdatedAt); err != nil {
			return nil, false, fmt.Errorf("scan instance: %w", err)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("iterate instances: %w", err)
	}

	hasMore := len(instances) > limit
	if hasMore {
		instances = instances[:limit]
	}
	return instances, hasMore, nil
}
