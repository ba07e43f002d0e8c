package activity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edvin/vpshost/internal/metrics"
	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/platform"
)

// DB defines the database operations used by activity structs.
// *pgxpool.Pool satisfies this interface.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CoreDB contains activities that read from and update the control-plane
// database.
type CoreDB struct {
	db DB
}

// NewCoreDB creates a new CoreDB activity struct.
func NewCoreDB(db DB) *CoreDB {
	return &CoreDB{db: db}
}

const instanceColumns = `id, customer_id, provider_id, status, ip_address, login_user, login_secret,
	 plan, spec_snapshot, charge_ref, status_message, created_at, updated_at`

func scanInstance(row pgx.Row) (*model.Instance, error) {
	var inst model.Instance
	err := row.Scan(&inst.ID, &inst.CustomerID, &inst.ProviderID, &inst.Status, &inst.IPAddress,
		&inst.LoginUser, &inst.LoginSecret, &inst.Plan, &inst.SpecSnapshot, &inst.ChargeRef,
		&inst.StatusMessage, &inst.CreatedAt, &inst.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inst, nil
}

// GetInstanceByID retrieves an instance by its ID.
func (a *CoreDB) GetInstanceByID(ctx context.Context, id string) (*model.Instance, error) {
	inst, err := scanInstance(a.db.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get instance by id: %w", err)
	}
	return inst, nil
}

// GetInstanceByChargeRef retrieves the instance created for a payment
// charge. A missing row returns (nil, nil): refunds for unknown charges are
// a no-op, not an error.
func (a *CoreDB) GetInstanceByChargeRef(ctx context.Context, chargeRef string) (*model.Instance, error) {
	inst, err := scanInstance(a.db.QueryRow(ctx,
		`SELECT `+instanceColumns+` FROM instances WHERE charge_ref = $1`, chargeRef))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get instance by charge ref: %w", err)
	}
	return inst, nil
}

// SetInstanceProviderParams holds parameters for SetInstanceProvider.
type SetInstanceProviderParams struct {
	ID         string  `json:"id"`
	ProviderID string  `json:"provider_id"`
	IPAddress  *string `json:"ip_address,omitempty"`
}

// SetInstanceProvider persists the provider machine id (and the provisional
// IP when the create response already carried one).
func (a *CoreDB) SetInstanceProvider(ctx context.Context, params SetInstanceProviderParams) error {
	_, err := a.db.Exec(ctx,
		`UPDATE instances SET provider_id = $1, ip_address = COALESCE($2, ip_address), updated_at = now() WHERE id = $3`,
		params.ProviderID, params.IPAddress, params.ID)
	if err != nil {
		return fmt.Errorf("set instance provider: %w", err)
	}
	return nil
}

// MarkInstanceRunningParams holds parameters for MarkInstanceRunning.
type MarkInstanceRunningParams struct {
	ID        string `json:"id"`
	IPAddress string `json:"ip_address"`
}

// MarkInstanceRunning is the poll loop's only success exit. The returned
// bool reports whether the row still existed; the caller stops quietly when
// the instance was deleted mid-provisioning.
func (a *CoreDB) MarkInstanceRunning(ctx context.Context, params MarkInstanceRunningParams) (bool, error) {
	tag, err := a.db.Exec(ctx,
		`UPDATE instances SET status = $1, ip_address = $2, status_message = NULL, updated_at = now() WHERE id = $3`,
		model.StatusRunning, params.IPAddress, params.ID)
	if err != nil {
		return false, fmt.Errorf("mark instance running: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// MarkInstanceFailedParams holds parameters for MarkInstanceFailed.
type MarkInstanceFailedParams struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// MarkInstanceFailed records a terminal provisioning failure.
func (a *CoreDB) MarkInstanceFailed(ctx context.Context, params MarkInstanceFailedParams) (bool, error) {
	tag, err := a.db.Exec(ctx,
		`UPDATE instances SET status = $1, status_message = $2, updated_at = now() WHERE id = $3`,
		model.StatusFailed, params.Message, params.ID)
	if err != nil {
		return false, fmt.Errorf("mark instance failed: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteInstanceRecord removes the instance row. Owned domains cascade.
func (a *CoreDB) DeleteInstanceRecord(ctx context.Context, id string) error {
	_, err := a.db.Exec(ctx, `DELETE FROM instances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete instance record: %w", err)
	}
	return nil
}

// ListProvisioningInstanceIDs returns the ids of instances still in
// "provisioning", used to resume their poll workflows after a restart.
func (a *CoreDB) ListProvisioningInstanceIDs(ctx context.Context) ([]string, error) {
	rows, err := a.db.Query(ctx,
		`SELECT id FROM instances WHERE status = $1 ORDER BY created_at`, model.StatusProvisioning)
	if err != nil {
		return nil, fmt.Errorf("list provisioning instances: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan instance id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate instance ids: %w", err)
	}
	return ids, nil
}

// DomainWithInstance is one reconciliation work item: a domain joined to
// its owning running instance.
type DomainWithInstance struct {
	Domain   model.Domain   `json:"domain"`
	Instance model.Instance `json:"instance"`
}

// ListDomainsForReconcile returns every domain whose certificate state has
// ever been touched (ssl_status != none), joined to its running instance.
func (a *CoreDB) ListDomainsForReconcile(ctx context.Context) ([]DomainWithInstance, error) {
	rows, err := a.db.Query(ctx,
		`SELECT d.id, d.instance_id, d.hostname, d.ssl_status, d.ssl_enabled,
		        d.dns_valid, d.cert_present, d.tls_reachable, d.expected_ip,
		        d.last_error, d.last_verified_at, d.created_at, d.updated_at,
		        i.id, i.customer_id, i.provider_id, i.status, i.ip_address,
		        i.login_user, i.login_secret, i.plan, i.spec_snapshot,
		        i.charge_ref, i.status_message, i.created_at, i.updated_at
		 FROM domains d
		 JOIN instances i ON i.id = d.instance_id
		 WHERE d.ssl_status <> $1 AND i.status = $2
		 ORDER BY d.created_at`,
		model.SSLStatusNone, model.StatusRunning)
	if err != nil {
		return nil, fmt.Errorf("list domains for reconcile: %w", err)
	}
	defer rows.Close()

	var items []DomainWithInstance
	for rows.Next() {
		var it DomainWithInstance
		d, i := &it.Domain, &it.Instance
		if err := rows.Scan(&d.ID, &d.InstanceID, &d.Hostname, &d.SSLStatus, &d.SSLEnabled,
			&d.DNSValid, &d.CertPresent, &d.TLSReachable, &d.ExpectedIP,
			&d.LastError, &d.LastVerifiedAt, &d.CreatedAt, &d.UpdatedAt,
			&i.ID, &i.CustomerID, &i.ProviderID, &i.Status, &i.IPAddress,
			&i.LoginUser, &i.LoginSecret, &i.Plan, &i.SpecSnapshot,
			&i.ChargeRef, &i.StatusMessage, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan domain with instance: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return items, nil
}

// SaveDomainVerificationParams holds one verification outcome to persist.
type SaveDomainVerificationParams struct {
	DomainID     string `json:"domain_id"`
	Status       string `json:"status"`
	SSLEnabled   bool   `json:"ssl_enabled"`
	DNSValid     bool   `json:"dns_valid"`
	CertPresent  bool   `json:"cert_present"`
	TLSReachable bool   `json:"tls_reachable"`
	ExpectedIP   string `json:"expected_ip"`
	Diagnostic   string `json:"diagnostic"`
}

// SaveDomainVerification persists the canonical status plus all three raw
// booleans for diagnostics, and stamps the verification time.
func (a *CoreDB) SaveDomainVerification(ctx context.Context, params SaveDomainVerificationParams) error {
	var lastErr *string
	if params.Diagnostic != "" {
		lastErr = &params.Diagnostic
	}
	var expectedIP *string
	if params.ExpectedIP != "" {
		expectedIP = &params.ExpectedIP
	}

	_, err := a.db.Exec(ctx,
		`UPDATE domains
		 SET ssl_status = $1, ssl_enabled = $2, dns_valid = $3, cert_present = $4,
		     tls_reachable = $5, expected_ip = $6, last_error = $7,
		     last_verified_at = now(), updated_at = now()
		 WHERE id = $8`,
		params.Status, params.SSLEnabled, params.DNSValid, params.CertPresent,
		params.TLSReachable, expectedIP, lastErr, params.DomainID)
	if err != nil {
		return fmt.Errorf("save domain verification: %w", err)
	}
	return nil
}

// BeginReconcileRunParams holds parameters for BeginReconcileRun.
type BeginReconcileRunParams struct {
	// MaxAge is how old a "running" guard row may be before it is treated
	// as abandoned (a crashed run) rather than live.
	MaxAge time.Duration `json:"max_age"`
}

// BeginReconcileRun claims the sweep guard. It returns the new run id, or
// "" when another run is still live — the caller must then skip the sweep.
func (a *CoreDB) BeginReconcileRun(ctx context.Context, params BeginReconcileRunParams) (string, error) {
	var live int
	err := a.db.QueryRow(ctx,
		`SELECT count(*) FROM reconcile_runs WHERE status = $1 AND started_at > now() - $2::interval`,
		model.RunStatusRunning, params.MaxAge.String()).Scan(&live)
	if err != nil {
		return "", fmt.Errorf("check live reconcile runs: %w", err)
	}
	if live > 0 {
		return "", nil
	}

	// Stale guards from crashed runs are closed out, not honored.
	_, err = a.db.Exec(ctx,
		`UPDATE reconcile_runs SET status = $1, finished_at = now() WHERE status = $2`,
		model.RunStatusFailed, model.RunStatusRunning)
	if err != nil {
		return "", fmt.Errorf("expire stale reconcile runs: %w", err)
	}

	runID := platform.NewID()
	_, err = a.db.Exec(ctx,
		`INSERT INTO reconcile_runs (id, status, started_at) VALUES ($1, $2, now())`,
		runID, model.RunStatusRunning)
	if err != nil {
		return "", fmt.Errorf("insert reconcile run: %w", err)
	}
	return runID, nil
}

// FinishReconcileRunParams holds parameters for FinishReconcileRun.
type FinishReconcileRunParams struct {
	RunID          string         `json:"run_id"`
	DomainsChecked int            `json:"domains_checked"`
	StatusCounts   map[string]int `json:"status_counts"`
	Failed         bool           `json:"failed"`
}

// FinishReconcileRun releases the sweep guard and exports the per-status
// domain counts.
func (a *CoreDB) FinishReconcileRun(ctx context.Context, params FinishReconcileRunParams) error {
	status := model.RunStatusCompleted
	if params.Failed {
		status = model.RunStatusFailed
	}
	_, err := a.db.Exec(ctx,
		`UPDATE reconcile_runs SET status = $1, finished_at = now(), domains_checked = $2 WHERE id = $3`,
		status, params.DomainsChecked, params.RunID)
	if err != nil {
		return fmt.Errorf("finish reconcile run: %w", err)
	}

	metrics.SetReconcileStatusCounts(params.StatusCounts)
	metrics.CountReconcileRun(status)
	return nil
}
