package model

import "time"

// ReconcileRun is the overlap guard for the certificate reconciliation
// sweep: a new run refuses to start while a live "running" row exists.
type ReconcileRun struct {
	ID             string     `json:"id" db:"id"`
	Status         string     `json:"status" db:"status"`
	StartedAt      time.Time  `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	DomainsChecked int        `json:"domains_checked" db:"domains_checked"`
}

// Reconcile run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
