package model

import "time"

// Domain is one hostname bound to an Instance, with independently tracked
// certificate state. ssl_status is a pure function of the three check
// booleans; it is only ever written by the reconciliation sweep, except for
// the initial "pending" set when a certificate request is submitted.
type Domain struct {
	ID             string     `json:"id" db:"id"`
	InstanceID     string     `json:"instance_id" db:"instance_id"`
	Hostname       string     `json:"hostname" db:"hostname"`
	SSLStatus      string     `json:"ssl_status" db:"ssl_status"`
	SSLEnabled     bool       `json:"ssl_enabled" db:"ssl_enabled"`
	DNSValid       bool       `json:"dns_valid" db:"dns_valid"`
	CertPresent    bool       `json:"cert_present" db:"cert_present"`
	TLSReachable   bool       `json:"tls_reachable" db:"tls_reachable"`
	ExpectedIP     *string    `json:"expected_ip,omitempty" db:"expected_ip"`
	LastError      *string    `json:"last_error,omitempty" db:"last_error"`
	LastVerifiedAt *time.Time `json:"last_verified_at,omitempty" db:"last_verified_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// Canonical certificate statuses.
const (
	SSLStatusNone        = "none"
	SSLStatusPending     = "pending"
	SSLStatusActive      = "active"
	SSLStatusOrphaned    = "orphaned"
	SSLStatusExpired     = "expired"
	SSLStatusUnreachable = "unreachable"
)
