package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/platform"
)

type DomainService struct {
	db DB
}

func NewDomainService(db DB) *DomainService {
	return &DomainService{db: db}
}

// Register attaches a hostname to an instance. The domain starts with TLS
// disabled; RequestCertificate opts it into the reconciliation sweep.
func (s *DomainService) Register(ctx context.Context, instanceID, hostname string) (*model.Domain, error) {
	var status string
	err := s.db.QueryRow(ctx, `SELECT status FROM instances WHERE id = $1`, instanceID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get instance %s: %w", instanceID, err)
	}
	if model.IsTerminalStatus(status) {
		return nil, fmt.Errorf("instance %s is %s: %w", instanceID, status, ErrNotFound)
	}

	now := time.Now()
	dom := &model.Domain{
		ID:         platform.NewID(),
		InstanceID: instanceID,
		Hostname:   hostname,
		SSLStatus:  model.SSLStatusNone,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO domains (id, instance_id, hostname, ssl_status, ssl_enabled, dns_valid, cert_present, tls_reachable, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, false, false, false, false, $5, $6)`,
		dom.ID, dom.InstanceID, dom.Hostname, dom.SSLStatus, dom.CreatedAt, dom.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDomainExists
		}
		return nil, fmt.Errorf("insert domain: %w", err)
	}

	return dom, nil
}

func (s *DomainService) GetByID(ctx context.Context, id string) (*model.Domain, error) {
	var dom model.Domain
	err := s.db.QueryRow(ctx,
		`SELECT id, instance_id, hostname, ssl_status, ssl_enabled, dns_valid, cert_present, tls_reachable,
		        expected_ip, last_error, last_verified_at, created_at, updated_at
		 FROM domains WHERE id = $1`, id,
	).Scan(&dom.ID, &dom.InstanceID, &dom.Hostname, &dom.SSLStatus, &dom.SSLEnabled,
		&dom.DNSValid, &dom.CertPresent, &dom.TLSReachable, &dom.ExpectedIP, &dom.LastError,
		&dom.LastVerifiedAt, &dom.CreatedAt, &dom.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get domain %s: %w", id, err)
	}
	return &dom, nil
}

func (s *DomainService) ListByInstance(ctx context.Context, instanceID string) ([]model.Domain, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, instance_id, hostname, ssl_status, ssl_enabled, dns_valid, cert_present, tls_reachable,
		        expected_ip, last_error, last_verified_at, created_at, updated_at
		 FROM domains WHERE instance_id = $1 ORDER BY created_at`, instanceID)
	if err != nil {
		return nil, fmt.Errorf("list domains for instance %s: %w", instanceID, err)
	}
	defer rows.Close()

	var domains []model.Domain
	for rows.Next() {
		var dom model.Domain
		if err := rows.Scan(&dom.ID, &dom.InstanceID, &dom.Hostname, &dom.SSLStatus, &dom.SSLEnabled,
			&dom.DNSValid, &dom.CertPresent, &dom.TLSReachable, &dom.ExpectedIP, &dom.LastError,
			&dom.LastVerifiedAt, &dom.CreatedAt, &dom.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan domain: %w", err)
		}
		domains = append(domains, dom)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate domains: %w", err)
	}
	return domains, nil
}

// RequestCertificate marks a domain as awaiting certificate issuance. Only
// domains that have never entered the TLS lifecycle are eligible; the sweep
// drives all later transitions.
func (s *DomainService) RequestCertificate(ctx context.Context, id string) (*model.Domain, error) {
	tag, err := s.db.Exec(ctx,
		`UPDATE domains SET ssl_status = $1, ssl_enabled = true, updated_at = now()
		 WHERE id = $2 AND ssl_status = $3`,
		model.SSLStatusPending, id, model.SSLStatusNone)
	if err != nil {
		return nil, fmt.Errorf("request certificate for domain %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		dom, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("domain %s is already %s: %w", id, dom.SSLStatus, ErrInvalidTransition)
	}
	return s.GetByID(ctx, id)
}

func (s *DomainService) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM domains WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete domain %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
