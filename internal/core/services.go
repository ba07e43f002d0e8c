// Package core implements the business services behind the HTTP API:
// instance lifecycle, domain registration, and refund-triggered teardown.
// Services persist state in Postgres and hand long-running work to Temporal
// workflows.
package core

import (
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/vpshost/internal/config"
)

// Services bundles the business services for handler wiring.
type Services struct {
	Instance *InstanceService
	Domain   *DomainService
	Refund   *RefundService
}

func NewServices(db DB, tc temporalclient.Client, cfg *config.Config) *Services {
	return &Services{
		Instance: NewInstanceService(db, tc, cfg),
		Domain:   NewDomainService(db),
		Refund:   NewRefundService(tc),
	}
}
