package activity

import (
	"context"

	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/verify"
)

// Verify contains the domain verification activity.
type Verify struct {
	checker *verify.Checker
}

// NewVerify creates a new Verify activity struct.
func NewVerify(checker *verify.Checker) *Verify {
	return &Verify{checker: checker}
}

// VerifyDomainParams holds one domain and its owning instance.
type VerifyDomainParams struct {
	Domain   model.Domain   `json:"domain"`
	Instance model.Instance `json:"instance"`
}

// VerifyDomain runs the three checks for one domain and returns the
// combined outcome. It performs no writes; persistence is a separate
// activity so the workflow history records both.
func (a *Verify) VerifyDomain(ctx context.Context, params VerifyDomainParams) (*verify.Outcome, error) {
	out := a.checker.Verify(ctx, params.Domain, params.Instance)
	return &out, nil
}
