package verify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/edvin/vpshost/internal/model"
	"github.com/edvin/vpshost/internal/sshexec"
)

// CertFilePath returns where the certificate for a hostname lives on the
// customer machine.
func CertFilePath(hostname string) string {
	return fmt.Sprintf("/etc/ssl/vpshost/%s/fullchain.pem", hostname)
}

// Outcome holds the three raw check results and the canonical status
// derived from them. All checks run on every verification; the booleans are
// persisted for diagnostics even when one alone already decides the status.
type Outcome struct {
	DNSValid     bool     `json:"dns_valid"`
	Cert         Presence `json:"cert"`
	TLSReachable bool     `json:"tls_reachable"`
	Status       string   `json:"status"`
	SSLEnabled   bool     `json:"ssl_enabled"`
	ExpectedIP   string   `json:"expected_ip"`
	Diagnostic   string   `json:"diagnostic,omitempty"`
}

// Checker re-derives a domain's certificate state from live signals: DNS
// resolution, a remote file probe over SSH, and a real TLS handshake.
type Checker struct {
	executor   *sshexec.Executor
	resolver   *net.Resolver
	logger     zerolog.Logger
	dnsTimeout time.Duration
	tlsTimeout time.Duration
}

func NewChecker(executor *sshexec.Executor, logger zerolog.Logger, dnsTimeout, tlsTimeout time.Duration) *Checker {
	return &Checker{
		executor:   executor,
		resolver:   net.DefaultResolver,
		logger:     logger.With().Str("component", "domain-verifier").Logger(),
		dnsTimeout: dnsTimeout,
		tlsTimeout: tlsTimeout,
	}
}

// Verify runs all three checks for one domain against its owning instance
// and combines them via the decision table. It never mutates anything; the
// caller persists the outcome.
func (c *Checker) Verify(ctx context.Context, domain model.Domain, instance model.Instance) Outcome {
	out := Outcome{}

	var expectedIP string
	if instance.IPAddress != nil {
		expectedIP = *instance.IPAddress
	}
	out.ExpectedIP = expectedIP

	var diag string
	out.DNSValid, diag = c.checkDNS(ctx, domain.Hostname, expectedIP)
	if diag != "" {
		out.Diagnostic = diag
	}

	out.Cert, diag = c.checkCertFile(ctx, domain.Hostname, instance)
	if diag != "" {
		out.Diagnostic = diag
	}

	// A handshake against a domain pointing elsewhere would test someone
	// else's server; provably skippable, recorded as unreachable.
	if out.DNSValid {
		out.TLSReachable = c.checkTLS(ctx, domain.Hostname)
	}

	out.Status = Evaluate(out.DNSValid, out.Cert, out.TLSReachable, domain.SSLStatus)
	out.SSLEnabled = out.Status == model.SSLStatusActive

	c.logger.Debug().
		Str("hostname", domain.Hostname).
		Bool("dns_valid", out.DNSValid).
		Str("cert", string(out.Cert)).
		Bool("tls_reachable", out.TLSReachable).
		Str("status", out.Status).
		Msg("domain verified")

	return out
}

// checkDNS resolves the domain's A records and reports whether the
// instance's IP is among them. Resolution failure and wrong-IP both yield
// false; they differ only in the diagnostic.
func (c *Checker) checkDNS(ctx context.Context, hostname, expectedIP string) (bool, string) {
	if expectedIP == "" {
		return false, "instance has no IP assigned"
	}

	ctx, cancel := context.WithTimeout(ctx, c.dnsTimeout)
	defer cancel()

	addrs, err := c.resolver.LookupIP(ctx, "ip4", hostname)
	if err != nil {
		return false, fmt.Sprintf("dns resolution failed: %v", err)
	}

	for _, addr := range addrs {
		if addr.String() == expectedIP {
			return true, ""
		}
	}
	return false, fmt.Sprintf("dns resolves away from instance (expected %s)", expectedIP)
}

// checkCertFile probes for the certificate file on the customer machine.
// The probe command always exits 0 and prints a marker, so a nonzero exit
// is a logic bug, not a negative result. A connection failure yields
// PresenceUnknown — never "absent".
func (c *Checker) checkCertFile(ctx context.Context, hostname string, instance model.Instance) (Presence, string) {
	if instance.IPAddress == nil {
		return PresenceUnknown, "instance has no IP assigned"
	}

	cmd := fmt.Sprintf("test -f %s && echo present || echo absent", CertFilePath(hostname))
	res, err := c.executor.Run(ctx, sshexec.Target{
		Host:   *instance.IPAddress,
		User:   instance.LoginUser,
		Secret: instance.LoginSecret,
	}, cmd)
	if err != nil {
		if sshexec.IsConnectionError(err) {
			c.logger.Warn().Str("hostname", hostname).Err(err).
				Msg("cert probe host unreachable, presence unknown")
			return PresenceUnknown, fmt.Sprintf("cert probe unreachable: %v", err)
		}
		c.logger.Error().Str("hostname", hostname).Err(err).
			Msg("cert probe exited nonzero, this command should always exit 0")
		return PresenceUnknown, fmt.Sprintf("cert probe failed: %v", err)
	}

	if res.Stdout != "" && res.Stdout[0] == 'p' {
		return PresencePresent, ""
	}
	return PresenceAbsent, ""
}

// checkTLS attempts a handshake on the standard HTTPS port. Trust-chain
// validation is disabled: this tests handshake capability, not trust. Any
// HTTP response, whatever the status code, counts as reachable.
func (c *Checker) checkTLS(ctx context.Context, hostname string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.tlsTimeout)
	defer cancel()

	client := &http.Client{
		Transport: &http.Transport{
			TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
			DisableKeepAlives: true,
		},
		Timeout: c.tlsTimeout,
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+hostname+"/", nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
