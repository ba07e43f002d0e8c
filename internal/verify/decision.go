package verify

import "github.com/edvin/vpshost/internal/model"

// Presence is the three-valued outcome of the certificate-file probe.
// Unknown means the control host could not be reached: the file may or may
// not exist, and the domain must not be downgraded on that basis alone.
type Presence string

const (
	PresencePresent Presence = "present"
	PresenceAbsent  Presence = "absent"
	PresenceUnknown Presence = "unknown"
)

// Bool collapses presence for persistence of the raw check boolean.
func (p Presence) Bool() bool { return p == PresencePresent }

// Evaluate derives the canonical certificate status from the three check
// results. It is total: every input combination maps to exactly one status.
//
//	dns   cert     tls  → status
//	false absent   -    → none
//	false present  -    → orphaned
//	true  absent   -    → pending (if previously pending) else none
//	true  present  false → unreachable
//	true  present  true  → active
//
// An unknown certificate presence preserves the previous status: a briefly
// unreachable control host is not evidence that the certificate is gone.
func Evaluate(dnsValid bool, cert Presence, tlsReachable bool, prev string) string {
	if cert == PresenceUnknown {
		return prev
	}

	certPresent := cert == PresencePresent
	switch {
	case !dnsValid && !certPresent:
		return model.SSLStatusNone
	case !dnsValid && certPresent:
		return model.SSLStatusOrphaned
	case dnsValid && !certPresent:
		if prev == model.SSLStatusPending {
			return model.SSLStatusPending
		}
		return model.SSLStatusNone
	case dnsValid && certPresent && !tlsReachable:
		return model.SSLStatusUnreachable
	default:
		return model.SSLStatusActive
	}
}
