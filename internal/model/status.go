package model

// Instance status constants.
const (
	StatusProvisioning = "provisioning"
	StatusRunning      = "running"
	StatusStopped      = "stopped"
	StatusFailed       = "failed"
	StatusDeleted      = "deleted"
)

// IsTerminalStatus reports whether an instance status admits no further
// automatic transitions.
func IsTerminalStatus(status string) bool {
	return status == StatusFailed || status == StatusDeleted
}
