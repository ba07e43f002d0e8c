package model

// RefundEvent is the inbound payment-webhook notification that triggers
// instance teardown. Replays and unknown charge references are a no-op.
type RefundEvent struct {
	ChargeRef string `json:"charge_ref"`
}
