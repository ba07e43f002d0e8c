package request

// CreateInstance is the payload for purchasing a new instance.
type CreateInstance struct {
	CustomerID string  `json:"customer_id" validate:"required"`
	Plan       string  `json:"plan" validate:"required"`
	ChargeRef  *string `json:"charge_ref,omitempty" validate:"omitempty,min=1"`
}
