package model

import (
	"encoding/json"
	"time"
)

// Instance is one customer's provisioned virtual machine record.
type Instance struct {
	ID            string          `json:"id" db:"id"`
	CustomerID    string          `json:"customer_id" db:"customer_id"`
	ProviderID    *string         `json:"provider_id,omitempty" db:"provider_id"`
	Status        string          `json:"status" db:"status"`
	IPAddress     *string         `json:"ip_address,omitempty" db:"ip_address"`
	LoginUser     string          `json:"login_user" db:"login_user"`
	LoginSecret   string          `json:"-" db:"login_secret"`
	Plan          string          `json:"plan" db:"plan"`
	SpecSnapshot  json.RawMessage `json:"spec_snapshot" db:"spec_snapshot"`
	ChargeRef     *string         `json:"charge_ref,omitempty" db:"charge_ref"`
	StatusMessage *string         `json:"status_message,omitempty" db:"status_message"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}
