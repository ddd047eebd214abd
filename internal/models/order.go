package models

import (
	"github.com/google/uuid"
)

// Order statuses. Orders start as "created" and move to "paid" once the
// processor confirms settlement; there is no transition back.
const (
	OrderStatusCreated = "created"
	OrderStatusPaid    = "paid"
)

// Known payment processors.
const (
	ProcessorCoinbase = "coinbase"
	ProcessorPayPal   = "paypal"
	ProcessorSquare   = "square"
)

// Order records a charge initiated with an external payment processor.
// UserID is nil for anonymous checkouts. Amounts are integer minor currency
// units regardless of how the processor's API represents them.
type Order struct {
	BaseModel
	UserID      *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User        *User      `json:"user,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Currency    string     `json:"currency"`
	Processor   string     `gorm:"index:idx_orders_processor_ref" json:"processor"`
	ProcessorID string     `gorm:"index:idx_orders_processor_ref" json:"processor_id"`
	Status      string     `json:"status"`
}
