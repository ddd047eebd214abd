package models

import (
	"github.com/google/uuid"
)

// UserAddress is a shipping/billing address attached to a user. The composite
// unique index on (user_id, is_default) guarantees at most one default row per
// user; the account handler upserts against it.
type UserAddress struct {
	BaseModel
	UserID     uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_user_addresses_user_default" json:"user_id"`
	Line1      string    `json:"line1"`
	Line2      string    `json:"line2"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `gorm:"uniqueIndex:idx_user_addresses_user_default" json:"is_default"`
}
