package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered customer account. Emails are stored lowercased.
type User struct {
	BaseModel
	Email        string        `gorm:"uniqueIndex" json:"email"`
	Name         string        `json:"name"`
	Phone        string        `json:"phone"`
	PasswordHash string        `json:"-"`
	Addresses    []UserAddress `json:"addresses,omitempty"`
	Orders       []Order       `json:"orders,omitempty"`
}

// Session is a server-side login session. Only the SHA-256 hash of the token
// is persisted; the plaintext lives exclusively in the client cookie.
type Session struct {
	BaseModel
	TokenHash string    `gorm:"uniqueIndex" json:"-"`
	UserID    uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	User      *User     `json:"-"`
	ExpiresAt time.Time `json:"expires_at"`
}
