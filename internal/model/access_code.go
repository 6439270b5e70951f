package model

import (
	"regexp"
	"time"
)

// CodePattern is the wire-visible format of an access code: exactly eight
// case-sensitive alphanumeric characters.
var CodePattern = regexp.MustCompile(`^[A-Za-z0-9]{8}$`)

// AccessCode is a short-lived, limited-use credential granting guest
// network access under a quota.
type AccessCode struct {
	ID           string       `db:"id" json:"id"`
	Code         string       `db:"code" json:"code"`
	Level        QuotaLevel   `db:"level" json:"level"`
	Description  string       `db:"description" json:"description,omitempty"`
	ExpiresAt    time.Time    `db:"expires_at" json:"expiresAt"`
	MaxUses      int          `db:"max_uses" json:"maxUses"`
	CurrentUses  int          `db:"current_uses" json:"currentUses"`
	IsActive     bool         `db:"is_active" json:"isActive"`
	CustomQuotas CustomQuotas `db:"custom_quotas" json:"customQuotas"`
	CreatedBy    string       `db:"created_by" json:"createdBy"`
	CreatedAt    time.Time    `db:"created_at" json:"createdAt"`
	LastUsedAt   *time.Time   `db:"last_used_at" json:"lastUsedAt,omitempty"`
}

// CreateAccessCodeParams contains parameters for creating an access code
type CreateAccessCodeParams struct {
	ID           string
	Code         string
	Level        QuotaLevel
	Description  string
	ExpiresAt    time.Time
	MaxUses      int
	CustomQuotas CustomQuotas
	CreatedBy    string
}

// IsExpired checks if the code has expired
func (c *AccessCode) IsExpired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// HasRemainingUses checks if the code can still be redeemed at least once
func (c *AccessCode) HasRemainingUses() bool {
	return c.CurrentUses < c.MaxUses
}

// Redeemable checks if the code is currently eligible for session creation:
// active, not expired, and under its use limit.
func (c *AccessCode) Redeemable(now time.Time) bool {
	return c.IsActive && !c.IsExpired(now) && c.HasRemainingUses()
}
