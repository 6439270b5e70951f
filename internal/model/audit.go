package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Details is a structured audit payload stored as a JSON column.
type Details map[string]any

func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(d))
}

func (d *Details) Scan(src any) error {
	if src == nil {
		*d = Details{}
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("scan audit details: unsupported type %T", src)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("scan audit details: %w", err)
	}
	*d = out
	return nil
}

// AuditLogEntry is one immutable, append-only record of an attempted,
// successful, or failed action.
type AuditLogEntry struct {
	ID             string      `db:"id" json:"id"`
	GuestSessionID *string     `db:"guest_session_id" json:"guestSessionId,omitempty"`
	AttemptedCode  *string     `db:"attempted_code" json:"attemptedCode,omitempty"`
	Action         AuditAction `db:"action" json:"action"`
	Result         AuditResult `db:"result" json:"result"`
	IPAddress      string      `db:"ip_address" json:"ipAddress"`
	UserAgent      string      `db:"user_agent" json:"userAgent,omitempty"`
	Details        Details     `db:"details" json:"details"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
}

// CreateAuditEntryParams contains parameters for appending an audit entry
type CreateAuditEntryParams struct {
	GuestSessionID *string
	AttemptedCode  *string
	Action         AuditAction
	Result         AuditResult
	IPAddress      string
	UserAgent      string
	Details        Details
}
