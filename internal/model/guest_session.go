package model

import (
	"time"
)

// GuestSession tracks one guest's use of an access code against its quota.
// The owning code may be deleted independently; the session is then
// orphaned but stays readable.
type GuestSession struct {
	ID                  string        `db:"id" json:"id"`
	AccessCodeID        string        `db:"access_code_id" json:"accessCodeId"`
	IPAddress           string        `db:"ip_address" json:"ipAddress"`
	UserAgent           string        `db:"user_agent" json:"userAgent,omitempty"`
	Location            string        `db:"location" json:"location,omitempty"`
	DataQuotaMB         int           `db:"data_quota_mb" json:"dataQuotaMB"`
	TimeQuotaMinutes    int           `db:"time_quota_minutes" json:"timeQuotaMinutes"`
	DataConsumedMB      float64       `db:"data_consumed_mb" json:"dataConsumedMB"`
	TimeConsumedMinutes int           `db:"time_consumed_minutes" json:"timeConsumedMinutes"`
	Status              SessionStatus `db:"status" json:"status"`
	WarningsSent        WarningSet    `db:"warnings_sent" json:"warningsSent"`
	StartedAt           time.Time     `db:"started_at" json:"startedAt"`
	LastActivity        time.Time     `db:"last_activity" json:"lastActivity"`
	ExpiresAt           time.Time     `db:"expires_at" json:"expiresAt"`
	TerminatedAt        *time.Time    `db:"terminated_at" json:"terminatedAt,omitempty"`
	SessionTokenHash    string        `db:"session_token_hash" json:"-"`
}

// CreateGuestSessionParams contains parameters for creating a guest session
type CreateGuestSessionParams struct {
	ID               string
	AccessCodeID     string
	IPAddress        string
	UserAgent        string
	Location         string
	DataQuotaMB      int
	TimeQuotaMinutes int
	ExpiresAt        time.Time
}

// DataPercent is cumulative data usage as a percentage of the data quota.
func (s *GuestSession) DataPercent() float64 {
	if s.DataQuotaMB <= 0 {
		return 0
	}
	return s.DataConsumedMB / float64(s.DataQuotaMB) * 100
}

// TimePercent is elapsed time as a percentage of the time quota.
func (s *GuestSession) TimePercent() float64 {
	if s.TimeQuotaMinutes <= 0 {
		return 0
	}
	return float64(s.TimeConsumedMinutes) / float64(s.TimeQuotaMinutes) * 100
}

// MaxPercent is the higher of the two usage dimensions; threshold
// warnings and quota termination key off this value.
func (s *GuestSession) MaxPercent() float64 {
	data := s.DataPercent()
	if t := s.TimePercent(); t > data {
		return t
	}
	return data
}

// IsExpired checks if the session deadline has passed
func (s *GuestSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SessionView is the read model returned to callers: the session plus
// computed usage percentages.
type SessionView struct {
	GuestSession
	DataPercent float64 `json:"dataPercent"`
	TimePercent float64 `json:"timePercent"`
	MaxPercent  float64 `json:"maxPercent"`
}

// NewSessionView builds a view from a session row.
func NewSessionView(s *GuestSession) *SessionView {
	return &SessionView{
		GuestSession: *s,
		DataPercent:  s.DataPercent(),
		TimePercent:  s.TimePercent(),
		MaxPercent:   s.MaxPercent(),
	}
}
