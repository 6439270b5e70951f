package model

// QuotaLevel selects the data/time allowance attached to an access code.
type QuotaLevel string

const (
	LevelPremium  QuotaLevel = "premium"
	LevelStandard QuotaLevel = "standard"
	LevelBasic    QuotaLevel = "basic"
	LevelCustom   QuotaLevel = "custom"
)

func (l QuotaLevel) Valid() bool {
	switch l {
	case LevelPremium, LevelStandard, LevelBasic, LevelCustom:
		return true
	}
	return false
}

type SessionStatus string

const (
	SessionActive        SessionStatus = "active"
	SessionExpired       SessionStatus = "expired"
	SessionTerminated    SessionStatus = "terminated"
	SessionQuotaExceeded SessionStatus = "quota_exceeded"
)

// IsTerminal reports whether the status is absorbing: no transition
// ever leaves Expired, Terminated, or QuotaExceeded.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionExpired, SessionTerminated, SessionQuotaExceeded:
		return true
	}
	return false
}

// TerminateReason is the caller-supplied cause for ending a session.
type TerminateReason string

const (
	ReasonLogout          TerminateReason = "logout"
	ReasonExpired         TerminateReason = "expired"
	ReasonQuotaExceeded   TerminateReason = "quota_exceeded"
	ReasonAdminTerminated TerminateReason = "admin_terminated"
)

// TerminalStatus maps a termination reason to the terminal session status
// it produces. The second return is false for unknown reasons.
func (r TerminateReason) TerminalStatus() (SessionStatus, bool) {
	switch r {
	case ReasonLogout, ReasonAdminTerminated:
		return SessionTerminated, true
	case ReasonExpired:
		return SessionExpired, true
	case ReasonQuotaExceeded:
		return SessionQuotaExceeded, true
	}
	return "", false
}

type AuditAction string

const (
	ActionCodeCreate       AuditAction = "code_create"
	ActionCodeDeactivate   AuditAction = "code_deactivate"
	ActionCodeDelete       AuditAction = "code_delete"
	ActionCodeValidate     AuditAction = "code_validate"
	ActionSessionCreate    AuditAction = "session_create"
	ActionSessionTerminate AuditAction = "session_terminate"
	ActionSessionExpire    AuditAction = "session_expire"

	ActionQuotaWarning80 AuditAction = "quota_warning_80"
	ActionQuotaWarning90 AuditAction = "quota_warning_90"
	ActionQuotaWarning95 AuditAction = "quota_warning_95"
)

// QuotaWarningAction returns the audit action for a warning threshold.
func QuotaWarningAction(threshold int) AuditAction {
	switch threshold {
	case 80:
		return ActionQuotaWarning80
	case 90:
		return ActionQuotaWarning90
	case 95:
		return ActionQuotaWarning95
	}
	return AuditAction("quota_warning")
}

type AuditResult string

const (
	ResultSuccess AuditResult = "success"
	ResultFailed  AuditResult = "failed"
	ResultError   AuditResult = "error"
)
