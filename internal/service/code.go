package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/audit"
	apperrors "github.com/DesmondD0ss/AccessManager-sub000/internal/errors"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/repository"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/util"
)

const (
	codeUpperChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	codeLowerChars = "abcdefghijklmnopqrstuvwxyz"
	codeDigitChars = "0123456789"
	codeAllChars   = codeUpperChars + codeLowerChars + codeDigitChars

	codeLength = 8

	// Bounded retry against the store; beyond this the generator gives up.
	maxGenerateAttempts = 10

	// Creation window and use-count bounds.
	minCodeLifetime  = 5 * time.Minute
	maxCodeLifetime  = 48 * time.Hour
	minMaxUses       = 1
	maxMaxUses       = 100
	minCustomDataMB  = 1
	maxCustomDataMB  = 10240
	minCustomMinutes = 1
	maxCustomMinutes = 2880
)

// CodeService issues, validates, and administers access codes
type CodeService struct {
	codeRepo repository.AccessCodeRepository
	recorder audit.Recorder
}

// NewCodeService creates a new code service
func NewCodeService(codeRepo repository.AccessCodeRepository, recorder audit.Recorder) *CodeService {
	return &CodeService{
		codeRepo: codeRepo,
		recorder: recorder,
	}
}

// CreateCodeInput contains the administrative request to issue a code
type CreateCodeInput struct {
	Level        model.QuotaLevel
	Description  string
	ExpiresAt    time.Time
	MaxUses      int
	CustomQuotas *model.QuotaSpec
	CreatedBy    string
	IPAddress    string
	UserAgent    string
}

// CreateCode validates the request, generates a unique code string, and
// persists the access code.
func (s *CodeService) CreateCode(ctx context.Context, input CreateCodeInput) (*model.AccessCode, error) {
	if input.MaxUses == 0 {
		input.MaxUses = 1
	}

	if err := ValidateCreation(input.Level, input.ExpiresAt, input.MaxUses, input.CustomQuotas, time.Now()); err != nil {
		s.recorder.Record(ctx, model.CreateAuditEntryParams{
			Action:    model.ActionCodeCreate,
			Result:    model.ResultFailed,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			Details:   model.Details{"reason": err.Error()},
		})
		return nil, err
	}

	codeStr, err := s.GenerateUniqueCode(ctx)
	if err != nil {
		s.recorder.Record(ctx, model.CreateAuditEntryParams{
			Action:    model.ActionCodeCreate,
			Result:    model.ResultError,
			IPAddress: input.IPAddress,
			UserAgent: input.UserAgent,
			Details:   model.Details{"reason": err.Error()},
		})
		return nil, err
	}

	customQuotas := model.CustomQuotas{}
	if input.Level == model.LevelCustom {
		customQuotas = model.NewCustomQuotas(*input.CustomQuotas)
	}

	code, err := s.codeRepo.Create(ctx, model.CreateAccessCodeParams{
		ID:           uuid.NewString(),
		Code:         codeStr,
		Level:        input.Level,
		Description:  input.Description,
		ExpiresAt:    input.ExpiresAt,
		MaxUses:      input.MaxUses,
		CustomQuotas: customQuotas,
		CreatedBy:    input.CreatedBy,
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	s.recorder.Record(ctx, model.CreateAuditEntryParams{
		AttemptedCode: &code.Code,
		Action:        model.ActionCodeCreate,
		Result:        model.ResultSuccess,
		IPAddress:     input.IPAddress,
		UserAgent:     input.UserAgent,
		Details: model.Details{
			"level":     string(code.Level),
			"maxUses":   code.MaxUses,
			"expiresAt": code.ExpiresAt.Format(time.RFC3339),
			"createdBy": code.CreatedBy,
		},
	})

	log.Info().
		Str("code", util.MaskCode(code.Code)).
		Str("level", string(code.Level)).
		Int("maxUses", code.MaxUses).
		Time("expiresAt", code.ExpiresAt).
		Msg("access code created")

	return code, nil
}

// CheckEligible reports whether a code can currently be redeemed. Read-only:
// it never touches use counts or activity timestamps.
func (s *CodeService) CheckEligible(ctx context.Context, codeStr string) (bool, error) {
	if !model.CodePattern.MatchString(codeStr) {
		return false, nil
	}

	code, err := s.codeRepo.FindByCode(ctx, codeStr)
	if err != nil {
		return false, apperrors.Database(err)
	}
	if code == nil {
		return false, nil
	}
	return code.Redeemable(time.Now()), nil
}

// ValidateCode is the public validation operation: the eligibility check
// plus an audit entry for the attempt. The caller only ever learns a
// boolean, never why a code is ineligible.
func (s *CodeService) ValidateCode(ctx context.Context, codeStr, ip, userAgent string) (bool, error) {
	eligible, err := s.CheckEligible(ctx, codeStr)
	if err != nil {
		return false, err
	}

	result := model.ResultFailed
	if eligible {
		result = model.ResultSuccess
	}
	s.recorder.Record(ctx, model.CreateAuditEntryParams{
		AttemptedCode: &codeStr,
		Action:        model.ActionCodeValidate,
		Result:        result,
		IPAddress:     ip,
		UserAgent:     userAgent,
	})

	return eligible, nil
}

// DeactivateCode flips a code inactive. One-way; deactivating an already
// inactive code fails with NotFound to keep the operation idempotent-safe.
func (s *CodeService) DeactivateCode(ctx context.Context, id string, actor, ip, userAgent string) (*model.AccessCode, error) {
	code, err := s.codeRepo.Deactivate(ctx, id)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if code == nil {
		return nil, apperrors.NotFound("Access code")
	}

	s.recorder.Record(ctx, model.CreateAuditEntryParams{
		AttemptedCode: &code.Code,
		Action:        model.ActionCodeDeactivate,
		Result:        model.ResultSuccess,
		IPAddress:     ip,
		UserAgent:     userAgent,
		Details:       model.Details{"deactivatedBy": actor},
	})

	log.Info().Str("code", util.MaskCode(code.Code)).Msg("access code deactivated")
	return code, nil
}

// DeleteCode permanently removes a code. Sessions created from it keep
// their own quota snapshot and are left untouched.
func (s *CodeService) DeleteCode(ctx context.Context, id string, actor, ip, userAgent string) error {
	code, err := s.codeRepo.FindByID(ctx, id)
	if err != nil {
		return apperrors.Database(err)
	}
	if code == nil {
		return apperrors.NotFound("Access code")
	}

	if err := s.codeRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Raced another delete between the read and the write.
			return apperrors.NotFound("Access code")
		}
		return apperrors.Database(err)
	}

	s.recorder.Record(ctx, model.CreateAuditEntryParams{
		AttemptedCode: &code.Code,
		Action:        model.ActionCodeDelete,
		Result:        model.ResultSuccess,
		IPAddress:     ip,
		UserAgent:     userAgent,
		Details:       model.Details{"deletedBy": actor},
	})

	log.Info().Str("code", util.MaskCode(code.Code)).Msg("access code deleted")
	return nil
}

// ListCodes returns issued codes, newest first.
func (s *CodeService) ListCodes(ctx context.Context, limit, offset int) ([]model.AccessCode, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	codes, err := s.codeRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

// GenerateUniqueCode generates a code string not seen among ever-issued
// codes, retrying up to maxGenerateAttempts before giving up.
func (s *CodeService) GenerateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		code := GenerateCode()
		exists, err := s.codeRepo.CodeExists(ctx, code)
		if err != nil {
			return "", apperrors.Database(err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", apperrors.GenerationExhausted()
}

// ValidateCreation checks an issue request: the expiry must land between
// now+5min and now+48h, maxUses in [1,100], and custom codes must carry
// quotas inside the allowed ranges.
func ValidateCreation(level model.QuotaLevel, expiresAt time.Time, maxUses int, custom *model.QuotaSpec, now time.Time) error {
	if !level.Valid() {
		return apperrors.InvalidInput("level", "unknown quota level")
	}
	if expiresAt.Before(now.Add(minCodeLifetime)) {
		return apperrors.ValidationError("expiresAt must be at least 5 minutes in the future")
	}
	if expiresAt.After(now.Add(maxCodeLifetime)) {
		return apperrors.ValidationError("expiresAt must be within 48 hours")
	}
	if maxUses < minMaxUses || maxUses > maxMaxUses {
		return apperrors.InvalidInput("maxUses", "must be between 1 and 100")
	}
	if level == model.LevelCustom {
		if custom == nil {
			return apperrors.MissingRequired("customQuotas")
		}
		if custom.DataQuotaMB < minCustomDataMB || custom.DataQuotaMB > maxCustomDataMB {
			return apperrors.InvalidInput("customQuotas.dataQuotaMB", "must be between 1 and 10240")
		}
		if custom.TimeQuotaMinutes < minCustomMinutes || custom.TimeQuotaMinutes > maxCustomMinutes {
			return apperrors.InvalidInput("customQuotas.timeQuotaMinutes", "must be between 1 and 2880")
		}
	} else if custom != nil {
		return apperrors.InvalidInput("customQuotas", "only allowed for custom level")
	}
	return nil
}

// GenerateCode produces an 8-character alphanumeric code containing at
// least one uppercase letter, one lowercase letter, and one digit, with
// the character order randomized.
func GenerateCode() string {
	chars := make([]byte, 0, codeLength)
	chars = append(chars, randChar(codeUpperChars), randChar(codeLowerChars), randChar(codeDigitChars))
	for len(chars) < codeLength {
		chars = append(chars, randChar(codeAllChars))
	}

	// Fisher-Yates so the guaranteed classes are not positionally fixed.
	for i := len(chars) - 1; i > 0; i-- {
		j := randIndex(i + 1)
		chars[i], chars[j] = chars[j], chars[i]
	}

	return string(chars)
}

func randChar(set string) byte {
	return set[randIndex(len(set))]
}

func randIndex(n int) int {
	idx, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(idx.Int64())
}
