package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/DesmondD0ss/AccessManager-sub000/internal/errors"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
)

func TestGenerateCode_Format(t *testing.T) {
	for i := 0; i < 200; i++ {
		code := GenerateCode()
		require.True(t, model.CodePattern.MatchString(code), "code %q must match the wire format", code)

		var upper, lower, digit bool
		for _, ch := range code {
			switch {
			case ch >= 'A' && ch <= 'Z':
				upper = true
			case ch >= 'a' && ch <= 'z':
				lower = true
			case ch >= '0' && ch <= '9':
				digit = true
			}
		}
		assert.True(t, upper, "code %q must contain an uppercase letter", code)
		assert.True(t, lower, "code %q must contain a lowercase letter", code)
		assert.True(t, digit, "code %q must contain a digit", code)
	}
}

func TestGenerateCode_Uniqueness(t *testing.T) {
	codes := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		code := GenerateCode()
		assert.False(t, codes[code], "generated duplicate code: %s", code)
		codes[code] = true
	}
}

func TestGenerateUniqueCode_RetriesOnCollision(t *testing.T) {
	mockCodeRepo := new(mockAccessCodeRepo)
	svc := NewCodeService(mockCodeRepo, &capturingRecorder{})

	mockCodeRepo.On("CodeExists", mock.Anything, mock.AnythingOfType("string")).
		Return(true, nil).Twice()
	mockCodeRepo.On("CodeExists", mock.Anything, mock.AnythingOfType("string")).
		Return(false, nil).Once()

	code, err := svc.GenerateUniqueCode(context.Background())
	require.NoError(t, err)
	assert.True(t, model.CodePattern.MatchString(code))
	mockCodeRepo.AssertNumberOfCalls(t, "CodeExists", 3)
}

func TestGenerateUniqueCode_Exhausted(t *testing.T) {
	mockCodeRepo := new(mockAccessCodeRepo)
	svc := NewCodeService(mockCodeRepo, &capturingRecorder{})

	mockCodeRepo.On("CodeExists", mock.Anything, mock.AnythingOfType("string")).
		Return(true, nil)

	_, err := svc.GenerateUniqueCode(context.Background())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeGenerationExhausted, apperrors.GetCode(err))
	mockCodeRepo.AssertNumberOfCalls(t, "CodeExists", maxGenerateAttempts)
}

func TestValidateCreation(t *testing.T) {
	now := time.Now()
	valid := model.QuotaSpec{DataQuotaMB: 512, TimeQuotaMinutes: 120}

	tests := []struct {
		name      string
		level     model.QuotaLevel
		expiresAt time.Time
		maxUses   int
		custom    *model.QuotaSpec
		wantCode  apperrors.ErrorCode
	}{
		{"valid standard", model.LevelStandard, now.Add(2 * time.Hour), 1, nil, ""},
		{"valid custom", model.LevelCustom, now.Add(2 * time.Hour), 10, &valid, ""},
		{"expiry at upper bound", model.LevelBasic, now.Add(48*time.Hour - time.Minute), 1, nil, ""},
		{"expires too soon", model.LevelBasic, now.Add(time.Minute), 1, nil, apperrors.ErrCodeValidation},
		{"expires too late", model.LevelBasic, now.Add(49 * time.Hour), 1, nil, apperrors.ErrCodeValidation},
		{"zero max uses", model.LevelBasic, now.Add(time.Hour), 0, nil, apperrors.ErrCodeInvalidInput},
		{"max uses over limit", model.LevelBasic, now.Add(time.Hour), 101, nil, apperrors.ErrCodeInvalidInput},
		{"custom without quotas", model.LevelCustom, now.Add(time.Hour), 1, nil, apperrors.ErrCodeMissingRequired},
		{"custom data too big", model.LevelCustom, now.Add(time.Hour), 1, &model.QuotaSpec{DataQuotaMB: 20000, TimeQuotaMinutes: 60}, apperrors.ErrCodeInvalidInput},
		{"custom time zero", model.LevelCustom, now.Add(time.Hour), 1, &model.QuotaSpec{DataQuotaMB: 100, TimeQuotaMinutes: 0}, apperrors.ErrCodeInvalidInput},
		{"quotas on non-custom", model.LevelBasic, now.Add(time.Hour), 1, &valid, apperrors.ErrCodeInvalidInput},
		{"unknown level", model.QuotaLevel("gold"), now.Add(time.Hour), 1, nil, apperrors.ErrCodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreation(tt.level, tt.expiresAt, tt.maxUses, tt.custom, now)
			if tt.wantCode == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, apperrors.GetCode(err))
			}
		})
	}
}

func TestCreateCode(t *testing.T) {
	mockCodeRepo := new(mockAccessCodeRepo)
	recorder := &capturingRecorder{}
	svc := NewCodeService(mockCodeRepo, recorder)

	mockCodeRepo.On("CodeExists", mock.Anything, mock.AnythingOfType("string")).
		Return(false, nil).Once()

	mockCodeRepo.On("Create", mock.Anything, mock.AnythingOfType("model.CreateAccessCodeParams")).
		Return(&model.AccessCode{
			ID:        "code-1",
			Code:      "aB3dE9fG",
			Level:     model.LevelStandard,
			ExpiresAt: time.Now().Add(2 * time.Hour),
			MaxUses:   1,
			IsActive:  true,
			CreatedBy: "admin",
		}, nil)

	code, err := svc.CreateCode(context.Background(), CreateCodeInput{
		Level:     model.LevelStandard,
		ExpiresAt: time.Now().Add(2 * time.Hour),
		CreatedBy: "admin",
	})
	require.NoError(t, err)
	assert.Equal(t, model.LevelStandard, code.Level)
	assert.Equal(t, 1, code.MaxUses) // defaulted

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, model.ActionCodeCreate, recorder.entries[0].Action)
	assert.Equal(t, model.ResultSuccess, recorder.entries[0].Result)
}

func TestCreateCode_ValidationFailureIsAudited(t *testing.T) {
	mockCodeRepo := new(mockAccessCodeRepo)
	recorder := &capturingRecorder{}
	svc := NewCodeService(mockCodeRepo, recorder)

	_, err := svc.CreateCode(context.Background(), CreateCodeInput{
		Level:     model.LevelBasic,
		ExpiresAt: time.Now().Add(time.Minute), // inside the 5 minute floor
		CreatedBy: "admin",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

	require.Len(t, recorder.entries, 1)
	assert.Equal(t, model.ResultFailed, recorder.entries[0].Result)
	mockCodeRepo.AssertNotCalled(t, "Create")
}

func TestCheckEligible(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		code *model.AccessCode
		want bool
	}{
		{"redeemable", &model.AccessCode{IsActive: true, ExpiresAt: now.Add(time.Hour), MaxUses: 1, CurrentUses: 0}, true},
		{"not found", nil, false},
		{"inactive", &model.AccessCode{IsActive: false, ExpiresAt: now.Add(time.Hour), MaxUses: 1}, false},
		{"expired", &model.AccessCode{IsActive: true, ExpiresAt: now.Add(-time.Minute), MaxUses: 1}, false},
		{"exhausted", &model.AccessCode{IsActive: true, ExpiresAt: now.Add(time.Hour), MaxUses: 1, CurrentUses: 1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockCodeRepo := new(mockAccessCodeRepo)
			svc := NewCodeService(mockCodeRepo, &capturingRecorder{})

			mockCodeRepo.On("FindByCode", mock.Anything, "aB3dE9fG").Return(tt.code, nil)

			eligible, err := svc.CheckEligible(context.Background(), "aB3dE9fG")
			require.NoError(t, err)
			assert.Equal(t, tt.want, eligible)
		})
	}

	t.Run("malformed code is rejected without a store lookup", func(t *testing.T) {
		mockCodeRepo := new(mockAccessCodeRepo)
		svc := NewCodeService(mockCodeRepo, &capturingRecorder{})

		eligible, err := svc.CheckEligible(context.Background(), "not-a-code!")
		require.NoError(t, err)
		assert.False(t, eligible)
		mockCodeRepo.AssertNotCalled(t, "FindByCode")
	})
}

func TestValidateCode(t *testing.T) {
	now := time.Now()

	t.Run("eligible code is audited as success", func(t *testing.T) {
		mockCodeRepo := new(mockAccessCodeRepo)
		recorder := &capturingRecorder{}
		svc := NewCodeService(mockCodeRepo, recorder)

		mockCodeRepo.On("FindByCode", mock.Anything, "aB3dE9fG").
			Return(&model.AccessCode{IsActive: true, ExpiresAt: now.Add(time.Hour), MaxUses: 1}, nil)

		valid, err := svc.ValidateCode(context.Background(), "aB3dE9fG", "10.0.0.1", "curl")
		require.NoError(t, err)
		assert.True(t, valid)

		require.Equal(t, 1, recorder.countAction(model.ActionCodeValidate))
		assert.Equal(t, model.ResultSuccess, recorder.entries[0].Result)
	})

	t.Run("ineligible code is audited as failed", func(t *testing.T) {
		mockCodeRepo := new(mockAccessCodeRepo)
		recorder := &capturingRecorder{}
		svc := NewCodeService(mockCodeRepo, recorder)

		mockCodeRepo.On("FindByCode", mock.Anything, "aB3dE9fG").Return(nil, nil)

		valid, err := svc.ValidateCode(context.Background(), "aB3dE9fG", "10.0.0.1", "curl")
		require.NoError(t, err)
		assert.False(t, valid)

		require.Equal(t, 1, recorder.countAction(model.ActionCodeValidate))
		assert.Equal(t, model.ResultFailed, recorder.entries[0].Result)
	})
}

func TestDeactivateCode(t *testing.T) {
	t.Run("deactivates and audits", func(t *testing.T) {
		mockCodeRepo := new(mockAccessCodeRepo)
		recorder := &capturingRecorder{}
		svc := NewCodeService(mockCodeRepo, recorder)

		mockCodeRepo.On("Deactivate", mock.Anything, "code-1").
			Return(&model.AccessCode{ID: "code-1", Code: "aB3dE9fG", IsActive: false}, nil)

		code, err := svc.DeactivateCode(context.Background(), "code-1", "admin", "10.0.0.1", "")
		require.NoError(t, err)
		assert.False(t, code.IsActive)
		assert.Equal(t, 1, recorder.countAction(model.ActionCodeDeactivate))
	})

	t.Run("already inactive is not found", func(t *testing.T) {
		mockCodeRepo := new(mockAccessCodeRepo)
		svc := NewCodeService(mockCodeRepo, &capturingRecorder{})

		mockCodeRepo.On("Deactivate", mock.Anything, "code-1").Return(nil, nil)

		_, err := svc.DeactivateCode(context.Background(), "code-1", "admin", "10.0.0.1", "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}

func TestDeleteCode(t *testing.T) {
	t.Run("deletes and audits", func(t *testing.T) {
		mockCodeRepo := new(mockAccessCodeRepo)
		recorder := &capturingRecorder{}
		svc := NewCodeService(mockCodeRepo, recorder)

		mockCodeRepo.On("FindByID", mock.Anything, "code-1").
			Return(&model.AccessCode{ID: "code-1", Code: "aB3dE9fG"}, nil)
		mockCodeRepo.On("Delete", mock.Anything, "code-1").Return(nil)

		err := svc.DeleteCode(context.Background(), "code-1", "admin", "10.0.0.1", "")
		require.NoError(t, err)

		require.Equal(t, 1, recorder.countAction(model.ActionCodeDelete))
		require.NotNil(t, recorder.entries[0].AttemptedCode)
		assert.Equal(t, "aB3dE9fG", *recorder.entries[0].AttemptedCode)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		mockCodeRepo := new(mockAccessCodeRepo)
		recorder := &capturingRecorder{}
		svc := NewCodeService(mockCodeRepo, recorder)

		mockCodeRepo.On("FindByID", mock.Anything, "code-1").Return(nil, nil)

		err := svc.DeleteCode(context.Background(), "code-1", "admin", "10.0.0.1", "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
		assert.Empty(t, recorder.entries)
		mockCodeRepo.AssertNotCalled(t, "Delete")
	})

	t.Run("raced delete is not found", func(t *testing.T) {
		mockCodeRepo := new(mockAccessCodeRepo)
		svc := NewCodeService(mockCodeRepo, &capturingRecorder{})

		mockCodeRepo.On("FindByID", mock.Anything, "code-1").
			Return(&model.AccessCode{ID: "code-1", Code: "aB3dE9fG"}, nil)
		mockCodeRepo.On("Delete", mock.Anything, "code-1").Return(sql.ErrNoRows)

		err := svc.DeleteCode(context.Background(), "code-1", "admin", "10.0.0.1", "")
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
	})
}
