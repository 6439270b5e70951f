package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/DesmondD0ss/AccessManager-sub000/internal/database"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/model"
	"github.com/DesmondD0ss/AccessManager-sub000/internal/repository"
)

// Mock repositories

type mockAccessCodeRepo struct {
	mock.Mock
}

func (m *mockAccessCodeRepo) Create(ctx context.Context, params model.CreateAccessCodeParams) (*model.AccessCode, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) FindByID(ctx context.Context, id string) (*model.AccessCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) FindByCode(ctx context.Context, code string) (*model.AccessCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccessCodeRepo) ConsumeUse(ctx context.Context, id string, now time.Time) (*model.AccessCode, error) {
	args := m.Called(ctx, id, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) Deactivate(ctx context.Context, id string) (*model.AccessCode, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockAccessCodeRepo) List(ctx context.Context, limit, offset int) ([]model.AccessCode, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.AccessCode), args.Error(1)
}

func (m *mockAccessCodeRepo) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockAccessCodeRepo) WithTx(tx *sqlx.Tx) repository.AccessCodeRepository {
	return m
}

type mockGuestSessionRepo struct {
	mock.Mock
}

func (m *mockGuestSessionRepo) Create(ctx context.Context, params model.CreateGuestSessionParams) (*model.GuestSession, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GuestSession), args.Error(1)
}

func (m *mockGuestSessionRepo) FindByID(ctx context.Context, id string) (*model.GuestSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GuestSession), args.Error(1)
}

func (m *mockGuestSessionRepo) SetTokenHash(ctx context.Context, id string, tokenHash string) error {
	args := m.Called(ctx, id, tokenHash)
	return args.Error(0)
}

func (m *mockGuestSessionRepo) AddConsumption(ctx context.Context, id string, dataDeltaMB float64, timeConsumedMinutes int, now time.Time) (*model.GuestSession, error) {
	args := m.Called(ctx, id, dataDeltaMB, timeConsumedMinutes, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GuestSession), args.Error(1)
}

func (m *mockGuestSessionRepo) SetWarnings(ctx context.Context, id string, observed, updated model.WarningSet) (bool, error) {
	args := m.Called(ctx, id, observed, updated)
	return args.Bool(0), args.Error(1)
}

func (m *mockGuestSessionRepo) Terminate(ctx context.Context, id string, status model.SessionStatus, now time.Time) (*model.GuestSession, error) {
	args := m.Called(ctx, id, status, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.GuestSession), args.Error(1)
}

func (m *mockGuestSessionRepo) ExpireDue(ctx context.Context, now time.Time) ([]model.GuestSession, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GuestSession), args.Error(1)
}

func (m *mockGuestSessionRepo) ExpireByCodeIDs(ctx context.Context, codeIDs []string, now time.Time) ([]model.GuestSession, error) {
	args := m.Called(ctx, codeIDs, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.GuestSession), args.Error(1)
}

func (m *mockGuestSessionRepo) WithTx(tx *sqlx.Tx) repository.GuestSessionRepository {
	return m
}

// capturingRecorder collects audit entries in submission order.
type capturingRecorder struct {
	entries []model.CreateAuditEntryParams
}

func (r *capturingRecorder) Record(ctx context.Context, params model.CreateAuditEntryParams) {
	r.entries = append(r.entries, params)
}

func (r *capturingRecorder) actions() []model.AuditAction {
	out := make([]model.AuditAction, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.Action)
	}
	return out
}

func (r *capturingRecorder) countAction(action model.AuditAction) int {
	n := 0
	for _, e := range r.entries {
		if e.Action == action {
			n++
		}
	}
	return n
}

type mockTokenIssuer struct {
	mock.Mock
}

func (m *mockTokenIssuer) Issue(sessionID string, ttl time.Duration) (string, error) {
	args := m.Called(sessionID, ttl)
	return args.String(0), args.Error(1)
}

func (m *mockTokenIssuer) Verify(tokenString string) (string, error) {
	args := m.Called(tokenString)
	return args.String(0), args.Error(1)
}

// fakeTxRunner runs the transaction function directly; the mock repos
// ignore the tx handle.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}
