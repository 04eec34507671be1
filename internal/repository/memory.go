package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/devpair/pairing-server-go/internal/errors"
	"github.com/devpair/pairing-server-go/internal/model"
)

// MemoryPairingCodeRepository is an in-process Pairing Code Store with the
// same consume semantics as the Postgres store: a single mutex serializes
// every consume decision, so exactly one concurrent caller per code wins.
// It backs tests and single-process deployments.
type MemoryPairingCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*model.PairingCode
}

func NewMemoryPairingCodeRepository() *MemoryPairingCodeRepository {
	return &MemoryPairingCodeRepository{
		codes: make(map[string]*model.PairingCode),
	}
}

var _ PairingCodeRepository = (*MemoryPairingCodeRepository)(nil)

func (r *MemoryPairingCodeRepository) FindByCode(ctx context.Context, code string) (*model.PairingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pc, ok := r.codes[code]
	if !ok {
		return nil, nil
	}
	return clonePairingCode(pc), nil
}

func (r *MemoryPairingCodeRepository) FindActiveByUserID(ctx context.Context, userID string) ([]model.PairingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var codes []model.PairingCode
	for _, pc := range r.codes {
		if pc.UserID == userID && pc.Status == model.PairingStatusPending && !pc.IsExpired(now) {
			codes = append(codes, *clonePairingCode(pc))
		}
	}
	return codes, nil
}

func (r *MemoryPairingCodeRepository) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	codes, err := r.FindActiveByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(codes), nil
}

func (r *MemoryPairingCodeRepository) Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.codes[params.Code]; exists {
		return nil, fmt.Errorf("pairing code %q already exists", params.Code)
	}

	pc := &model.PairingCode{
		Code:             params.Code,
		UserID:           params.UserID,
		ExpectedDeviceID: params.ExpectedDeviceID,
		Status:           model.PairingStatusPending,
		ExpiresAt:        params.ExpiresAt,
		CreatedAt:        time.Now(),
	}
	r.codes[params.Code] = pc
	return clonePairingCode(pc), nil
}

// TryConsume checks expiry, then consumption, then device binding, all under
// the store lock. A mismatch or an expired code never mutates the record.
func (r *MemoryPairingCodeRepository) TryConsume(ctx context.Context, code, deviceID string) (*model.PairingCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pc, ok := r.codes[code]
	if !ok {
		return nil, apperrors.PairingCodeNotFound()
	}
	if pc.Status == model.PairingStatusConsumed {
		return nil, apperrors.PairingCodeConsumed()
	}
	if pc.IsExpired(time.Now()) {
		return nil, apperrors.PairingCodeExpired()
	}
	if pc.ExpectedDeviceID != nil && *pc.ExpectedDeviceID != deviceID {
		return nil, apperrors.DeviceMismatch()
	}

	now := time.Now()
	pc.Status = model.PairingStatusConsumed
	pc.ConsumedBy = &deviceID
	pc.ConsumedAt = &now
	return clonePairingCode(pc), nil
}

func (r *MemoryPairingCodeRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var deleted int64
	for code, pc := range r.codes {
		if pc.IsExpired(now) || pc.Status == model.PairingStatusConsumed {
			delete(r.codes, code)
			deleted++
		}
	}
	return deleted, nil
}

func clonePairingCode(pc *model.PairingCode) *model.PairingCode {
	clone := *pc
	if pc.ExpectedDeviceID != nil {
		v := *pc.ExpectedDeviceID
		clone.ExpectedDeviceID = &v
	}
	if pc.ConsumedBy != nil {
		v := *pc.ConsumedBy
		clone.ConsumedBy = &v
	}
	if pc.ConsumedAt != nil {
		v := *pc.ConsumedAt
		clone.ConsumedAt = &v
	}
	return &clone
}

// MemorySessionRepository is the in-process counterpart of the Postgres
// session store.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]*model.Session
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]*model.Session),
	}
}

var _ SessionRepository = (*MemorySessionRepository)(nil)

func (r *MemorySessionRepository) Create(ctx context.Context, session *model.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[session.TokenHash]; exists {
		return fmt.Errorf("session token hash collision")
	}
	clone := *session
	r.sessions[session.TokenHash] = &clone
	return nil
}

func (r *MemorySessionRepository) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[tokenHash]
	if !ok || session.IsExpired(time.Now()) {
		return nil, nil
	}
	clone := *session
	return &clone, nil
}

func (r *MemorySessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var deleted int64
	for hash, session := range r.sessions {
		if session.IsExpired(now) {
			delete(r.sessions, hash)
			deleted++
		}
	}
	return deleted, nil
}
