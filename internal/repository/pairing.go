package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	apperrors "github.com/devpair/pairing-server-go/internal/errors"
	"github.com/devpair/pairing-server-go/internal/model"
)

// PairingCodeRepository owns pairing code records. TryConsume is the sole
// mutator of code status and is atomic per code: exactly one concurrent
// caller succeeds, everyone else gets a domain error naming the refusal.
type PairingCodeRepository interface {
	FindByCode(ctx context.Context, code string) (*model.PairingCode, error)
	FindActiveByUserID(ctx context.Context, userID string) ([]model.PairingCode, error)
	CountActiveByUserID(ctx context.Context, userID string) (int, error)
	Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error)
	TryConsume(ctx context.Context, code, deviceID string) (*model.PairingCode, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type pairingCodeRepo struct {
	db *sqlx.DB
}

func NewPairingCodeRepository(db *sqlx.DB) PairingCodeRepository {
	return &pairingCodeRepo{db: db}
}

func (r *pairingCodeRepo) FindByCode(ctx context.Context, code string) (*model.PairingCode, error) {
	var pc model.PairingCode
	err := r.db.GetContext(ctx, &pc, `
		SELECT * FROM pairing_codes WHERE code = $1
	`, code)
	return HandleNotFound(&pc, err)
}

func (r *pairingCodeRepo) FindActiveByUserID(ctx context.Context, userID string) ([]model.PairingCode, error) {
	var codes []model.PairingCode
	err := r.db.SelectContext(ctx, &codes, `
		SELECT * FROM pairing_codes
		WHERE user_id = $1 AND status = 'pending' AND expires_at > NOW()
		ORDER BY created_at DESC
	`, userID)
	return codes, err
}

func (r *pairingCodeRepo) CountActiveByUserID(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM pairing_codes
		WHERE user_id = $1 AND status = 'pending' AND expires_at > NOW()
	`, userID)
	return count, err
}

func (r *pairingCodeRepo) Create(ctx context.Context, params model.CreatePairingCodeParams) (*model.PairingCode, error) {
	var pc model.PairingCode
	err := r.db.GetContext(ctx, &pc, `
		INSERT INTO pairing_codes (code, user_id, expected_device_id, status, expires_at)
		VALUES ($1, $2, $3, 'pending', $4)
		RETURNING *
	`, params.Code, params.UserID, params.ExpectedDeviceID, params.ExpiresAt)
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// TryConsume flips a code from pending to consumed in a single conditional
// UPDATE. Expiry and device binding are evaluated inside the same statement,
// so an expired code can never transition to consumed and a losing racer
// serializes behind the winner's row lock. A refused consume is classified
// with a follow-up read; by then the winner's write is visible.
func (r *pairingCodeRepo) TryConsume(ctx context.Context, code, deviceID string) (*model.PairingCode, error) {
	var pc model.PairingCode
	err := r.db.GetContext(ctx, &pc, `
		UPDATE pairing_codes SET
			status = 'consumed',
			consumed_by = $2,
			consumed_at = NOW()
		WHERE code = $1
			AND status = 'pending'
			AND expires_at > NOW()
			AND (expected_device_id IS NULL OR expected_device_id = $2)
		RETURNING *
	`, code, deviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.classifyRefusal(ctx, code)
	}
	if err != nil {
		return nil, err
	}
	return &pc, nil
}

// classifyRefusal names the reason a consume was refused. Consumed wins over
// expired so concurrent losers always observe PAIRING_CODE_CONSUMED.
func (r *pairingCodeRepo) classifyRefusal(ctx context.Context, code string) error {
	var pc model.PairingCode
	err := r.db.GetContext(ctx, &pc, `
		SELECT * FROM pairing_codes WHERE code = $1
	`, code)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.PairingCodeNotFound()
	}
	if err != nil {
		return err
	}

	switch {
	case pc.Status == model.PairingStatusConsumed:
		return apperrors.PairingCodeConsumed()
	case pc.IsExpired(time.Now()):
		return apperrors.PairingCodeExpired()
	default:
		return apperrors.DeviceMismatch()
	}
}

func (r *pairingCodeRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM pairing_codes
		WHERE expires_at < NOW() OR status = 'consumed'
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
