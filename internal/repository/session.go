package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/devpair/pairing-server-go/internal/model"
)

// SessionRepository persists issued sessions. Sessions are immutable:
// there is Create, hash lookup, and expiry sweep, nothing else.
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

type sessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepository(db *sqlx.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token_hash, user_id, device_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, session.ID, session.TokenHash, session.UserID, session.DeviceID,
		session.IssuedAt, session.ExpiresAt)
	return err
}

func (r *sessionRepo) FindActiveByTokenHash(ctx context.Context, tokenHash string) (*model.Session, error) {
	var session model.Session
	err := r.db.GetContext(ctx, &session, `
		SELECT * FROM sessions
		WHERE token_hash = $1 AND expires_at > NOW()
	`, tokenHash)
	return HandleNotFound(&session, err)
}

func (r *sessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM sessions WHERE expires_at < NOW()
	`)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
