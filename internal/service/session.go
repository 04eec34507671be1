package service

import (
	"context"
	"time"

	apperrors "github.com/devpair/pairing-server-go/internal/errors"
	"github.com/devpair/pairing-server-go/internal/repository"
	"github.com/devpair/pairing-server-go/internal/util"
)

// SessionStatus is the introspection view of an issued session.
type SessionStatus struct {
	Active    bool      `json:"active"`
	UserID    string    `json:"userId"`
	DeviceID  string    `json:"deviceId"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	ExpiresIn int       `json:"expiresIn"`
}

type SessionService struct {
	sessionRepo repository.SessionRepository
}

func NewSessionService(sessionRepo repository.SessionRepository) *SessionService {
	return &SessionService{sessionRepo: sessionRepo}
}

// Status resolves a raw token to its session, if one is still active.
// Expiry is lazy: an expired session reads as absent.
func (s *SessionService) Status(ctx context.Context, rawToken string) (*SessionStatus, error) {
	session, err := s.sessionRepo.FindActiveByTokenHash(ctx, util.HashToken(rawToken))
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if session == nil {
		return nil, nil
	}

	return &SessionStatus{
		Active:    true,
		UserID:    session.UserID,
		DeviceID:  session.DeviceID,
		IssuedAt:  session.IssuedAt,
		ExpiresAt: session.ExpiresAt,
		ExpiresIn: int(time.Until(session.ExpiresAt).Seconds()),
	}, nil
}
