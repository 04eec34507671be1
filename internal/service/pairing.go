package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/devpair/pairing-server-go/internal/audit"
	apperrors "github.com/devpair/pairing-server-go/internal/errors"
	"github.com/devpair/pairing-server-go/internal/model"
	"github.com/devpair/pairing-server-go/internal/repository"
	"github.com/devpair/pairing-server-go/internal/token"
	"github.com/devpair/pairing-server-go/internal/util"
)

const (
	// Ambiguous characters (O, I, 0, 1) are excluded from pairing codes.
	pairingCodeChars      = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	PairingCodeLength     = 6
	maxActiveCodesPerUser = 5
)

// PairResult carries the outcome of a successful pairing. Token is the raw
// credential and appears nowhere else.
type PairResult struct {
	Session   *model.Session
	Token     string
	ExpiresIn int
}

// PairingService orchestrates code redemption: atomic consume, user check,
// token issuance, session persistence, audit trail.
type PairingService struct {
	codeRepo    repository.PairingCodeRepository
	sessionRepo repository.SessionRepository
	issuer      *token.Issuer
	codeTTL     time.Duration
}

func NewPairingService(
	codeRepo repository.PairingCodeRepository,
	sessionRepo repository.SessionRepository,
	issuer *token.Issuer,
	codeTTL time.Duration,
) *PairingService {
	return &PairingService{
		codeRepo:    codeRepo,
		sessionRepo: sessionRepo,
		issuer:      issuer,
		codeTTL:     codeTTL,
	}
}

// Pair redeems a pairing code for a session. Every attempt, won or lost,
// produces exactly one audit event; the code itself is never logged.
// Domain refusals come back as AppErrors and are terminal for the request.
func (s *PairingService) Pair(ctx context.Context, userID, deviceID, code string) (*PairResult, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))

	pc, err := s.codeRepo.TryConsume(ctx, normalized, deviceID)
	if err != nil {
		if apperrors.IsDomainError(err) {
			s.auditFailure(ctx, userID, deviceID, apperrors.GetCode(err))
			return nil, err
		}
		log.Error().Err(err).Msg("pair: consume failed")
		return nil, apperrors.Database(err)
	}

	// The record's owner must match the caller. Report a mismatch as
	// not-found so the response does not reveal which field was wrong;
	// the code stays burned either way.
	if pc.UserID != userID {
		s.auditFailure(ctx, userID, deviceID, "USER_MISMATCH")
		return nil, apperrors.PairingCodeNotFound()
	}

	session, raw, err := s.issuer.Issue(pc.UserID, deviceID)
	if err != nil {
		log.Error().Err(err).Msg("pair: token issuance failed")
		return nil, apperrors.Internal("Failed to issue session token").WithCause(err)
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		log.Error().Err(err).Msg("pair: session persistence failed")
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:     audit.EventPairSuccess,
		UserID:   userID,
		DeviceID: deviceID,
		Details: map[string]interface{}{
			"session_id": session.ID,
		},
	})

	return &PairResult{
		Session:   session,
		Token:     raw,
		ExpiresIn: int(s.issuer.TTL().Seconds()),
	}, nil
}

func (s *PairingService) auditFailure(ctx context.Context, userID, deviceID string, reason apperrors.ErrorCode) {
	audit.Log(ctx, audit.Event{
		Type:     audit.EventPairFailure,
		UserID:   userID,
		DeviceID: deviceID,
		Details: map[string]interface{}{
			"reason": string(reason),
		},
	})
}

// GenerateCode provisions a new pairing code for a user, optionally locked
// to one device. TTL is clamped to the configured code TTL.
func (s *PairingService) GenerateCode(
	ctx context.Context,
	userID string,
	expectedDeviceID *string,
	expiresIn time.Duration,
) (*model.PairingCode, error) {
	if expiresIn <= 0 || expiresIn > s.codeTTL {
		expiresIn = s.codeTTL
	}

	activeCount, err := s.codeRepo.CountActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if activeCount >= maxActiveCodesPerUser {
		return nil, apperrors.Conflict(
			fmt.Sprintf("Maximum active codes (%d) reached", maxActiveCodesPerUser))
	}

	var pc *model.PairingCode
	for attempts := 0; attempts < 10; attempts++ {
		code, err := randomCode()
		if err != nil {
			return nil, apperrors.Internal("Failed to generate pairing code").WithCause(err)
		}
		pc, err = s.codeRepo.Create(ctx, model.CreatePairingCodeParams{
			Code:             code,
			UserID:           userID,
			ExpectedDeviceID: expectedDeviceID,
			ExpiresAt:        time.Now().Add(expiresIn),
		})
		if err == nil {
			break
		}
		// Collision on the 6-char space is possible; retry with a fresh code.
		pc = nil
	}
	if pc == nil {
		return nil, apperrors.Internal("Failed to allocate a unique pairing code")
	}

	audit.Log(ctx, audit.Event{
		Type:   audit.EventCodeGenerate,
		UserID: userID,
		Details: map[string]interface{}{
			"code":       util.MaskCode(pc.Code),
			"expires_at": pc.ExpiresAt.Format(time.RFC3339),
		},
	})

	return pc, nil
}

func (s *PairingService) ListActiveCodes(ctx context.Context, userID string) ([]model.PairingCode, error) {
	codes, err := s.codeRepo.FindActiveByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return codes, nil
}

func randomCode() (string, error) {
	buf := make([]byte, PairingCodeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(pairingCodeChars))))
		if err != nil {
			return "", err
		}
		buf[i] = pairingCodeChars[n.Int64()]
	}
	return string(buf), nil
}
