package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/devpair/pairing-server-go/internal/errors"
	"github.com/devpair/pairing-server-go/internal/model"
)

func strPtr(s string) *string { return &s }

func TestMemoryPairingCodeRepository_TryConsume(t *testing.T) {
	ctx := context.Background()

	t.Run("consumes a pending code once", func(t *testing.T) {
		repo := NewMemoryPairingCodeRepository()
		_, err := repo.Create(ctx, model.CreatePairingCodeParams{
			Code:      "ABC234",
			UserID:    "u1",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)

		pc, err := repo.TryConsume(ctx, "ABC234", "d1")
		require.NoError(t, err)
		assert.Equal(t, model.PairingStatusConsumed, pc.Status)
		require.NotNil(t, pc.ConsumedBy)
		assert.Equal(t, "d1", *pc.ConsumedBy)
		assert.NotNil(t, pc.ConsumedAt)
	})

	t.Run("second consume reports already consumed", func(t *testing.T) {
		repo := NewMemoryPairingCodeRepository()
		_, err := repo.Create(ctx, model.CreatePairingCodeParams{
			Code:      "ABC234",
			UserID:    "u1",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)

		_, err = repo.TryConsume(ctx, "ABC234", "d1")
		require.NoError(t, err)

		_, err = repo.TryConsume(ctx, "ABC234", "d2")
		assert.Equal(t, apperrors.ErrCodePairingConsumed, apperrors.GetCode(err))
	})

	t.Run("unknown code reports not found", func(t *testing.T) {
		repo := NewMemoryPairingCodeRepository()
		_, err := repo.TryConsume(ctx, "ZZZZZZ", "d1")
		assert.Equal(t, apperrors.ErrCodePairingNotFound, apperrors.GetCode(err))
	})

	t.Run("expired code never transitions to consumed", func(t *testing.T) {
		repo := NewMemoryPairingCodeRepository()
		_, err := repo.Create(ctx, model.CreatePairingCodeParams{
			Code:      "ABC234",
			UserID:    "u1",
			ExpiresAt: time.Now().Add(-time.Minute),
		})
		require.NoError(t, err)

		_, err = repo.TryConsume(ctx, "ABC234", "d1")
		assert.Equal(t, apperrors.ErrCodePairingExpired, apperrors.GetCode(err))

		pc, err := repo.FindByCode(ctx, "ABC234")
		require.NoError(t, err)
		assert.Equal(t, model.PairingStatusPending, pc.Status)
		assert.Equal(t, model.PairingStatusExpired, pc.EffectiveStatus(time.Now()))
	})

	t.Run("device mismatch does not mutate the record", func(t *testing.T) {
		repo := NewMemoryPairingCodeRepository()
		_, err := repo.Create(ctx, model.CreatePairingCodeParams{
			Code:             "ABC234",
			UserID:           "u1",
			ExpectedDeviceID: strPtr("D1"),
			ExpiresAt:        time.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)

		_, err = repo.TryConsume(ctx, "ABC234", "D2")
		assert.Equal(t, apperrors.ErrCodeDeviceMismatch, apperrors.GetCode(err))

		pc, err := repo.FindByCode(ctx, "ABC234")
		require.NoError(t, err)
		assert.Equal(t, model.PairingStatusPending, pc.Status)
		assert.Nil(t, pc.ConsumedBy)

		// The bound device can still redeem it.
		consumed, err := repo.TryConsume(ctx, "ABC234", "D1")
		require.NoError(t, err)
		assert.Equal(t, model.PairingStatusConsumed, consumed.Status)
	})

	t.Run("duplicate create is rejected", func(t *testing.T) {
		repo := NewMemoryPairingCodeRepository()
		_, err := repo.Create(ctx, model.CreatePairingCodeParams{
			Code:      "ABC234",
			UserID:    "u1",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})
		require.NoError(t, err)

		_, err = repo.Create(ctx, model.CreatePairingCodeParams{
			Code:      "ABC234",
			UserID:    "u2",
			ExpiresAt: time.Now().Add(10 * time.Minute),
		})
		assert.Error(t, err)
	})
}

func TestMemoryPairingCodeRepository_ActiveCodes(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryPairingCodeRepository()

	_, err := repo.Create(ctx, model.CreatePairingCodeParams{
		Code: "AAAAAA", UserID: "u1", ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.CreatePairingCodeParams{
		Code: "BBBBBB", UserID: "u1", ExpiresAt: time.Now().Add(-time.Minute),
	})
	require.NoError(t, err)
	_, err = repo.Create(ctx, model.CreatePairingCodeParams{
		Code: "CCCCCC", UserID: "u2", ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	require.NoError(t, err)

	t.Run("lists only pending unexpired codes for the user", func(t *testing.T) {
		codes, err := repo.FindActiveByUserID(ctx, "u1")
		require.NoError(t, err)
		require.Len(t, codes, 1)
		assert.Equal(t, "AAAAAA", codes[0].Code)
	})

	t.Run("counts match the listing", func(t *testing.T) {
		count, err := repo.CountActiveByUserID(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("DeleteExpired removes expired and consumed codes", func(t *testing.T) {
		_, err := repo.TryConsume(ctx, "CCCCCC", "d1")
		require.NoError(t, err)

		deleted, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), deleted)

		pc, err := repo.FindByCode(ctx, "AAAAAA")
		require.NoError(t, err)
		assert.NotNil(t, pc)
	})
}

func TestMemorySessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("finds an active session by token hash", func(t *testing.T) {
		repo := NewMemorySessionRepository()
		session := &model.Session{
			ID:        "s1",
			TokenHash: "hash-1",
			UserID:    "u1",
			DeviceID:  "d1",
			IssuedAt:  time.Now(),
			ExpiresAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, repo.Create(ctx, session))

		found, err := repo.FindActiveByTokenHash(ctx, "hash-1")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "u1", found.UserID)
	})

	t.Run("expired session reads as absent", func(t *testing.T) {
		repo := NewMemorySessionRepository()
		session := &model.Session{
			ID:        "s1",
			TokenHash: "hash-1",
			UserID:    "u1",
			DeviceID:  "d1",
			IssuedAt:  time.Now().Add(-2 * time.Hour),
			ExpiresAt: time.Now().Add(-time.Hour),
		}
		require.NoError(t, repo.Create(ctx, session))

		found, err := repo.FindActiveByTokenHash(ctx, "hash-1")
		require.NoError(t, err)
		assert.Nil(t, found)

		deleted, err := repo.DeleteExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), deleted)
	})
}
