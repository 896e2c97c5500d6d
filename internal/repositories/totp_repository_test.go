package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTOTPRepository_FailedAttempts(t *testing.T) {
	ctx := context.Background()
	r := NewTOTPRepository()
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		require.NoError(t, r.LogVerificationAttempt(ctx, 1, false))
	}
	require.NoError(t, r.LogVerificationAttempt(ctx, 2, false))

	count, err := r.GetRecentFailedAttempts(ctx, 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// A success resets the count
	require.NoError(t, r.LogVerificationAttempt(ctx, 1, true))
	require.NoError(t, r.LogVerificationAttempt(ctx, 1, false))
	count, _ = r.GetRecentFailedAttempts(ctx, 1, 15*time.Minute)
	assert.Equal(t, 1, count)

	// Attempts outside the window are ignored
	now = now.Add(20 * time.Minute)
	count, _ = r.GetRecentFailedAttempts(ctx, 1, 15*time.Minute)
	assert.Zero(t, count)

	now = now.Add(25 * time.Hour)
	require.NoError(t, r.CleanupOldAttempts(ctx))
	assert.Empty(t, r.attempts)
}
