package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/scoracle-predict/internal/provider"
)

var errFlaky = errors.New("connection reset")

func fastPolicy(attempts int) Policy {
	return Policy{MaxAttempts: attempts, InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, Multiplier: 2}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), fastPolicy(5), "flaky", nil, func(context.Context) (int, error) {
		calls++
		if calls < 3 {
			return 0, errFlaky
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDo_ExhaustedIsTyped(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(4), "always-down", nil, func(context.Context) (string, error) {
		calls++
		return "", errFlaky
	})

	require.Error(t, err)
	assert.Equal(t, 4, calls)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errFlaky)

	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, "always-down", exhausted.Op)
	assert.Equal(t, 4, exhausted.Attempts)
}

func TestDo_PermanentStopsImmediately(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(10), "bad-request", nil, func(context.Context) (int, error) {
		calls++
		return 0, provider.ErrPermanent
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, provider.ErrPermanent)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestDo_NoRowsIsNotRetried(t *testing.T) {
	calls := 0
	_, err := Do(context.Background(), fastPolicy(10), "empty", nil, func(context.Context) (int, error) {
		calls++
		return 0, provider.ErrNoRows
	})

	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, provider.ErrNoRows)
}

func TestDo_UnboundedStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, fastPolicy(0), "forever", nil, func(context.Context) (int, error) {
		calls++
		if calls == 25 {
			cancel()
		}
		return 0, errFlaky
	})

	require.Error(t, err)
	assert.GreaterOrEqual(t, calls, 25)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrExhausted)
}

func TestPolicy_Normalize(t *testing.T) {
	p := Policy{MaxAttempts: -3, MaxInterval: time.Nanosecond, Multiplier: 0.5, Jitter: 4}.normalize()
	assert.Equal(t, 0, p.MaxAttempts)
	assert.Equal(t, DefaultPolicy().InitialInterval, p.InitialInterval)
	assert.Equal(t, p.InitialInterval, p.MaxInterval)
	assert.Equal(t, 2.0, p.Multiplier)
	assert.Equal(t, 0.0, p.Jitter)
}
