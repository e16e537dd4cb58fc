package auth

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDeviceService(t *testing.T, duration time.Duration, clock *fakeClock, store SessionStore) *DeviceAuthService {
	t.Helper()
	opts := []Option{WithLogger(discardLogger())}
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}
	svc, err := NewDeviceAuthService("device-secret", duration, store, opts...)
	require.NoError(t, err)
	return svc
}

func TestNewDeviceAuthServiceEmptySecret(t *testing.T) {
	_, err := NewDeviceAuthService("", time.Minute, nil)
	require.ErrorIs(t, err, ErrMissingSecret)
}

func TestDeviceAuthorizeValidate(t *testing.T) {
	svc := newDeviceService(t, time.Minute, nil, nil)
	ctx := context.Background()

	token, err := svc.Authorize(ctx, "pump-uid", "user-uid")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	binding, ok := svc.Validate(ctx, token)
	require.True(t, ok)
	assert.Equal(t, DeviceBinding{PumpUID: "pump-uid", UserUID: "user-uid"}, binding)

	// Validation has no side effect on success.
	binding, ok = svc.Validate(ctx, token)
	require.True(t, ok)
	assert.Equal(t, "pump-uid", binding.PumpUID)
}

func TestDeviceDeauthorize(t *testing.T) {
	svc := newDeviceService(t, time.Minute, nil, nil)
	ctx := context.Background()

	token, err := svc.Authorize(ctx, "pump-uid", "user-uid")
	require.NoError(t, err)
	_, ok := svc.Validate(ctx, token)
	require.True(t, ok)

	require.NoError(t, svc.Deauthorize(ctx, token))
	_, ok = svc.Validate(ctx, token)
	assert.False(t, ok)

	// Idempotent.
	assert.NoError(t, svc.Deauthorize(ctx, token))
	assert.NoError(t, svc.Deauthorize(ctx, "never-issued"))
}

func TestDeviceNonPositiveDurationIsExpired(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Minute} {
		t.Run(d.String(), func(t *testing.T) {
			store := NewMemorySessionStore()
			svc := newDeviceService(t, d, nil, store)
			ctx := context.Background()

			token, err := svc.Authorize(ctx, "pump-uid", "user-uid")
			require.NoError(t, err)
			require.Equal(t, 1, store.Len())

			_, ok := svc.Validate(ctx, token)
			assert.False(t, ok)
			assert.Equal(t, 0, store.Len(), "expired session should be evicted on validation")
		})
	}
}

func TestDeviceValidateExpiresWithClock(t *testing.T) {
	clock := newFakeClock()
	svc := newDeviceService(t, time.Minute, clock, nil)
	ctx := context.Background()

	token, err := svc.Authorize(ctx, "pump-uid", "user-uid")
	require.NoError(t, err)

	clock.Advance(59 * time.Second)
	_, ok := svc.Validate(ctx, token)
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = svc.Validate(ctx, token)
	assert.False(t, ok)
}

func TestDeviceValidateMalformed(t *testing.T) {
	svc := newDeviceService(t, time.Minute, nil, nil)
	for _, token := range malformedTokens {
		assert.NotPanics(t, func() {
			_, ok := svc.Validate(context.Background(), token)
			assert.False(t, ok)
		})
	}
}

func TestDeviceValidateEvictsForeignSignature(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	issuer := newDeviceService(t, time.Minute, nil, store)

	other, err := NewDeviceAuthService("another-secret", time.Minute, store, WithLogger(discardLogger()))
	require.NoError(t, err)

	token, err := issuer.Authorize(ctx, "pump-uid", "user-uid")
	require.NoError(t, err)

	_, ok := other.Validate(ctx, token)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	_, ok = issuer.Validate(ctx, token)
	assert.False(t, ok)
}

func TestDeviceValidateRejectsPlantedUserToken(t *testing.T) {
	store := NewMemorySessionStore()
	ctx := context.Background()
	svc := newDeviceService(t, time.Minute, nil, store)
	users, err := NewUserAuthService("device-secret", time.Hour, WithLogger(discardLogger()))
	require.NoError(t, err)

	userToken, err := users.GenerateToken(7)
	require.NoError(t, err)
	require.NoError(t, store.Insert(ctx, userToken, &Session{PumpUID: "p", UserUID: "u", ExpiresAt: time.Now().Add(time.Hour)}))

	_, ok := svc.Validate(ctx, userToken)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestDeviceTokensAreUnique(t *testing.T) {
	clock := newFakeClock()
	svc := newDeviceService(t, time.Minute, clock, nil)
	ctx := context.Background()

	a, err := svc.Authorize(ctx, "pump-uid", "user-uid")
	require.NoError(t, err)
	b, err := svc.Authorize(ctx, "pump-uid", "user-uid")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	// Several sessions for the same pair coexist.
	_, ok := svc.Validate(ctx, a)
	assert.True(t, ok)
	_, ok = svc.Validate(ctx, b)
	assert.True(t, ok)
}

func TestDeviceAuthorizeCancelled(t *testing.T) {
	store := NewMemorySessionStore()
	svc := newDeviceService(t, time.Minute, nil, store)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Authorize(ctx, "pump-uid", "user-uid")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, store.Len())
}

func TestRemoveExpiredTokens(t *testing.T) {
	clock := newFakeClock()
	store := NewMemorySessionStore()
	svc := newDeviceService(t, time.Minute, clock, store)
	ctx := context.Background()

	stale, err := svc.Authorize(ctx, "pump-1", "user-1")
	require.NoError(t, err)
	clock.Advance(2 * time.Minute)
	live, err := svc.Authorize(ctx, "pump-2", "user-2")
	require.NoError(t, err)

	removed, err := svc.RemoveExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())

	got, err := store.Get(ctx, stale)
	require.NoError(t, err)
	assert.Nil(t, got)

	binding, ok := svc.Validate(ctx, live)
	require.True(t, ok)
	assert.Equal(t, "pump-2", binding.PumpUID)

	removed, err = svc.RemoveExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestDeviceConcurrentAccess(t *testing.T) {
	clock := newFakeClock()
	store := NewMemorySessionStore()
	svc := newDeviceService(t, time.Minute, clock, store)
	ctx := context.Background()

	const workers = 16
	var wg sync.WaitGroup
	tokens := make(chan string, workers*10)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 10 {
				token, err := svc.Authorize(ctx, fmt.Sprintf("pump-%d", w), fmt.Sprintf("user-%d", i))
				if !assert.NoError(t, err) {
					return
				}
				binding, ok := svc.Validate(ctx, token)
				assert.True(t, ok)
				assert.Equal(t, fmt.Sprintf("pump-%d", w), binding.PumpUID)
				if i%2 == 0 {
					assert.NoError(t, svc.Deauthorize(ctx, token))
				} else {
					tokens <- token
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range 20 {
			_, err := svc.RemoveExpiredTokens(ctx)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()
	close(tokens)

	assert.Equal(t, workers*5, store.Len())
	for token := range tokens {
		_, ok := svc.Validate(ctx, token)
		assert.True(t, ok)
	}

	clock.Advance(time.Minute)
	removed, err := svc.RemoveExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, workers*5, removed)
	assert.Equal(t, 0, store.Len())
}
