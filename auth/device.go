package auth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DeviceBinding is the pump/user pair a device session was authorized for.
type DeviceBinding struct {
	PumpUID string
	UserUID string
}

// DeviceAuthService pairs a pump controller with a user for a fixed time.
// Tokens are signed but carry no identities; the binding lives in the
// SessionStore and is looked up by the exact token string.
type DeviceAuthService struct {
	codec    *TokenCodec
	store    SessionStore
	duration time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewDeviceAuthService creates the service. sessionDuration may be zero or
// negative, in which case every issued session is expired on arrival. A nil
// store selects a MemorySessionStore.
func NewDeviceAuthService(secret string, sessionDuration time.Duration, store SessionStore, opts ...Option) (*DeviceAuthService, error) {
	o := applyOptions(opts)
	codec, err := NewTokenCodec(secret, o.now)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = NewMemorySessionStore()
	}
	return &DeviceAuthService{
		codec:    codec,
		store:    store,
		duration: sessionDuration,
		logger:   o.logger.With("component", "device_auth"),
		now:      o.now,
	}, nil
}

// Authorize opens a session binding pumpUID to userUID and returns its token.
// The session is either fully stored or not stored at all.
func (s *DeviceAuthService) Authorize(ctx context.Context, pumpUID, userUID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := s.now().UTC()
	expiresAt := now.Add(s.duration)

	claims := &Claims{
		Type:             DeviceTokenType,
		RegisteredClaims: jwt.RegisteredClaims{ID: uuid.NewString()},
	}
	token, err := s.codec.Issue(claims, now, expiresAt)
	if err != nil {
		return "", err
	}

	session := &Session{PumpUID: pumpUID, UserUID: userUID, ExpiresAt: expiresAt}
	if err := s.store.Insert(ctx, token, session); err != nil {
		return "", fmt.Errorf("storing device session: %w", err)
	}

	s.logger.InfoContext(ctx, "device authorized",
		"pump_uid", pumpUID,
		"user_uid", userUID,
		"token", tokenPrefix(token),
		"expires_at", expiresAt,
	)
	return token, nil
}

// Validate returns the binding of a live session. Unknown, forged and expired
// tokens all report false; forged and expired ones are evicted.
func (s *DeviceAuthService) Validate(ctx context.Context, token string) (DeviceBinding, bool) {
	if token == "" {
		return DeviceBinding{}, false
	}
	session, err := s.store.Get(ctx, token)
	if err != nil {
		s.logger.WarnContext(ctx, "device session lookup failed", "token", tokenPrefix(token), "error", err)
		return DeviceBinding{}, false
	}
	if session == nil {
		return DeviceBinding{}, false
	}

	claims, err := s.codec.Verify(token)
	if err == nil && claims.Type != DeviceTokenType {
		err = fmt.Errorf("%w: unexpected token type %q", ErrInvalidToken, claims.Type)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "device token failed verification", "token", tokenPrefix(token), "error", err)
		s.evict(ctx, token)
		return DeviceBinding{}, false
	}

	if session.Expired(s.now()) {
		s.logger.InfoContext(ctx, "device session expired", "token", tokenPrefix(token), "expires_at", session.ExpiresAt)
		s.evict(ctx, token)
		return DeviceBinding{}, false
	}
	return DeviceBinding{PumpUID: session.PumpUID, UserUID: session.UserUID}, true
}

// Deauthorize ends the session for token. Unknown tokens are ignored.
func (s *DeviceAuthService) Deauthorize(ctx context.Context, token string) error {
	if err := s.store.Delete(ctx, token); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "device deauthorized", "token", tokenPrefix(token))
	return nil
}

// RemoveExpiredTokens deletes every expired session and returns how many were
// removed. Each removal is conditional on the entry being unchanged since it
// was observed, so it is safe alongside concurrent Authorize, Validate and
// Deauthorize calls.
func (s *DeviceAuthService) RemoveExpiredTokens(ctx context.Context) (int, error) {
	type candidate struct {
		token   string
		session *Session
	}
	now := s.now()
	var expired []candidate
	err := s.store.Range(ctx, func(token string, session *Session) bool {
		if session.Expired(now) {
			expired = append(expired, candidate{token, session})
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("listing device sessions: %w", err)
	}

	removed := 0
	for _, c := range expired {
		ok, err := s.store.CompareAndDelete(ctx, c.token, c.session)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	if removed > 0 {
		s.logger.InfoContext(ctx, "expired device sessions removed", "count", removed)
	}
	return removed, nil
}

func (s *DeviceAuthService) evict(ctx context.Context, token string) {
	if err := s.store.Delete(ctx, token); err != nil {
		s.logger.WarnContext(ctx, "evicting device session failed", "token", tokenPrefix(token), "error", err)
	}
}
