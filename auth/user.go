package auth

import (
	"log/slog"
	"time"
)

// UserAuthService issues self-contained user tokens. Nothing is stored
// server-side; a token is valid until its embedded expiry.
type UserAuthService struct {
	codec    *TokenCodec
	lifetime time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewUserAuthService creates the service. lifetime is typically a whole
// number of days.
func NewUserAuthService(secret string, lifetime time.Duration, opts ...Option) (*UserAuthService, error) {
	o := applyOptions(opts)
	codec, err := NewTokenCodec(secret, o.now)
	if err != nil {
		return nil, err
	}
	return &UserAuthService{
		codec:    codec,
		lifetime: lifetime,
		logger:   o.logger.With("component", "user_auth"),
		now:      o.now,
	}, nil
}

// GenerateToken returns a signed token for userID expiring after the
// configured lifetime.
func (s *UserAuthService) GenerateToken(userID int64) (string, error) {
	now := s.now().UTC()
	return s.codec.Issue(&Claims{UserID: &userID}, now, now.Add(s.lifetime))
}

// ValidateToken returns the user ID carried by token. Device tokens, tokens
// without an ID and tokens failing verification all report false.
func (s *UserAuthService) ValidateToken(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	claims, err := s.codec.Parse(token)
	if err != nil {
		if IsExpired(err) {
			s.logger.Debug("user token expired")
		}
		return 0, false
	}
	if claims.UserID == nil || claims.Type != "" {
		return 0, false
	}
	return *claims.UserID, true
}
