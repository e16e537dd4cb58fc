package auth

import (
	"context"
	"time"
)

// Session is the server-side state of a device pairing. Stored sessions are
// never mutated; expiry is fixed at creation.
type Session struct {
	PumpUID   string    `json:"pump_uid"`
	UserUID   string    `json:"user_uid"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session is no longer usable at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionStore is a concurrency-safe table of device sessions keyed by the
// exact token string. Every operation is atomic on a single key; no
// operation locks the whole table. Presence of a session says nothing
// about its validity, callers re-check expiry and the token signature.
type SessionStore interface {
	// Insert stores session under token. It returns ErrSessionExists and
	// leaves the table unchanged if token is already present.
	Insert(ctx context.Context, token string, session *Session) error
	// Get returns the session for token, or nil if there is none.
	Get(ctx context.Context, token string) (*Session, error)
	// Delete removes token. Removing an absent token is not an error.
	Delete(ctx context.Context, token string) error
	// CompareAndDelete removes token only if its current value is still the
	// session previously observed through Get or Range.
	CompareAndDelete(ctx context.Context, token string, observed *Session) (bool, error)
	// Range calls fn for each stored session until fn returns false. It sees
	// a consistent value per key but not a consistent view of the table.
	Range(ctx context.Context, fn func(token string, session *Session) bool) error
}
