package auth

import (
	"context"
	"sync"
)

// MemorySessionStore is an in-process SessionStore built on sync.Map.
// Sessions are lost on restart.
type MemorySessionStore struct {
	data sync.Map // token -> *Session
}

var _ SessionStore = (*MemorySessionStore)(nil)

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{}
}

func (s *MemorySessionStore) Insert(_ context.Context, token string, session *Session) error {
	if _, loaded := s.data.LoadOrStore(token, session); loaded {
		return ErrSessionExists
	}
	return nil
}

func (s *MemorySessionStore) Get(_ context.Context, token string) (*Session, error) {
	v, ok := s.data.Load(token)
	if !ok {
		return nil, nil
	}
	return v.(*Session), nil
}

func (s *MemorySessionStore) Delete(_ context.Context, token string) error {
	s.data.Delete(token)
	return nil
}

// CompareAndDelete compares by identity: observed must be the pointer
// returned from Get or Range.
func (s *MemorySessionStore) CompareAndDelete(_ context.Context, token string, observed *Session) (bool, error) {
	return s.data.CompareAndDelete(token, observed), nil
}

func (s *MemorySessionStore) Range(ctx context.Context, fn func(token string, session *Session) bool) error {
	s.data.Range(func(k, v any) bool {
		if ctx.Err() != nil {
			return false
		}
		return fn(k.(string), v.(*Session))
	})
	return ctx.Err()
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemorySessionStore) Len() int {
	n := 0
	s.data.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}
