package auth

import (
	"io"
	"log/slog"
	"sync"
	"time"
)

// fakeClock is a manually advanced time source safe for concurrent use.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var malformedTokens = []string{
	"",
	"invalid.token.string",
	"notatoken",
	"a.b",
	"eyJhbGciOiJIUzI1NiJ9..",
}
