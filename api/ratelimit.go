package api

import (
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"
)

// failureLimiter tracks consecutive failures per key and enforces
// exponential backoff once a threshold is reached. Login failures are keyed
// by normalized email, failed pump pairings by client IP.
type failureLimiter struct {
	mu       sync.Mutex
	attempts map[string]*attemptRecord

	maxFailures int
	baseLockout time.Duration
	maxLockout  time.Duration
	now         func() time.Time
}

type attemptRecord struct {
	failures    int
	lastFailure time.Time
	lockedUntil time.Time
}

const (
	// maxFailures is the number of consecutive login failures before lockout begins.
	maxFailures = 5
	baseLockout = 1 * time.Minute
	maxLockout  = 15 * time.Minute

	ipMaxFailures = 20
	ipBaseLockout = 1 * time.Minute
	ipMaxLockout  = 30 * time.Minute

	// attemptExpiry is how long after the last failure before the record is
	// garbage-collected.
	attemptExpiry = 1 * time.Hour
)

type (
	loginRateLimiter = failureLimiter
	ipRateLimiter    = failureLimiter
)

func newLoginRateLimiter() *loginRateLimiter {
	return newFailureLimiter(maxFailures, baseLockout, maxLockout)
}

func newIPRateLimiter() *ipRateLimiter {
	return newFailureLimiter(ipMaxFailures, ipBaseLockout, ipMaxLockout)
}

func newFailureLimiter(threshold int, base, ceiling time.Duration) *failureLimiter {
	return &failureLimiter{
		attempts:    make(map[string]*attemptRecord),
		maxFailures: threshold,
		baseLockout: base,
		maxLockout:  ceiling,
		now:         time.Now,
	}
}

// check returns true if key is currently locked out, along with how long the
// caller should wait.
func (rl *failureLimiter) check(key string) (blocked bool, retryAfter time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[key]
	if !ok {
		return false, 0
	}
	now := rl.now()
	if now.Sub(rec.lastFailure) > attemptExpiry {
		delete(rl.attempts, key)
		return false, 0
	}
	if now.Before(rec.lockedUntil) {
		return true, rec.lockedUntil.Sub(now)
	}
	return false, 0
}

// recordFailure increments the failure counter and applies exponential
// backoff once the threshold is reached.
func (rl *failureLimiter) recordFailure(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rec, ok := rl.attempts[key]
	if !ok {
		rec = &attemptRecord{}
		rl.attempts[key] = rec
	}
	now := rl.now()
	rec.failures++
	rec.lastFailure = now

	if rec.failures >= rl.maxFailures {
		// baseLockout * 2^(failures - maxFailures), capped.
		lockout := rl.baseLockout
		for i := 0; i < rec.failures-rl.maxFailures; i++ {
			lockout *= 2
			if lockout > rl.maxLockout {
				lockout = rl.maxLockout
				break
			}
		}
		rec.lockedUntil = now.Add(lockout)
	}
}

// recordSuccess resets the failure counter.
func (rl *failureLimiter) recordSuccess(key string) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	delete(rl.attempts, key)
}

// sweep removes expired records and reports how many were dropped.
func (rl *failureLimiter) sweep() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, rec := range rl.attempts {
		if now.Sub(rec.lastFailure) > attemptExpiry {
			delete(rl.attempts, key)
			removed++
		}
	}
	return removed
}

// writeRateLimited sends a 429 Too Many Requests response.
func writeRateLimited(w http.ResponseWriter, r *http.Request, retryAfter time.Duration) {
	w.Header().Set("Retry-After", retryAfterString(retryAfter))
	writeError(w, r, http.StatusTooManyRequests, msgTooManyAttempts)
}

func retryAfterString(d time.Duration) string {
	secs := int(d.Seconds())
	if secs < 1 {
		secs = 1
	}
	return strconv.Itoa(secs)
}

// extractClientIP returns the client IP for rate limiting, honoring the
// API's trusted proxies.
func (a *API) extractClientIP(r *http.Request) string {
	return extractClientIPWithProxies(r, a.trustedProxies)
}

// extractClientIPWithProxies returns the best-effort client IP address.
//
// Proxy headers are only honored when the direct peer falls inside one of
// trustedProxies. With no trusted proxies RemoteAddr is always used.
// Header priority is X-Forwarded-For, then Forwarded "for=", then X-Real-IP.
// Forwarding chains are read right to left and the first hop outside
// trustedProxies wins; entries to its left are client supplied.
func extractClientIPWithProxies(r *http.Request, trustedProxies []netip.Prefix) string {
	remoteIP, _ := parseIPCandidate(r.RemoteAddr)
	if !peerTrusted(remoteIP, trustedProxies) {
		return remoteIP
	}

	var xff []string
	for _, value := range r.Header.Values("X-Forwarded-For") {
		xff = append(xff, strings.Split(value, ",")...)
	}
	if ip, ok := firstUntrustedHop(xff, trustedProxies); ok {
		return ip
	}

	var fwd []string
	for _, value := range r.Header.Values("Forwarded") {
		for _, elem := range strings.Split(value, ",") {
			for _, param := range strings.Split(elem, ";") {
				param = strings.TrimSpace(param)
				if strings.HasPrefix(strings.ToLower(param), "for=") {
					fwd = append(fwd, param[4:])
				}
			}
		}
	}
	if ip, ok := firstUntrustedHop(fwd, trustedProxies); ok {
		return ip
	}

	if ip, ok := parseIPCandidate(r.Header.Get("X-Real-IP")); ok {
		return ip
	}
	return remoteIP
}

// firstUntrustedHop walks hops from the nearest proxy outwards and returns
// the first address not in trustedProxies. When every hop is trusted the
// outermost one is returned.
func firstUntrustedHop(hops []string, trustedProxies []netip.Prefix) (string, bool) {
	outermost := ""
	for i := len(hops) - 1; i >= 0; i-- {
		ip, ok := parseIPCandidate(hops[i])
		if !ok {
			continue
		}
		if !peerTrusted(ip, trustedProxies) {
			return ip, true
		}
		outermost = ip
	}
	return outermost, outermost != ""
}

func peerTrusted(remoteIP string, trustedProxies []netip.Prefix) bool {
	if len(trustedProxies) == 0 || remoteIP == "" {
		return false
	}
	addr, err := netip.ParseAddr(remoteIP)
	if err != nil {
		return false
	}
	for _, prefix := range trustedProxies {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

func parseIPCandidate(raw string) (string, bool) {
	s := strings.Trim(strings.TrimSpace(raw), "\"")
	if s == "" {
		return "", false
	}

	// RFC 7239 quoted IPv6 may appear as [::1]:1234.
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	// Drop zone if any (e.g. fe80::1%eth0).
	if i := strings.IndexByte(s, '%'); i >= 0 {
		s = s[:i]
	}

	if addr, err := netip.ParseAddr(s); err == nil {
		return addr.String(), true
	}
	if ip := net.ParseIP(s); ip != nil {
		return ip.String(), true
	}
	return "", false
}
