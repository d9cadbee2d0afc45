package server

import (
	"sync"
	"time"
)

const (
	defaultLoginMaxFailures = 5
	defaultLoginWindow      = 5 * time.Minute
	defaultLoginBlockFor    = 15 * time.Minute
	loginSweepInterval      = 10 * time.Minute
)

// loginRateLimiter blocks a client/username pair after repeated failed logins.
type loginRateLimiter struct {
	mu          sync.Mutex
	attempts    map[string]*loginAttempts
	maxFailures int
	window      time.Duration
	blockFor    time.Duration
	lastSweep   time.Time
}

type loginAttempts struct {
	failures     []time.Time
	blockedUntil time.Time
}

func newLoginRateLimiter(maxFailures int, window, blockFor time.Duration) *loginRateLimiter {
	if maxFailures <= 0 || window <= 0 || blockFor <= 0 {
		return nil
	}
	return &loginRateLimiter{
		attempts:    make(map[string]*loginAttempts),
		maxFailures: maxFailures,
		window:      window,
		blockFor:    blockFor,
	}
}

// Allow reports whether key may attempt a login at now.
func (l *loginRateLimiter) Allow(key string, now time.Time) bool {
	if l == nil || key == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.sweepLocked(now)

	entry, ok := l.attempts[key]
	if !ok {
		return true
	}
	return !now.Before(entry.blockedUntil)
}

// RegisterFailure records one failed attempt and blocks key once the window fills.
func (l *loginRateLimiter) RegisterFailure(key string, now time.Time) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.attempts[key]
	if !ok {
		entry = &loginAttempts{}
		l.attempts[key] = entry
	}
	entry.failures = append(recentFailures(entry.failures, now, l.window), now)
	if len(entry.failures) >= l.maxFailures {
		entry.blockedUntil = now.Add(l.blockFor)
		entry.failures = nil
	}
}

// Reset forgets key after a successful login.
func (l *loginRateLimiter) Reset(key string) {
	if l == nil || key == "" {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.attempts, key)
}

func (l *loginRateLimiter) sweepLocked(now time.Time) {
	if now.Sub(l.lastSweep) < loginSweepInterval {
		return
	}
	l.lastSweep = now
	for key, entry := range l.attempts {
		entry.failures = recentFailures(entry.failures, now, l.window)
		if len(entry.failures) == 0 && !now.Before(entry.blockedUntil) {
			delete(l.attempts, key)
		}
	}
}

func recentFailures(failures []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := failures[:0]
	for _, at := range failures {
		if now.Sub(at) <= window {
			kept = append(kept, at)
		}
	}
	return kept
}
