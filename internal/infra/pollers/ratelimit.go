package pollers

import (
	"sync"
	"time"
)

// HourlyLimiter tracks calls against an hourly quota, the shape the
// spec requires for the embedding provider and the upstream
// battery-monitor API. It generalizes the teacher's per-IP token-bucket
// (internal/interface/http/middleware.go's ipRateLimiter) from a
// per-minute HTTP limit to a per-hour call budget: a fixed window that
// resets the count once an hour has passed since the window started,
// rather than refilling continuously.
type HourlyLimiter struct {
	mu          sync.Mutex
	max         int
	windowStart time.Time
	count       int
}

// NewHourlyLimiter constructs a limiter allowing up to max calls per
// hour-long window. max<=0 disables the limit (Allow always true).
func NewHourlyLimiter(max int) *HourlyLimiter {
	return &HourlyLimiter{max: max, windowStart: time.Now()}
}

// Allow records one call attempt and reports whether it's within
// quota. Always true when the limiter is disabled.
func (l *HourlyLimiter) Allow() bool {
	if l.max <= 0 {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfExpiredLocked()
	if l.count >= l.max {
		return false
	}
	l.count++
	return true
}

// ApproachingLimit reports true once usage crosses 80% of quota within
// the current window, the signal the spec asks pollers to surface as
// approaching-limit telemetry.
func (l *HourlyLimiter) ApproachingLimit() bool {
	if l.max <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resetIfExpiredLocked()
	return float64(l.count) >= 0.8*float64(l.max)
}

func (l *HourlyLimiter) resetIfExpiredLocked() {
	if time.Since(l.windowStart) >= time.Hour {
		l.windowStart = time.Now()
		l.count = 0
	}
}
