// Package schedule decides whether a fresh fetch of the lift report
// is allowed right now. The source publishes no rate limit, so we
// self-limit with randomized backoff windows sized by caller demand,
// and never fetch outside the mountain's operating hours.
package schedule

import (
	"log/slog"
	"sync"
	"time"

	"liftwatch/lib/timezone"

	"github.com/mazen160/go-random"
)

type Options struct {
	// ActiveMin/ActiveMax bound the backoff draw while callers are
	// actively querying. Defaults: 5m–15m.
	ActiveMin time.Duration
	ActiveMax time.Duration
	// IdleMin/IdleMax bound the draw when demand has gone quiet.
	// Defaults: 30m–60m.
	IdleMin time.Duration
	IdleMax time.Duration
	// ActivityThreshold is the maximum gap between two consecutive
	// inbound queries for demand to count as active. Default: 5m.
	ActivityThreshold time.Duration
	// OpenHour/CloseHour gate fetching to [open, close) in the
	// source's civil timezone. Defaults: 8–17.
	OpenHour  int
	CloseHour int
	// Location is the source's civil timezone. Default: the resort's.
	Location *time.Location
	// Now is injectable for tests. Default: time.Now.
	Now func() time.Time
}

func (o *Options) defaults() {
	if o.ActiveMin <= 0 {
		o.ActiveMin = 5 * time.Minute
	}
	if o.ActiveMax <= 0 {
		o.ActiveMax = 15 * time.Minute
	}
	if o.IdleMin <= 0 {
		o.IdleMin = 30 * time.Minute
	}
	if o.IdleMax <= 0 {
		o.IdleMax = 60 * time.Minute
	}
	if o.ActivityThreshold <= 0 {
		o.ActivityThreshold = 5 * time.Minute
	}
	if o.OpenHour == 0 && o.CloseHour == 0 {
		o.OpenHour = 8
		o.CloseHour = 17
	}
	if o.Location == nil {
		o.Location = timezone.Location
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

// State is the fetch-timing state for one monitored source. It is an
// owned, injectable object, never a package global, so several resorts
// can run isolated and tests can construct controlled instances.
type State struct {
	opts Options

	mu           sync.Mutex
	lastAttempt  time.Time
	lastRequest  time.Time
	active       bool
	nextInterval time.Duration
}

func New(opts Options) *State {
	opts.defaults()
	s := &State{opts: opts}
	// the interval is randomized from day one so a fleet of processes
	// restarted together does not fetch in lockstep
	s.nextInterval = s.draw(false)
	return s
}

// ShouldFetchNow reports whether a fresh fetch is allowed. The very
// first call is always allowed, regardless of hours or backoff, so the
// cache can bootstrap.
func (s *State) ShouldFetchNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastAttempt.IsZero() {
		return true
	}

	now := s.opts.Now()
	if now.Sub(s.lastAttempt) < s.nextInterval {
		return false
	}

	hour := now.In(s.opts.Location).Hour()
	if hour < s.opts.OpenHour || hour >= s.opts.CloseHour {
		return false
	}
	return true
}

// RecordAttempt must be called after every fetch attempt, success or
// failure, so the next interval is always a fresh draw.
func (s *State) RecordAttempt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAttempt = s.opts.Now()
	s.nextInterval = s.draw(s.active)
	slog.Debug("fetch attempt recorded",
		"next_interval", s.nextInterval, "active", s.active)
}

// RecordRequest tracks inbound query activity. Two queries within the
// activity threshold of each other select the tight backoff bounds for
// the next draw.
func (s *State) RecordRequest() {
	now := s.opts.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = !s.lastRequest.IsZero() && now.Sub(s.lastRequest) <= s.opts.ActivityThreshold
	s.lastRequest = now
}

// Interval returns the current backoff interval.
func (s *State) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextInterval
}

func (s *State) draw(active bool) time.Duration {
	min, max := s.opts.IdleMin, s.opts.IdleMax
	if active {
		min, max = s.opts.ActiveMin, s.opts.ActiveMax
	}

	ms, err := random.IntRange(int(min/time.Millisecond), int(max/time.Millisecond)+1)
	if err != nil {
		// crypto/rand failed; the lower bound keeps us polite
		slog.Warn("interval draw failed, using lower bound", "err", err)
		return min
	}
	return time.Duration(ms) * time.Millisecond
}
