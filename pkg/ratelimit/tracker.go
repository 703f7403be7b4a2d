package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for throttle tracking.
var (
	tgThrottleWindowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_throttle_windows_total",
		Help: "Total throttle windows opened by status code",
	}, []string{"status"})

	tgThrottleWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tg_throttle_wait_seconds",
		Help:    "Time requests spent waiting for a throttle window to pass",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
	})

	tgThrottleBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_throttle_blocks_total",
		Help: "Total requests rejected because the throttle window exceeded the max wait",
	})
)

// Tracker records platform throttle windows and gates requests on them.
// State lives in Redis when a client is given, otherwise in process memory.
type Tracker struct {
	redis   *redis.Client
	logger  zerolog.Logger
	maxWait time.Duration

	mu    sync.Mutex
	local ThrottleState
}

// NewTracker creates a new throttle tracker. redisClient may be nil.
func NewTracker(redisClient *redis.Client, logger zerolog.Logger) *Tracker {
	return &Tracker{
		redis:   redisClient,
		logger:  logger,
		maxWait: DefaultMaxWait,
	}
}

// SetMaxWait changes the longest window Wait sleeps through.
func (t *Tracker) SetMaxWait(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.maxWait = d
}

// GetState returns the current throttle state.
// A missing Redis key means no window is open.
func (t *Tracker) GetState(ctx context.Context) (*ThrottleState, error) {
	if t.redis == nil {
		t.mu.Lock()
		defer t.mu.Unlock()
		state := t.local
		return &state, nil
	}

	blockedMs, err := t.redis.Get(ctx, RedisKeyBlockedUntil).Int64()
	if errors.Is(err, redis.Nil) {
		return &ThrottleState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get blocked until: %w", err)
	}

	status, err := t.redis.Get(ctx, RedisKeyLastStatus).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last status: %w", err)
	}

	return &ThrottleState{
		BlockedUntil: time.UnixMilli(blockedMs),
		Status:       status,
		LastUpdate:   time.Now(),
	}, nil
}

// UpdateFromResponse opens a throttle window when resp is a 429 or 503.
// Other responses are ignored.
func (t *Tracker) UpdateFromResponse(ctx context.Context, resp *http.Response) error {
	if resp == nil || !IsThrottleStatus(resp.StatusCode) {
		return nil
	}

	now := time.Now()
	window, ok := ParseRetryAfter(resp.Header.Get("Retry-After"), now)
	if !ok {
		// A bare 503 is an ordinary server error, left to the retry logic.
		if resp.StatusCode != http.StatusTooManyRequests {
			return nil
		}
		window = DefaultRetryAfter
	}

	state := ThrottleState{
		BlockedUntil: now.Add(window),
		Status:       resp.StatusCode,
		LastUpdate:   now,
	}

	if err := t.store(ctx, state, window); err != nil {
		return err
	}

	tgThrottleWindowsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()
	t.logger.Warn().
		Int("status", resp.StatusCode).
		Dur("retry_after", window).
		Time("blocked_until", state.BlockedUntil).
		Msg("Platform throttling requests")

	return nil
}

func (t *Tracker) store(ctx context.Context, state ThrottleState, window time.Duration) error {
	if t.redis == nil {
		t.mu.Lock()
		t.local = state
		t.mu.Unlock()
		return nil
	}

	if window <= 0 {
		window = time.Millisecond
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, RedisKeyBlockedUntil, state.BlockedUntil.UnixMilli(), window)
	pipe.Set(ctx, RedisKeyLastStatus, state.Status, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store throttle state in redis: %w", err)
	}
	return nil
}

// Wait blocks until the current throttle window has passed.
// Returns ErrBlocked without sleeping when the window is longer than the max
// wait, and the context error when ctx ends first.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.GetState(ctx)
	if err != nil {
		return fmt.Errorf("get throttle state: %w", err)
	}

	wait := state.TimeUntilUnblocked()
	if wait == 0 {
		return nil
	}

	t.mu.Lock()
	maxWait := t.maxWait
	t.mu.Unlock()

	if wait > maxWait {
		tgThrottleBlocksTotal.Inc()
		t.logger.Error().
			Dur("wait_duration", wait).
			Dur("max_wait", maxWait).
			Msg("Throttle window too long - rejecting request")
		return fmt.Errorf("%w for %s", ErrBlocked, wait.Round(time.Second))
	}

	t.logger.Debug().Dur("wait_duration", wait).Msg("Waiting for throttle window")

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		tgThrottleWaitSeconds.Observe(wait.Seconds())
		return nil
	}
}
