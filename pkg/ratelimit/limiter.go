package ratelimit

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for admission control. The gauges are process totals:
// every limiter adds its own changes to them.
var (
	limiterInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_limiter_inflight",
		Help: "Number of limiter tokens currently held or cooling down, over all limiters",
	})

	limiterQueued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "market_limiter_queued",
		Help: "Number of callers waiting for a limiter token, over all limiters",
	})

	limiterWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "market_limiter_wait_seconds",
		Help:    "Time spent waiting for a limiter token",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10},
	})
)

// Limiter bounds outstanding calls and admits queued callers in FIFO order.
// A caller that never releases its token keeps the slot forever.
type Limiter struct {
	mu    sync.Mutex
	count int
	queue *list.List // of *waiter

	max    int
	delay  time.Duration
	logger zerolog.Logger

	// Gauges and the values this limiter last added to them.
	inFlightGauge prometheus.Gauge
	queuedGauge   prometheus.Gauge
	reported      Stats
}

type waiter struct {
	ready    chan struct{}
	admitted bool
}

// Token is an admitted slot. Release must be called exactly once per
// successful Acquire; extra calls are ignored.
type Token struct {
	limiter *Limiter
	once    sync.Once
}

// NewLimiter creates a limiter. Zero values in cfg fall back to the defaults.
func NewLimiter(cfg Config, logger zerolog.Logger) *Limiter {
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.ReleaseDelay < 0 {
		cfg.ReleaseDelay = 0
	}
	return &Limiter{
		queue:         list.New(),
		max:           cfg.Max,
		delay:         cfg.ReleaseDelay,
		logger:        logger,
		inFlightGauge: limiterInFlight,
		queuedGauge:   limiterQueued,
	}
}

// Acquire blocks until the caller is admitted. Cancelling ctx only affects
// callers still in the queue.
func (l *Limiter) Acquire(ctx context.Context) (*Token, error) {
	start := time.Now()

	l.mu.Lock()
	if l.count < l.max && l.queue.Len() == 0 {
		l.count++
		l.updateGauges()
		l.mu.Unlock()
		limiterWaitSeconds.Observe(0)
		return &Token{limiter: l}, nil
	}

	w := &waiter{ready: make(chan struct{})}
	elem := l.queue.PushBack(w)
	l.updateGauges()
	queued := l.queue.Len()
	l.mu.Unlock()

	l.logger.Debug().
		Int("queued", queued).
		Msg("Limiter saturated, caller queued")

	select {
	case <-w.ready:
		limiterWaitSeconds.Observe(time.Since(start).Seconds())
		return &Token{limiter: l}, nil
	case <-ctx.Done():
		l.mu.Lock()
		admitted := w.admitted
		if !admitted {
			l.queue.Remove(elem)
			l.updateGauges()
		}
		l.mu.Unlock()

		if admitted {
			// Admission raced with cancellation; hand the slot back through
			// the normal delayed path.
			(&Token{limiter: l}).Release()
		}
		return nil, ctx.Err()
	}
}

// Call acquires a token and passes its release function to fn. It is the
// callback form of Acquire.
func (l *Limiter) Call(ctx context.Context, fn func(release func())) error {
	token, err := l.Acquire(ctx)
	if err != nil {
		return err
	}
	fn(token.Release)
	return nil
}

// Release returns the slot to the limiter after the configured delay.
func (t *Token) Release() {
	t.once.Do(func() {
		time.AfterFunc(t.limiter.delay, t.limiter.free)
	})
}

// free gives back one slot and drains the queue while capacity allows.
func (l *Limiter) free() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.count--
	for l.queue.Len() > 0 && l.count < l.max {
		w := l.queue.Remove(l.queue.Front()).(*waiter)
		l.count++
		w.admitted = true
		close(w.ready)
	}
	l.updateGauges()
}

// updateGauges adds this limiter's changes since the last call to the
// shared gauges. It must be called with l.mu held.
func (l *Limiter) updateGauges() {
	queued := l.queue.Len()
	l.inFlightGauge.Add(float64(l.count - l.reported.InFlight))
	l.queuedGauge.Add(float64(queued - l.reported.Queued))
	l.reported.InFlight = l.count
	l.reported.Queued = queued
}

// Stats returns the current limiter state.
func (l *Limiter) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Stats{
		InFlight: l.count,
		Queued:   l.queue.Len(),
		Max:      l.max,
	}
}
