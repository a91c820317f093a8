package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
)

var ErrCircuitOpen = errors.New("circuit breaker open")

type BreakerConfig struct {
	Timeout          time.Duration // hard timeout per cache call
	FailureThreshold int           // consecutive failures to open circuit
	Cooldown         time.Duration // how long to stay open before half-open
	HalfOpenMaxCalls int           // allow N trial calls in half-open
}

type userEvictor interface {
	EvictUser(ctx context.Context, userID string)
}

// ProtectedSessionCache puts a circuit breaker in front of a remote session
// cache. While the circuit is open reads report a miss, so lookups go straight
// to the store instead of spending the auth budget on a dead cache.
type ProtectedSessionCache struct {
	inner auth.SessionCache
	cfg   BreakerConfig
	mu    sync.Mutex
	now   func() time.Time

	state string // "closed" | "open" | "half_open"

	consecutiveFailures int
	openedAt            time.Time
	halfOpenInFlight    int
}

func NewProtectedSessionCache(inner auth.SessionCache, cfg BreakerConfig) *ProtectedSessionCache {
	//defaults
	if cfg.Timeout <= 0 {
		cfg.Timeout = 100 * time.Millisecond
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 15 * time.Second
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = 1
	}

	return &ProtectedSessionCache{
		inner: inner,
		cfg:   cfg,
		now:   time.Now,
		state: "closed",
	}
}

func (p *ProtectedSessionCache) Get(ctx context.Context, token string) (auth.SessionRecord, bool, error) {
	var rec auth.SessionRecord
	var ok bool

	err := p.call(ctx, func(cctx context.Context) error {
		var err error
		rec, ok, err = p.inner.Get(cctx, token)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return auth.SessionRecord{}, false, nil
	}
	return rec, ok, err
}

func (p *ProtectedSessionCache) Set(ctx context.Context, token string, rec auth.SessionRecord, ttl time.Duration) error {
	err := p.call(ctx, func(cctx context.Context) error {
		return p.inner.Set(cctx, token, rec, ttl)
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil
	}
	return err
}

// Delete is attempted even with the circuit open. It bypasses the gate, so its
// outcome leaves the breaker state alone.
func (p *ProtectedSessionCache) Delete(ctx context.Context, token string) error {
	cctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	return p.inner.Delete(cctx, token)
}

func (p *ProtectedSessionCache) EvictUser(ctx context.Context, userID string) {
	if e, ok := p.inner.(userEvictor); ok {
		e.EvictUser(ctx, userID)
	}
}

func (p *ProtectedSessionCache) State() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *ProtectedSessionCache) call(ctx context.Context, fn func(context.Context) error) error {
	// fail-fast gate
	if !p.allowRequest() {
		return ErrCircuitOpen
	}

	cctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	err := fn(cctx)
	p.afterRequest(err)
	return err
}

func (p *ProtectedSessionCache) allowRequest() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.state {
	case "closed":
		return true
	case "open":
		// cooldown has passed? move to half open
		if p.now().Sub(p.openedAt) >= p.cfg.Cooldown {
			p.state = "half_open"
			p.halfOpenInFlight = 1
			return true
		}
		return false
	case "half_open":
		if p.halfOpenInFlight >= p.cfg.HalfOpenMaxCalls {
			return false
		}
		p.halfOpenInFlight++
		return true
	default:
		return true
	}
}

func (p *ProtectedSessionCache) afterRequest(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// half-open call just finished
	if p.state == "half_open" && p.halfOpenInFlight > 0 {
		p.halfOpenInFlight--
	}

	if err == nil {
		if p.state != "closed" {
			slog.Default().Info("session cache circuit closed")
		}
		p.consecutiveFailures = 0
		p.state = "closed"
		return
	}

	p.consecutiveFailures++

	// if half-open failed, reopen immediately
	if p.state == "half_open" {
		p.state = "open"
		p.openedAt = p.now()
		return
	}

	if p.state == "closed" && p.consecutiveFailures >= p.cfg.FailureThreshold {
		p.state = "open"
		p.openedAt = p.now()
		slog.Default().Warn("session cache circuit opened", "failures", p.consecutiveFailures, "err", err)
	}
}
