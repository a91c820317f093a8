// Package roleclient keeps a client-side copy of the signed-in user's role.
// It is a display cache only. Every server route re-resolves and re-authorizes
// on its own.
package roleclient

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/user"
)

// Claim is what the provider session carries about its user. A nil *Claim
// means there is no provider session.
type Claim struct {
	Email string
	Role  user.Role
}

// State is the observable value. An empty Role means no authenticated user.
type State struct {
	Role      user.Role `json:"role"`
	IsLoading bool      `json:"isLoading"`
}

type Status struct {
	Authenticated bool           `json:"authenticated"`
	User          *auth.Identity `json:"user,omitempty"`
	Message       string         `json:"message,omitempty"`
}

// StatusChecker asks the server whether the caller has a session.
type StatusChecker interface {
	CheckSession(ctx context.Context) (Status, error)
}

type Options struct {
	Logger *slog.Logger
	// Timeout bounds one status check. Zero means 5s.
	Timeout time.Duration
}

type Context struct {
	checker StatusChecker
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	claim  *Claim
	state  State
	gen    uint64
	subs   []chan State
	closed bool
}

func New(checker StatusChecker, opts Options) *Context {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	return &Context{
		checker: checker,
		log:     opts.Logger,
		timeout: opts.Timeout,
		state:   State{IsLoading: true},
	}
}

// Start derives the role for the initial session.
func (c *Context) Start(ctx context.Context, claim *Claim) State {
	return c.SetSession(ctx, claim)
}

// SetSession records a session change and re-derives the role. A derivation
// still running for an older session is discarded.
func (c *Context) SetSession(ctx context.Context, claim *Claim) State {
	c.mu.Lock()
	if c.closed {
		s := c.state
		c.mu.Unlock()
		return s
	}
	if claim != nil {
		cp := *claim
		claim = &cp
	}
	c.claim = claim
	c.gen++
	c.mu.Unlock()

	return c.derive(ctx)
}

// Refresh re-derives the role for the current session, reporting a loading
// state first.
func (c *Context) Refresh(ctx context.Context) State {
	c.mu.Lock()
	if c.closed {
		s := c.state
		c.mu.Unlock()
		return s
	}
	c.state.IsLoading = true
	c.publishLocked()
	c.mu.Unlock()

	return c.derive(ctx)
}

func (c *Context) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel carrying state changes and a cancel func. Slow
// readers only ever see the latest state.
func (c *Context) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		close(ch)
		return ch, func() {}
	}
	c.subs = append(c.subs, ch)

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s == ch {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					close(ch)
					return
				}
			}
		})
	}
}

// Close closes every subscription. Later calls are no-ops.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
}

func (c *Context) derive(ctx context.Context) State {
	c.mu.Lock()
	gen := c.gen
	claim := c.claim
	c.mu.Unlock()

	role := c.roleFor(ctx, claim)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || gen != c.gen {
		return c.state
	}

	c.state = State{Role: role}
	c.publishLocked()
	return c.state
}

func (c *Context) roleFor(ctx context.Context, claim *Claim) user.Role {
	if claim != nil {
		if user.IsTestEmail(claim.Email) {
			return user.RoleUser
		}
		if claim.Role == "" {
			// provider users without a stored role sign in as ADMIN
			return user.RoleAdmin
		}
		return claim.Role
	}

	if c.checker == nil {
		return ""
	}

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	st, err := c.checker.CheckSession(cctx)
	if err != nil {
		c.log.WarnContext(ctx, "role_check_failed", "err", err)
		return ""
	}

	if !st.Authenticated || st.User == nil {
		return ""
	}
	return auth.EffectiveRole(st.User.Email, st.User.Role)
}

func (c *Context) publishLocked() {
	for _, ch := range c.subs {
		select {
		case ch <- c.state:
		default:
			// drop the stale value so the newest one fits
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- c.state:
			default:
			}
		}
	}
}
