// Package generation wraps a text-generation backend with rate-limit pacing
// and retry with backoff.
package generation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/propgen/pkg/clock"
	"github.com/pario-ai/propgen/pkg/models"
)

// Backend performs one remote generation call. Implementations classify
// throttling by returning an error that matches ErrRateLimited.
type Backend interface {
	Generate(ctx context.Context, req models.GenerationRequest) (string, error)
}

// BackendFunc adapts a plain function to Backend.
type BackendFunc func(ctx context.Context, req models.GenerationRequest) (string, error)

// Generate calls f.
func (f BackendFunc) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	return f(ctx, req)
}

// Policy configures pacing and retries.
type Policy struct {
	// MaxAttempts is the retry budget per request. Every attempt counts.
	MaxAttempts int
	// BaseDelay scales the exponential backoff after a rate-limited attempt:
	// BaseDelay * 2^attempt.
	BaseDelay time.Duration
	// RetryJitterMin/Max bound the pause after any other failed attempt.
	RetryJitterMin time.Duration
	RetryJitterMax time.Duration
	// SmoothingMin/Max bound the pause inserted before every dispatch. A
	// negative SmoothingMax disables it.
	SmoothingMin time.Duration
	SmoothingMax time.Duration
	// MaxRequests dispatches are allowed per Window.
	MaxRequests int
	Window      time.Duration
}

// DefaultPolicy returns 3 attempts, 5s base backoff, 1-3s retry jitter,
// 0.5-1.5s smoothing and 60 requests per minute.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:    3,
		BaseDelay:      5 * time.Second,
		RetryJitterMin: time.Second,
		RetryJitterMax: 3 * time.Second,
		SmoothingMin:   500 * time.Millisecond,
		SmoothingMax:   1500 * time.Millisecond,
		MaxRequests:    60,
		Window:         time.Minute,
	}
}

// MaxBackoff caps the exponential backoff after rate-limited attempts.
const MaxBackoff = time.Hour

// Backoff returns the wait after a rate-limited attempt with zero-based
// index attempt, capped at MaxBackoff.
func (p Policy) Backoff(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		if d >= MaxBackoff/2 {
			return MaxBackoff
		}
		d *= 2
	}
	return min(d, MaxBackoff)
}

// Attempt describes one dispatch and how it ended.
type Attempt struct {
	Request models.GenerationRequest
	// Number is 1-based.
	Number int
	Err    error
	Wait   time.Duration
}

// RateLimited reports whether the attempt was throttled.
func (a Attempt) RateLimited() bool { return a.Err != nil && KindOf(a.Err) == KindRateLimited }

// Result is a resolved generation.
type Result struct {
	Text     string
	Attempts int
}

// JitterFunc returns a duration in [lo, hi].
type JitterFunc func(lo, hi time.Duration) time.Duration

// Option customizes a Client.
type Option func(*Client)

// WithClock sets the clock used for pacing and backoff.
func WithClock(c clock.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

// WithJitter replaces the random source for jitter durations.
func WithJitter(f JitterFunc) Option {
	return func(cl *Client) { cl.jitter = f }
}

// WithAttemptHook registers a callback invoked after every dispatch.
func WithAttemptHook(f func(Attempt)) Option {
	return func(cl *Client) { cl.onAttempt = f }
}

// Client paces and retries calls to a Backend. It is meant for a single
// sequential worker and is not safe for concurrent use.
type Client struct {
	backend   Backend
	policy    Policy
	window    *RateLimitWindow
	clock     clock.Clock
	logger    *zap.Logger
	jitter    JitterFunc
	onAttempt func(Attempt)
}

// New creates a Client. Zero policy fields take DefaultPolicy values.
func New(b Backend, p Policy, opts ...Option) *Client {
	p = withDefaults(p)
	c := &Client{
		backend: b,
		policy:  p,
		clock:   clock.Real{},
		logger:  zap.NewNop(),
		jitter:  uniform,
	}
	for _, o := range opts {
		o(c)
	}
	c.window = NewRateLimitWindow(p.MaxRequests, p.Window, c.clock.Now())
	return c
}

func withDefaults(p Policy) Policy {
	d := DefaultPolicy()
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = d.MaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = d.BaseDelay
	}
	if p.RetryJitterMax <= 0 {
		p.RetryJitterMin, p.RetryJitterMax = d.RetryJitterMin, d.RetryJitterMax
	}
	switch {
	case p.SmoothingMax == 0:
		p.SmoothingMin, p.SmoothingMax = d.SmoothingMin, d.SmoothingMax
	case p.SmoothingMax < 0:
		p.SmoothingMin, p.SmoothingMax = 0, 0
	}
	if p.MaxRequests <= 0 {
		p.MaxRequests = d.MaxRequests
	}
	if p.Window <= 0 {
		p.Window = d.Window
	}
	return p
}

// Policy returns the effective policy.
func (c *Client) Policy() Policy { return c.policy }

// Window exposes the rate-limit window for inspection.
func (c *Client) Window() *RateLimitWindow { return c.window }

// Generate returns the generated text for req.
func (c *Client) Generate(ctx context.Context, req models.GenerationRequest) (string, error) {
	res, err := c.Do(ctx, req)
	return res.Text, err
}

// Do resolves req to a final outcome. Retryable failures are handled here;
// only a *FatalError or a context error is returned.
func (c *Client) Do(ctx context.Context, req models.GenerationRequest) (Result, error) {
	budget := c.policy.MaxAttempts
	for i := 0; i < budget; i++ {
		if err := c.gate(ctx); err != nil {
			return Result{Attempts: i}, err
		}

		c.window.Record()
		text, err := c.backend.Generate(ctx, req)
		att := Attempt{Request: req, Number: i + 1, Err: err}

		if err == nil {
			c.report(att)
			return Result{Text: text, Attempts: i + 1}, nil
		}
		if ctx.Err() != nil {
			c.report(att)
			return Result{Attempts: i + 1}, ctx.Err()
		}
		if i == budget-1 {
			c.report(att)
			return Result{Attempts: i + 1}, &FatalError{Attempts: i + 1, Err: err}
		}

		if att.RateLimited() {
			att.Wait = c.policy.Backoff(i)
		} else {
			att.Wait = c.jitter(c.policy.RetryJitterMin, c.policy.RetryJitterMax)
		}
		c.report(att)
		if err := c.clock.Sleep(ctx, att.Wait); err != nil {
			return Result{Attempts: i + 1}, err
		}
	}
	// Unreachable: the final iteration always returns.
	return Result{Attempts: budget}, fmt.Errorf("generation: retry loop exhausted")
}

// gate blocks until the window admits another dispatch, then applies the
// smoothing pause.
func (c *Client) gate(ctx context.Context) error {
	if wait := c.window.Delay(c.clock.Now()); wait > 0 {
		c.logger.Info("rate limit window full, pausing",
			zap.Int("requests", c.window.Count()),
			zap.Duration("wait", wait))
		if err := c.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	c.window.Roll(c.clock.Now())

	if c.policy.SmoothingMax > 0 {
		if err := c.clock.Sleep(ctx, c.jitter(c.policy.SmoothingMin, c.policy.SmoothingMax)); err != nil {
			return err
		}
	}
	return nil
}

func (c *Client) report(a Attempt) {
	if a.Err != nil {
		c.logger.Warn("generation attempt failed",
			zap.Int("attempt", a.Number),
			zap.Int("max_attempts", c.policy.MaxAttempts),
			zap.Stringer("kind", KindOf(a.Err)),
			zap.Duration("backoff", a.Wait),
			zap.Error(a.Err))
	} else {
		c.logger.Debug("generation attempt succeeded", zap.Int("attempt", a.Number))
	}
	if c.onAttempt != nil {
		c.onAttempt(a)
	}
}

func uniform(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}
