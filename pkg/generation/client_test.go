package generation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/propgen/pkg/clock"
	"github.com/pario-ai/propgen/pkg/models"
)

// scriptedBackend returns errs in order, then text forever.
type scriptedBackend struct {
	errs  []error
	text  string
	calls int
	seen  []int
	c     *Client
}

func (b *scriptedBackend) Generate(_ context.Context, _ models.GenerationRequest) (string, error) {
	b.calls++
	if b.c != nil {
		b.seen = append(b.seen, b.c.Window().Count())
	}
	if b.calls <= len(b.errs) {
		return "", b.errs[b.calls-1]
	}
	return b.text, nil
}

var epoch = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func lowJitter(lo, _ time.Duration) time.Duration { return lo }

func newTestClient(b Backend, p Policy) (*Client, *clock.Fake) {
	fc := clock.NewFake(epoch)
	return New(b, p, WithClock(fc), WithJitter(lowJitter)), fc
}

func rateLimited() error {
	return NewProviderError("test", KindRateLimited, 429, errors.New("too many requests"))
}

func TestRateLimitedThenSuccess(t *testing.T) {
	b := &scriptedBackend{errs: []error{rateLimited(), rateLimited()}, text: "ok"}
	c, fc := newTestClient(b, DefaultPolicy())

	res, err := c.Do(context.Background(), models.GenerationRequest{Prompt: "p"})
	require.NoError(t, err)

	assert.Equal(t, "ok", res.Text)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond, 5 * time.Second,
		500 * time.Millisecond, 10 * time.Second,
		500 * time.Millisecond,
	}, fc.Sleeps())
}

func TestOtherErrorExhaustsBudget(t *testing.T) {
	boom := errors.New("boom")
	b := &scriptedBackend{errs: []error{boom, boom, boom, boom}}
	c, fc := newTestClient(b, DefaultPolicy())

	_, err := c.Generate(context.Background(), models.GenerationRequest{Prompt: "p"})
	require.Error(t, err)

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.Equal(t, 3, fatal.Attempts)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, b.calls)
	assert.Equal(t, 3, c.Window().Count(), "failed dispatches still count")
	assert.Equal(t, []time.Duration{
		500 * time.Millisecond, time.Second,
		500 * time.Millisecond, time.Second,
		500 * time.Millisecond,
	}, fc.Sleeps())
}

func TestRateLimitedOnFinalAttemptIsFatal(t *testing.T) {
	b := &scriptedBackend{errs: []error{rateLimited(), rateLimited(), rateLimited()}}
	c, _ := newTestClient(b, DefaultPolicy())

	_, err := c.Generate(context.Background(), models.GenerationRequest{})

	var fatal *FatalError
	require.ErrorAs(t, err, &fatal)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, b.calls)
}

func TestCustomAttemptBudget(t *testing.T) {
	boom := errors.New("boom")
	b := &scriptedBackend{errs: []error{boom, boom, boom, boom, boom}}
	p := DefaultPolicy()
	p.MaxAttempts = 5
	c, _ := newTestClient(b, p)

	_, err := c.Generate(context.Background(), models.GenerationRequest{})
	require.Error(t, err)
	assert.Equal(t, 5, b.calls)
}

func TestWindowPacesSixtyFirstDispatch(t *testing.T) {
	p := DefaultPolicy()
	p.SmoothingMax = -1
	b := &scriptedBackend{text: "ok"}
	c, fc := newTestClient(b, p)
	b.c = c
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		fc.Advance(100 * time.Millisecond)
		_, err := c.Generate(ctx, models.GenerationRequest{})
		require.NoError(t, err)
	}
	assert.Empty(t, fc.Sleeps())
	assert.Equal(t, 60, c.Window().Count())

	_, err := c.Generate(ctx, models.GenerationRequest{})
	require.NoError(t, err)

	require.Len(t, fc.Sleeps(), 1)
	assert.Equal(t, 54*time.Second, fc.Sleeps()[0])
	assert.Equal(t, 1, b.seen[60], "count resets to 0 before the 61st dispatch")
	assert.Equal(t, epoch.Add(time.Minute), c.Window().Start())
}

func TestWindowElapsedNoWait(t *testing.T) {
	p := DefaultPolicy()
	p.SmoothingMax = -1
	b := &scriptedBackend{text: "ok"}
	c, fc := newTestClient(b, p)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		_, err := c.Generate(ctx, models.GenerationRequest{})
		require.NoError(t, err)
	}
	fc.Advance(61 * time.Second)

	_, err := c.Generate(ctx, models.GenerationRequest{})
	require.NoError(t, err)
	assert.Empty(t, fc.Sleeps())
	assert.Equal(t, 1, c.Window().Count())
}

func TestContextCanceled(t *testing.T) {
	b := &scriptedBackend{text: "ok"}
	c, _ := newTestClient(b, DefaultPolicy())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Generate(ctx, models.GenerationRequest{})
	assert.ErrorIs(t, err, context.Canceled)

	var fatal *FatalError
	assert.False(t, errors.As(err, &fatal))
	assert.Zero(t, b.calls)
}

func TestAttemptHook(t *testing.T) {
	b := &scriptedBackend{errs: []error{rateLimited()}, text: "ok"}
	var got []Attempt
	c := New(b, DefaultPolicy(),
		WithClock(clock.NewFake(epoch)),
		WithJitter(lowJitter),
		WithAttemptHook(func(a Attempt) { got = append(got, a) }))

	req := models.GenerationRequest{Prompt: "hello", MaxOutputTokens: 256}
	_, err := c.Generate(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.True(t, got[0].RateLimited())
	assert.Equal(t, 5*time.Second, got[0].Wait)
	assert.Equal(t, req, got[0].Request)
	assert.Equal(t, 2, got[1].Number)
	assert.NoError(t, got[1].Err)
}

func TestDefaultsFillZeroPolicy(t *testing.T) {
	c := New(&scriptedBackend{}, Policy{})
	assert.Equal(t, DefaultPolicy(), c.Policy())
}

func TestUniformBounds(t *testing.T) {
	for i := 0; i < 100; i++ {
		d := uniform(time.Second, 3*time.Second)
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 3*time.Second)
	}
	assert.Equal(t, time.Second, uniform(time.Second, time.Second))
}

func TestBackoffDoublesAndCaps(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, 5*time.Second, p.Backoff(0))
	assert.Equal(t, 10*time.Second, p.Backoff(1))
	assert.Equal(t, 20*time.Second, p.Backoff(2))
	assert.Equal(t, 2560*time.Second, p.Backoff(9))
	for _, attempt := range []int{10, 31, 63, 200} {
		assert.Equal(t, MaxBackoff, p.Backoff(attempt), "attempt %d", attempt)
	}

	p.BaseDelay = 2 * time.Hour
	assert.Equal(t, MaxBackoff, p.Backoff(0))
}
