// Package pipeline drives hotels through prompt rendering, generation and
// storage in paced batches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/propgen/pkg/clock"
	"github.com/pario-ai/propgen/pkg/generation"
	"github.com/pario-ai/propgen/pkg/history"
	"github.com/pario-ai/propgen/pkg/models"
	"github.com/pario-ai/propgen/pkg/store"
	"github.com/pario-ai/propgen/pkg/tasks"
)

var (
	// ErrNoHotelID marks a record skipped because it has no key to store
	// results under.
	ErrNoHotelID = errors.New("record has no hotel id")
	// ErrDuplicateHotel marks a record skipped because its hotel id was
	// already handled earlier in the run.
	ErrDuplicateHotel = errors.New("hotel id already processed in this run")
)

// Generator resolves a request to text, retrying as it sees fit.
// *generation.Client satisfies it.
type Generator interface {
	Do(ctx context.Context, req models.GenerationRequest) (generation.Result, error)
}

// Cache stores generated text by model and request.
type Cache interface {
	Get(ctx context.Context, model string, req models.GenerationRequest) (string, bool)
	Put(ctx context.Context, model string, req models.GenerationRequest, text string) error
}

// Config controls batching and sampling.
type Config struct {
	BatchSize  int
	BatchDelay time.Duration
	ItemDelay  time.Duration
	TopP       float64
	TopK       int
	// Model scopes cache entries.
	Model string
}

// Report summarizes a run.
type Report struct {
	RunID     string
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	Cached    int
	Batches   int
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the clock used for delays and latency.
func WithClock(c clock.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithCache consults c before generating and fills it afterwards.
func WithCache(c Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithRecorder records run and item outcomes.
func WithRecorder(r history.Recorder) Option {
	return func(o *Orchestrator) { o.recorder = r }
}

// WithDryRun renders prompts to w instead of generating and storing.
func WithDryRun(w io.Writer) Option {
	return func(o *Orchestrator) { o.dryRun = w }
}

// Orchestrator runs one task over a list of hotels. It is sequential and
// not safe for concurrent use.
type Orchestrator struct {
	task     *tasks.Task
	gen      Generator
	writer   store.Writer
	cfg      Config
	clock    clock.Clock
	logger   *zap.Logger
	cache    Cache
	recorder history.Recorder
	dryRun   io.Writer
}

// New creates an Orchestrator for task.
func New(task *tasks.Task, gen Generator, writer store.Writer, cfg Config, opts ...Option) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	o := &Orchestrator{
		task:   task,
		gen:    gen,
		writer: writer,
		cfg:    cfg,
		clock:  clock.Real{},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// outcome is the terminal result of one record.
type outcome struct {
	status   models.ItemStatus
	attempts int
	cached   bool
	err      error
}

// Run processes records in batches. A reset or storage failure, or a
// cancelled context, stops the run and is returned with the partial
// report. Generation and shaping failures only fail their record.
func (o *Orchestrator) Run(ctx context.Context, records []models.Hotel) (Report, error) {
	rep := Report{Total: len(records)}
	log := o.logger.With(zap.String("task", o.task.Name), zap.String("table", o.task.Table.Name))

	if o.task.Reset && o.dryRun == nil {
		if err := o.writer.Reset(ctx, o.task.Table.Name); err != nil {
			log.Error("reset failed, aborting run", zap.Error(err))
			return rep, err
		}
		log.Info("destination table reset")
	}

	rep.RunID = o.startRun(ctx, log, len(records))
	if rep.RunID != "" {
		log = log.With(zap.String("run_id", rep.RunID))
	}

	seen := make(map[int64]bool, len(records))
	cursor := BatchCursor{Size: o.cfg.BatchSize}
	var runErr error

batches:
	for {
		lo, hi, ok := cursor.Next(len(records))
		if !ok {
			break
		}
		rep.Batches++
		log.Info("processing batch",
			zap.Int("batch", rep.Batches),
			zap.Int("from", lo+1),
			zap.Int("to", hi))

		for i := lo; i < hi; i++ {
			h := records[i]
			key, _ := h.Key()
			log.Info("processing hotel",
				zap.Int("index", i+1),
				zap.Int("of", len(records)),
				zap.Int64("id", h.ID),
				zap.Int64("hotel_id", key))

			started := o.clock.Now()
			out := o.process(ctx, h, seen)
			o.recordItem(ctx, log, rep.RunID, key, out, o.clock.Now().Sub(started))

			switch out.status {
			case models.ItemSucceeded:
				rep.Succeeded++
				if out.cached {
					rep.Cached++
				}
				log.Info("hotel processed",
					zap.Int64("hotel_id", key),
					zap.Int("attempts", out.attempts),
					zap.Bool("cached", out.cached))
			case models.ItemSkipped:
				rep.Skipped++
				log.Warn("hotel skipped", zap.Int64("id", h.ID), zap.Int64("hotel_id", key), zap.Error(out.err))
			case models.ItemFailed:
				rep.Failed++
				if fatal(ctx, out.err) {
					runErr = out.err
					log.Error("run aborted", zap.Int64("hotel_id", key), zap.Error(out.err))
					break batches
				}
				log.Error("hotel failed",
					zap.Int64("hotel_id", key),
					zap.Int("attempts", out.attempts),
					zap.Error(out.err))
			}

			if out.status != models.ItemSkipped && o.dryRun == nil && o.cfg.ItemDelay > 0 && i < len(records)-1 {
				if err := o.clock.Sleep(ctx, o.cfg.ItemDelay); err != nil {
					runErr = err
					break batches
				}
			}
		}

		if !cursor.Done(len(records)) && o.cfg.BatchDelay > 0 {
			log.Info("batch complete, pausing", zap.Int("batch", rep.Batches), zap.Duration("wait", o.cfg.BatchDelay))
			if err := o.clock.Sleep(ctx, o.cfg.BatchDelay); err != nil {
				runErr = err
				break
			}
		}
	}

	o.finishRun(log, rep, runErr)
	log.Info("run finished",
		zap.Int("total", rep.Total),
		zap.Int("succeeded", rep.Succeeded),
		zap.Int("failed", rep.Failed),
		zap.Int("skipped", rep.Skipped),
		zap.Int("cached", rep.Cached),
		zap.Int("batches", rep.Batches))
	return rep, runErr
}

// fatal reports whether err must stop the whole run.
func fatal(ctx context.Context, err error) bool {
	var se *store.StorageError
	return errors.As(err, &se) || ctx.Err() != nil
}

func (o *Orchestrator) process(ctx context.Context, h models.Hotel, seen map[int64]bool) outcome {
	key, ok := h.Key()
	if !ok {
		return outcome{status: models.ItemSkipped, err: ErrNoHotelID}
	}
	if seen[key] {
		return outcome{status: models.ItemSkipped, err: ErrDuplicateHotel}
	}
	seen[key] = true

	row := o.task.Row(h)
	values := h.Fields()
	out := outcome{cached: true}

	for _, step := range o.task.Steps {
		req := models.GenerationRequest{
			Prompt:          step.Template.Render(values),
			MaxOutputTokens: step.MaxTokens,
			Temperature:     step.Temperature,
			TopP:            o.cfg.TopP,
			TopK:            o.cfg.TopK,
		}
		if o.dryRun != nil {
			fmt.Fprintf(o.dryRun, "--- hotel %d / %s ---\n%s\n\n", key, step.Name, req.Prompt)
			continue
		}

		text, attempts, hit, err := o.generate(ctx, req)
		out.attempts += attempts
		out.cached = out.cached && hit
		if err != nil {
			out.status, out.err = models.ItemFailed, fmt.Errorf("step %s: %w", step.Name, err)
			return out
		}
		v, err := step.Value(text)
		if err != nil {
			out.status, out.err = models.ItemFailed, err
			return out
		}
		if !hit {
			o.remember(ctx, req, text)
		}
		row[step.Column] = v
	}

	if o.dryRun != nil {
		return outcome{status: models.ItemSucceeded}
	}
	if err := o.writer.Upsert(ctx, o.task.Table.Name, key, row); err != nil {
		out.status, out.err = models.ItemFailed, err
		return out
	}
	out.status = models.ItemSucceeded
	return out
}

func (o *Orchestrator) generate(ctx context.Context, req models.GenerationRequest) (text string, attempts int, hit bool, err error) {
	if o.cache != nil {
		if text, ok := o.cache.Get(ctx, o.cfg.Model, req); ok {
			return text, 0, true, nil
		}
	}
	res, err := o.gen.Do(ctx, req)
	if err != nil {
		return "", res.Attempts, false, err
	}
	return res.Text, res.Attempts, false, nil
}

// remember caches text that shaped into a column value. Unusable answers
// are never cached so a rerun asks the provider again.
func (o *Orchestrator) remember(ctx context.Context, req models.GenerationRequest, text string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Put(ctx, o.cfg.Model, req, text); err != nil {
		o.logger.Warn("cache put failed", zap.Error(err))
	}
}

func (o *Orchestrator) startRun(ctx context.Context, log *zap.Logger, total int) string {
	if o.recorder == nil || o.dryRun != nil {
		return ""
	}
	id, err := o.recorder.StartRun(ctx, o.task.Name, total, o.clock.Now())
	if err != nil {
		log.Warn("history disabled for this run", zap.Error(err))
		return ""
	}
	return id
}

func (o *Orchestrator) recordItem(ctx context.Context, log *zap.Logger, runID string, key int64, out outcome, latency time.Duration) {
	if runID == "" {
		return
	}
	item := models.RunItem{
		RunID:     runID,
		HotelID:   key,
		Status:    out.status,
		Attempts:  out.attempts,
		Cached:    out.cached && out.status == models.ItemSucceeded,
		LatencyMs: latency.Milliseconds(),
		CreatedAt: o.clock.Now(),
	}
	if out.err != nil {
		item.Error = out.err.Error()
	}
	if err := o.recorder.RecordItem(context.WithoutCancel(ctx), item); err != nil {
		log.Warn("record item failed", zap.Int64("hotel_id", key), zap.Error(err))
	}
}

func (o *Orchestrator) finishRun(log *zap.Logger, rep Report, runErr error) {
	if rep.RunID == "" {
		return
	}
	run := models.Run{
		ID:         rep.RunID,
		Task:       o.task.Name,
		Status:     models.RunCompleted,
		Total:      rep.Total,
		Succeeded:  rep.Succeeded,
		Failed:     rep.Failed,
		Skipped:    rep.Skipped,
		FinishedAt: o.clock.Now(),
	}
	if runErr != nil {
		run.Status = models.RunFailed
		run.Error = runErr.Error()
	}
	if err := o.recorder.FinishRun(context.Background(), run); err != nil {
		log.Warn("finish run failed", zap.Error(err))
	}
}
