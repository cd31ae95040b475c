// Package orchestrator drives a batch translation run: it splits the input
// into batches, sends them to a translator, collects the results by line
// index and reassembles the output in the original order.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/valpere/tradutor/internal/batcher"
	"github.com/valpere/tradutor/internal/logging"
	"github.com/valpere/tradutor/internal/progress"
	"github.com/valpere/tradutor/internal/reassembler"
	"github.com/valpere/tradutor/internal/translator"
)

// Memory is a translation memory scoped to one language pair and backend.
type Memory interface {
	Lookup(ctx context.Context, source string) (string, bool, error)
	Remember(ctx context.Context, source, translated string) error
}

// Checkpoint persists per-line results of a run so it can be resumed.
type Checkpoint interface {
	Completed(ctx context.Context) (map[int]string, error)
	Save(ctx context.Context, index int, translated string) error
}

type Config struct {
	Capacity batcher.Capacity
	// BatchMode sends whole batches even when the translator can
	// translate single lines.
	BatchMode bool
	// FailFast aborts the run on the first failed batch or line instead
	// of substituting the source text.
	FailFast bool
	Workers  int
}

type Stats struct {
	TotalLines     int
	NonBlankLines  int
	BlankLines     int
	Batches        int
	AvgPerBatch    float64
	Translated     int
	Cached         int
	Resumed        int
	Fallback       int
	Elapsed        time.Duration
	LinesPerSecond float64
}

type Result struct {
	Lines []reassembler.Line
	Stats Stats
}

// Texts returns the output lines without their status.
func (r *Result) Texts() []string {
	return reassembler.Texts(r.Lines)
}

type Option func(*Orchestrator)

func WithMemory(m Memory) Option {
	return func(o *Orchestrator) { o.memory = m }
}

func WithCheckpoint(c Checkpoint) Option {
	return func(o *Orchestrator) { o.checkpoint = c }
}

func WithProgress(fn progress.Func) Option {
	return func(o *Orchestrator) { o.progress = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

type Orchestrator struct {
	translator translator.Translator
	config     Config
	memory     Memory
	checkpoint Checkpoint
	progress   progress.Func
	logger     *slog.Logger
	now        func() time.Time
}

func New(tr translator.Translator, config Config, opts ...Option) *Orchestrator {
	if config.Capacity == nil {
		config.Capacity = batcher.CountCapacity{Lines: 5}
	}
	if config.Workers < 1 {
		config.Workers = 1
	}
	o := &Orchestrator{
		translator: tr,
		config:     config,
		logger:     logging.Discard(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With("component", "orchestrator", "backend", tr.Name())
	return o
}

// run holds the mutable state of one Execute call.
type run struct {
	mu       sync.Mutex
	results  reassembler.ResultMap
	statuses map[int]reassembler.Status

	start            time.Time
	totalLines       int
	completedLines   int
	completedBatches int
	totalBatches     int
}

// Execute translates lines and returns one output line per input line.
// It fails when ctx is cancelled, when FailFast is set and a batch fails,
// or when the checkpoint cannot be read. Nothing is written on failure.
func (o *Orchestrator) Execute(ctx context.Context, lines []string) (*Result, error) {
	n := len(lines)
	r := &run{
		results:  make(reassembler.ResultMap),
		statuses: make(map[int]reassembler.Status),
		start:    o.now(),
	}

	stats := Stats{TotalLines: n}
	for _, l := range lines {
		if batcher.IsBlank(l) {
			stats.BlankLines++
		}
	}
	stats.NonBlankLines = n - stats.BlankLines
	r.totalLines = stats.NonBlankLines

	if o.checkpoint != nil {
		done, err := o.checkpoint.Completed(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load checkpoint: %w", err)
		}
		for idx, text := range done {
			if idx < 0 || idx >= n || batcher.IsBlank(lines[idx]) {
				continue
			}
			r.results[idx] = text
			r.statuses[idx] = reassembler.Translated
			stats.Resumed++
		}
		if stats.Resumed > 0 {
			o.logger.Info("resuming run", "done", stats.Resumed, "remaining", stats.NonBlankLines-stats.Resumed)
		}
	}

	if o.memory != nil {
		for i, l := range lines {
			if _, done := r.results[i]; done || batcher.IsBlank(l) {
				continue
			}
			text, ok, err := o.memory.Lookup(ctx, strings.TrimSpace(l))
			if err != nil {
				o.logger.Warn("translation memory lookup failed", "index", i, "error", err)
				continue
			}
			if ok {
				r.results[i] = text
				r.statuses[i] = reassembler.Cached
			}
		}
	}
	r.completedLines = len(r.results)

	// Lines with a result drop out without closing the batch around them.
	batches := batcher.MakeSkip(lines, o.config.Capacity, func(i int) bool {
		_, done := r.results[i]
		return done
	})
	r.totalBatches = len(batches)
	stats.Batches = len(batches)
	o.logger.Debug("batches prepared", "batches", len(batches), "lines", stats.NonBlankLines)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)
	for _, b := range batches {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return o.processBatch(gctx, r, b)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(batches) == 0 {
		o.report(r)
	}

	out := reassembler.AssembleStatus(r.results, r.statuses, func(i int) bool {
		return batcher.IsBlank(lines[i])
	}, n)

	counts := reassembler.Count(out)
	stats.Translated = counts[reassembler.Translated] - stats.Resumed
	stats.Cached = counts[reassembler.Cached]
	stats.Fallback = counts[reassembler.Fallback]
	if stats.Batches > 0 {
		stats.AvgPerBatch = float64(len(batcher.Covered(batches))) / float64(stats.Batches)
	}
	stats.Elapsed = o.now().Sub(r.start)
	if stats.Elapsed > 0 {
		stats.LinesPerSecond = float64(stats.NonBlankLines) / stats.Elapsed.Seconds()
	}

	return &Result{Lines: out, Stats: stats}, nil
}

func (o *Orchestrator) processBatch(ctx context.Context, r *run, b batcher.Batch) error {
	lt, perLine := o.translator.(translator.LineTranslator)
	if perLine && !o.config.BatchMode {
		for i, idx := range b.Indices {
			out, err := lt.TranslateOne(ctx, b.Texts[i])
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if o.config.FailFast {
					return fmt.Errorf("failed to translate line %d: %w", idx+1, err)
				}
				o.logger.Warn("line translation failed, keeping source text", "line", idx+1, "error", err)
				o.record(ctx, r, idx, b.Texts[i], b.Texts[i], reassembler.Fallback)
				continue
			}
			o.record(ctx, r, idx, b.Texts[i], out, reassembler.Translated)
		}
		o.finishBatch(r)
		return nil
	}

	outs, err := o.translator.TranslateBatch(ctx, b.Texts)
	if err == nil && len(outs) != len(b.Texts) {
		err = fmt.Errorf("%w: expected %d lines, got %d", translator.ErrMalformedResponse, len(b.Texts), len(outs))
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if o.config.FailFast {
			return fmt.Errorf("failed to translate batch %d (lines %d-%d): %w",
				b.Seq+1, b.Indices[0]+1, b.Indices[len(b.Indices)-1]+1, err)
		}
		o.logger.Warn("batch translation failed, keeping source text", "batch", b.Seq+1, "lines", b.Len(), "error", err)
		for i, idx := range b.Indices {
			o.record(ctx, r, idx, b.Texts[i], b.Texts[i], reassembler.Fallback)
		}
		o.finishBatch(r)
		return nil
	}

	for i, idx := range b.Indices {
		o.record(ctx, r, idx, b.Texts[i], outs[i], reassembler.Translated)
	}
	o.finishBatch(r)
	return nil
}

// record stores one line result. Successful translations are also written
// to the translation memory and the checkpoint; fallbacks are not, so a
// resumed run retries them.
func (o *Orchestrator) record(ctx context.Context, r *run, idx int, source, text string, st reassembler.Status) {
	r.mu.Lock()
	r.results[idx] = text
	r.statuses[idx] = st
	r.completedLines++
	r.mu.Unlock()

	if st != reassembler.Translated {
		return
	}
	if o.memory != nil {
		if err := o.memory.Remember(ctx, source, text); err != nil {
			o.logger.Warn("failed to save to translation memory", "line", idx+1, "error", err)
		}
	}
	if o.checkpoint != nil {
		if err := o.checkpoint.Save(ctx, idx, text); err != nil {
			o.logger.Warn("failed to checkpoint line", "line", idx+1, "error", err)
		}
	}
}

func (o *Orchestrator) finishBatch(r *run) {
	r.mu.Lock()
	r.completedBatches++
	r.mu.Unlock()
	o.report(r)
}

func (o *Orchestrator) report(r *run) {
	if o.progress == nil {
		return
	}
	r.mu.Lock()
	u := progress.Update{
		CompletedLines:   r.completedLines,
		TotalLines:       r.totalLines,
		CompletedBatches: r.completedBatches,
		TotalBatches:     r.totalBatches,
		Elapsed:          o.now().Sub(r.start),
	}
	r.mu.Unlock()
	o.progress(u)
}
