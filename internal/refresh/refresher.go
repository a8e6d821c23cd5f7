package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"git.home.luguber.info/inful/nbtoc/internal/document"
	"git.home.luguber.info/inful/nbtoc/internal/foundation/errors"
	"git.home.luguber.info/inful/nbtoc/internal/logfields"
	"git.home.luguber.info/inful/nbtoc/internal/metrics"
	"git.home.luguber.info/inful/nbtoc/internal/toc"
)

// DefaultInterval is the tick period used when Options.Interval is zero.
const DefaultInterval = time.Second

// Observer is told about every tick whose rendered output changed.
type Observer interface {
	Name() string
	Notify(ctx context.Context, o *Outcome) error
}

// HistoryRecorder persists every tick outcome.
type HistoryRecorder interface {
	Record(ctx context.Context, o *Outcome) error
}

// RevisionSource reports the version-control revision of the document.
type RevisionSource interface {
	Revision() (string, error)
}

// Options configures a Refresher.
type Options struct {
	Query    document.Query
	Build    toc.Options
	Render   toc.RenderOptions
	Interval time.Duration
}

// Refresher regenerates a table of contents from a Source into a Container.
type Refresher struct {
	source    document.Source
	container document.Container
	opts      Options

	recorder  metrics.Recorder
	observers []Observer
	history   HistoryRecorder
	revisions RevisionSource
	logger    *slog.Logger

	mu      sync.RWMutex
	last    *Outcome
	current *Outcome
	ticks   uint64

	// pending carries the trigger of a requested early run to the job.
	pending atomic.Value

	schedMu   sync.Mutex
	scheduler gocron.Scheduler
	job       gocron.Job
}

// New creates a Refresher. The zero Options select the default list key
// prefix, the fail orphan policy and a one second interval.
func New(source document.Source, container document.Container, opts Options) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Refresher{
		source:    source,
		container: container,
		opts:      opts,
		recorder:  metrics.NoopRecorder{},
		logger:    slog.Default(),
	}
}

// WithRecorder sets the metrics recorder.
func (r *Refresher) WithRecorder(rec metrics.Recorder) *Refresher {
	if rec == nil {
		rec = metrics.NoopRecorder{}
	}
	r.recorder = rec
	return r
}

// WithObservers appends change observers.
func (r *Refresher) WithObservers(obs ...Observer) *Refresher {
	r.observers = append(r.observers, obs...)
	return r
}

// WithHistory sets the tick history store.
func (r *Refresher) WithHistory(h HistoryRecorder) *Refresher {
	r.history = h
	return r
}

// WithRevisions stamps every outcome with the document revision.
func (r *Refresher) WithRevisions(rs RevisionSource) *Refresher {
	r.revisions = rs
	return r
}

// WithLogger sets the logger.
func (r *Refresher) WithLogger(l *slog.Logger) *Refresher {
	if l != nil {
		r.logger = l
	}
	return r
}

// Interval returns the tick period.
func (r *Refresher) Interval() time.Duration { return r.opts.Interval }

// Last returns the outcome of the most recent tick, or nil.
func (r *Refresher) Last() *Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.last
}

// Current returns the outcome of the most recent successful tick, or nil.
func (r *Refresher) Current() *Outcome {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Ticks returns the number of completed ticks.
func (r *Refresher) Ticks() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.ticks
}

// Tick runs one regeneration pass. The returned error equals Outcome.Err.
func (r *Refresher) Tick(ctx context.Context) (*Outcome, error) {
	o := r.tick(ctx, TriggerManual)
	return o, o.Err
}

func (r *Refresher) tick(ctx context.Context, trigger Trigger) (out *Outcome) {
	out = &Outcome{
		TickID:    uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}

	defer func() {
		if rec := recover(); rec != nil {
			out.Err = errors.RuntimeError("tick panicked").
				WithContext("panic", fmt.Sprint(rec)).
				WithContext("stack", string(debug.Stack())).
				Build()
			out.Result = metrics.ResultPanic
		}
		out.Duration = time.Since(out.StartedAt)
		r.finish(ctx, out)
	}()

	if r.revisions != nil {
		rev, err := r.revisions.Revision()
		if err != nil {
			r.logger.Warn("Failed to resolve document revision", logfields.TickID(out.TickID), logfields.Error(err))
		}
		out.Revision = rev
	}

	rendered, tree, written, err := r.generate(ctx)
	if err != nil {
		out.Err = err
		out.Result = metrics.ResultFailed
		return out
	}

	out.Tree = tree
	out.Rendered = rendered
	out.Written = written
	out.Fingerprint = toc.Fingerprint(rendered)
	out.Primary, out.Secondary = tree.Counts()

	prev := r.Current()
	out.Changed = prev == nil || prev.Fingerprint != out.Fingerprint
	if out.Changed || out.Written {
		out.Result = metrics.ResultUpdated
	} else {
		out.Result = metrics.ResultUnchanged
	}
	return out
}

func (r *Refresher) generate(ctx context.Context) ([]byte, *toc.Tree, bool, error) {
	start := time.Now()
	headings, err := r.source.Headings(ctx, r.opts.Query)
	r.recorder.ObserveStageDuration(metrics.StageScan, time.Since(start))
	if err != nil {
		return nil, nil, false, err
	}

	start = time.Now()
	tree, err := toc.Build(headings, r.opts.Build)
	r.recorder.ObserveStageDuration(metrics.StageBuild, time.Since(start))
	if err != nil {
		return nil, nil, false, err
	}

	start = time.Now()
	rendered, err := toc.RenderBytes(tree, r.opts.Render)
	r.recorder.ObserveStageDuration(metrics.StageRender, time.Since(start))
	if err != nil {
		return nil, nil, false, err
	}

	start = time.Now()
	written, err := r.container.Replace(ctx, rendered)
	r.recorder.ObserveStageDuration(metrics.StageReplace, time.Since(start))
	if err != nil {
		return nil, nil, false, err
	}
	return rendered, tree, written, nil
}

func (r *Refresher) finish(ctx context.Context, o *Outcome) {
	r.mu.Lock()
	r.last = o
	r.ticks++
	if o.Succeeded() {
		r.current = o
	}
	r.mu.Unlock()

	r.recorder.ObserveTickDuration(o.Duration)
	r.recorder.IncTickResult(o.Result)

	attrs := []any{
		logfields.TickID(o.TickID),
		logfields.Trigger(string(o.Trigger)),
		logfields.Result(string(o.Result)),
		logfields.DurationMS(float64(o.Duration.Microseconds()) / 1000),
		logfields.Document(r.source.Name()),
	}
	switch {
	case o.Err != nil:
		r.logger.Error("Table of contents refresh failed", append(attrs, logfields.Error(o.Err))...)
	case o.Changed || o.Written:
		r.recorder.SetEntries(o.Primary, o.Secondary)
		r.logger.Info("Table of contents updated", append(attrs,
			logfields.Primary(o.Primary),
			logfields.Secondary(o.Secondary),
			logfields.Fingerprint(o.Fingerprint),
			slog.Bool("written", o.Written))...)
	default:
		r.recorder.SetEntries(o.Primary, o.Secondary)
		r.logger.Debug("Table of contents unchanged", attrs...)
	}

	if r.history != nil {
		if err := r.history.Record(ctx, o); err != nil {
			r.logger.Warn("Failed to record tick history", logfields.TickID(o.TickID), logfields.Error(err))
		}
	}

	if o.Changed && o.Err == nil {
		if err := r.notify(ctx, o); err != nil {
			r.logger.Warn("Failed to notify observers", logfields.TickID(o.TickID), logfields.Error(err))
		}
	}
}

func (r *Refresher) notify(ctx context.Context, o *Outcome) error {
	var errs error
	for _, obs := range r.observers {
		if err := obs.Notify(ctx, o); err != nil {
			r.recorder.IncObserverError(obs.Name())
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", obs.Name(), err))
		}
	}
	return errs
}
