package driver

import (
	"context"
	"log/slog"

	"github.com/roach88/livecode/internal/compiler"
	"github.com/roach88/livecode/internal/record"
	"github.com/roach88/livecode/internal/signals"
)

// Frame is the output of one step.
type Frame struct {
	Seq   int64
	Index int64
	Run   string

	// Secs is the spring clock: the time source's elapsed seconds.
	Secs float64

	Value record.Value

	// Err is set when resolution failed; Value then repeats the last good
	// frame, or holds the schema's type default if there was none.
	Err         *FrameError
	Substituted bool

	// Weird is set when a spring diverged this frame and was snapped to its
	// target.
	Weird      bool
	WeirdPaths []string
}

// Driver evaluates one compiled document frame by frame.
//
// Step and Run are single-writer: call them from one goroutine. Enqueue
// and Stop are safe from any goroutine.
type Driver struct {
	doc      *compiler.Document
	time     *signals.Time
	signals  *signals.Set
	smoother *record.Smoother
	clock    *Clock
	tokens   RunTokenGenerator
	budget   *FailureBudget
	queue    *snapshotQueue
	extra    []signals.Source

	run     string
	last    record.Value
	hasLast bool
	lastErr string
}

// Option configures a Driver.
type Option func(*Driver)

// WithTime replaces the default time source (60 fps, 120 bpm, 4/4).
func WithTime(t *signals.Time) Option {
	return func(d *Driver) {
		d.time = t
	}
}

// WithSources adds signal sources after the built-in ones. Later sources
// win on name clashes.
func WithSources(srcs ...signals.Source) Option {
	return func(d *Driver) {
		d.extra = append(d.extra, srcs...)
	}
}

// WithClock sets the step clock. Used to continue seq numbering.
func WithClock(c *Clock) Option {
	return func(d *Driver) {
		d.clock = c
	}
}

// WithTokens sets the run token generator. Default: UUIDv7Generator.
func WithTokens(g RunTokenGenerator) Option {
	return func(d *Driver) {
		d.tokens = g
	}
}

// WithMaxFailures stops Run after n consecutive failing frames.
// Default: 0 (never stop).
func WithMaxFailures(n int) Option {
	return func(d *Driver) {
		d.budget = NewFailureBudget(n)
	}
}

// New creates a Driver for doc. The default signal set is time, pointer
// and keys.
func New(doc *compiler.Document, opts ...Option) *Driver {
	d := &Driver{
		doc:      doc,
		time:     signals.NewTime(0, 0, 0),
		smoother: record.NewSmoother(doc.Schema),
		clock:    NewClock(),
		tokens:   UUIDv7Generator{},
		budget:   NewFailureBudget(0),
		queue:    newSnapshotQueue(),
	}
	for _, opt := range opts {
		opt(d)
	}

	d.signals = signals.NewSet(d.time, &signals.Pointer{}, signals.NewKeys())
	for _, s := range d.extra {
		d.signals.Add(s)
	}
	d.run = d.tokens.Generate()
	return d
}

// Token returns the run token.
func (d *Driver) Token() string {
	return d.run
}

// Document returns the document being evaluated.
func (d *Driver) Document() *compiler.Document {
	return d.doc
}

// Signals returns the names the driver's sources export. Used to validate
// a document before running it.
func (d *Driver) Signals() []string {
	bs := d.signals.Bindings()
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Name
	}
	return out
}

// Smoother exposes the spring state.
func (d *Driver) Smoother() *record.Smoother {
	return d.smoother
}

// Reset forgets spring state and the last good value.
func (d *Driver) Reset() {
	d.smoother.Reset()
	d.last = record.Value{}
	d.hasLast = false
	d.lastErr = ""
}

// Step evaluates one frame.
func (d *Driver) Step(ctx context.Context, snap signals.Snapshot) Frame {
	f := Frame{Seq: d.clock.Next(), Index: snap.Frame, Run: d.run}

	if err := ctx.Err(); err != nil {
		return d.fail(f, err)
	}

	d.signals.Update(snap)
	f.Secs = d.time.Seconds()

	base, err := d.signals.Context()
	if err != nil {
		return d.fail(f, err)
	}
	v, err := d.doc.Controls.Resolve(base.WithLayers(d.doc.Layers()...))
	if err != nil {
		return d.fail(f, err)
	}

	if d.lastErr != "" {
		slog.Info("frame recovered", "run", d.run, "frame", f.Index)
		d.lastErr = ""
	}

	out, weird := d.smoother.BoopFrom(d.doc.Boop, f.Secs, v)
	if weird {
		f.Weird = true
		f.WeirdPaths = d.smoother.Bank().WeirdPaths()
		slog.Warn("spring diverged, snapped to target",
			"run", d.run,
			"frame", f.Index,
			"paths", f.WeirdPaths,
		)
	}

	f.Value = out
	d.last = out
	d.hasLast = true
	return f
}

// fail records err on f and substitutes the last good value, or the type
// default before the first good frame. A repeat of the previous frame's
// error is logged at debug level only.
func (d *Driver) fail(f Frame, err error) Frame {
	f.Err = &FrameError{Run: d.run, Seq: f.Seq, Frame: f.Index, Err: err}
	f.Substituted = true
	if d.hasLast {
		f.Value = d.last
	} else {
		f.Value = d.doc.Schema.Zero()
	}

	msg := err.Error()
	if msg != d.lastErr {
		slog.Error("frame resolution failed",
			"run", d.run,
			"frame", f.Index,
			"error", err,
		)
		d.lastErr = msg
	} else {
		slog.Debug("frame still failing", "run", d.run, "frame", f.Index)
	}
	return f
}

// Enqueue submits a snapshot for Run. Returns false after Stop.
func (d *Driver) Enqueue(s signals.Snapshot) bool {
	return d.queue.Enqueue(s)
}

// Stop closes the input queue. Run drains what was enqueued, then returns.
func (d *Driver) Stop() {
	d.queue.Close()
}

// Run steps every enqueued snapshot and hands the frame to sink, until the
// context is cancelled, Stop is called and the queue drains, sink returns an
// error, or the failure budget is spent.
func (d *Driver) Run(ctx context.Context, sink func(Frame) error) error {
	slog.Info("driver starting", "run", d.run, "document", d.doc.Name)

	for {
		snap, ok := d.queue.TryDequeue()
		if ok {
			f := d.Step(ctx, snap)
			if err := sink(f); err != nil {
				return err
			}
			var ferr error
			if f.Err != nil {
				ferr = f.Err
			}
			if err := d.budget.Observe(d.run, ferr); err != nil {
				slog.Error("failure budget exceeded", "run", d.run, "failures", d.budget.Current())
				return err
			}
			continue
		}

		select {
		case <-ctx.Done():
			slog.Info("driver stopping: context cancelled", "run", d.run)
			d.queue.Close()
			return ctx.Err()

		case <-d.queue.Wait():
			if d.queue.Closed() && d.queue.Len() == 0 {
				slog.Info("driver stopping: input closed", "run", d.run)
				return nil
			}
		}
	}
}

// Play steps snaps in order and returns every frame. It stops early on
// cancellation or when the failure budget is spent, returning the frames so
// far with the error.
func (d *Driver) Play(ctx context.Context, snaps []signals.Snapshot) ([]Frame, error) {
	frames := make([]Frame, 0, len(snaps))
	for _, s := range snaps {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		f := d.Step(ctx, s)
		frames = append(frames, f)

		var ferr error
		if f.Err != nil {
			ferr = f.Err
		}
		if err := d.budget.Observe(d.run, ferr); err != nil {
			return frames, err
		}
	}
	return frames, nil
}

// Frames returns n snapshots with consecutive frame indices from start and
// no other input.
func Frames(start int64, n int) []signals.Snapshot {
	out := make([]signals.Snapshot, n)
	for i := range out {
		out[i] = signals.Snapshot{Frame: start + int64(i)}
	}
	return out
}
