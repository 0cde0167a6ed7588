package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/livecode/internal/compiler"
	"github.com/roach88/livecode/internal/driver"
	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/signals"
	"github.com/roach88/livecode/internal/testutil"
)

// Harness holds the state of one scenario execution.
type Harness struct {
	scenario *Scenario
	driver   *driver.Driver
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext executes a scenario and returns the result.
//
// Execution flow:
//  1. Load and compile the document
//  2. Build a driver with the scenario's time and signal sources
//  3. Play the frame inputs
//  4. Evaluate assertions against the trace
//
// An error is returned only when the scenario cannot run at all. Frame
// failures are part of the trace and are judged by assertions.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	doc, err := loadDocument(scenario)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.driver = driver.New(doc,
		driver.WithTime(signals.NewTime(scenario.Time.FPS, scenario.Time.BPM, scenario.Time.BeatsPerBar)),
		driver.WithSources(signals.NewValues(scenario.Signals), signals.NewAudio(scenario.AudioBands)),
		driver.WithTokens(testutil.NewFixedRunToken(scenario.RunToken)),
	)

	// Frame values may introduce signals the defaults don't name. They are
	// known to the document even on frames that leave them out.
	known := append(h.driver.Signals(), scenario.FrameSignals()...)
	if errs := compiler.Validate(doc, known); len(errs) > 0 {
		return nil, fmt.Errorf("document does not validate: %w", compiler.ValidationErrors(errs))
	}

	result := NewResult()
	result.RunToken = h.driver.Token()
	if err := h.play(ctx, result); err != nil {
		return nil, err
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"frames", len(result.Trace),
		"pass", result.Pass,
	)
	return result, nil
}

func loadDocument(s *Scenario) (*compiler.Document, error) {
	if s.Source != "" {
		return compiler.LoadBytes(s.Name+".yaml", compiler.FormatYAML, []byte(s.Source))
	}
	return compiler.LoadFile(s.Document)
}

// play feeds every frame input to the driver and records the trace.
func (h *Harness) play(ctx context.Context, result *Result) error {
	frames, err := h.driver.Play(ctx, h.scenario.Snapshots())
	if err != nil {
		return fmt.Errorf("playback stopped: %w", err)
	}
	for _, f := range frames {
		result.Trace = append(result.Trace, traceEvent(f))
	}
	return nil
}

func traceEvent(f driver.Frame) TraceEvent {
	ev := TraceEvent{
		Seq:         f.Seq,
		Frame:       f.Index,
		Values:      f.Value.FlattenMap(),
		Substituted: f.Substituted,
		Weird:       f.WeirdPaths,
		value:       f.Value,
	}
	if f.Err != nil {
		ev.Error = f.Err.Err.Error()
		ev.Code = string(evalctx.CodeOf(f.Err))
	}
	return ev
}
