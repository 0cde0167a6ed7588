package harness

import (
	"fmt"
	"math"
	"strings"

	"github.com/roach88/livecode/internal/record"
)

// defaultTolerance is the value assertion tolerance when none is given.
const defaultTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Steps around the failure
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nTrace:\n")
		for _, ev := range e.Trace {
			if ev.Failed() {
				fmt.Fprintf(&buf, "  [%d] frame %d: %s\n", ev.Seq, ev.Frame, ev.Error)
			} else {
				fmt.Fprintf(&buf, "  [%d] frame %d: %d values\n", ev.Seq, ev.Frame, len(ev.Values))
			}
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against the result's trace and
// returns the failure messages.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluate(result.Trace, a); err != nil {
			failures = append(failures, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return failures
}

func evaluate(trace []TraceEvent, a Assertion) error {
	if a.Type == AssertNoErrors {
		return assertNoErrors(trace)
	}

	ev, err := selectEvent(trace, a)
	if err != nil {
		return err
	}
	switch a.Type {
	case AssertValue:
		return assertValue(ev, a)
	case AssertRange:
		return assertRange(ev, a)
	case AssertLength:
		return assertLength(ev, a)
	case AssertError:
		return assertError(ev, a)
	case AssertWeird:
		return assertWeird(ev, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// selectEvent finds the step an assertion targets: by 1-based position if
// Seq is set, otherwise the last step with the given frame index.
func selectEvent(trace []TraceEvent, a Assertion) (TraceEvent, error) {
	if a.Seq > 0 {
		if a.Seq > int64(len(trace)) {
			return TraceEvent{}, &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("step %d", a.Seq),
				Actual:   fmt.Sprintf("trace has %d steps", len(trace)),
			}
		}
		return trace[a.Seq-1], nil
	}
	for i := len(trace) - 1; i >= 0; i-- {
		if trace[i].Frame == *a.Frame {
			return trace[i], nil
		}
	}
	return TraceEvent{}, &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("a step for frame %d", *a.Frame),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// scalarAt reads the scalar at path. Failed frames are rejected: their
// value is a stale substitute.
func scalarAt(ev TraceEvent, a Assertion) (float64, error) {
	if ev.Failed() {
		return 0, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("frame %d to resolve", ev.Frame),
			Actual:   ev.Error,
		}
	}
	node, ok := ev.Value().At(a.Path)
	if !ok {
		return 0, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a value at %s", a.Path),
			Actual:   fmt.Sprintf("no such path; frame has %s", strings.Join(paths(ev), ", ")),
		}
	}
	if !isScalar(node) {
		return 0, &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a scalar at %s", a.Path),
			Actual:   node.Kind.String(),
		}
	}
	return node.Float(), nil
}

func isScalar(v record.Value) bool {
	switch v.Kind {
	case record.KindNum, record.KindInt, record.KindBool:
		return true
	}
	return false
}

func paths(ev TraceEvent) []string {
	var out []string
	for _, s := range ev.Value().Flatten() {
		out = append(out, s.Path)
	}
	return out
}

func assertValue(ev TraceEvent, a Assertion) error {
	got, err := scalarAt(ev, a)
	if err != nil {
		return err
	}
	tol := a.Tolerance
	if tol <= 0 {
		tol = defaultTolerance
	}
	if math.Abs(got-*a.Equals) > tol {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s = %g (±%g) at frame %d", a.Path, *a.Equals, tol, ev.Frame),
			Actual:   fmt.Sprintf("%g", got),
		}
	}
	return nil
}

func assertRange(ev TraceEvent, a Assertion) error {
	got, err := scalarAt(ev, a)
	if err != nil {
		return err
	}
	lo, hi := math.Inf(-1), math.Inf(1)
	if a.Min != nil {
		lo = *a.Min
	}
	if a.Max != nil {
		hi = *a.Max
	}
	if got < lo || got > hi {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s in [%g, %g] at frame %d", a.Path, lo, hi, ev.Frame),
			Actual:   fmt.Sprintf("%g", got),
		}
	}
	return nil
}

func assertLength(ev TraceEvent, a Assertion) error {
	if ev.Failed() {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("frame %d to resolve", ev.Frame),
			Actual:   ev.Error,
		}
	}
	node, ok := ev.Value().At(a.Path)
	if !ok || node.Kind != record.KindList {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("a list at %q", a.Path),
			Actual:   "not found",
		}
	}
	if len(node.Items) != *a.Count {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%d items at %q", *a.Count, a.Path),
			Actual:   fmt.Sprintf("%d items", len(node.Items)),
		}
	}
	return nil
}

func assertError(ev TraceEvent, a Assertion) error {
	if !ev.Failed() {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("frame %d to fail", ev.Frame),
			Actual:   "frame resolved",
		}
	}
	if a.Code != "" && ev.Code != a.Code {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("error code %s", a.Code),
			Actual:   fmt.Sprintf("code %q: %s", ev.Code, ev.Error),
		}
	}
	return nil
}

func assertNoErrors(trace []TraceEvent) error {
	var failed []TraceEvent
	for _, ev := range trace {
		if ev.Failed() {
			failed = append(failed, ev)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertNoErrors,
		Expected: "every frame to resolve",
		Actual:   fmt.Sprintf("%d failed frames", len(failed)),
		Trace:    failed,
	}
}

func assertWeird(ev TraceEvent, a Assertion) error {
	got := len(ev.Weird) > 0
	if got != *a.Expect {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("weird=%t at frame %d", *a.Expect, ev.Frame),
			Actual:   fmt.Sprintf("weird=%t %v", got, ev.Weird),
		}
	}
	return nil
}
