package harness

import "github.com/roach88/livecode/internal/record"

// TraceEvent is one driver step as recorded in the trace.
type TraceEvent struct {
	Seq   int64 `json:"seq"`
	Frame int64 `json:"frame"`

	// Values is the frame's value flattened to dotted paths.
	Values map[string]float64 `json:"values,omitempty"`

	// Error and Code describe a failed frame. Values then holds the
	// substituted last good value.
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`

	Substituted bool     `json:"substituted,omitempty"`
	Weird       []string `json:"weird,omitempty"`

	value record.Value
}

// Value returns the structured frame value.
func (e TraceEvent) Value() record.Value {
	return e.value
}

// Failed reports whether the frame failed to resolve.
func (e TraceEvent) Failed() bool {
	return e.Error != ""
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if all assertions held.
	Pass bool `json:"pass"`

	// RunToken is the driver's run token.
	RunToken string `json:"run_token"`

	// Trace contains one event per driver step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// canonical converts the event to plain values for MarshalCanonical. The
// error message is left out.
func (e TraceEvent) canonical() map[string]any {
	out := map[string]any{
		"seq":   e.Seq,
		"frame": e.Frame,
	}
	if len(e.Values) > 0 {
		out["values"] = e.Values
	}
	// Messages carry parser wording; the code is the stable part.
	if e.Failed() {
		out["failed"] = true
		if e.Code != "" {
			out["code"] = e.Code
		}
	}
	if e.Substituted {
		out["substituted"] = true
	}
	if len(e.Weird) > 0 {
		out["weird"] = e.Weird
	}
	return out
}
