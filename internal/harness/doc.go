// Package harness provides scenario testing for livecode documents.
//
// A scenario plays a fixed sequence of frame inputs through the driver and
// checks assertions against the trace of resolved frames.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: pulse_follows_beat
//	description: "What this scenario validates"
//	document: ../documents/pulse.yaml   # or source: inline YAML
//	time: { fps: 60, bpm: 120 }
//	signals: { gain: 1 }
//	audio_bands: 2
//	frames:
//	  - frame: 0
//	    repeat: 30
//	  - frame: 30
//	    mouse: [0.5, 0.25]
//	    down: true
//	    keys: { space: true }
//	    values: { gain: 2 }
//	assertions:
//	  - type: value
//	    frame: 30
//	    path: level
//	    equals: 2
//	  - type: range
//	    seq: 31
//	    path: dots.0.x
//	    min: 0
//	    max: 1
//	  - type: no_errors
//
// # Assertion Types
//
// The following assertion types are supported:
//
//   - value: the scalar at path equals a number within a tolerance
//   - range: the scalar at path lies within min and max
//   - length: the list at path has count items
//   - error: the frame failed, optionally with a given error code
//   - no_errors: every frame resolved
//   - weird: whether a spring diverged on the frame
//
// Frames are selected by frame index (the last step with that index) or by
// seq, the 1-based step position.
//
// # Deterministic Testing
//
// The harness uses:
//   - Frame indices taken from the scenario, never from a wall clock
//   - A fixed run token (scenario.run_token or "test-run-default")
//   - Canonical JSON for traces, with floats rounded to 1e-9
//
// This ensures identical traces across runs for golden file comparison.
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/pulse.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
