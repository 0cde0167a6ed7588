package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/livecode/internal/signals"
)

// Scenario defines a playback test: a document, a sequence of frame inputs
// and assertions on the frames the driver produced.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Document is the path of the document file (YAML, JSON or CUE),
	// relative to the scenario file when loaded with a base path.
	Document string `yaml:"document,omitempty"`

	// Source is an inline YAML document, used instead of Document.
	Source string `yaml:"source,omitempty"`

	// Time configures the time source. Zero fields take the defaults.
	Time TimeConfig `yaml:"time,omitempty"`

	// Signals are default values for named signals. Frames can override
	// them with values.
	Signals map[string]float64 `yaml:"signals,omitempty"`

	// AudioBands is the number of audio band signals (a0, a1, ...).
	AudioBands int `yaml:"audio_bands,omitempty"`

	// Frames are the inputs, in playback order.
	Frames []FrameStep `yaml:"frames"`

	// Assertions validate the resulting trace.
	Assertions []Assertion `yaml:"assertions"`

	// RunToken is an optional fixed run token. If empty, defaults to
	// "test-run-default" for deterministic golden file comparison.
	RunToken string `yaml:"run_token,omitempty"`
}

// TimeConfig mirrors signals.NewTime.
type TimeConfig struct {
	FPS         float64 `yaml:"fps,omitempty"`
	BPM         float64 `yaml:"bpm,omitempty"`
	BeatsPerBar float64 `yaml:"beats_per_bar,omitempty"`
}

// FrameStep is the input for one frame, or for Repeat consecutive frames
// starting at Frame.
type FrameStep struct {
	Frame  int64 `yaml:"frame"`
	Repeat int   `yaml:"repeat,omitempty"`

	Mouse  []float64          `yaml:"mouse,omitempty"`
	Down   bool               `yaml:"down,omitempty"`
	Keys   map[string]bool    `yaml:"keys,omitempty"`
	Audio  []float64          `yaml:"audio,omitempty"`
	Values map[string]float64 `yaml:"values,omitempty"`
}

// Assertion validates the trace.
type Assertion struct {
	// Type specifies the assertion type:
	// - "value": the scalar at Path equals Equals within Tolerance
	// - "range": the scalar at Path lies in [Min, Max]
	// - "length": the list at Path has Count items
	// - "error": the frame failed, with Code if given
	// - "no_errors": no frame failed
	// - "weird": the frame's weird flag equals Expect
	Type string `yaml:"type"`

	// Frame selects the last step with this frame index. Seq, if set,
	// selects a step by its 1-based position instead.
	Frame *int64 `yaml:"frame,omitempty"`
	Seq   int64  `yaml:"seq,omitempty"`

	Path      string   `yaml:"path,omitempty"`
	Equals    *float64 `yaml:"equals,omitempty"`
	Tolerance float64  `yaml:"tolerance,omitempty"`
	Min       *float64 `yaml:"min,omitempty"`
	Max       *float64 `yaml:"max,omitempty"`
	Count     *int     `yaml:"count,omitempty"`
	Code      string   `yaml:"code,omitempty"`
	Expect    *bool    `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertValue    = "value"
	AssertRange    = "range"
	AssertLength   = "length"
	AssertError    = "error"
	AssertNoErrors = "no_errors"
	AssertWeird    = "weird"
)

// LoadScenario reads and parses a scenario YAML file. The document path is
// resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the document path relative to basePath.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Document != "" && !filepath.IsAbs(scenario.Document) && basePath != "" {
		scenario.Document = filepath.Join(basePath, scenario.Document)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch {
	case s.Document == "" && s.Source == "":
		return fmt.Errorf("document or source is required")
	case s.Document != "" && s.Source != "":
		return fmt.Errorf("document and source are mutually exclusive")
	case s.Document != "":
		if _, err := os.Stat(s.Document); os.IsNotExist(err) {
			return fmt.Errorf("document file not found: %s", s.Document)
		}
	}

	if len(s.Frames) == 0 {
		return fmt.Errorf("frames list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, f := range s.Frames {
		if f.Repeat < 0 {
			return fmt.Errorf("frames[%d]: repeat must not be negative", i)
		}
		if len(f.Mouse) != 0 && len(f.Mouse) != 2 {
			return fmt.Errorf("frames[%d]: mouse takes [x, y]", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	needsFrame := func() error {
		if a.Frame == nil && a.Seq == 0 {
			return fmt.Errorf("assertions[%d]: %s requires frame or seq", index, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertValue:
		if a.Path == "" || a.Equals == nil {
			return fmt.Errorf("assertions[%d]: value requires path and equals", index)
		}
		return needsFrame()
	case AssertRange:
		if a.Path == "" || (a.Min == nil && a.Max == nil) {
			return fmt.Errorf("assertions[%d]: range requires path and min or max", index)
		}
		return needsFrame()
	case AssertLength:
		if a.Count == nil {
			return fmt.Errorf("assertions[%d]: length requires count", index)
		}
		return needsFrame()
	case AssertError:
		return needsFrame()
	case AssertWeird:
		if a.Expect == nil {
			return fmt.Errorf("assertions[%d]: weird requires expect", index)
		}
		return needsFrame()
	case AssertNoErrors:
		return nil
	default:
		return fmt.Errorf("assertions[%d]: unknown type %q", index, a.Type)
	}
}

// Snapshots expands the frame steps into driver inputs.
func (s *Scenario) Snapshots() []signals.Snapshot {
	var out []signals.Snapshot
	for _, f := range s.Frames {
		n := max(f.Repeat, 1)
		for i := 0; i < n; i++ {
			snap := signals.Snapshot{
				Frame:     f.Frame + int64(i),
				MouseDown: f.Down,
				Keys:      f.Keys,
				Audio:     f.Audio,
				Values:    f.Values,
			}
			if len(f.Mouse) == 2 {
				snap.MouseX, snap.MouseY = f.Mouse[0], f.Mouse[1]
			}
			out = append(out, snap)
		}
	}
	return out
}

// FrameSignals returns the names set by any frame's values, sorted.
func (s *Scenario) FrameSignals() []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range s.Frames {
		for name := range f.Values {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	sort.Strings(out)
	return out
}
