package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"cuelang.org/go/cue/token"
	"github.com/spf13/cobra"

	"github.com/roach88/livecode/internal/compiler"
	"github.com/roach88/livecode/internal/driver"
	"github.com/roach88/livecode/internal/signals"
)

// Error code constants - unified across all CLI commands. Validation codes
// (E2xx) come from the compiler.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeBadFlag     = "E002" // Flag value could not be parsed
	ErrCodeDecode      = "E004" // Document could not be decoded
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeCompile     = "E006" // Document did not compile
	ErrCodeEvalFailed  = "E007" // Expression or frame evaluation failed
	ErrCodeInvalidTest = "E008" // Scenario could not be loaded or run
)

// LoadError represents an error that occurred during document loading.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
	Err     error
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadDocument reads and compiles a document file. The format follows the
// extension: .yaml/.yml, .json or .cue.
func LoadDocument(path string) (*compiler.Document, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path), Err: err}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing document: %v", err), Err: err}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}

	doc, err := compiler.LoadFile(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return doc, nil
}

// convertCompileError maps a compiler error to a LoadError, keeping the
// position of the first CompileError.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		code := ErrCodeCompile
		if compileErr.Field == "" {
			code = ErrCodeDecode
		}
		return &LoadError{
			Code:    code,
			Message: err.Error(),
			Pos:     compileErr.Pos,
			Err:     err,
		}
	}
	return &LoadError{Code: ErrCodeDecode, Message: err.Error(), Err: err}
}

// SignalOptions holds the flags that shape a document's signal set. They
// are shared by eval, validate and expr so a document validated with a set
// of flags evaluates with the same names.
type SignalOptions struct {
	FPS         float64
	BPM         float64
	BeatsPerBar float64
	Signals     []string // name=value
	AudioBands  int
	Keys        []string // key labels always exported
}

func (o *SignalOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&o.FPS, "fps", 60, "frames per second")
	cmd.Flags().Float64Var(&o.BPM, "bpm", 120, "tempo in beats per minute")
	cmd.Flags().Float64Var(&o.BeatsPerBar, "beats-per-bar", 4, "beats per bar")
	cmd.Flags().StringArrayVar(&o.Signals, "signal", nil, "named signal as name=value (repeatable)")
	cmd.Flags().IntVar(&o.AudioBands, "audio", 0, "number of audio band signals (a0, a1, ...)")
	cmd.Flags().StringSliceVar(&o.Keys, "key", nil, "key labels to export as key_<name> (comma-separated)")
}

// values parses the --signal flags.
func (o *SignalOptions) values() (map[string]float64, error) {
	out := make(map[string]float64, len(o.Signals))
	for _, s := range o.Signals {
		name, v, err := signals.ParseAssignment(s)
		if err != nil {
			return nil, NewExitError(ExitCommandError, err.Error())
		}
		out[name] = v
	}
	return out, nil
}

func (o *SignalOptions) time() *signals.Time {
	return signals.NewTime(o.FPS, o.BPM, o.BeatsPerBar)
}

// driverOptions builds the driver options for the flags.
func (o *SignalOptions) driverOptions() ([]driver.Option, error) {
	vals, err := o.values()
	if err != nil {
		return nil, err
	}
	return []driver.Option{
		driver.WithTime(o.time()),
		driver.WithSources(
			signals.NewKeys(o.Keys...),
			signals.NewAudio(o.AudioBands),
			signals.NewValues(vals),
		),
	}, nil
}

// set builds a standalone signal set, in the same order as the driver's.
func (o *SignalOptions) set() (*signals.Set, error) {
	vals, err := o.values()
	if err != nil {
		return nil, err
	}
	return signals.NewSet(
		o.time(),
		&signals.Pointer{},
		signals.NewKeys(o.Keys...),
		signals.NewAudio(o.AudioBands),
		signals.NewValues(vals),
	), nil
}

// describeLoadError renders a load error for text output.
func describeLoadError(err error) (code, message string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, strings.TrimPrefix(loadErr.Error(), loadErr.Code+": ")
	}
	return ErrCodeGeneric, err.Error()
}
