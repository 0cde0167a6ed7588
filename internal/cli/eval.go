package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/livecode/internal/driver"
	"github.com/roach88/livecode/internal/evalctx"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	SignalOptions

	Start       int64
	Frames      int
	MaxFailures int

	// Tokens allows overriding the run token generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Tokens driver.RunTokenGenerator
}

// EvalSummary is the final line of an eval run.
type EvalSummary struct {
	Run      string `json:"run"`
	Document string `json:"document"`
	Frames   int    `json:"frames"`
	Failed   int    `json:"failed"`
	Weird    int    `json:"weird"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <document>",
		Short: "Evaluate a document over a range of frames",
		Long: `Evaluate a document frame by frame and print every resolved frame.

Frames are consecutive indices starting at --start. Each frame is resolved
against time and the given signals, then spring smoothed. A frame that
fails to resolve repeats the last good value (type defaults before the
first good frame) and reports the error.

Exit codes:
  0 - Every frame resolved
  1 - One or more frames failed
  2 - Command error (document not found, does not compile, bad flags)

Examples:
  livecode eval sketch.yaml --frames 120
  livecode eval sketch.cue --start 60 --frames 4 --signal gain=0.5
  livecode eval sketch.yaml --frames 600 --max-failures 10 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	opts.SignalOptions.addFlags(cmd)
	cmd.Flags().Int64Var(&opts.Start, "start", 0, "first frame index")
	cmd.Flags().IntVarP(&opts.Frames, "frames", "n", 1, "number of frames to evaluate")
	cmd.Flags().IntVar(&opts.MaxFailures, "max-failures", 0, "stop after this many consecutive failing frames (0 = never)")

	return cmd
}

func runEval(opts *EvalOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	if opts.Frames < 1 {
		return NewExitError(ExitCommandError, "--frames must be at least 1")
	}

	doc, err := LoadDocument(path)
	if err != nil {
		code, msg := describeLoadError(err)
		_ = formatter.Error(code, msg, nil)
		return WrapExitError(ExitCommandError, "failed to load document", err)
	}

	driverOpts, err := opts.driverOptions()
	if err != nil {
		return err
	}
	driverOpts = append(driverOpts, driver.WithMaxFailures(opts.MaxFailures))
	if opts.Tokens != nil {
		driverOpts = append(driverOpts, driver.WithTokens(opts.Tokens))
	}
	d := driver.New(doc, driverOpts...)
	formatter.VerboseLog("Run %s: %s, frames %d..%d", d.Token(), doc.Name, opts.Start, opts.Start+int64(opts.Frames)-1)

	// Use command's context if available, otherwise create one
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// Producer: feed the frame range, then close the queue so Run drains
	// and returns.
	go func() {
		for _, snap := range driver.Frames(opts.Start, opts.Frames) {
			if !d.Enqueue(snap) {
				return
			}
		}
		d.Stop()
	}()

	summary := EvalSummary{Run: d.Token(), Document: doc.Name}
	runErr := d.Run(ctx, func(f driver.Frame) error {
		summary.Frames++
		if f.Err != nil {
			summary.Failed++
		}
		if f.Weird {
			summary.Weird++
		}
		return formatter.Line(frameText(f), frameJSON(f))
	})

	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		slog.Info("eval interrupted", "run", d.Token(), "frames", summary.Frames)
	case driver.IsBudgetExceeded(runErr):
		formatter.VerboseLog("Stopped: %v", runErr)
	default:
		return WrapExitError(ExitCommandError, "eval stopped", runErr)
	}

	if opts.Format == "json" {
		if err := formatter.Line("", map[string]any{"summary": summaryJSON(summary)}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(formatter.Writer, "\n%d frames, %d failed, %d weird\n", summary.Frames, summary.Failed, summary.Weird)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d frame(s) failed", summary.Failed))
	}
	return nil
}

// frameText renders a frame as one line: the index, then each scalar in
// declaration order.
func frameText(f driver.Frame) string {
	var b strings.Builder
	fmt.Fprintf(&b, "frame %d:", f.Index)
	for _, s := range f.Value.Flatten() {
		fmt.Fprintf(&b, " %s=%s", s.Path, strconv.FormatFloat(s.Value, 'g', 6, 64))
	}
	if f.Err != nil {
		fmt.Fprintf(&b, " ! %v", f.Err.Err)
		if f.Substituted {
			b.WriteString(" (substituted)")
		}
	}
	if f.Weird {
		fmt.Fprintf(&b, " ~ weird %s", strings.Join(f.WeirdPaths, ","))
	}
	return b.String()
}

func frameJSON(f driver.Frame) map[string]any {
	out := map[string]any{
		"frame": f.Index,
		"seq":   f.Seq,
		"secs":  f.Secs,
		"value": f.Value,
	}
	if f.Err != nil {
		out["error"] = f.Err.Err.Error()
		if code := evalctx.CodeOf(f.Err); code != "" {
			out["code"] = string(code)
		}
		out["substituted"] = f.Substituted
	}
	if f.Weird {
		out["weird"] = f.WeirdPaths
	}
	return out
}

func summaryJSON(s EvalSummary) map[string]any {
	return map[string]any{
		"run":      s.Run,
		"document": s.Document,
		"frames":   s.Frames,
		"failed":   s.Failed,
		"weird":    s.Weird,
	}
}
