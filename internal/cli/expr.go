package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"

	"github.com/roach88/livecode/internal/evalctx"
	"github.com/roach88/livecode/internal/signals"
)

// ExprOptions holds flags for the expr command.
type ExprOptions struct {
	*RootOptions
	SignalOptions

	Document string
	Frame    int64
	MouseX   float64
	MouseY   float64
}

// ExprResult is the JSON payload of the expr command.
type ExprResult struct {
	Expr  string `json:"expr"`
	Frame int64  `json:"frame"`
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// NewExprCommand creates the expr command.
func NewExprCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExprOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "expr <expression>",
		Short: "Evaluate one expression at a frame",
		Long: `Evaluate a single expression against the signals of one frame.

With --doc, the document's defs and context are layered on top of the
signals, so their names resolve too.

Examples:
  livecode expr "sin(t * pi)" --frame 30
  livecode expr "pulse > base" --doc sketch.yaml --frame 90
  livecode expr "manymod(7, 2, 2)" --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExpr(opts, args[0], cmd)
		},
	}

	opts.SignalOptions.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Document, "doc", "", "document whose defs and context are in scope")
	cmd.Flags().Int64Var(&opts.Frame, "frame", 0, "frame index")
	cmd.Flags().Float64Var(&opts.MouseX, "mx", 0, "pointer x")
	cmd.Flags().Float64Var(&opts.MouseY, "my", 0, "pointer y")

	return cmd
}

func runExpr(opts *ExprOptions, src string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	expr, err := evalctx.Parse(src)
	if err != nil {
		_ = formatter.Error(exprErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to parse expression", err)
	}

	set, err := opts.set()
	if err != nil {
		return err
	}
	set.Update(signals.Snapshot{Frame: opts.Frame, MouseX: opts.MouseX, MouseY: opts.MouseY})

	ctx, err := set.Context()
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to build context", err)
	}

	if opts.Document != "" {
		doc, err := LoadDocument(opts.Document)
		if err != nil {
			code, msg := describeLoadError(err)
			_ = formatter.Error(code, msg, nil)
			return WrapExitError(ExitCommandError, "failed to load document", err)
		}
		ctx = ctx.WithLayers(doc.Layers()...)
		formatter.VerboseLog("Layered %s (%d layers)", doc.Name, len(doc.Layers()))
	}

	v, err := ctx.Eval(expr)
	if err != nil {
		_ = formatter.Error(exprErrorCode(err), err.Error(), nil)
		return WrapExitError(ExitFailure, "evaluation failed", err)
	}

	if opts.Format == "json" {
		plain, err := ctyPlain(v)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to render value", err)
		}
		return formatter.Success(ExprResult{
			Expr:  expr.String(),
			Frame: opts.Frame,
			Type:  v.Type().FriendlyName(),
			Value: plain,
		})
	}

	text, err := formatCty(v)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render value", err)
	}
	fmt.Fprintln(formatter.Writer, text)
	return nil
}

// exprErrorCode is the evaluation error code when there is one, E007
// otherwise.
func exprErrorCode(err error) string {
	if code := evalctx.CodeOf(err); code != "" {
		return string(code)
	}
	return ErrCodeEvalFailed
}

// formatCty renders numbers with the shortest exact form, bools as
// true/false and anything else as cty JSON.
func formatCty(v cty.Value) (string, error) {
	switch v.Type() {
	case cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return strconv.FormatFloat(f, 'g', -1, 64), nil
	case cty.Bool:
		return strconv.FormatBool(v.True()), nil
	case cty.String:
		return v.AsString(), nil
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ctyPlain converts v to plain Go values for the JSON envelope.
func ctyPlain(v cty.Value) (any, error) {
	switch {
	case v.Type() == cty.Number:
		f, _ := v.AsBigFloat().Float64()
		return f, nil
	case v.Type() == cty.Bool:
		return v.True(), nil
	case v.Type() == cty.String:
		return v.AsString(), nil
	case v.Type().IsObjectType() || v.Type().IsMapType():
		out := make(map[string]any)
		for it := v.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			p, err := ctyPlain(ev)
			if err != nil {
				return nil, err
			}
			out[k.AsString()] = p
		}
		return out, nil
	case v.CanIterateElements():
		var out []any
		for it := v.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			p, err := ctyPlain(ev)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported value of type %s", v.Type().FriendlyName())
}
