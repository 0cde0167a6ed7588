package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/livecode/internal/compiler"
	"github.com/roach88/livecode/internal/driver"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
}

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	SignalOptions
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <document>...",
		Short: "Check documents without evaluating them",
		Long: `Compile documents and check them against the signals they will see.

Reports names that nothing defines, calls to unknown functions, built-in
constants redefined in defs or context, repeat prefixes that shadow an
enclosing prefix, boop overrides that match no schema path, and context
assignments that read a name before it is assigned.

Signal flags matter: a document reading gain only validates with
--signal gain=<value>. Names starting with key_ are always accepted.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args, cmd)
		},
	}

	opts.SignalOptions.addFlags(cmd)
	return cmd
}

func runValidate(opts *ValidateOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	driverOpts, err := opts.driverOptions()
	if err != nil {
		return err
	}

	var all []compiler.ValidationError
	for _, path := range paths {
		doc, err := LoadDocument(path)
		if err != nil {
			code, msg := describeLoadError(err)
			return outputValidateError(formatter, code, msg, nil)
		}

		// A throwaway driver gives the exact signal names eval would see.
		names := driver.New(doc, driverOpts...).Signals()
		formatter.VerboseLog("Validating %s against %d signal(s)", path, len(names))
		filters := compiler.OverrideFilters(doc)
		for _, p := range slices.Sorted(maps.Keys(filters)) {
			formatter.VerboseLog("  %s smoothed with %s", p, filters[p])
		}

		for _, e := range compiler.Validate(doc, names) {
			if len(paths) > 1 {
				e.Field = doc.Name + ":" + e.Field
			}
			all = append(all, e)
		}
	}

	if len(all) > 0 {
		return outputValidationErrors(formatter, all)
	}
	return outputValidateSuccess(formatter, len(paths))
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, n int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}

	if n == 1 {
		fmt.Fprintln(formatter.Writer, "✓ Document valid")
	} else {
		fmt.Fprintf(formatter.Writer, "✓ All %d documents valid\n", n)
	}
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "%s\n  %s: %s\n\n", err.Field, err.Code, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}

// ValidateFile validates one document with the default signal set.
// This is a helper function for external callers.
func ValidateFile(path string) ([]compiler.ValidationError, error) {
	doc, err := LoadDocument(path)
	if err != nil {
		return nil, err
	}
	return compiler.Validate(doc, driver.New(doc).Signals()), nil
}
