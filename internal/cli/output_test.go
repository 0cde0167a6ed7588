package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.Success(map[string]bool{"valid": true}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Nil(t, resp.Error)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	details := map[string]string{"file": "sketch.yaml"}
	require.NoError(t, formatter.Error(ErrCodeCompile, "schema.level: unknown kind", details))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E006", resp.Error.Code)
	assert.Equal(t, "schema.level: unknown kind", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	tests := []struct {
		name        string
		verbose     bool
		wantDetails bool
	}{
		{"quiet", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "text", Writer: buf, Verbose: tt.verbose}

			require.NoError(t, formatter.Error(ErrCodeNotFound, "document not found: x.yaml", "x.yaml"))
			assert.Contains(t, buf.String(), "Error [E005]: document not found: x.yaml")
			if tt.wantDetails {
				assert.Contains(t, buf.String(), "Details: x.yaml")
			} else {
				assert.NotContains(t, buf.String(), "Details:")
			}
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: stdout, ErrWriter: stderr, Verbose: true}

	formatter.VerboseLog("Run %s", "abc")
	assert.Equal(t, "Run abc\n", stderr.String())
	assert.Empty(t, stdout.String(), "verbose logs must not corrupt JSON output")

	quiet := &OutputFormatter{Format: "text", Writer: stdout}
	quiet.VerboseLog("hidden")
	assert.Empty(t, stdout.String())
}

func TestOutputFormatter_Line(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, formatter.Line("frame 0: level=1", map[string]any{"frame": 0}))
		assert.Equal(t, "frame 0: level=1\n", buf.String())
	})

	t.Run("json is canonical", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Line("ignored", map[string]any{"seq": int64(2), "frame": int64(1), "level": 0.1 + 0.2}))
		require.NoError(t, formatter.Line("", map[string]any{"frame": int64(2)}))
		assert.Equal(t, "{\"frame\":1,\"level\":0.3,\"seq\":2}\n{\"frame\":2}\n", buf.String())
	})

	t.Run("json rejects unsupported values", func(t *testing.T) {
		formatter := &OutputFormatter{Format: "json", Writer: &bytes.Buffer{}}
		assert.Error(t, formatter.Line("", struct{}{}))
	})
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"exit error", NewExitError(ExitCommandError, "bad flag"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("outer: %w", NewExitError(ExitFailure, "failed")), ExitFailure},
		{"plain error", errors.New("boom"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestWrapExitError_Unwraps(t *testing.T) {
	cause := errors.New("cause")
	err := WrapExitError(ExitCommandError, "failed to load document", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to load document")
}
