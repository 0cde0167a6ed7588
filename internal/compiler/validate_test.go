package compiler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func codes(errs []ValidationError) map[string][]string {
	out := make(map[string][]string)
	for _, e := range errs {
		out[e.Code] = append(out[e.Code], e.Field)
	}
	return out
}

func TestValidate_CleanDocument(t *testing.T) {
	doc := compileYAML(t, sketchYAML)
	assert.Empty(t, Validate(doc, []string{"t"}))
}

func TestValidate_SignalsDefineNames(t *testing.T) {
	doc := compileYAML(t, sketchYAML)
	errs := Validate(doc, nil)
	require.NotEmpty(t, errs)
	for _, e := range errs {
		assert.Equal(t, ErrUnknownIdentifier, e.Code)
		assert.Contains(t, e.Message, `"t"`)
	}
}

func TestValidate_Codes(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		wantCode  string
		wantField string
	}{
		{
			name: "override path",
			src: `
schema: {level: num, dots: [{x: num}]}
boop:
  overrides: {dots.3.x: noop, nothing: noop}
controls: {level: 1}
`,
			wantCode:  ErrOverridePath,
			wantField: "boop.overrides.nothing",
		},
		{
			name:      "unknown identifier in control",
			src:       "schema: {level: num}\ncontrols: {level: t + nowhere}\n",
			wantCode:  ErrUnknownIdentifier,
			wantField: "controls.level",
		},
		{
			name:      "unknown identifier in context",
			src:       "context: |\n  a = nowhere * 2\nschema: {level: num}\ncontrols: {level: a}\n",
			wantCode:  ErrUnknownIdentifier,
			wantField: "context.a",
		},
		{
			name:      "unknown function",
			src:       "schema: {level: num}\ncontrols: {level: wobble(t)}\n",
			wantCode:  ErrUnknownFunction,
			wantField: "controls.level",
		},
		{
			name:      "unknown function inside for expression",
			src:       "schema: {level: num}\ncontrols: {level: '[for v in [1, 2] : wobble(v)][0]'}\n",
			wantCode:  ErrUnknownFunction,
			wantField: "controls.level",
		},
		{
			name:      "shadowed constant",
			src:       "defs: {PI: 3}\nschema: {level: num}\ncontrols: {level: PI}\n",
			wantCode:  ErrShadowedConstant,
			wantField: "defs.PI",
		},
		{
			name: "shadowed prefix",
			src: `
schema: {xs: [num]}
controls:
  xs:
    - repeat: 2
      what:
        - repeat: 2
          what: [i_x_i]
`,
			wantCode:  ErrShadowedPrefix,
			wantField: "controls.xs.0.what.0",
		},
		{
			name:      "context cycle",
			src:       "context: |\n  a = b + 1\n  b = a * 2\nschema: {level: num}\ncontrols: {level: a}\n",
			wantCode:  ErrContextCycle,
			wantField: "context.a",
		},
		{
			name:      "forward context reference",
			src:       "context: |\n  a = b + 1\n  b = t\nschema: {level: num}\ncontrols: {level: a}\n",
			wantCode:  ErrForwardContext,
			wantField: "context.a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := compileYAML(t, tt.src)
			got := codes(Validate(doc, []string{"t"}))
			require.Contains(t, got, tt.wantCode, "%v", got)
			found := false
			for _, f := range got[tt.wantCode] {
				found = found || strings.HasPrefix(f, tt.wantField)
			}
			assert.True(t, found, "%s not under %s: %v", tt.wantCode, tt.wantField, got)
		})
	}
}

func TestValidate_KeyNamesAlwaysAccepted(t *testing.T) {
	doc := compileYAML(t, "schema: {on: bool}\ncontrols: {on: key_space}\n")
	assert.Empty(t, Validate(doc, []string{"t"}))
}

func TestValidate_RepeatIndexInScope(t *testing.T) {
	doc := compileYAML(t, `
schema: {xs: [num]}
controls:
  xs:
    - repeat: {x: 2, y: 2}
      prefix: a_
      what:
        - repeat: 2
          prefix: b_
          what: [a_x_i + b_x_i + a_y_total]
    - b_x_i
`)
	got := codes(Validate(doc, nil))
	assert.Equal(t, map[string][]string{ErrUnknownIdentifier: {"controls.xs.1"}}, got,
		"index bindings are only in scope inside their repeat")
}

func TestValidationErrors_Error(t *testing.T) {
	errs := ValidationErrors{
		{Field: "controls.level", Message: "boom", Code: ErrUnknownIdentifier},
		{Field: "defs.PI", Message: "bang", Code: ErrShadowedConstant},
	}
	assert.Equal(t, "[E202] controls.level: boom; [E204] defs.PI: bang", errs.Error())
}

func TestAnalyzeContext(t *testing.T) {
	t.Run("no context", func(t *testing.T) {
		doc := compileYAML(t, "schema: {level: num}\ncontrols: {level: 1}\n")
		assert.Empty(t, AnalyzeContext(doc))
	})

	t.Run("ordered", func(t *testing.T) {
		doc := compileYAML(t, "context: |\n  a = t\n  b = a * 2\n  c = a + b\nschema: {level: num}\ncontrols: {level: c}\n")
		assert.Empty(t, AnalyzeContext(doc))
	})

	t.Run("self reference", func(t *testing.T) {
		doc := compileYAML(t, "context: |\n  a = a + 1\nschema: {level: num}\ncontrols: {level: a}\n")
		errs := AnalyzeContext(doc)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrContextCycle, errs[0].Code)
	})

	t.Run("cycle is reported once", func(t *testing.T) {
		doc := compileYAML(t, "context: |\n  a = c\n  b = a\n  c = b\n  d = a\nschema: {level: num}\ncontrols: {level: d}\n")
		errs := AnalyzeContext(doc)
		require.Len(t, errs, 1)
		assert.Equal(t, ErrContextCycle, errs[0].Code)
		assert.Contains(t, errs[0].Message, "a")
		assert.Contains(t, errs[0].Message, "b")
		assert.Contains(t, errs[0].Message, "c")
	})
}
