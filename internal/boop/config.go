package boop

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type filterTag uint8

const (
	tagNoop filterTag = iota
	tagODE
)

// FilterKind selects how a field is smoothed. The zero value is Noop.
type FilterKind struct {
	tag     filterTag
	f, z, r float64
}

// Noop passes targets through unchanged.
var Noop = FilterKind{}

// ODE creates a second-order filter with natural frequency f (Hz), damping
// z (1 is critical) and initial response r (0 eases in, 1 tracks, >1 overshoots).
func ODE(f, z, r float64) FilterKind {
	return FilterKind{tag: tagODE, f: f, z: z, r: r}
}

// DefaultFilter is a critically damped one-hertz spring.
var DefaultFilter = ODE(1, 1, 0)

// IsNoop reports whether the filter passes targets through.
func (k FilterKind) IsNoop() bool {
	return k.tag == tagNoop
}

// Params returns f, z, r. All zero for Noop.
func (k FilterKind) Params() (f, z, r float64) {
	return k.f, k.z, k.r
}

func (k FilterKind) String() string {
	if k.IsNoop() {
		return "noop"
	}
	return fmt.Sprintf("ode(f=%g, z=%g, r=%g)", k.f, k.z, k.r)
}

// Config selects filters for a record.
type Config struct {
	// Reset bypasses filtering: every field returns its raw target.
	Reset bool
	// Default applies to paths without an override.
	Default FilterKind
	// Overrides maps NFC-normalized dotted paths to filters.
	Overrides map[string]FilterKind
}

// NewConfig creates a Config, normalizing override paths.
func NewConfig(reset bool, def FilterKind, overrides map[string]FilterKind) Config {
	c := Config{Reset: reset, Default: def}
	if len(overrides) > 0 {
		c.Overrides = make(map[string]FilterKind, len(overrides))
		for path, k := range overrides {
			c.Overrides[NormalizePath(path)] = k
		}
	}
	return c
}

// FilterFor returns the filter of the longest override that is a dotted
// prefix of path, or Default.
func (c Config) FilterFor(path string) FilterKind {
	if len(c.Overrides) == 0 {
		return c.Default
	}
	p := NormalizePath(path)
	for {
		if k, ok := c.Overrides[p]; ok {
			return k
		}
		i := strings.LastIndexByte(p, '.')
		if i < 0 {
			return c.Default
		}
		p = p[:i]
	}
}

// NormalizePath NFC-normalizes p and trims stray separators.
func NormalizePath(p string) string {
	return norm.NFC.String(strings.Trim(p, "."))
}

// Join builds a dotted path, skipping empty parts.
func Join(parts ...string) string {
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(p)
	}
	return b.String()
}

// Item returns the path of element i of the list at path.
func Item(path string, i int) string {
	return Join(path, strconv.Itoa(i))
}

// hasPathPrefix reports whether path equals prefix or lies beneath it.
func hasPathPrefix(path, prefix string) bool {
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '.'
}
