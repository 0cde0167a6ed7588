package signals

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/livecode/internal/evalctx"
)

// Snapshot is the external input observed for one frame.
type Snapshot struct {
	Frame int64

	MouseX, MouseY float64
	MouseDown      bool

	// Keys maps key names to their pressed state.
	Keys map[string]bool

	// Audio holds band energies, lowest band first.
	Audio []float64

	// Values holds named numbers that override or extend a Values source.
	Values map[string]float64
}

// Source is a producer of named frame signals.
type Source interface {
	Update(snap Snapshot)
	Export() []evalctx.Binding
}

// Time derives musical and frame time from the frame index.
type Time struct {
	FPS         float64
	BPM         float64
	BeatsPerBar float64

	frame int64
}

// NewTime creates a Time source. Non-positive arguments fall back to
// 60 fps, 120 bpm and 4 beats per bar.
func NewTime(fps, bpm, beatsPerBar float64) *Time {
	if fps <= 0 {
		fps = 60
	}
	if bpm <= 0 {
		bpm = 120
	}
	if beatsPerBar <= 0 {
		beatsPerBar = 4
	}
	return &Time{FPS: fps, BPM: bpm, BeatsPerBar: beatsPerBar}
}

// Update implements Source.
func (s *Time) Update(snap Snapshot) {
	s.frame = snap.Frame
}

// Seconds returns the elapsed time of the current frame.
func (s *Time) Seconds() float64 {
	return float64(s.frame) / s.FPS
}

// Beats returns the beat position of the current frame.
func (s *Time) Beats() float64 {
	return s.Seconds() * s.BPM / 60
}

// Export implements Source.
func (s *Time) Export() []evalctx.Binding {
	t := s.Beats()
	bar := t / s.BeatsPerBar
	return []evalctx.Binding{
		evalctx.Num("t", t),
		evalctx.Num("ti", math.Floor(t)),
		evalctx.Num("f", float64(s.frame)),
		evalctx.Num("fi", float64(s.frame)),
		evalctx.Num("secs", s.Seconds()),
		evalctx.Num("bar", bar),
		evalctx.Num("bar_i", math.Floor(bar)),
		evalctx.Num("beat", evalctx.Fract(bar)),
	}
}

// Pointer exports the pointer position and button state.
type Pointer struct {
	x, y float64
	down bool
}

// Update implements Source.
func (s *Pointer) Update(snap Snapshot) {
	s.x, s.y, s.down = snap.MouseX, snap.MouseY, snap.MouseDown
}

// Export implements Source.
func (s *Pointer) Export() []evalctx.Binding {
	return []evalctx.Binding{
		evalctx.Num("mx", s.x),
		evalctx.Num("my", s.y),
		evalctx.Flag("mdown", s.down),
	}
}

// Keys exports key_<name> flags. Keys stay exported (as false) after release
// so expressions that reference them keep resolving.
type Keys struct {
	state map[string]bool
}

// NewKeys creates a Keys source that always exports the given names.
func NewKeys(watch ...string) *Keys {
	k := &Keys{state: make(map[string]bool)}
	for _, name := range watch {
		k.state[KeyName(name)] = false
	}
	return k
}

// Update implements Source.
func (s *Keys) Update(snap Snapshot) {
	if s.state == nil {
		s.state = make(map[string]bool)
	}
	for name := range s.state {
		s.state[name] = false
	}
	for name, down := range snap.Keys {
		s.state[KeyName(name)] = down
	}
}

// Export implements Source.
func (s *Keys) Export() []evalctx.Binding {
	names := make([]string, 0, len(s.state))
	for name := range s.state {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]evalctx.Binding, len(names))
	for i, name := range names {
		out[i] = evalctx.Flag(name, s.state[name])
	}
	return out
}

// KeyName maps a key label to its binding name: key_ followed by the
// lower-cased label with anything that isn't a letter or digit replaced by _.
func KeyName(label string) string {
	label = norm.NFC.String(strings.ToLower(label))
	var b strings.Builder
	b.WriteString("key_")
	for _, r := range label {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Audio exports a fixed number of band energies.
type Audio struct {
	bands []float64
}

// NewAudio creates an Audio source with n bands.
func NewAudio(n int) *Audio {
	return &Audio{bands: make([]float64, max(n, 0))}
}

// Update implements Source. Missing bands read as 0; extra bands are ignored.
func (s *Audio) Update(snap Snapshot) {
	for i := range s.bands {
		if i < len(snap.Audio) {
			s.bands[i] = snap.Audio[i]
		} else {
			s.bands[i] = 0
		}
	}
}

// Export implements Source.
func (s *Audio) Export() []evalctx.Binding {
	out := make([]evalctx.Binding, len(s.bands))
	for i, v := range s.bands {
		out[i] = evalctx.Num("a"+strconv.Itoa(i), v)
	}
	return out
}

// Values exports named numbers. Snapshot values override the defaults for
// that frame only.
type Values struct {
	defaults map[string]float64
	current  map[string]float64
}

// NewValues creates a Values source.
func NewValues(defaults map[string]float64) *Values {
	v := &Values{defaults: make(map[string]float64, len(defaults))}
	for name, f := range defaults {
		v.defaults[name] = f
	}
	v.current = v.defaults
	return v
}

// ParseAssignment parses "name=value" as used by the --signal flag.
func ParseAssignment(s string) (string, float64, error) {
	name, raw, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return "", 0, fmt.Errorf("signal %q: expected name=value", s)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return "", 0, fmt.Errorf("signal %q: %w", s, err)
	}
	return name, f, nil
}

// Update implements Source.
func (s *Values) Update(snap Snapshot) {
	if len(snap.Values) == 0 {
		s.current = s.defaults
		return
	}
	merged := make(map[string]float64, len(s.defaults)+len(snap.Values))
	for name, f := range s.defaults {
		merged[name] = f
	}
	for name, f := range snap.Values {
		merged[name] = f
	}
	s.current = merged
}

// Export implements Source.
func (s *Values) Export() []evalctx.Binding {
	names := make([]string, 0, len(s.current))
	for name := range s.current {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]evalctx.Binding, len(names))
	for i, name := range names {
		out[i] = evalctx.Num(name, s.current[name])
	}
	return out
}

// Set is an ordered collection of sources.
type Set struct {
	sources []Source
}

// NewSet creates a Set.
func NewSet(sources ...Source) *Set {
	return &Set{sources: sources}
}

// Add appends a source.
func (s *Set) Add(src Source) {
	s.sources = append(s.sources, src)
}

// Update feeds snap to every source.
func (s *Set) Update(snap Snapshot) {
	for _, src := range s.sources {
		src.Update(snap)
	}
}

// Bindings returns every source's exports, deduplicated with later sources winning.
func (s *Set) Bindings() []evalctx.Binding {
	pos := make(map[string]int)
	var out []evalctx.Binding
	for _, src := range s.sources {
		for _, b := range src.Export() {
			if i, ok := pos[b.Name]; ok {
				out[i] = b
				continue
			}
			pos[b.Name] = len(out)
			out = append(out, b)
		}
	}
	return out
}

// Context builds the frame's evaluation context from the current exports.
func (s *Set) Context() (*evalctx.Context, error) {
	return evalctx.Build(s.Bindings()...)
}
