package evalctx

import (
	"sort"
	"sync"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
)

// Context is an immutable evaluation namespace.
//
// The zero value is not usable; start from Root() or Build().
type Context struct {
	parent *Context
	layer  *Layer
	depth  int

	once sync.Once
	ectx *hcl.EvalContext
	err  error
}

var root = sync.OnceValue(func() *Context {
	c := &Context{}
	c.once.Do(func() {
		c.ectx = &hcl.EvalContext{
			Variables: constants(),
			Functions: builtins(),
		}
	})
	return c
})

// Root returns the process-wide context holding only the built-in table.
func Root() *Context {
	return root()
}

// Build creates the context for one frame: built-ins plus the frame signals.
// A signal with an unsupported value type is a construction-time error.
func Build(signals ...Binding) (*Context, error) {
	layer, err := NewBindings("", signals...)
	if err != nil {
		return nil, err
	}
	return Root().WithLayer(layer), nil
}

// WithLayer returns a new context with layer applied on top of c.
// c is not modified and its cached namespace stays valid.
func (c *Context) WithLayer(layer *Layer) *Context {
	if layer == nil {
		return c
	}
	return &Context{parent: c, layer: layer, depth: c.depth + 1}
}

// WithLayers applies layers in order.
func (c *Context) WithLayers(layers ...*Layer) *Context {
	out := c
	for _, l := range layers {
		out = out.WithLayer(l)
	}
	return out
}

// Depth returns the number of layers between c and Root().
func (c *Context) Depth() int {
	return c.depth
}

// compiled returns the cached namespace, computing it and any uncompiled
// ancestors first. The ancestor walk is iterative so deep layer stacks
// never recurse.
func (c *Context) compiled() (*hcl.EvalContext, error) {
	chain := make([]*Context, 0, c.depth+1)
	for n := c; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		n := chain[i]
		n.once.Do(n.compileOne)
		if n.err != nil {
			return nil, n.err
		}
	}
	return c.ectx, nil
}

// compileOne builds this node's child context. The parent's once has
// already completed when this runs.
func (c *Context) compileOne() {
	child := c.parent.ectx.NewChild()
	child.Variables = make(map[string]cty.Value)
	if err := c.layer.apply(child); err != nil {
		c.err = err
		return
	}
	c.ectx = child
}

// Err forces compilation and reports any layer failure (e.g. a context
// program referencing an unknown name).
func (c *Context) Err() error {
	_, err := c.compiled()
	return err
}

// Lookup returns the innermost value bound to name.
func (c *Context) Lookup(name string) (cty.Value, bool) {
	ectx, err := c.compiled()
	if err != nil {
		return cty.NilVal, false
	}
	return lookupVariable(ectx, name)
}

// LookupNumber returns the innermost numeric value bound to name.
func (c *Context) LookupNumber(name string) (float64, bool) {
	v, ok := c.Lookup(name)
	if !ok || v.Type() != cty.Number || v.IsNull() {
		return 0, false
	}
	f, _ := v.AsBigFloat().Float64()
	return f, true
}

// Names returns every variable name visible from c, sorted.
func (c *Context) Names() []string {
	ectx, err := c.compiled()
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{})
	for e := ectx; e != nil; e = e.Parent() {
		for name := range e.Variables {
			seen[name] = struct{}{}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Eval evaluates e and returns the raw cty value.
func (c *Context) Eval(e *Expr) (cty.Value, error) {
	ectx, err := c.compiled()
	if err != nil {
		return cty.NilVal, err
	}

	for _, name := range e.roots {
		if _, ok := lookupVariable(ectx, name); !ok {
			return cty.NilVal, NewUnknownIdentifierError(name, e.src)
		}
	}
	for _, name := range e.funcs {
		if !hasFunction(ectx, name) {
			return cty.NilVal, NewUnknownIdentifierError(name, e.src)
		}
	}

	v, diags := e.expr.Value(ectx)
	if diags.HasErrors() {
		return cty.NilVal, diagError(diags, e.src, false)
	}
	if v.IsNull() || !v.IsWhollyKnown() {
		return cty.NilVal, NewTypeMismatchError("expression produced no value", e.src)
	}
	return v, nil
}

// ResolveNumeric evaluates e and requires a number.
func (c *Context) ResolveNumeric(e *Expr) (float64, error) {
	v, err := c.Eval(e)
	if err != nil {
		return 0, err
	}
	if v.Type() != cty.Number {
		return 0, NewTypeMismatchError("expected number, got "+v.Type().FriendlyName(), e.src)
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

// ResolveBoolean evaluates e and requires a bool.
func (c *Context) ResolveBoolean(e *Expr) (bool, error) {
	v, err := c.Eval(e)
	if err != nil {
		return false, err
	}
	if v.Type() != cty.Bool {
		return false, NewTypeMismatchError("expected bool, got "+v.Type().FriendlyName(), e.src)
	}
	return v.True(), nil
}

func lookupVariable(ectx *hcl.EvalContext, name string) (cty.Value, bool) {
	for e := ectx; e != nil; e = e.Parent() {
		if v, ok := e.Variables[name]; ok {
			return v, true
		}
	}
	return cty.NilVal, false
}

func hasFunction(ectx *hcl.EvalContext, name string) bool {
	for e := ectx; e != nil; e = e.Parent() {
		if _, ok := e.Functions[name]; ok {
			return true
		}
	}
	return false
}

// Functions returns the names of the built-in functions, sorted.
func Functions() []string {
	table := builtins()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
