// Package formula compiles user-editable formula source text into validated,
// side-effect-free evaluator functions. A compiled formula sees only its
// declared arguments plus the ops (complex arithmetic) and helpers (palette)
// surfaces; every return value is sanitized before it reaches the rest of
// the pipeline. Compiled evaluators are pure and safe for concurrent use.
package formula

import (
	"fmt"
	"sync"

	"github.com/fracstream/fracstream/cplx"
	"github.com/fracstream/fracstream/kernel"
	"github.com/fracstream/fracstream/palette"
)

// CompileError reports why a formula slot failed to compile: a parse
// failure, a failing smoke-test invocation, or a structurally wrong return
// value.
type CompileError struct {
	Slot   string
	Detail string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s formula: %s", e.Slot, e.Detail)
}

// EquationFunc advances the dynamical system one step. Implements
// kernel.Equation.
type EquationFunc func(z, c, exponent cplx.Complex) cplx.Complex

// InteriorFunc colors a pixel whose orbit never escaped.
type InteriorFunc func(orbit kernel.Orbit) palette.RGB

// Sample carries the escape measurements an exterior mapper sees.
type Sample struct {
	Iter          int
	MaxIterations int
	Shade         float64
	EscapeWeight  float64
}

// ExteriorFunc colors an escaped pixel.
type ExteriorFunc func(s Sample, orbit kernel.Orbit) palette.RGB

func orbitValue(o kernel.Orbit) value {
	return value{kind: namespaceValue, ns: map[string]value{
		"length":       numV(float64(o.Length)),
		"magnitudeSum": numV(o.MagnitudeSum),
		"angleSum":     numV(o.AngleSum),
		"maxMagnitude": numV(o.MaxMagnitude),
		"last":         complexV(o.Last),
	}}
}

func sampleValue(s Sample) value {
	return value{kind: namespaceValue, ns: map[string]value{
		"iter":          numV(float64(s.Iter)),
		"maxIterations": numV(float64(s.MaxIterations)),
		"shade":         numV(s.Shade),
		"escapeWeight":  numV(s.EscapeWeight),
	}}
}

// smokeOrbit is the canonical length-1 orbit used to validate mappers at
// compile time.
func smokeOrbit() kernel.Orbit {
	return kernel.Orbit{Length: 1, MagnitudeSum: 1, AngleSum: 0, MaxMagnitude: 1, Last: cplx.Complex{Re: 1}}
}

// CompileEquation compiles an iteration equation (z, c, exponent, ops) ->
// Complex. The compiled callable is invoked once with z=0, c=0, exponent=2
// and its return shape validated before it is handed out.
func CompileEquation(src string) (EquationFunc, error) {
	ast, err := parse(src)
	if err != nil {
		return nil, &CompileError{Slot: "equation", Detail: err.Error()}
	}
	raw := func(z, c, exponent cplx.Complex) (value, error) {
		e := baseEnv()
		e["z"] = complexV(z)
		e["c"] = complexV(c)
		e["exponent"] = complexV(exponent)
		return eval(ast, e)
	}

	v, err := raw(cplx.Complex{}, cplx.Complex{}, cplx.Complex{Re: 2})
	if err != nil {
		return nil, &CompileError{Slot: "equation", Detail: err.Error()}
	}
	if v.kind != complexValue {
		return nil, &CompileError{Slot: "equation",
			Detail: fmt.Sprintf("must return a complex value {re, im}, got %s", v.kind)}
	}

	return func(z, c, exponent cplx.Complex) cplx.Complex {
		v, err := raw(z, c, exponent)
		if err != nil || v.kind != complexValue {
			return cplx.Complex{}
		}
		return cplx.Sanitize(v.z)
	}, nil
}

// CompileInterior compiles an interior mapper (orbit, ops, helpers) -> RGB.
func CompileInterior(src string) (InteriorFunc, error) {
	ast, err := parse(src)
	if err != nil {
		return nil, &CompileError{Slot: "interior", Detail: err.Error()}
	}
	raw := func(o kernel.Orbit) (value, error) {
		e := baseEnv()
		e["orbit"] = orbitValue(o)
		e["helpers"] = helpersNamespace()
		return eval(ast, e)
	}

	v, err := raw(smokeOrbit())
	if err != nil {
		return nil, &CompileError{Slot: "interior", Detail: err.Error()}
	}
	if v.kind != colorValue {
		return nil, &CompileError{Slot: "interior",
			Detail: fmt.Sprintf("must return a color value {r, g, b}, got %s", v.kind)}
	}

	return func(o kernel.Orbit) palette.RGB {
		v, err := raw(o)
		if err != nil || v.kind != colorValue {
			return palette.RGB{}
		}
		return v.rgb
	}, nil
}

// CompileExterior compiles an exterior mapper (sample, orbit, ops, helpers)
// -> RGB.
func CompileExterior(src string) (ExteriorFunc, error) {
	ast, err := parse(src)
	if err != nil {
		return nil, &CompileError{Slot: "exterior", Detail: err.Error()}
	}
	raw := func(s Sample, o kernel.Orbit) (value, error) {
		e := baseEnv()
		e["sample"] = sampleValue(s)
		e["orbit"] = orbitValue(o)
		e["helpers"] = helpersNamespace()
		return eval(ast, e)
	}

	v, err := raw(Sample{Iter: 1, MaxIterations: 2, Shade: 0.5, EscapeWeight: 1}, smokeOrbit())
	if err != nil {
		return nil, &CompileError{Slot: "exterior", Detail: err.Error()}
	}
	if v.kind != colorValue {
		return nil, &CompileError{Slot: "exterior",
			Detail: fmt.Sprintf("must return a color value {r, g, b}, got %s", v.kind)}
	}

	return func(s Sample, o kernel.Orbit) palette.RGB {
		v, err := raw(s, o)
		if err != nil || v.kind != colorValue {
			return palette.RGB{}
		}
		return v.rgb
	}, nil
}

// Cache memoizes compiled evaluators keyed by their exact source text.
// Compile failures are cached too, so a broken slot does not recompile
// every frame.
type Cache struct {
	mu        sync.Mutex
	equations map[string]eqEntry
	interiors map[string]intEntry
	exteriors map[string]extEntry
}

type eqEntry struct {
	fn  EquationFunc
	err error
}

type intEntry struct {
	fn  InteriorFunc
	err error
}

type extEntry struct {
	fn  ExteriorFunc
	err error
}

func NewCache() *Cache {
	return &Cache{
		equations: make(map[string]eqEntry),
		interiors: make(map[string]intEntry),
		exteriors: make(map[string]extEntry),
	}
}

func (c *Cache) Equation(src string) (EquationFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.equations[src]; ok {
		return e.fn, e.err
	}
	fn, err := CompileEquation(src)
	c.equations[src] = eqEntry{fn: fn, err: err}
	return fn, err
}

func (c *Cache) Interior(src string) (InteriorFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.interiors[src]; ok {
		return e.fn, e.err
	}
	fn, err := CompileInterior(src)
	c.interiors[src] = intEntry{fn: fn, err: err}
	return fn, err
}

func (c *Cache) Exterior(src string) (ExteriorFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.exteriors[src]; ok {
		return e.fn, e.err
	}
	fn, err := CompileExterior(src)
	c.exteriors[src] = extEntry{fn: fn, err: err}
	return fn, err
}
