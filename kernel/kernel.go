// Package kernel implements the per-pixel escape-time and soft-escape
// iteration algorithm with orbit statistics.
package kernel

import (
	"math"

	fracstream "github.com/fracstream/fracstream"
	"github.com/fracstream/fracstream/cplx"
)

// escapeRadiusSq is the squared escape radius (radius 16).
const escapeRadiusSq = 256

// Equation advances the dynamical system by one step.
type Equation func(z, c, exponent cplx.Complex) cplx.Complex

// Mode selects the iteration algorithm.
type Mode int

const (
	ModeEscape Mode = iota
	ModeSoft
)

// Orbit accumulates statistics across one pixel's iteration history. It is
// consumed read-only by the color mappers.
type Orbit struct {
	Length       int
	MagnitudeSum float64
	AngleSum     float64
	MaxMagnitude float64
	Last         cplx.Complex
}

func (o *Orbit) observe(z cplx.Complex, weight float64) {
	mag := cplx.Magnitude(z) * weight
	o.Length++
	o.MagnitudeSum += mag
	o.AngleSum += math.Atan2(z.Im, z.Re) * weight
	if mag > o.MaxMagnitude {
		o.MaxMagnitude = mag
	}
	o.Last = z
}

// Params configures one pixel's iteration.
type Params struct {
	Equation      Equation
	MaxIterations int
	Mode          Mode
	SoftSharpness float64
}

// Result is the kernel output for one pixel. Iter is the escape iteration in
// escape mode (MaxIterations for interior pixels) and the first-overflow
// iteration in soft mode. Survival is 1 for orbits that never overflowed.
type Result struct {
	Iter     int
	Escaped  bool
	Survival float64
	Orbit    Orbit
}

// Iterate runs the per-pixel state machine from the given starting
// variables.
func Iterate(p Params, z, c, exponent cplx.Complex) Result {
	if p.Mode == ModeSoft {
		return iterateSoft(p, z, c, exponent)
	}
	return iterateEscape(p, z, c, exponent)
}

func iterateEscape(p Params, z, c, exponent cplx.Complex) Result {
	var orbit Orbit
	for iter := 0; iter < p.MaxIterations; iter++ {
		z = p.Equation(z, c, exponent)
		orbit.observe(z, 1)
		if !z.IsFinite() {
			// Divergence-to-infinity artifacts color as interior, never as
			// an escape.
			return Result{Iter: p.MaxIterations, Survival: 1, Orbit: orbit}
		}
		if cplx.MagSq(z) > escapeRadiusSq {
			return Result{Iter: iter, Escaped: true, Survival: 1, Orbit: orbit}
		}
	}
	return Result{Iter: p.MaxIterations, Survival: 1, Orbit: orbit}
}

func iterateSoft(p Params, z, c, exponent cplx.Complex) Result {
	var orbit Orbit
	survival := 1.0
	firstOverflow := p.MaxIterations
	for iter := 0; iter < p.MaxIterations; iter++ {
		z = p.Equation(z, c, exponent)
		if o := cplx.MagSq(z) - escapeRadiusSq; o > 0 {
			survival *= sigmoid(-p.SoftSharpness * o)
			if firstOverflow == p.MaxIterations {
				firstOverflow = iter
			}
		}
		orbit.observe(z, survival)
	}
	return Result{
		Iter:     firstOverflow,
		Escaped:  firstOverflow < p.MaxIterations,
		Survival: survival,
		Orbit:    orbit,
	}
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// Assign distributes the plane coordinate and manual values onto the three
// iteration variables according to the plane-driven slot.
func Assign(plane cplx.Complex, planeVar fracstream.VariableKey, manual fracstream.ManualValues) (z, c, exponent cplx.Complex) {
	z = manual[fracstream.VarZ]
	c = manual[fracstream.VarC]
	exponent = manual[fracstream.VarExponent]
	switch planeVar {
	case fracstream.VarZ:
		z = plane
	case fracstream.VarExponent:
		exponent = plane
	default:
		c = plane
	}
	return z, c, exponent
}

// Viewport maps pixel coordinates to plane coordinates by scaling the offset
// from image center by Scale/Width, rotating, and translating to Center.
type Viewport struct {
	Width, Height int
	Center        cplx.Complex
	Scale         float64
	Rotation      float64

	sin, cos float64
	unit     float64
}

// NewViewport precomputes the rotation for per-pixel mapping.
func NewViewport(width, height int, center cplx.Complex, scale, rotation float64) Viewport {
	return Viewport{
		Width:    width,
		Height:   height,
		Center:   center,
		Scale:    scale,
		Rotation: rotation,
		sin:      math.Sin(rotation),
		cos:      math.Cos(rotation),
		unit:     scale / float64(width),
	}
}

// PlaneAt returns the plane coordinate of the pixel center.
func (v Viewport) PlaneAt(px, py int) cplx.Complex {
	dx := (float64(px) + 0.5 - float64(v.Width)/2) * v.unit
	dy := (float64(py) + 0.5 - float64(v.Height)/2) * v.unit
	return cplx.Complex{
		Re: v.Center.Re + dx*v.cos - dy*v.sin,
		Im: v.Center.Im + dx*v.sin + dy*v.cos,
	}
}
