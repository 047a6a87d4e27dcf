package kernel

import (
	"math"
	"testing"

	fracstream "github.com/fracstream/fracstream"
	"github.com/fracstream/fracstream/cplx"
)

// mandelStep is z^exponent + c with the package arithmetic.
func mandelStep(z, c, exponent cplx.Complex) cplx.Complex {
	return cplx.Add(cplx.Pow(z, exponent), c)
}

func TestEscapeInteriorClassification(t *testing.T) {
	// c = -0.5 stays bounded near the origin.
	p := Params{Equation: mandelStep, MaxIterations: 120, Mode: ModeEscape}
	res := Iterate(p, cplx.Complex{}, cplx.Complex{Re: -0.5}, cplx.Complex{Re: 2})
	if res.Escaped {
		t.Fatalf("c=-0.5 classified Escaped at %d, want Interior", res.Iter)
	}
	if res.Iter != 120 {
		t.Errorf("interior Iter = %d, want maxIterations", res.Iter)
	}
	if res.Orbit.Length != 120 {
		t.Errorf("orbit length = %d, want 120", res.Orbit.Length)
	}
}

func TestEscapeImmediateEscape(t *testing.T) {
	// |c| = 2*sqrt(2): first iterate is already far outside radius 16 after
	// one or two steps.
	p := Params{Equation: mandelStep, MaxIterations: 120, Mode: ModeEscape}
	res := Iterate(p, cplx.Complex{}, cplx.Complex{Re: 2, Im: 2}, cplx.Complex{Re: 2})
	if !res.Escaped {
		t.Fatal("c=2+2i classified Interior, want Escaped")
	}
	if res.Iter > 1 {
		t.Errorf("escape iter = %d, want 0 or 1", res.Iter)
	}
}

func TestEscapeAtExactIteration(t *testing.T) {
	// Equation ignores its inputs and grows deterministically; magnitude
	// exceeds 16 on the fourth step (2,4,8,16,32 -> MagSq 1024 > 256 at
	// iter 4; 16² = 256 is not > 256 at iter 3).
	grow := func(z, c, e cplx.Complex) cplx.Complex {
		return cplx.Scale(z, 2)
	}
	p := Params{Equation: grow, MaxIterations: 50, Mode: ModeEscape}
	res := Iterate(p, cplx.Complex{Re: 1}, cplx.Complex{}, cplx.Complex{})
	if !res.Escaped || res.Iter != 4 {
		t.Fatalf("got escaped=%v iter=%d, want escape at iter 4", res.Escaped, res.Iter)
	}
}

func TestNonFiniteTreatedAsInterior(t *testing.T) {
	blowUp := func(z, c, e cplx.Complex) cplx.Complex {
		return cplx.Complex{Re: math.Inf(1), Im: 0}
	}
	p := Params{Equation: blowUp, MaxIterations: 10, Mode: ModeEscape}
	res := Iterate(p, cplx.Complex{}, cplx.Complex{}, cplx.Complex{})
	if res.Escaped {
		t.Fatal("non-finite orbit classified Escaped, want Interior")
	}
	if res.Iter != 10 {
		t.Errorf("Iter = %d, want forced maxIterations", res.Iter)
	}
}

func TestSoftSurvivalMonotonicallyNonIncreasing(t *testing.T) {
	// Track survival after each step by re-running with increasing budgets.
	c := cplx.Complex{Re: 0.4, Im: 0.3}
	prev := 1.0
	for max := 1; max <= 60; max++ {
		p := Params{Equation: mandelStep, MaxIterations: max, Mode: ModeSoft, SoftSharpness: 0.3}
		res := Iterate(p, cplx.Complex{}, c, cplx.Complex{Re: 2})
		if res.Survival > prev+1e-15 {
			t.Fatalf("survival increased: %g after %d iters, was %g", res.Survival, max, prev)
		}
		if res.Survival < 0 || res.Survival > 1 {
			t.Fatalf("survival out of [0,1]: %g", res.Survival)
		}
		prev = res.Survival
	}
}

func TestSoftBoundedOrbitKeepsFullSurvival(t *testing.T) {
	p := Params{Equation: mandelStep, MaxIterations: 80, Mode: ModeSoft, SoftSharpness: 0.3}
	res := Iterate(p, cplx.Complex{}, cplx.Complex{Re: -0.5}, cplx.Complex{Re: 2})
	if res.Survival != 1 {
		t.Errorf("bounded orbit survival = %g, want 1", res.Survival)
	}
	if res.Escaped {
		t.Error("bounded orbit reported overflow")
	}
	if res.Orbit.Length != 80 {
		t.Errorf("soft mode must run the full budget, length = %d", res.Orbit.Length)
	}
}

func TestAssign(t *testing.T) {
	plane := cplx.Complex{Re: 1, Im: 2}
	manual := fracstream.ManualValues{
		fracstream.VarZ:        {Re: 9},
		fracstream.VarC:        {Re: 8},
		fracstream.VarExponent: {Re: 7},
	}
	z, c, e := Assign(plane, fracstream.VarC, manual)
	if c != plane || z.Re != 9 || e.Re != 7 {
		t.Errorf("plane=c: got z=%v c=%v e=%v", z, c, e)
	}
	z, c, e = Assign(plane, fracstream.VarZ, manual)
	if z != plane || c.Re != 8 || e.Re != 7 {
		t.Errorf("plane=z: got z=%v c=%v e=%v", z, c, e)
	}
	z, c, e = Assign(plane, fracstream.VarExponent, manual)
	if e != plane || z.Re != 9 || c.Re != 8 {
		t.Errorf("plane=exponent: got z=%v c=%v e=%v", z, c, e)
	}
}

func TestViewportCenterAndScale(t *testing.T) {
	v := NewViewport(100, 50, cplx.Complex{Re: -0.5, Im: 0.25}, 4, 0)
	// Center pixel maps near the center coordinate (within half a pixel).
	got := v.PlaneAt(50, 25)
	if math.Abs(got.Re-(-0.5)) > 4.0/100 || math.Abs(got.Im-0.25) > 4.0/100 {
		t.Errorf("center pixel maps to %v", got)
	}
	// Horizontal span is Scale across the width.
	left := v.PlaneAt(0, 25)
	right := v.PlaneAt(99, 25)
	if span := right.Re - left.Re; math.Abs(span-4*99.0/100) > 1e-12 {
		t.Errorf("horizontal span = %g", span)
	}
}

func TestViewportRotation(t *testing.T) {
	v := NewViewport(101, 101, cplx.Complex{}, 2, math.Pi/2)
	// A pixel right of center rotates onto the positive imaginary axis.
	got := v.PlaneAt(100, 50)
	if math.Abs(got.Re) > 1e-9 || got.Im <= 0 {
		t.Errorf("rotated pixel maps to %v, want positive imaginary axis", got)
	}
}
