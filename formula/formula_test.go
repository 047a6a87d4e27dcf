package formula

import (
	"math"
	"strings"
	"testing"

	fracstream "github.com/fracstream/fracstream"
	"github.com/fracstream/fracstream/cplx"
	"github.com/fracstream/fracstream/kernel"
	"github.com/fracstream/fracstream/palette"
)

func TestCompileDefaultEquation(t *testing.T) {
	eq, err := CompileEquation(fracstream.DefaultEquation)
	if err != nil {
		t.Fatalf("compile %q: %v", fracstream.DefaultEquation, err)
	}
	// One Mandelbrot step from z=1+1i, c=0.5, exponent=2:
	// (1+1i)^2 + 0.5 = 0.5 + 2i
	got := eq(cplx.Complex{Re: 1, Im: 1}, cplx.Complex{Re: 0.5}, cplx.Complex{Re: 2})
	if math.Abs(got.Re-0.5) > 1e-12 || math.Abs(got.Im-2) > 1e-12 {
		t.Errorf("step = %v, want 0.5+2i", got)
	}
}

func TestCompileFeatherEquation(t *testing.T) {
	eq, err := CompileEquation(fracstream.FeatherEquation)
	if err != nil {
		t.Fatalf("compile %q: %v", fracstream.FeatherEquation, err)
	}
	// z³/(1+|z|²) + c at z=1, c=0: 1/(1+1) = 0.5
	got := eq(cplx.Complex{Re: 1}, cplx.Complex{}, cplx.Complex{Re: 2})
	if math.Abs(got.Re-0.5) > 1e-12 || math.Abs(got.Im) > 1e-12 {
		t.Errorf("feather step = %v, want 0.5", got)
	}
}

func TestCompileOpsCallStyle(t *testing.T) {
	eq, err := CompileEquation("return ops.add(ops.pow(z, exponent), c);")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := eq(cplx.Complex{Re: 1, Im: 1}, cplx.Complex{Re: 0.5}, cplx.Complex{Re: 2})
	if math.Abs(got.Re-0.5) > 1e-12 || math.Abs(got.Im-2) > 1e-12 {
		t.Errorf("step = %v, want 0.5+2i", got)
	}
}

func TestEquationShapeError(t *testing.T) {
	_, err := CompileEquation("return 42;")
	if err == nil {
		t.Fatal("compiling \"return 42;\" succeeded, want shape error")
	}
	var ce *CompileError
	if !asCompileError(err, &ce) {
		t.Fatalf("error type %T, want *CompileError", err)
	}
	if !strings.Contains(ce.Detail, "complex") {
		t.Errorf("error detail %q does not name the expected shape", ce.Detail)
	}
}

func asCompileError(err error, target **CompileError) bool {
	ce, ok := err.(*CompileError)
	if ok {
		*target = ce
	}
	return ok
}

func TestEquationParseError(t *testing.T) {
	if _, err := CompileEquation("z +* c"); err == nil {
		t.Error("compiling \"z +* c\" succeeded, want parse error")
	}
	if _, err := CompileEquation(""); err == nil {
		t.Error("compiling empty source succeeded, want error")
	}
	if _, err := CompileEquation("nonsense(z)"); err == nil {
		t.Error("calling an unknown identifier succeeded, want error")
	}
}

func TestEquationSanitizesNonFinite(t *testing.T) {
	// 0/0 is NaN; multiplying into z must come out as {0,0}, never NaN.
	eq, err := CompileEquation("(0/0) * z")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := eq(cplx.Complex{Re: 1}, cplx.Complex{}, cplx.Complex{Re: 2})
	if got != (cplx.Complex{}) {
		t.Errorf("NaN-producing formula returned %v, want {0,0}", got)
	}
}

func TestEquationSandboxRejectsMapperArguments(t *testing.T) {
	// The equation slot must not see orbit, sample or helpers.
	for _, src := range []string{"orbit.length * z", "sample.shade * z", "helpers.palette(1)"} {
		if _, err := CompileEquation(src); err == nil {
			t.Errorf("equation slot compiled %q, want unknown identifier error", src)
		}
	}
}

func TestCompileDefaultInterior(t *testing.T) {
	fn, err := CompileInterior(fracstream.DefaultInterior)
	if err != nil {
		t.Fatalf("compile default interior: %v", err)
	}
	o := kernel.Orbit{Length: 10, MagnitudeSum: 5, AngleSum: 2, MaxMagnitude: 1.5}
	got := fn(o)
	want := palette.Spin(o.Length, o.MagnitudeSum, o.AngleSum, o.MaxMagnitude)
	if got != want {
		t.Errorf("default interior = %+v, palette.Spin = %+v", got, want)
	}
}

func TestCompileDefaultExterior(t *testing.T) {
	fn, err := CompileExterior(fracstream.DefaultExterior)
	if err != nil {
		t.Fatalf("compile default exterior: %v", err)
	}
	got := fn(Sample{Iter: 30, MaxIterations: 120, Shade: 0.25, EscapeWeight: 1}, kernel.Orbit{})
	if got != palette.Classic(0.25) {
		t.Errorf("default exterior = %+v, want classic(0.25)", got)
	}
}

func TestInteriorShapeError(t *testing.T) {
	_, err := CompileInterior("orbit.length")
	if err == nil {
		t.Fatal("number-returning interior mapper compiled, want shape error")
	}
	if !strings.Contains(err.Error(), "color") {
		t.Errorf("error %q does not name the expected shape", err)
	}
}

func TestMapperRuntimeDegradesQuietly(t *testing.T) {
	// Compiles and passes the smoke test (length 1), but divides by an
	// orbit-dependent quantity that is NaN-prone for longer orbits. The
	// sanitized wrapper must still return a valid color.
	fn, err := CompileInterior("helpers.hsl(orbit.angleSum/orbit.length*(0/0+1), 0.5, 0.5)")
	if err == nil {
		// 0/0 already fails the smoke test; that is also acceptable
		// behavior per the shape contract. Nothing further to assert.
		c := fn(kernel.Orbit{Length: 3})
		for _, ch := range []int{c.R, c.G, c.B} {
			if ch < 0 || ch > 255 {
				t.Errorf("channel out of range: %+v", c)
			}
		}
	}
}

func TestCacheReusesCompiledEvaluators(t *testing.T) {
	cache := NewCache()
	a, err := cache.Equation(fracstream.DefaultEquation)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	b, err := cache.Equation(fracstream.DefaultEquation)
	if err != nil {
		t.Fatalf("recompile: %v", err)
	}
	// Functions are not comparable; check behavior and that the error path
	// caches too.
	z := cplx.Complex{Re: 0.3, Im: 0.1}
	if a(z, z, cplx.Complex{Re: 2}) != b(z, z, cplx.Complex{Re: 2}) {
		t.Error("cached evaluator disagrees with original")
	}

	if _, err := cache.Equation("return 42;"); err == nil {
		t.Fatal("want cached compile error")
	}
	if _, err := cache.Equation("return 42;"); err == nil {
		t.Fatal("want cached compile error on second lookup")
	}
}

func TestCompiledEquationConcurrentUse(t *testing.T) {
	eq, err := CompileEquation(fracstream.DefaultEquation)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	done := make(chan struct{})
	for g := 0; g < 8; g++ {
		go func(seed float64) {
			defer func() { done <- struct{}{} }()
			z := cplx.Complex{Re: seed * 0.01}
			for i := 0; i < 500; i++ {
				z = eq(z, cplx.Complex{Re: -0.4}, cplx.Complex{Re: 2})
			}
		}(float64(g))
	}
	for g := 0; g < 8; g++ {
		<-done
	}
}
