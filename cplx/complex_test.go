package cplx

import (
	"math"
	"testing"
)

const tol = 1e-9

func closeTo(a, b Complex, eps float64) bool {
	return math.Abs(a.Re-b.Re) <= eps && math.Abs(a.Im-b.Im) <= eps
}

// naivePow multiplies z by itself |n| times, inverting for negative n.
func naivePow(z Complex, n int) Complex {
	acc := Complex{Re: 1}
	k := n
	if k < 0 {
		k = -k
	}
	for i := 0; i < k; i++ {
		acc = Mul(acc, z)
	}
	if n < 0 {
		return Div(Complex{Re: 1}, acc)
	}
	return acc
}

func TestPowIntegerMatchesRepeatedMultiplication(t *testing.T) {
	bases := []Complex{
		{Re: 0.7, Im: -0.3},
		{Re: -1.1, Im: 0.4},
		{Re: 0.01, Im: 0.99},
		{Re: 1.5},
	}
	for _, z := range bases {
		for n := -32; n <= 32; n++ {
			got := Pow(z, Complex{Re: float64(n)})
			want := naivePow(z, n)
			eps := tol * math.Max(1, math.Max(math.Abs(want.Re), math.Abs(want.Im)))
			if !closeTo(got, want, eps) {
				t.Fatalf("Pow(%v, %d) = %v, want %v", z, n, got, want)
			}
		}
	}
}

func TestPowZeroBase(t *testing.T) {
	for _, e := range []Complex{{Re: 2}, {Re: -3}, {Re: 0.5, Im: 1.2}, {}} {
		if got := Pow(Complex{}, e); got != (Complex{}) {
			t.Errorf("Pow(0, %v) = %v, want 0", e, got)
		}
	}
}

func TestPowRealExponentPolar(t *testing.T) {
	z := Complex{Re: 3, Im: 4} // r=5
	got := Pow(z, Complex{Re: 0.5})
	// principal square root of 3+4i is 2+i
	if !closeTo(got, Complex{Re: 2, Im: 1}, 1e-9) {
		t.Errorf("Pow(3+4i, 0.5) = %v, want 2+1i", got)
	}
}

func TestPowComplexExponentFinite(t *testing.T) {
	got := Pow(Complex{Re: 0.3, Im: -0.8}, Complex{Re: 1.5, Im: 0.25})
	if !got.IsFinite() {
		t.Fatalf("complex exponent produced non-finite %v", got)
	}
}

func TestDivNeverNonFinite(t *testing.T) {
	values := []Complex{
		{}, {Re: 1}, {Im: -1}, {Re: 1e150, Im: -1e150}, {Re: -2.5, Im: 0.1},
	}
	for _, a := range values {
		for _, b := range values {
			got := Div(a, b)
			if math.IsNaN(got.Re) || math.IsNaN(got.Im) {
				t.Errorf("Div(%v, %v) produced NaN: %v", a, b, got)
			}
		}
	}
}

func TestDivZeroDenominatorStaysFinite(t *testing.T) {
	got := Div(Complex{Re: 1}, Complex{})
	if !got.IsFinite() {
		t.Errorf("Div(1, 0) = %v, want finite", got)
	}
	got = Div(Complex{Re: 1}, Complex{Re: 1e-13})
	if !got.IsFinite() {
		t.Errorf("Div(1, 1e-13) = %v, want finite", got)
	}
}

func TestDivInverse(t *testing.T) {
	a := Complex{Re: 2.5, Im: -1.25}
	b := Complex{Re: 0.5, Im: 3}
	if got := Div(Mul(a, b), b); !closeTo(got, a, tol) {
		t.Errorf("Div(Mul(a,b), b) = %v, want %v", got, a)
	}
}

func TestLogNearOrigin(t *testing.T) {
	got := Log(Complex{})
	if !got.IsFinite() {
		t.Fatalf("Log(0) = %v, want finite", got)
	}
	if got.Re != math.Log(1e-12) {
		t.Errorf("Log(0).Re = %v, want ln(1e-12)", got.Re)
	}
}

func TestExpLogRoundTrip(t *testing.T) {
	z := Complex{Re: 0.4, Im: -1.1}
	if got := Exp(Log(z)); !closeTo(got, z, 1e-9) {
		t.Errorf("Exp(Log(%v)) = %v", z, got)
	}
}

func TestSinCosIdentity(t *testing.T) {
	// sin^2 + cos^2 = 1 holds for complex arguments too.
	z := Complex{Re: 0.9, Im: 0.35}
	s, c := Sin(z), Cos(z)
	got := Add(Mul(s, s), Mul(c, c))
	if !closeTo(got, Complex{Re: 1}, 1e-9) {
		t.Errorf("sin²+cos² = %v, want 1", got)
	}
}

func TestSanitize(t *testing.T) {
	if got := Sanitize(Complex{Re: math.NaN(), Im: 1}); got != (Complex{}) {
		t.Errorf("Sanitize(NaN) = %v, want zero", got)
	}
	if got := Sanitize(Complex{Re: 1, Im: math.Inf(1)}); got != (Complex{}) {
		t.Errorf("Sanitize(Inf) = %v, want zero", got)
	}
	z := Complex{Re: 2, Im: -3}
	if got := Sanitize(z); got != z {
		t.Errorf("Sanitize(%v) = %v", z, got)
	}
}
