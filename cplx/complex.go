// Package cplx implements the two-component complex arithmetic shared by the
// scalar iteration kernel and the accelerated backend. The formulas here are
// kept in a fixed order of operations so the WGSL reimplementation agrees
// with this package within floating tolerance.
package cplx

import "math"

// denomFloor substitutes for a zero denominator in Div so division degrades
// to a large-but-finite result instead of raising.
const denomFloor = 1e-12

// Complex is a real pair. The zero value is 0+0i.
type Complex struct {
	Re float64 `json:"re"`
	Im float64 `json:"im"`
}

// IsFinite reports whether both components are finite.
func (z Complex) IsFinite() bool {
	return !math.IsNaN(z.Re) && !math.IsInf(z.Re, 0) &&
		!math.IsNaN(z.Im) && !math.IsInf(z.Im, 0)
}

// Sanitize replaces a non-finite value with zero.
func Sanitize(z Complex) Complex {
	if !z.IsFinite() {
		return Complex{}
	}
	return z
}

func Add(a, b Complex) Complex {
	return Complex{Re: a.Re + b.Re, Im: a.Im + b.Im}
}

func Sub(a, b Complex) Complex {
	return Complex{Re: a.Re - b.Re, Im: a.Im - b.Im}
}

func Mul(a, b Complex) Complex {
	return Complex{
		Re: a.Re*b.Re - a.Im*b.Im,
		Im: a.Re*b.Im + a.Im*b.Re,
	}
}

// Div never produces a non-finite result for finite inputs; a zero
// denominator is floored at 1e-12.
func Div(a, b Complex) Complex {
	d := b.Re*b.Re + b.Im*b.Im
	if d == 0 {
		d = denomFloor
	}
	return Complex{
		Re: (a.Re*b.Re + a.Im*b.Im) / d,
		Im: (a.Im*b.Re - a.Re*b.Im) / d,
	}
}

func Scale(z Complex, k float64) Complex {
	return Complex{Re: z.Re * k, Im: z.Im * k}
}

func Magnitude(z Complex) float64 {
	return math.Sqrt(z.Re*z.Re + z.Im*z.Im)
}

// MagSq is the squared magnitude, the escape tests' working quantity.
func MagSq(z Complex) float64 {
	return z.Re*z.Re + z.Im*z.Im
}

// Pow raises z to a complex exponent. Small integer exponents (|n| <= 32,
// imaginary part below 1e-9) take the exponentiation-by-squaring path;
// everything else goes through polar form.
func Pow(z, e Complex) Complex {
	if z.Re == 0 && z.Im == 0 {
		return Complex{}
	}
	if math.Abs(e.Im) < 1e-9 {
		n := math.Round(e.Re)
		if e.Re == n && math.Abs(n) <= 32 {
			return powInt(z, int(n))
		}
	}

	r := Magnitude(z)
	theta := math.Atan2(z.Im, z.Re)
	if e.Im == 0 {
		// real exponent: r^k * (cos k*theta, sin k*theta)
		m := math.Pow(r, e.Re)
		a := e.Re * theta
		return Complex{Re: m * math.Cos(a), Im: m * math.Sin(a)}
	}
	logR := math.Log(math.Max(r, 1e-12))
	m := math.Exp(e.Re*logR - e.Im*theta)
	a := e.Im*logR + e.Re*theta
	return Complex{Re: m * math.Cos(a), Im: m * math.Sin(a)}
}

func powInt(z Complex, n int) Complex {
	if n == 0 {
		return Complex{Re: 1}
	}
	neg := n < 0
	if neg {
		n = -n
	}
	acc := Complex{Re: 1}
	base := z
	for n > 0 {
		if n&1 == 1 {
			acc = Mul(acc, base)
		}
		base = Mul(base, base)
		n >>= 1
	}
	if neg {
		return Div(Complex{Re: 1}, acc)
	}
	return acc
}

func Sin(z Complex) Complex {
	return Complex{
		Re: math.Sin(z.Re) * math.Cosh(z.Im),
		Im: math.Cos(z.Re) * math.Sinh(z.Im),
	}
}

func Cos(z Complex) Complex {
	return Complex{
		Re: math.Cos(z.Re) * math.Cosh(z.Im),
		Im: -math.Sin(z.Re) * math.Sinh(z.Im),
	}
}

func Exp(z Complex) Complex {
	m := math.Exp(z.Re)
	return Complex{Re: m * math.Cos(z.Im), Im: m * math.Sin(z.Im)}
}

// Log floors the magnitude at 1e-12 so log near the origin stays finite.
func Log(z Complex) Complex {
	return Complex{
		Re: math.Log(math.Max(Magnitude(z), 1e-12)),
		Im: math.Atan2(z.Im, z.Re),
	}
}
