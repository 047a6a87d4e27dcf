package formula

import (
	"fmt"
	"math"

	"github.com/fracstream/fracstream/cplx"
	"github.com/fracstream/fracstream/palette"
)

type valueKind int

const (
	numberValue valueKind = iota
	complexValue
	colorValue
	namespaceValue
	funcValue
)

func (k valueKind) String() string {
	switch k {
	case numberValue:
		return "number"
	case complexValue:
		return "complex"
	case colorValue:
		return "color"
	case namespaceValue:
		return "namespace"
	case funcValue:
		return "function"
	default:
		return "unknown"
	}
}

// value is the tagged union the evaluator computes over.
type value struct {
	kind valueKind
	num  float64
	z    cplx.Complex
	rgb  palette.RGB
	ns   map[string]value
	fn   func(args []value) (value, error)
	name string
}

func numV(n float64) value          { return value{kind: numberValue, num: n} }
func complexV(z cplx.Complex) value { return value{kind: complexValue, z: z} }
func colorV(c palette.RGB) value    { return value{kind: colorValue, rgb: c} }

func funcV(name string, fn func(args []value) (value, error)) value {
	return value{kind: funcValue, name: name, fn: fn}
}

// asComplex promotes a number to a pure-real complex.
func asComplex(v value) (cplx.Complex, bool) {
	switch v.kind {
	case complexValue:
		return v.z, true
	case numberValue:
		return cplx.Complex{Re: v.num}, true
	}
	return cplx.Complex{}, false
}

// env is the entire ambient state a compiled formula can see.
type env map[string]value

func eval(n node, e env) (value, error) {
	switch n := n.(type) {
	case numberNode:
		return numV(n.v), nil
	case identNode:
		v, ok := e[n.name]
		if !ok {
			return value{}, fmt.Errorf("unknown identifier %q", n.name)
		}
		return v, nil
	case memberNode:
		obj, err := eval(n.obj, e)
		if err != nil {
			return value{}, err
		}
		if obj.kind != namespaceValue {
			return value{}, fmt.Errorf("cannot access member %q of a %s", n.name, obj.kind)
		}
		v, ok := obj.ns[n.name]
		if !ok {
			return value{}, fmt.Errorf("unknown member %q", n.name)
		}
		return v, nil
	case callNode:
		callee, err := eval(n.callee, e)
		if err != nil {
			return value{}, err
		}
		if callee.kind != funcValue {
			return value{}, fmt.Errorf("cannot call a %s", callee.kind)
		}
		args := make([]value, len(n.args))
		for i, a := range n.args {
			if args[i], err = eval(a, e); err != nil {
				return value{}, err
			}
		}
		v, err := callee.fn(args)
		if err != nil {
			return value{}, fmt.Errorf("%s: %w", callee.name, err)
		}
		return v, nil
	case negNode:
		x, err := eval(n.x, e)
		if err != nil {
			return value{}, err
		}
		switch x.kind {
		case numberValue:
			return numV(-x.num), nil
		case complexValue:
			return complexV(cplx.Scale(x.z, -1)), nil
		}
		return value{}, fmt.Errorf("cannot negate a %s", x.kind)
	case absNode:
		x, err := eval(n.x, e)
		if err != nil {
			return value{}, err
		}
		switch x.kind {
		case numberValue:
			return numV(math.Abs(x.num)), nil
		case complexValue:
			return numV(cplx.Magnitude(x.z)), nil
		}
		return value{}, fmt.Errorf("cannot take |x| of a %s", x.kind)
	case binaryNode:
		l, err := eval(n.l, e)
		if err != nil {
			return value{}, err
		}
		r, err := eval(n.r, e)
		if err != nil {
			return value{}, err
		}
		return applyBinary(n.op, l, r)
	default:
		return value{}, fmt.Errorf("internal: unknown node %T", n)
	}
}

func applyBinary(op rune, l, r value) (value, error) {
	if l.kind == numberValue && r.kind == numberValue {
		switch op {
		case '+':
			return numV(l.num + r.num), nil
		case '-':
			return numV(l.num - r.num), nil
		case '*':
			return numV(l.num * r.num), nil
		case '/':
			return numV(l.num / r.num), nil
		case '^':
			return numV(math.Pow(l.num, r.num)), nil
		}
	}
	lz, lok := asComplex(l)
	rz, rok := asComplex(r)
	if !lok || !rok {
		return value{}, fmt.Errorf("operator %q needs numeric operands, got %s and %s", op, l.kind, r.kind)
	}
	switch op {
	case '+':
		return complexV(cplx.Add(lz, rz)), nil
	case '-':
		return complexV(cplx.Sub(lz, rz)), nil
	case '*':
		return complexV(cplx.Mul(lz, rz)), nil
	case '/':
		return complexV(cplx.Div(lz, rz)), nil
	case '^':
		return complexV(cplx.Pow(lz, rz)), nil
	}
	return value{}, fmt.Errorf("internal: unknown operator %q", op)
}

// complexFn wraps a binary complex op as a builtin accepting promoted
// numbers.
func complexFn(name string, fn func(a, b cplx.Complex) cplx.Complex) value {
	return funcV(name, func(args []value) (value, error) {
		if len(args) != 2 {
			return value{}, fmt.Errorf("want 2 arguments, got %d", len(args))
		}
		a, aok := asComplex(args[0])
		b, bok := asComplex(args[1])
		if !aok || !bok {
			return value{}, fmt.Errorf("arguments must be complex or number")
		}
		return complexV(fn(a, b)), nil
	})
}

func complexUnaryFn(name string, fn func(cplx.Complex) cplx.Complex) value {
	return funcV(name, func(args []value) (value, error) {
		if len(args) != 1 {
			return value{}, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		a, ok := asComplex(args[0])
		if !ok {
			return value{}, fmt.Errorf("argument must be complex or number")
		}
		return complexV(fn(a)), nil
	})
}

// opsNamespace exposes the complex arithmetic library to formulas.
func opsNamespace() value {
	return value{kind: namespaceValue, ns: map[string]value{
		"add": complexFn("ops.add", cplx.Add),
		"sub": complexFn("ops.sub", cplx.Sub),
		"mul": complexFn("ops.mul", cplx.Mul),
		"div": complexFn("ops.div", cplx.Div),
		"pow": complexFn("ops.pow", cplx.Pow),
		"scale": funcV("ops.scale", func(args []value) (value, error) {
			if len(args) != 2 || args[1].kind != numberValue {
				return value{}, fmt.Errorf("want (complex, number)")
			}
			z, ok := asComplex(args[0])
			if !ok {
				return value{}, fmt.Errorf("want (complex, number)")
			}
			return complexV(cplx.Scale(z, args[1].num)), nil
		}),
		"magnitude": funcV("ops.magnitude", func(args []value) (value, error) {
			if len(args) != 1 {
				return value{}, fmt.Errorf("want 1 argument, got %d", len(args))
			}
			z, ok := asComplex(args[0])
			if !ok {
				return value{}, fmt.Errorf("argument must be complex or number")
			}
			return numV(cplx.Magnitude(z)), nil
		}),
		"sin": complexUnaryFn("ops.sin", cplx.Sin),
		"cos": complexUnaryFn("ops.cos", cplx.Cos),
		"exp": complexUnaryFn("ops.exp", cplx.Exp),
		"log": complexUnaryFn("ops.log", cplx.Log),
	}}
}

// helpersNamespace exposes the palette utilities to color mappers.
// helpers.palette uses the classic sweep; the engine substitutes the active
// scheme only for the default exterior path.
func helpersNamespace() value {
	paletteFn := func(name string, p func(float64) palette.RGB) value {
		return funcV(name, func(args []value) (value, error) {
			if len(args) != 1 || args[0].kind != numberValue {
				return value{}, fmt.Errorf("want 1 number argument")
			}
			return colorV(p(args[0].num)), nil
		})
	}
	return value{kind: namespaceValue, ns: map[string]value{
		"hsl": funcV("helpers.hsl", func(args []value) (value, error) {
			if len(args) != 3 {
				return value{}, fmt.Errorf("want (hue, saturation, lightness)")
			}
			nums := make([]float64, 3)
			for i, a := range args {
				if a.kind != numberValue {
					return value{}, fmt.Errorf("want (hue, saturation, lightness)")
				}
				nums[i] = a.num
			}
			return colorV(palette.HSLToRGB(nums[0], nums[1], nums[2])), nil
		}),
		"palette": paletteFn("helpers.palette", palette.Classic),
		"classic": paletteFn("helpers.classic", palette.Classic),
		"fire":    paletteFn("helpers.fire", palette.Fire),
		"ice":     paletteFn("helpers.ice", palette.Ice),
	}}
}

func scalarFn(name string, fn func(float64) float64, cfn func(cplx.Complex) cplx.Complex) value {
	return funcV(name, func(args []value) (value, error) {
		if len(args) != 1 {
			return value{}, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		switch args[0].kind {
		case numberValue:
			return numV(fn(args[0].num)), nil
		case complexValue:
			if cfn != nil {
				return complexV(cfn(args[0].z)), nil
			}
		}
		return value{}, fmt.Errorf("argument must be a number")
	})
}

func scalar2Fn(name string, fn func(a, b float64) float64) value {
	return funcV(name, func(args []value) (value, error) {
		if len(args) != 2 || args[0].kind != numberValue || args[1].kind != numberValue {
			return value{}, fmt.Errorf("want 2 number arguments")
		}
		return numV(fn(args[0].num, args[1].num)), nil
	})
}

// baseEnv holds the side-effect-free scalar functions every slot can see.
func baseEnv() env {
	return env{
		"sin":   scalarFn("sin", math.Sin, cplx.Sin),
		"cos":   scalarFn("cos", math.Cos, cplx.Cos),
		"exp":   scalarFn("exp", math.Exp, cplx.Exp),
		"log":   scalarFn("log", math.Log, cplx.Log),
		"sqrt":  scalarFn("sqrt", math.Sqrt, nil),
		"abs": funcV("abs", func(args []value) (value, error) {
			if len(args) != 1 {
				return value{}, fmt.Errorf("want 1 argument, got %d", len(args))
			}
			switch args[0].kind {
			case numberValue:
				return numV(math.Abs(args[0].num)), nil
			case complexValue:
				return numV(cplx.Magnitude(args[0].z)), nil
			}
			return value{}, fmt.Errorf("argument must be a number or complex")
		}),
		"floor": scalarFn("floor", math.Floor, nil),
		"min":   scalar2Fn("min", math.Min),
		"max":   scalar2Fn("max", math.Max),
		"atan2": scalar2Fn("atan2", math.Atan2),
		"ops":   opsNamespace(),
	}
}
