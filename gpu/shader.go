// Package gpu implements the accelerated render backend. A frame is produced
// by a single compute dispatch of the orbit shader and read back as an RGBA8
// bitmap; only the recognized builtin iteration equations are reimplemented
// in WGSL, everything else stays on the scalar path.
package gpu

import (
	_ "embed"
	"encoding/binary"
	"math"

	fracstream "github.com/fracstream/fracstream"
	"github.com/fracstream/fracstream/cplx"
)

//go:embed shaders/orbit.wgsl
var orbitShaderWGSL string

// orbitWGSize is the workgroup edge length. Matches @workgroup_size(16, 16)
// in the shader.
const orbitWGSize = 16

// shaderParams is the uniform block of the orbit shader. The field order and
// sizes must match the WGSL Params struct: 80 bytes, vec2<f32> members
// aligned to 8.
type shaderParams struct {
	Width   uint32
	Height  uint32
	MaxIter uint32
	Formula uint32

	Center  [2]float32
	ManualZ [2]float32
	ManualC [2]float32
	ManualE [2]float32

	Scale     float32
	Rotation  float32
	Sharpness float32

	Mode         uint32
	PlaneVar     uint32
	Scheme       uint32
	SpinExterior uint32
}

// paramsSize is the byte size of the uniform block including trailing pad.
const paramsSize = 80

func (s shaderParams) toBytes() []byte {
	buf := make([]byte, paramsSize)
	le := binary.LittleEndian
	f32 := func(off int, v float32) { le.PutUint32(buf[off:], math.Float32bits(v)) }

	le.PutUint32(buf[0:], s.Width)
	le.PutUint32(buf[4:], s.Height)
	le.PutUint32(buf[8:], s.MaxIter)
	le.PutUint32(buf[12:], s.Formula)
	f32(16, s.Center[0])
	f32(20, s.Center[1])
	f32(24, s.ManualZ[0])
	f32(28, s.ManualZ[1])
	f32(32, s.ManualC[0])
	f32(36, s.ManualC[1])
	f32(40, s.ManualE[0])
	f32(44, s.ManualE[1])
	f32(48, s.Scale)
	f32(52, s.Rotation)
	f32(56, s.Sharpness)
	le.PutUint32(buf[60:], s.Mode)
	le.PutUint32(buf[64:], s.PlaneVar)
	le.PutUint32(buf[68:], s.Scheme)
	le.PutUint32(buf[72:], s.SpinExterior)
	// buf[76:80] is padding.
	return buf
}

// paramsFor flattens a payload into the shader's uniform block. Manual
// values follow the same defaults as the scalar path: missing keys are zero.
func paramsFor(p fracstream.RenderPayload, kind fracstream.FormulaKind) shaderParams {
	vec := func(c cplx.Complex) [2]float32 {
		return [2]float32{float32(c.Re), float32(c.Im)}
	}

	s := shaderParams{
		Width:     uint32(p.Width),
		Height:    uint32(p.Height),
		MaxIter:   uint32(p.MaxIterations),
		Center:    vec(p.Center),
		ManualZ:   vec(p.ManualValues[fracstream.VarZ]),
		ManualC:   vec(p.ManualValues[fracstream.VarC]),
		ManualE:   vec(p.ManualValues[fracstream.VarExponent]),
		Scale:     float32(p.Scale),
		Rotation:  float32(p.Rotation),
		Sharpness: float32(p.SoftSharpness),
	}

	if kind == fracstream.FormulaFeather {
		s.Formula = 1
	}
	if p.RenderMode == fracstream.ModeSoft {
		s.Mode = 1
	}
	switch p.PlaneVariable {
	case fracstream.VarZ:
		s.PlaneVar = 0
	case fracstream.VarExponent:
		s.PlaneVar = 2
	default:
		s.PlaneVar = 1
	}
	switch p.ColorScheme {
	case fracstream.SchemeFire:
		s.Scheme = 1
	case fracstream.SchemeIce:
		s.Scheme = 2
	}
	if p.SpinExteriorColoring {
		s.SpinExterior = 1
	}
	return s
}

// workgroupCount is ceiling division by the workgroup edge length.
func workgroupCount(pixels uint32) uint32 {
	return (pixels + orbitWGSize - 1) / orbitWGSize
}
