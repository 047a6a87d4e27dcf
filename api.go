// Package fracstream defines the wire-level API of the fractal compute
// engine: the render payload, the request/response stream protocol and the
// canonical built-in formula texts shared by the scalar and GPU paths.
package fracstream

import (
	"fmt"
	"image"
	"strings"

	"github.com/fracstream/fracstream/cplx"
)

// VariableKey names one of the three roles in the dynamical system
// z <- f(z, c, exponent).
type VariableKey string

const (
	VarZ        VariableKey = "z"
	VarC        VariableKey = "c"
	VarExponent VariableKey = "exponent"
)

// ManualValues holds the two variables not currently driven by the pixel
// plane. Missing keys default to zero.
type ManualValues map[VariableKey]cplx.Complex

// ColorScheme selects one of the built-in escape palettes.
type ColorScheme string

const (
	SchemeClassic ColorScheme = "classic"
	SchemeFire    ColorScheme = "fire"
	SchemeIce     ColorScheme = "ice"
)

// RenderMode selects the per-pixel iteration algorithm.
type RenderMode string

const (
	ModeEscape RenderMode = "escape"
	ModeSoft   RenderMode = "soft"
)

// Canonical built-in formula texts. These exact strings (up to whitespace)
// are what the accelerated backend recognizes; they double as editor
// defaults for the three formula slots.
const (
	DefaultEquation = "z^exponent + c"
	FeatherEquation = "z³/(1+|z|²) + c"

	DefaultInterior = "helpers.hsl(210 + 90*sin(orbit.angleSum/max(orbit.length,1)), " +
		"0.5 + 0.3*min(1, orbit.maxMagnitude/4), " +
		"0.25 + 0.5*min(1, orbit.magnitudeSum/max(orbit.length,1)/3))"
	DefaultExterior = "helpers.palette(sample.shade)"
)

// FormulaKind identifies an iteration equation the accelerated backend has a
// built-in reimplementation of.
type FormulaKind int

const (
	FormulaDefault FormulaKind = iota // z^exponent + c
	FormulaFeather                    // z³/(1+|z|²) + c
)

// NormalizeFormula strips all whitespace from a formula source so builtin
// recognition is textual equality, not semantic analysis.
func NormalizeFormula(src string) string {
	return strings.Join(strings.Fields(src), "")
}

// RecognizeFormula reports whether src is one of the canonical builtin
// iteration equations, after whitespace normalization.
func RecognizeFormula(src string) (FormulaKind, bool) {
	switch NormalizeFormula(src) {
	case NormalizeFormula(DefaultEquation):
		return FormulaDefault, true
	case NormalizeFormula(FeatherEquation):
		return FormulaFeather, true
	}
	return 0, false
}

// RenderPayload fully determines one frame. Payloads are immutable once
// submitted.
type RenderPayload struct {
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Center cplx.Complex `json:"center"`
	Scale  float64      `json:"scale"`

	MaxIterations int          `json:"maxIterations"`
	PlaneVariable VariableKey  `json:"planeVariable"`
	ManualValues  ManualValues `json:"manualValues"`

	ColorScheme   ColorScheme `json:"colorScheme"`
	RenderMode    RenderMode  `json:"renderMode"`
	SoftSharpness float64     `json:"softSharpness"`

	EquationSource string `json:"equationSource"`
	InteriorSource string `json:"interiorSource"`
	ExteriorSource string `json:"exteriorSource"`

	Rotation float64 `json:"rotation"`
	LowPass  float64 `json:"lowPass"`

	SpinInteriorColoring bool `json:"spinInteriorColoring"`
	SpinExteriorColoring bool `json:"spinExteriorColoring"`
}

// DefaultPayload returns a payload rendering the default z^exponent+c system
// over the classic Mandelbrot view.
func DefaultPayload(width, height int) RenderPayload {
	return RenderPayload{
		Width:         width,
		Height:        height,
		Center:        cplx.Complex{Re: -0.5, Im: 0},
		Scale:         3.0,
		MaxIterations: 120,
		PlaneVariable: VarC,
		ManualValues: ManualValues{
			VarZ:        {},
			VarExponent: {Re: 2},
		},
		ColorScheme:    SchemeClassic,
		RenderMode:     ModeEscape,
		SoftSharpness:  0.2,
		EquationSource: DefaultEquation,
		InteriorSource: DefaultInterior,
		ExteriorSource: DefaultExterior,
	}
}

// Validate checks the payload bounds from the data model. It returns a
// descriptive error for the first violated bound.
func (p RenderPayload) Validate() error {
	switch {
	case p.Width <= 0 || p.Height <= 0:
		return fmt.Errorf("payload: dimensions must be positive, got %dx%d", p.Width, p.Height)
	case p.Scale <= 0:
		return fmt.Errorf("payload: scale must be positive, got %g", p.Scale)
	case p.MaxIterations < 1 || p.MaxIterations > 1000:
		return fmt.Errorf("payload: maxIterations must be in [1,1000], got %d", p.MaxIterations)
	case p.PlaneVariable != VarZ && p.PlaneVariable != VarC && p.PlaneVariable != VarExponent:
		return fmt.Errorf("payload: unknown plane variable %q", p.PlaneVariable)
	case p.RenderMode != ModeEscape && p.RenderMode != ModeSoft:
		return fmt.Errorf("payload: unknown render mode %q", p.RenderMode)
	case p.RenderMode == ModeSoft && (p.SoftSharpness < 0.05 || p.SoftSharpness > 0.6):
		return fmt.Errorf("payload: softSharpness must be in [0.05,0.6], got %g", p.SoftSharpness)
	case p.LowPass < 0 || p.LowPass > 1:
		return fmt.Errorf("payload: lowPass must be in [0,1], got %g", p.LowPass)
	}
	return nil
}

// RenderRequest pairs a payload with its monotonically increasing id.
type RenderRequest struct {
	ID      int64         `json:"id"`
	Payload RenderPayload `json:"payload"`
}

// ResponseKind tags a RenderResponse variant.
type ResponseKind string

const (
	KindChunk  ResponseKind = "chunk"
	KindBitmap ResponseKind = "bitmap"
	KindDone   ResponseKind = "done"
	KindError  ResponseKind = "error"
)

// RenderResponse is one message of the response stream. For a given id, zero
// or more chunks precede exactly one terminal message (done, bitmap or
// error). Messages for superseded ids may still arrive after a newer id's
// messages and must be ignored by the consumer.
type RenderResponse struct {
	Kind ResponseKind `json:"kind"`
	ID   int64        `json:"id"`

	// Chunk fields. Pixels is RGBA8, Width*Rows*4 bytes, top row first.
	StartY int    `json:"startY,omitempty"`
	Rows   int    `json:"rows,omitempty"`
	Width  int    `json:"width,omitempty"`
	Pixels []byte `json:"pixels,omitempty"`

	ElapsedMs float64 `json:"elapsedMs,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// Chunk builds a band response.
func Chunk(id int64, startY, rows, width int, pixels []byte) RenderResponse {
	return RenderResponse{Kind: KindChunk, ID: id, StartY: startY, Rows: rows, Width: width, Pixels: pixels}
}

// Bitmap builds a full-frame response as produced by the accelerated
// backend. Pixels is RGBA8, width*height*4 bytes.
func Bitmap(id int64, width, height int, pixels []byte, elapsedMs float64) RenderResponse {
	return RenderResponse{Kind: KindBitmap, ID: id, Width: width, Rows: height, Pixels: pixels, ElapsedMs: elapsedMs}
}

// Done builds the terminal message of a fully streamed scalar render.
func Done(id int64, elapsedMs float64) RenderResponse {
	return RenderResponse{Kind: KindDone, ID: id, ElapsedMs: elapsedMs}
}

// Error builds a failure message.
func Error(id int64, message string) RenderResponse {
	return RenderResponse{Kind: KindError, ID: id, Message: message}
}

// Terminal reports whether the response ends its request's stream.
func (r RenderResponse) Terminal() bool {
	return r.Kind != KindChunk
}

// ApplyChunk draws a chunk or bitmap response into img. Out-of-bounds rows
// are clipped. Responses of other kinds are ignored.
func ApplyChunk(img *image.RGBA, r RenderResponse) {
	if r.Kind != KindChunk && r.Kind != KindBitmap {
		return
	}
	bounds := img.Bounds()
	for row := 0; row < r.Rows; row++ {
		y := r.StartY + row
		if y < bounds.Min.Y || y >= bounds.Max.Y {
			continue
		}
		src := r.Pixels[row*r.Width*4 : (row+1)*r.Width*4]
		dst := img.Pix[img.PixOffset(bounds.Min.X, y):]
		copy(dst[:len(src)], src)
	}
}
