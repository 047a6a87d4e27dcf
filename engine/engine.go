// Package engine orchestrates full-frame renders: it validates the payload,
// compiles the formula slots, partitions the image into bands, streams
// chunk responses and applies the request-supersession rule. When a request
// is eligible it is dispatched to the accelerated backend instead, with a
// transparent fallback to the scalar path.
package engine

import (
	"errors"
	"image"
	"log"
	"strings"
	"sync/atomic"
	"time"

	fracstream "github.com/fracstream/fracstream"
	"github.com/fracstream/fracstream/formula"
	"github.com/fracstream/fracstream/kernel"
	"github.com/fracstream/fracstream/palette"
)

// targetBands is the rough number of horizontal bands per frame. Bands are
// at least two rows tall.
const targetBands = 180

// gpuIterationCap is the accelerated backend's hard iteration bound. The
// payload already caps at 1000; this bound is kept separately so the backend
// contract holds even if the payload ceiling is ever raised.
const gpuIterationCap = 4096

// Accelerator renders a whole frame in one dispatch for a recognized
// builtin formula. Implementations return RGBA8 pixels, width*height*4.
type Accelerator interface {
	Render(p fracstream.RenderPayload, kind fracstream.FormulaKind) ([]byte, error)
}

// Engine renders frames. One engine serves one view; at most one render is
// conceptually active and newer requests supersede older ones.
type Engine struct {
	latest atomic.Int64
	cache  *formula.Cache
	accel  Accelerator

	// Progress, when set, is called after each streamed band.
	Progress func(id int64, doneRows, totalRows int)
}

// Option configures an Engine.
type Option func(*Engine)

// WithAccelerator installs an accelerated backend. A nil accelerator leaves
// the scalar path as the only one.
func WithAccelerator(a Accelerator) Option {
	return func(e *Engine) { e.accel = a }
}

func New(opts ...Option) *Engine {
	e := &Engine{cache: formula.NewCache()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit starts rendering the request off the caller's goroutine and
// returns the response stream. The channel is unbuffered, closes after the
// terminal message, and stops early (without a terminal) when a newer
// request id supersedes this one.
func (e *Engine) Submit(req fracstream.RenderRequest) <-chan fracstream.RenderResponse {
	for {
		cur := e.latest.Load()
		if req.ID <= cur || e.latest.CompareAndSwap(cur, req.ID) {
			break
		}
	}
	out := make(chan fracstream.RenderResponse)
	go func() {
		defer close(out)
		e.render(req, out)
	}()
	return out
}

// superseded reports whether a newer request id has been submitted.
func (e *Engine) superseded(id int64) bool {
	return e.latest.Load() != id
}

// shader holds everything needed to color one pixel of one frame.
type shader struct {
	payload  fracstream.RenderPayload
	vp       kernel.Viewport
	params   kernel.Params
	interior formula.InteriorFunc // nil: stats-driven default
	exterior formula.ExteriorFunc // nil: palette default
	pal      func(float64) palette.RGB
	mode     kernel.Mode
}

// prepare compiles the three formula slots. Broken slots fall back to the
// built-in defaults so a render is never blocked; their compile messages
// are returned for the caller to surface.
func (e *Engine) prepare(p fracstream.RenderPayload) (*shader, []string) {
	var compileErrs []string

	eq, err := e.cache.Equation(p.EquationSource)
	if err != nil {
		compileErrs = append(compileErrs, err.Error())
		eq, _ = e.cache.Equation(fracstream.DefaultEquation)
	}

	var interior formula.InteriorFunc
	if fracstream.NormalizeFormula(p.InteriorSource) != fracstream.NormalizeFormula(fracstream.DefaultInterior) {
		interior, err = e.cache.Interior(p.InteriorSource)
		if err != nil {
			compileErrs = append(compileErrs, err.Error())
			interior = nil
		}
	}

	var exterior formula.ExteriorFunc
	if fracstream.NormalizeFormula(p.ExteriorSource) != fracstream.NormalizeFormula(fracstream.DefaultExterior) {
		exterior, err = e.cache.Exterior(p.ExteriorSource)
		if err != nil {
			compileErrs = append(compileErrs, err.Error())
			exterior = nil
		}
	}

	mode := kernel.ModeEscape
	if p.RenderMode == fracstream.ModeSoft {
		mode = kernel.ModeSoft
	}
	return &shader{
		payload: p,
		vp:      kernel.NewViewport(p.Width, p.Height, p.Center, p.Scale, p.Rotation),
		params: kernel.Params{
			Equation:      kernel.Equation(eq),
			MaxIterations: p.MaxIterations,
			Mode:          mode,
			SoftSharpness: p.SoftSharpness,
		},
		interior: interior,
		exterior: exterior,
		pal:      palette.ByName(string(p.ColorScheme)),
		mode:     mode,
	}, compileErrs
}

func (s *shader) interiorColor(o kernel.Orbit) palette.RGB {
	if s.interior != nil && !s.payload.SpinInteriorColoring {
		return s.interior(o)
	}
	return palette.Spin(o.Length, o.MagnitudeSum, o.AngleSum, o.MaxMagnitude)
}

func (s *shader) exteriorColor(res kernel.Result, weight float64) palette.RGB {
	if s.payload.SpinExteriorColoring {
		o := res.Orbit
		return palette.Spin(o.Length, o.MagnitudeSum, o.AngleSum, o.MaxMagnitude)
	}
	shade := float64(res.Iter) / float64(s.params.MaxIterations)
	if s.exterior != nil {
		return s.exterior(formula.Sample{
			Iter:          res.Iter,
			MaxIterations: s.params.MaxIterations,
			Shade:         shade,
			EscapeWeight:  weight,
		}, res.Orbit)
	}
	return s.pal(shade)
}

// pixel computes one pixel's color.
func (s *shader) pixel(px, py int) palette.RGB {
	plane := s.vp.PlaneAt(px, py)
	z, c, exponent := kernel.Assign(plane, s.payload.PlaneVariable, s.payload.ManualValues)
	res := kernel.Iterate(s.params, z, c, exponent)

	if s.mode == kernel.ModeSoft {
		w := 1 - res.Survival
		return palette.Blend(s.interiorColor(res.Orbit), s.exteriorColor(res, w), w)
	}
	if !res.Escaped {
		return s.interiorColor(res.Orbit)
	}
	return s.exteriorColor(res, 1)
}

// fillBand renders rows [y0, y0+rows) into an RGBA8 buffer.
func (s *shader) fillBand(y0, rows int, buf []byte) {
	w := s.payload.Width
	for row := 0; row < rows; row++ {
		for px := 0; px < w; px++ {
			c := s.pixel(px, y0+row)
			i := (row*w + px) * 4
			buf[i] = byte(c.R)
			buf[i+1] = byte(c.G)
			buf[i+2] = byte(c.B)
			buf[i+3] = 255
		}
	}
}

// bandHeight chooses the streaming band height for an image height.
func bandHeight(height int) int {
	h := height / targetBands
	if h < 2 {
		h = 2
	}
	return h
}

var errSuperseded = errors.New("superseded by a newer request")

// render drives one request to its terminal message (or early abort).
func (e *Engine) render(req fracstream.RenderRequest, out chan<- fracstream.RenderResponse) {
	p := req.Payload
	if err := p.Validate(); err != nil {
		out <- fracstream.Error(req.ID, err.Error())
		return
	}
	start := time.Now()

	sh, compileErrs := e.prepare(p)

	if len(compileErrs) == 0 && e.accel != nil {
		if kind, ok := e.eligible(p); ok {
			pixels, err := e.accel.Render(p, kind)
			if err == nil {
				if p.LowPass > 0 {
					lowPass(pixels, p.Width, p.Height, p.LowPass)
				}
				out <- fracstream.Bitmap(req.ID, p.Width, p.Height, pixels, elapsedMs(start))
				return
			}
			// Backend failures are retried transparently on the scalar
			// path.
			log.Printf("accelerated backend failed, falling back to scalar: %v", err)
		}
	}

	if err := e.streamBands(req.ID, sh, out); err != nil {
		return // superseded: no terminal message for this id
	}

	if len(compileErrs) > 0 {
		out <- fracstream.Error(req.ID, strings.Join(compileErrs, "; "))
		return
	}
	out <- fracstream.Done(req.ID, elapsedMs(start))
}

// streamBands runs the scalar path, emitting one chunk per band and
// checking for supersession between bands.
func (e *Engine) streamBands(id int64, sh *shader, out chan<- fracstream.RenderResponse) error {
	p := sh.payload
	bandH := bandHeight(p.Height)
	for y0 := 0; y0 < p.Height; y0 += bandH {
		rows := bandH
		if y0+rows > p.Height {
			rows = p.Height - y0
		}
		buf := make([]byte, p.Width*rows*4)
		sh.fillBand(y0, rows, buf)
		if p.LowPass > 0 {
			lowPass(buf, p.Width, rows, p.LowPass)
		}
		out <- fracstream.Chunk(id, y0, rows, p.Width, buf)
		if e.Progress != nil {
			e.Progress(id, y0+rows, p.Height)
		}
		if e.superseded(id) {
			return errSuperseded
		}
	}
	return nil
}

// eligible reports whether the accelerated backend may serve the payload:
// the iteration equation must be a recognized builtin, both mappers must be
// the defaults, and the iteration budget must be inside the backend cap.
func (e *Engine) eligible(p fracstream.RenderPayload) (fracstream.FormulaKind, bool) {
	kind, ok := fracstream.RecognizeFormula(p.EquationSource)
	if !ok {
		return 0, false
	}
	if fracstream.NormalizeFormula(p.InteriorSource) != fracstream.NormalizeFormula(fracstream.DefaultInterior) {
		return 0, false
	}
	if fracstream.NormalizeFormula(p.ExteriorSource) != fracstream.NormalizeFormula(fracstream.DefaultExterior) {
		return 0, false
	}
	if p.MaxIterations > gpuIterationCap {
		return 0, false
	}
	return kind, true
}

// RenderImage renders one frame synchronously on the scalar path. It is the
// offline entry point and the building block of tests; it ignores
// supersession.
func (e *Engine) RenderImage(p fracstream.RenderPayload) (*image.RGBA, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	sh, compileErrs := e.prepare(p)
	if len(compileErrs) > 0 {
		return nil, errors.New(strings.Join(compileErrs, "; "))
	}
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	sh.fillBand(0, p.Height, img.Pix)
	if p.LowPass > 0 {
		lowPass(img.Pix, p.Width, p.Height, p.LowPass)
	}
	return img, nil
}

func elapsedMs(start time.Time) float64 {
	return float64(time.Since(start)) / float64(time.Millisecond)
}
