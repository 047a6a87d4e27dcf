package fracstream

import "github.com/fracstream/fracstream/cplx"

// Preset is a named viewport into the default z^exponent+c system.
type Preset struct {
	Center cplx.Complex
	Scale  float64
}

// Classic landmarks in the Mandelbrot set, usable as payload center/scale.
var Presets = map[string]Preset{
	// Full set overview
	"overview": {Center: cplx.Complex{Re: -0.5}, Scale: 3.0},

	// Seahorse Valley – dense filaments and repeating "seahorse" curls
	"seahorse": {Center: cplx.Complex{Re: -0.75, Im: 0.1}, Scale: 0.1},

	// Elephant Valley – large bulb with trunk-like tendrils
	"elephant": {Center: cplx.Complex{Re: -1.8, Im: -0.06}, Scale: 0.1},

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	"minibrot": {Center: cplx.Complex{Re: -0.74275, Im: 0.13175}, Scale: 0.0015},

	// Triple Spiral – threefold symmetric spiral structure
	"triplespiral": {Center: cplx.Complex{Re: -0.7465, Im: 0.0965}, Scale: 0.003},

	// Valley of the Dragon – deep, highly detailed spiral filaments
	"dragon": {Center: cplx.Complex{Re: -0.7375, Im: 0.1825}, Scale: 0.005},
}

// ApplyPreset copies a named preset view into the payload. Unknown names
// leave the payload unchanged and report false.
func ApplyPreset(p *RenderPayload, name string) bool {
	preset, ok := Presets[name]
	if !ok {
		return false
	}
	p.Center = preset.Center
	p.Scale = preset.Scale
	return true
}
