// Package palette maps normalized escape fractions and orbit statistics to
// RGB colors via HSL.
package palette

import "math"

// RGB is a color triple with channels in [0,255]. Values are produced only
// through the clamping conversions below.
type RGB struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

func clampChannel(v float64) int {
	v = math.Round(v)
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return int(v)
}

// HSLToRGB converts via the standard sector-based formula. Hue is in
// degrees (any real value), s and l are clamped to [0,1].
func HSLToRGB(hue, s, l float64) RGB {
	s = math.Min(1, math.Max(0, s))
	l = math.Min(1, math.Max(0, l))

	c := (1 - math.Abs(2*l-1)) * s
	hp := math.Mod(hue/60, 6)
	if hp < 0 {
		hp += 6
	}
	x := c * (1 - math.Abs(math.Mod(hp, 2)-1))

	var r1, g1, b1 float64
	switch {
	case hp < 1:
		r1, g1, b1 = c, x, 0
	case hp < 2:
		r1, g1, b1 = x, c, 0
	case hp < 3:
		r1, g1, b1 = 0, c, x
	case hp < 4:
		r1, g1, b1 = 0, x, c
	case hp < 5:
		r1, g1, b1 = x, 0, c
	default:
		r1, g1, b1 = c, 0, x
	}

	m := l - c/2
	return RGB{
		R: clampChannel((r1 + m) * 255),
		G: clampChannel((g1 + m) * 255),
		B: clampChannel((b1 + m) * 255),
	}
}

// Classic maps t in [0,1] to a blue-violet sweep.
func Classic(t float64) RGB {
	return HSLToRGB(200+120*t, 0.65, 0.5)
}

// Fire maps t to a red-orange sweep, brighter toward the set boundary.
func Fire(t float64) RGB {
	return HSLToRGB(30+40*t, 0.9, 0.5+0.2*(1-t))
}

// Ice maps t to a cyan sweep.
func Ice(t float64) RGB {
	return HSLToRGB(180+80*t, 0.6, 0.45+0.15*t)
}

// ByName returns the palette function for a scheme identifier, defaulting
// to Classic for unknown names.
func ByName(name string) func(float64) RGB {
	switch name {
	case "fire":
		return Fire
	case "ice":
		return Ice
	default:
		return Classic
	}
}

// Spin derives a hue from accumulated orbit statistics. It is the default
// interior coloring and the optional stats-driven exterior alternative.
func Spin(length int, magnitudeSum, angleSum, maxMagnitude float64) RGB {
	n := float64(length)
	if n < 1 {
		n = 1
	}
	meanAngle := angleSum / n
	hue := 210 + 90*math.Sin(meanAngle)
	sat := 0.5 + 0.3*math.Min(1, maxMagnitude/4)
	light := 0.25 + 0.5*math.Min(1, magnitudeSum/n/3)
	return HSLToRGB(hue, sat, light)
}

// Blend mixes a into b by weight w in [0,1]: w=0 yields a, w=1 yields b.
func Blend(a, b RGB, w float64) RGB {
	if w < 0 {
		w = 0
	} else if w > 1 {
		w = 1
	}
	return RGB{
		R: clampChannel(float64(a.R) + (float64(b.R)-float64(a.R))*w),
		G: clampChannel(float64(a.G) + (float64(b.G)-float64(a.G))*w),
		B: clampChannel(float64(a.B) + (float64(b.B)-float64(a.B))*w),
	}
}
