package palette

import (
	"math"
	"testing"
)

func TestHSLToRGBChannelBounds(t *testing.T) {
	hues := []float64{-720, -61, -0.5, 0, 59.9, 60, 179, 240, 359, 360, 1000, math.Pi * 1e6}
	for _, h := range hues {
		for s := 0.0; s <= 1.0; s += 0.25 {
			for l := 0.0; l <= 1.0; l += 0.25 {
				c := HSLToRGB(h, s, l)
				for _, ch := range []int{c.R, c.G, c.B} {
					if ch < 0 || ch > 255 {
						t.Fatalf("HSLToRGB(%g,%g,%g) channel out of range: %+v", h, s, l, c)
					}
				}
			}
		}
	}
}

func TestHSLToRGBKnownColors(t *testing.T) {
	tests := []struct {
		h, s, l float64
		want    RGB
	}{
		{0, 1, 0.5, RGB{255, 0, 0}},
		{120, 1, 0.5, RGB{0, 255, 0}},
		{240, 1, 0.5, RGB{0, 0, 255}},
		{0, 0, 1, RGB{255, 255, 255}},
		{0, 0, 0, RGB{0, 0, 0}},
		{60, 1, 0.5, RGB{255, 255, 0}},
	}
	for _, tt := range tests {
		if got := HSLToRGB(tt.h, tt.s, tt.l); got != tt.want {
			t.Errorf("HSLToRGB(%g,%g,%g) = %+v, want %+v", tt.h, tt.s, tt.l, got, tt.want)
		}
	}
}

func TestHSLToRGBNegativeHueWraps(t *testing.T) {
	if got, want := HSLToRGB(-120, 1, 0.5), HSLToRGB(240, 1, 0.5); got != want {
		t.Errorf("hue -120 = %+v, hue 240 = %+v", got, want)
	}
}

func TestPalettesDistinct(t *testing.T) {
	// The three schemes must disagree somewhere over the sweep.
	same := true
	for t2 := 0.0; t2 <= 1.0; t2 += 0.1 {
		if Classic(t2) != Fire(t2) || Fire(t2) != Ice(t2) {
			same = false
			break
		}
	}
	if same {
		t.Fatal("classic, fire and ice produced identical sweeps")
	}
}

func TestByName(t *testing.T) {
	if got := ByName("fire")(0.5); got != Fire(0.5) {
		t.Errorf("ByName(fire) mismatch: %+v", got)
	}
	if got := ByName("nonsense")(0.5); got != Classic(0.5) {
		t.Errorf("ByName fallback mismatch: %+v", got)
	}
}

func TestSpinZeroLengthOrbit(t *testing.T) {
	// length 0 must not divide by zero
	c := Spin(0, 0, 0, 0)
	if c != HSLToRGB(210, 0.5, 0.25) {
		t.Errorf("Spin(empty) = %+v", c)
	}
}

func TestBlendEndpoints(t *testing.T) {
	a := RGB{10, 20, 30}
	b := RGB{200, 100, 0}
	if got := Blend(a, b, 0); got != a {
		t.Errorf("Blend w=0 = %+v, want %+v", got, a)
	}
	if got := Blend(a, b, 1); got != b {
		t.Errorf("Blend w=1 = %+v, want %+v", got, b)
	}
	mid := Blend(a, b, 0.5)
	if mid.R != 105 || mid.G != 60 || mid.B != 15 {
		t.Errorf("Blend w=0.5 = %+v", mid)
	}
}
