// render produces one frame offline, without a server, and saves it as PNG.
package main

import (
	"flag"
	"fmt"
	"image/png"
	"log"
	"os"
	"time"

	fracstream "github.com/fracstream/fracstream"
	"github.com/fracstream/fracstream/engine"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	width := flag.Int("width", 1920, "image width in pixels")
	height := flag.Int("height", 1080, "image height in pixels")
	iterations := flag.Int("iterations", 250, "iteration budget per pixel")
	preset := flag.String("preset", "", "named view (overview, seahorse, elephant, minibrot, triplespiral, dragon)")
	equation := flag.String("equation", "", "iteration equation (default z^exponent + c)")
	scheme := flag.String("scheme", "classic", "escape palette: classic, fire or ice")
	soft := flag.Bool("soft", false, "use the soft-escape mode")
	sharpness := flag.Float64("sharpness", 0.2, "soft-escape sharpness, [0.05,0.6]")
	lowPass := flag.Float64("lowpass", 0, "low-pass filter amount, [0,1]")
	out := flag.String("out", "frame.png", "output PNG file")
	flag.Parse()

	p := fracstream.DefaultPayload(*width, *height)
	p.MaxIterations = *iterations
	p.ColorScheme = fracstream.ColorScheme(*scheme)
	p.LowPass = *lowPass
	if *preset != "" && !fracstream.ApplyPreset(&p, *preset) {
		return fmt.Errorf("unknown preset %q", *preset)
	}
	if *equation != "" {
		p.EquationSource = *equation
	}
	if *soft {
		p.RenderMode = fracstream.ModeSoft
		p.SoftSharpness = *sharpness
	}

	start := time.Now()
	img, err := engine.New().RenderImage(p)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}
	log.Printf("rendered %dx%d in %v", p.Width, p.Height, time.Since(start))

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encode PNG: %w", err)
	}
	log.Printf("frame saved to %q", *out)
	return nil
}
