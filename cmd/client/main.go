// client requests one frame from a running server over websocket, assembles
// the streamed chunks and saves the result as a PNG file.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"image/png"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	fracstream "github.com/fracstream/fracstream"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "server websocket endpoint")
	width := flag.Int("width", 1920, "image width in pixels")
	height := flag.Int("height", 1080, "image height in pixels")
	iterations := flag.Int("iterations", 250, "iteration budget per pixel")
	preset := flag.String("preset", "", "named view (overview, seahorse, elephant, minibrot, triplespiral, dragon)")
	out := flag.String("out", "frame.png", "output PNG file")
	flag.Parse()

	p := fracstream.DefaultPayload(*width, *height)
	p.MaxIterations = *iterations
	if *preset != "" && !fracstream.ApplyPreset(&p, *preset) {
		return fmt.Errorf("unknown preset %q", *preset)
	}

	ctx := context.Background()
	log.Printf("connecting to %s", *addr)
	c, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", *addr, err)
	}
	defer c.Close(websocket.StatusNormalClosure, "")
	// Bitmap responses carry whole frames.
	c.SetReadLimit(1 << 28)

	const id = 1
	if err := wsjson.Write(ctx, c, fracstream.RenderRequest{ID: id, Payload: p}); err != nil {
		return fmt.Errorf("send request: %w", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	start := time.Now()
	for {
		var resp fracstream.RenderResponse
		if err := wsjson.Read(ctx, c, &resp); err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if resp.ID != id {
			// Stale stream from a request this client no longer cares about.
			continue
		}
		fracstream.ApplyChunk(img, resp)
		if resp.Terminal() {
			if resp.Kind == fracstream.KindError {
				return fmt.Errorf("render failed: %s", resp.Message)
			}
			break
		}
	}
	log.Printf("frame received in %v", time.Since(start))

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
