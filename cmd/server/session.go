package main

import (
	"context"
	"log"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	fracstream "github.com/fracstream/fracstream"
	"github.com/fracstream/fracstream/engine"
)

// websocketHandler upgrades the connection and runs one render session on it.
func websocketHandler(newEngine func() *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: []string{"*"}, // TODO: tighten in prod
		})
		if err != nil {
			log.Println(err)
			return
		}
		log.Printf("session started: %s", r.RemoteAddr)
		serveSession(r.Context(), c, newEngine())
		log.Printf("session ended: %s", r.RemoteAddr)
	}
}

// serveSession reads render requests off the socket and forwards each
// request's response stream back. Responses of a superseded request may
// interleave with the newer request's stream; clients discard them by id.
func serveSession(ctx context.Context, c *websocket.Conn, e *engine.Engine) {
	defer c.Close(websocket.StatusInternalError, "session ended")

	var writeMu sync.Mutex
	send := func(resp fracstream.RenderResponse) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return wsjson.Write(ctx, c, resp)
	}

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var req fracstream.RenderRequest
		if err := wsjson.Read(ctx, c, &req); err != nil {
			log.Printf("read: %v", err)
			return
		}

		ch := e.Submit(req)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for resp := range ch {
				if err := send(resp); err != nil {
					// Keep draining so the render goroutine can finish.
					for range ch {
					}
					return
				}
			}
		}()
	}
}
