// server streams fractal renders to websocket clients. Each connection gets
// its own render engine, so the newest request on a view always wins.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/fracstream/fracstream/engine"
	"github.com/fracstream/fracstream/gpu"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("run: %+v", err)
	}
}

func run() error {
	port := flag.Int("port", 8080, "http listen port")
	static := flag.String("static", "./static", "directory served at /")
	noAccel := flag.Bool("no-accel", false, "disable the GPU backend")
	flag.Parse()

	// One GPU backend is shared by all connections; engine access to it is
	// serialized inside the backend.
	var accel *gpu.Backend
	if !*noAccel {
		var err error
		accel, err = gpu.New()
		if err != nil {
			log.Printf("gpu backend unavailable, rendering on cpu: %v", err)
		} else {
			defer accel.Close()
			log.Println("gpu backend ready")
		}
	}

	newEngine := func() *engine.Engine {
		if accel != nil {
			return engine.New(engine.WithAccelerator(accel))
		}
		return engine.New()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", websocketHandler(newEngine))
	mux.Handle("/", http.FileServer(http.Dir(*static)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", *port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("listening on http://localhost:%d", *port)
	return srv.ListenAndServe()
}
