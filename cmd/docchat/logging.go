package main

import (
	"bytes"
	"io"
	"log"

	"github.com/joho/godotenv"
)

// loadEnv reads .env into the environment when present. Variables already
// set in the environment win.
func loadEnv() {
	if err := godotenv.Load(); err == nil {
		log.Printf("[DEBUG] Loaded .env")
	}
}

// levelFilter drops [DEBUG] lines unless debug logging is enabled.
type levelFilter struct {
	w     io.Writer
	debug bool
}

func newLevelFilter(w io.Writer, debug bool) *levelFilter {
	return &levelFilter{w: w, debug: debug}
}

func (f *levelFilter) Write(p []byte) (int, error) {
	if !f.debug && bytes.Contains(p, []byte("[DEBUG]")) {
		return len(p), nil
	}
	return f.w.Write(p)
}
