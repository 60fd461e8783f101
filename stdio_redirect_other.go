//go:build !unix

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Best-effort fallback for non-Unix platforms.
// Runtime-level stderr output (like panics) is not captured the way Dup2
// captures it on Unix.
func redirectStdIO(path string) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	os.Stdout = f
	os.Stderr = f
	fmt.Printf("--- shadeview pid %d started %s ---\n", os.Getpid(), time.Now().Format(time.RFC3339))
	return nil
}
