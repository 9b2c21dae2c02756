// Command sar_server serves the field log store as read-only JSON over HTTP.
//
// Usage:
//
//	sar_server [-db logs.db] [-port 5000]
//
// Endpoints:
//
//	GET /health
//	    Health check endpoint.
//
//	GET /state
//	    Full log document. An absent store returns the empty document.
//
//	GET /debug
//	    Database path plus team and transmission counts.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"sar_tracker/internal/api"
)

func main() {
	dbPath := flag.String("db", envOrDefault("SAR_SQLITE_FILE", "./logs.db"), "sqlite file location (env SAR_SQLITE_FILE)")
	port := flag.Int("port", 5000, "HTTP port")
	flag.Parse()

	// Resolve the path so a relative cwd can't point the server at a
	// different file than the logging session wrote.
	abs, err := filepath.Abs(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve db path: %v\n", err)
		os.Exit(1)
	}

	server := api.NewServer(api.Config{DBPath: abs, Port: *port})
	if err := server.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
