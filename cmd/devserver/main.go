// Command devserver runs an in-memory BTW Buddy backend for local development
// and end-to-end testing of the CLI.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"

	"btw-buddy/internal/archive"
	"btw-buddy/internal/auth"
	"btw-buddy/internal/config"
	h "btw-buddy/internal/http"

	"github.com/google/uuid"
)

func main() {
	// Parse command-line flags
	port := flag.Int("port", 0, "Server port (overrides config)")
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if *port != 0 {
		cfg.DevServer.Port = *port
	}

	// Tokens from a previous run stay valid only with a fixed secret
	if cfg.DevServer.JWTSecret == "" {
		cfg.DevServer.JWTSecret = uuid.NewString()
		log.Println("[Auth] No devserver.jwt_secret configured, using a random one for this run")
	}

	// Receipt archive is optional
	arch, err := archive.New(context.Background(), cfg)
	switch {
	case errors.Is(err, archive.ErrDisabled):
		log.Println("[Archive] No bucket configured, receipts stay in memory")
		arch = nil
	case err != nil:
		log.Fatalf("archive error: %v", err)
	default:
		log.Printf("[Archive] Mirroring receipts to bucket %s", arch.Bucket())
	}

	handler := h.NewDevServer(cfg, auth.NewIssuer(cfg), arch)

	// Start server
	addr := fmt.Sprintf(":%d", cfg.DevServer.Port)
	log.Printf("Dev server running on %s (access tokens live %d min, refresh rotation %v)",
		addr, cfg.DevServer.AccessTTLMinutes, cfg.DevServer.RotateRefresh)
	if err := http.ListenAndServe(addr, handler); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
