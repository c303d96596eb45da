// Command demoserver starts a local fixture site with deliberate
// accessibility defects for trying capture end to end.
// Usage: go run ./cmd/demoserver [port]
// Default port: 3000
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/raysh454/design-polish/internal/demoserver"
	"github.com/raysh454/design-polish/internal/logging"
)

func main() {
	cfg := demoserver.DefaultConfig()
	logger := logging.NewZapLogger(os.Getenv("LOG_LEVEL"), os.Stderr)
	defer logger.Sync()

	// Optional: custom port from command line
	if len(os.Args) > 1 {
		port, err := strconv.Atoi(os.Args[1])
		if err != nil || port < 1 || port > 65535 {
			fmt.Fprintf(os.Stderr, "Invalid port: %s\n", os.Args[1])
			os.Exit(1)
		}
		cfg.Port = port
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := demoserver.NewDemoServer(cfg, logger)
	if err := server.Start(ctx); err != nil {
		logger.Error("server error", logging.Field{Key: "error", Value: err})
		os.Exit(1)
	}
}
