package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"databridge/internal/config"
)

// ServeMCP runs DataBridge as a standalone MCP server on stdin/stdout.
// Scheduled and watched export triggers are not started in this mode.
func ServeMCP(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := a.MCP(ctx)

	log.Println("[MCP] Starting standalone stdio server...")
	errCh := make(chan error, 1)
	go func() { errCh <- mcpSrv.ServeStdio() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		a.Exports.WaitRunning(context.Background())
		return nil
	}
}
