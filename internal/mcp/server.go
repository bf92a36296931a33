package mcp

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/ruumba/internal/logger"
)

// Server exposes extraction and correction over MCP stdio.
type Server struct {
	mcp *server.MCPServer
	log logger.Logger
}

// NewServer creates a server with every ruumba tool registered.
func NewServer(version string, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetDefault()
	}

	mcpServer := server.NewMCPServer(
		"ruumba",
		version,
		server.WithToolCapabilities(true),
	)

	AddExtractTool(mcpServer)
	AddRegionsTool(mcpServer)
	AddReplaceTool(mcpServer)

	return &Server{mcp: mcpServer, log: log}
}

// Serve runs the server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting MCP server on stdio")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-sigCh:
		s.log.Info("received shutdown signal, stopping")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
