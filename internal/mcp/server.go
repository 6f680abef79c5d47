package mcpserver

import (
	"context"
	"log"

	"databridge/internal/dbclient"
	"databridge/internal/domain"
	"databridge/internal/metrics"
	"databridge/internal/service"

	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for DataBridge.
// It exposes tools and resources so AI agents can inspect saved connections,
// preview sources, run conversions and trigger export jobs.
type Server struct {
	mcp *server.MCPServer

	// Services (injected from app layer)
	connections *service.ConnectionService
	exports     *service.ExportService
	artifacts   domain.ArtifactStore
	metrics     *metrics.Metrics

	previewLimit int
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Connections  *service.ConnectionService
	Exports      *service.ExportService
	Artifacts    domain.ArtifactStore // optional
	Metrics      *metrics.Metrics     // optional
	PreviewLimit int
}

// New creates and configures a new MCP server with all tools and resources.
func New(_ context.Context, deps Deps) *Server {
	s := &Server{
		connections:  deps.Connections,
		exports:      deps.Exports,
		artifacts:    deps.Artifacts,
		metrics:      deps.Metrics,
		previewLimit: deps.PreviewLimit,
	}
	if s.previewLimit <= 0 {
		s.previewLimit = dbclient.DefaultPreviewLimit
	}

	s.mcp = server.NewMCPServer(
		"databridge-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	if s.connections != nil {
		s.registerConnectionTools()
	}
	s.registerConvertTools()
	if s.exports != nil {
		s.registerExportTools()
	}
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// MCP returns the underlying server, for transports other than stdio.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}
