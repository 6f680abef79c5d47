package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerConnectionTools() {
	s.mcp.AddTool(mcp.NewTool("list_connections",
		mcp.WithDescription("List saved database connections (passwords are never returned)"),
	), s.handleListConnections)

	s.mcp.AddTool(mcp.NewTool("introspect_connection",
		mcp.WithDescription("Get the tables (SQL) or collections (MongoDB) of a saved connection, with column names and types"),
		mcp.WithString("connectionId", mcp.Description("Saved connection ID"), mcp.Required()),
	), s.handleIntrospectConnection)

	s.mcp.AddTool(mcp.NewTool("preview_source",
		mcp.WithDescription("Fetch the first records of a table or collection, in source column order"),
		mcp.WithString("connectionId", mcp.Description("Saved connection ID"), mcp.Required()),
		mcp.WithString("source", mcp.Description("Table or collection name"), mcp.Required()),
		mcp.WithNumber("limit", mcp.Description("Maximum records to fetch (default 20)")),
	), s.handlePreviewSource)
}

func (s *Server) handleListConnections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conns, err := s.connections.ListConnections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	return jsonResult(conns)
}

func (s *Server) handleIntrospectConnection(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	connID := req.GetString("connectionId", "")
	if connID == "" {
		return nil, fmt.Errorf("connectionId is required")
	}
	schema, err := s.connections.Introspect(ctx, connID)
	if err != nil {
		return nil, fmt.Errorf("introspect: %w", err)
	}
	return jsonResult(schema)
}

func (s *Server) handlePreviewSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	connID, _ := args["connectionId"].(string)
	source, _ := args["source"].(string)
	if connID == "" || source == "" {
		return nil, fmt.Errorf("connectionId and source are required")
	}
	limit := int(getFloat(args, "limit", float64(s.previewLimit)))
	if limit <= 0 {
		limit = s.previewLimit
	}

	c, conn, err := s.connections.Open(ctx, connID)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	set, err := c.Preview(ctx, source, limit)
	s.metrics.ObservePreview(sourceKind(conn.Driver.IsDocument()), err)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", source, err)
	}
	return jsonResult(set)
}

func sourceKind(document bool) string {
	if document {
		return "document"
	}
	return "sql"
}
