package mcpserver

import (
	"context"
	"fmt"
	"log"

	"databridge/internal/convert"
	"databridge/internal/domain"

	"github.com/mark3labs/mcp-go/mcp"
)

// convertResult is returned by the conversion tools.
type convertResult struct {
	Filename   string `json:"filename"`
	ArtifactID string `json:"artifactId,omitempty"`
	Size       int    `json:"size"`
	Content    string `json:"content"`
}

func (s *Server) registerConvertTools() {
	if s.connections != nil {
		s.mcp.AddTool(mcp.NewTool("convert_source",
			mcp.WithDescription("Convert the first records of a table to a JSON document, or of a collection to SQL INSERT statements"),
			mcp.WithString("connectionId", mcp.Description("Saved connection ID"), mcp.Required()),
			mcp.WithString("source", mcp.Description("Table or collection name"), mcp.Required()),
			mcp.WithString("mode", mcp.Description("sql_to_nosql or nosql_to_sql (default picked from the connection driver)")),
			mcp.WithNumber("limit", mcp.Description("Maximum records to convert (default 20)")),
		), s.handleConvertSource)
	}

	s.mcp.AddTool(mcp.NewTool("convert_json",
		mcp.WithDescription("Convert a JSON document to SQL INSERT statements (json_to_sql) or re-serialize it as indented JSON (json_to_nosql)"),
		mcp.WithString("json", mcp.Description("JSON document: an object or an array of objects"), mcp.Required()),
		mcp.WithString("filename", mcp.Description("Filename the JSON came from; its stem names the SQL table (default data.json)")),
		mcp.WithString("mode", mcp.Description("json_to_sql (default) or json_to_nosql")),
	), s.handleConvertJSON)
}

func (s *Server) handleConvertSource(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	document := conn.Driver.IsDocument()
	mode := domain.ModeSQLToNoSQL
	if document {
		mode = domain.ModeNoSQLToSQL
	}
	if m := req.GetString("mode", ""); m != "" {
		if mode, err = domain.ParseConversionMode(m); err != nil {
			return nil, err
		}
	}
	if mode.ReadsUpload() || (mode == domain.ModeNoSQLToSQL) != document {
		return nil, fmt.Errorf("%w: %s cannot read a %s connection", domain.ErrInvalidMode, mode, conn.Driver)
	}

	set, err := c.Preview(ctx, source, limit)
	s.metrics.ObservePreview(sourceKind(document), err)
	if err != nil {
		return nil, fmt.Errorf("preview %s: %w", source, err)
	}

	return s.convert(ctx, mode, convert.Input{Source: source, Preview: set})
}

func (s *Server) handleConvertJSON(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw := req.GetString("json", "")
	if raw == "" {
		return nil, fmt.Errorf("json is required")
	}
	filename := req.GetString("filename", "data.json")

	mode, err := domain.ParseConversionMode(req.GetString("mode", string(domain.ModeJSONToSQL)))
	if err != nil {
		return nil, err
	}
	if !mode.ReadsUpload() {
		return nil, fmt.Errorf("%w: convert_json takes json_to_sql or json_to_nosql, got %s", domain.ErrInvalidMode, mode)
	}

	return s.convert(ctx, mode, convert.Input{Upload: &convert.Upload{Filename: filename, Data: []byte(raw)}})
}

func (s *Server) convert(ctx context.Context, mode domain.ConversionMode, in convert.Input) (*mcp.CallToolResult, error) {
	res, err := convert.Convert(mode, in)
	if err != nil {
		s.metrics.ObserveConversion(string(mode), 0, err)
		return nil, fmt.Errorf("conversion error: %w", err)
	}
	s.metrics.ObserveConversion(string(mode), len(res.Content), nil)

	out := convertResult{Filename: res.Filename, Size: len(res.Content), Content: res.Content}
	if s.artifacts != nil {
		a := &domain.Artifact{Mode: mode, Filename: res.Filename}
		if err := s.artifacts.SaveArtifact(ctx, a, res.Content); err != nil {
			log.Printf("[MCP] could not keep artifact %s: %v", res.Filename, err)
		} else {
			out.ArtifactID = a.ID
		}
	}
	return jsonResult(out)
}
