package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

const artifactsURI = "databridge://artifacts"

func (s *Server) registerResources() {
	// ── databridge://artifacts ─────────────────────────
	s.mcp.AddResource(mcp.NewResource(
		artifactsURI,
		"Recent Conversion Artifacts",
		mcp.WithMIMEType("application/json"),
	), s.handleArtifactsResource)

	// ── databridge://artifacts/{artifactId} ────────────
	s.mcp.AddResourceTemplate(
		mcp.NewResourceTemplate(
			artifactsURI+"/{artifactId}",
			"Conversion Artifact Content",
		),
		s.handleArtifactResource,
	)
}

func (s *Server) handleArtifactsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.artifacts == nil {
		return nil, fmt.Errorf("artifact storage is not configured")
	}
	list, err := s.artifacts.ListArtifacts(ctx, 50)
	if err != nil {
		return nil, err
	}

	data, _ := json.MarshalIndent(list, "", "  ")
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      artifactsURI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleArtifactResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	if s.artifacts == nil {
		return nil, fmt.Errorf("artifact storage is not configured")
	}
	uri := req.Params.URI
	id := extractArtifactID(uri)
	if id == "" {
		return nil, fmt.Errorf("could not extract artifactId from URI: %s", uri)
	}

	a, content, err := s.artifacts.GetArtifact(ctx, id)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: artifactMIME(a.Filename),
			Text:     content,
		},
	}, nil
}

// extractArtifactID extracts the ID from "databridge://artifacts/{id}".
func extractArtifactID(uri string) string {
	id, ok := strings.CutPrefix(uri, artifactsURI+"/")
	if !ok || strings.Contains(id, "/") {
		return ""
	}
	return id
}

func artifactMIME(filename string) string {
	switch {
	case strings.HasSuffix(filename, ".json"):
		return "application/json"
	case strings.HasSuffix(filename, ".sql"):
		return "application/sql"
	}
	return "text/plain"
}
