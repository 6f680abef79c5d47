package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"databridge/internal/domain"
	"databridge/internal/metrics"

	"github.com/mark3labs/mcp-go/mcp"
)

// memArtifacts is an in-memory domain.ArtifactStore.
type memArtifacts struct {
	mu      sync.Mutex
	meta    []domain.Artifact
	content map[string]string
}

func (m *memArtifacts) SaveArtifact(_ context.Context, a *domain.Artifact, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.content == nil {
		m.content = make(map[string]string)
	}
	a.ID = fmt.Sprintf("a%d", len(m.meta)+1)
	a.Size = len(content)
	m.meta = append(m.meta, *a)
	m.content[a.ID] = content
	return nil
}

func (m *memArtifacts) GetArtifact(_ context.Context, id string) (*domain.Artifact, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.meta {
		if a.ID == id {
			return &a, m.content[id], nil
		}
	}
	return nil, "", domain.ErrNotFound
}

func (m *memArtifacts) ListArtifacts(_ context.Context, limit int) ([]domain.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Artifact{}, m.meta...), nil
}

func callTool(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want mcp.TextContent", res.Content[0])
	}
	return tc.Text
}

// ───────────────────────────────────────────────────────────────
// convert_json
// ───────────────────────────────────────────────────────────────

func TestConvertJSON_ToSQL(t *testing.T) {
	store := &memArtifacts{}
	s := New(context.Background(), Deps{Artifacts: store, Metrics: metrics.New()})

	res, err := s.handleConvertJSON(context.Background(), callTool(map[string]any{
		"json":     `[{"id": 1, "name": "O'Brien"}]`,
		"filename": "people.json",
	}))
	if err != nil {
		t.Fatalf("convert_json: %v", err)
	}

	var out convertResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	want := "CREATE TABLE `people` (\n" +
		"  `id` INT,\n" +
		"  `name` VARCHAR(255)\n" +
		");\n\n" +
		"INSERT INTO `people` (`id`, `name`) VALUES (1, 'O''Brien');\n"
	if out.Content != want {
		t.Errorf("content = %q\nwant      %q", out.Content, want)
	}
	if out.Filename != "people.sql" || out.Size != len(want) {
		t.Errorf("result = %+v", out)
	}
	if out.ArtifactID == "" {
		t.Fatal("artifact was not stored")
	}
	if _, content, err := store.GetArtifact(context.Background(), out.ArtifactID); err != nil || content != want {
		t.Errorf("stored artifact = %q, %v", content, err)
	}
}

func TestConvertJSON_ToNoSQLKeepsKeyOrder(t *testing.T) {
	s := New(context.Background(), Deps{})

	res, err := s.handleConvertJSON(context.Background(), callTool(map[string]any{
		"json": `{"b": 1, "a": [true, null]}`,
		"mode": "json_to_nosql",
	}))
	if err != nil {
		t.Fatalf("convert_json: %v", err)
	}
	var out convertResult
	if err := json.Unmarshal([]byte(resultText(t, res)), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.Filename != "data.json" {
		t.Errorf("filename = %q", out.Filename)
	}
	if strings.Index(out.Content, `"b"`) > strings.Index(out.Content, `"a"`) {
		t.Errorf("key order lost: %s", out.Content)
	}
	if out.ArtifactID != "" {
		t.Errorf("no store configured, got artifact %q", out.ArtifactID)
	}
}

func TestConvertJSON_Errors(t *testing.T) {
	s := New(context.Background(), Deps{})
	ctx := context.Background()

	if _, err := s.handleConvertJSON(ctx, callTool(map[string]any{})); err == nil {
		t.Error("expected error for missing json")
	}
	_, err := s.handleConvertJSON(ctx, callTool(map[string]any{"json": `[]`, "mode": "sql_to_nosql"}))
	if !errors.Is(err, domain.ErrInvalidMode) {
		t.Errorf("database mode: expected ErrInvalidMode, got %v", err)
	}
	_, err = s.handleConvertJSON(ctx, callTool(map[string]any{"json": `[]`, "mode": "xml"}))
	if !errors.Is(err, domain.ErrInvalidMode) {
		t.Errorf("unknown mode: expected ErrInvalidMode, got %v", err)
	}
	_, err = s.handleConvertJSON(ctx, callTool(map[string]any{"json": `{not json`}))
	var ioErr *domain.SourceIOError
	if !errors.As(err, &ioErr) || ioErr.Source != "data.json" {
		t.Errorf("malformed json: expected SourceIOError for data.json, got %v", err)
	}
}

// ───────────────────────────────────────────────────────────────
// Resources
// ───────────────────────────────────────────────────────────────

func TestArtifactResource(t *testing.T) {
	store := &memArtifacts{}
	a := &domain.Artifact{Mode: domain.ModeJSONToSQL, Filename: "x.sql"}
	if err := store.SaveArtifact(context.Background(), a, "SELECT 1;"); err != nil {
		t.Fatal(err)
	}
	s := New(context.Background(), Deps{Artifacts: store})

	var req mcp.ReadResourceRequest
	req.Params.URI = artifactsURI + "/" + a.ID
	got, err := s.handleArtifactResource(context.Background(), req)
	if err != nil {
		t.Fatalf("read resource: %v", err)
	}
	tc, ok := got[0].(mcp.TextResourceContents)
	if !ok || tc.Text != "SELECT 1;" || tc.MIMEType != "application/sql" {
		t.Errorf("resource = %+v", got[0])
	}

	req.Params.URI = artifactsURI + "/missing"
	if _, err := s.handleArtifactResource(context.Background(), req); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestExtractArtifactID(t *testing.T) {
	cases := map[string]string{
		"databridge://artifacts/abc": "abc",
		"databridge://artifacts/":    "",
		"databridge://artifacts/a/b": "",
		"file://artifacts/abc":       "",
	}
	for uri, want := range cases {
		if got := extractArtifactID(uri); got != want {
			t.Errorf("extractArtifactID(%q) = %q, want %q", uri, got, want)
		}
	}
}
