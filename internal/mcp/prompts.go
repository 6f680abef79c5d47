package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("migrate_table",
		mcp.WithPromptDescription("Walk through moving a sample of a SQL table into a document store"),
		mcp.WithArgument("connectionId",
			mcp.ArgumentDescription("Saved SQL connection ID"),
			mcp.RequiredArgument(),
		),
		mcp.WithArgument("table",
			mcp.ArgumentDescription("Table to migrate"),
			mcp.RequiredArgument(),
		),
	), s.handleMigrateTablePrompt)

	s.mcp.AddPrompt(mcp.NewPrompt("load_json",
		mcp.WithPromptDescription("Turn a JSON document into SQL INSERT statements and review the inferred columns"),
		mcp.WithArgument("filename",
			mcp.ArgumentDescription("Name of the JSON file, used as the table name"),
			mcp.RequiredArgument(),
		),
	), s.handleLoadJSONPrompt)
}

func (s *Server) handleMigrateTablePrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	connID := req.Params.Arguments["connectionId"]
	table := req.Params.Arguments["table"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Migrate table %s", table),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Migrate a sample of table "%s" from connection %s into a document store.

Steps:
1. Use introspect_connection with connectionId %s and confirm the table exists. Note its column types.
2. Use preview_source to look at the first rows. Flag columns holding dates or binary data, they are exported as strings.
3. Use convert_source with mode sql_to_nosql to produce the JSON document.
4. Summarize the result: row count, keys per document, and anything that needs a manual fix before import.`, table, connID, connID),
				},
			},
		},
	}, nil
}

func (s *Server) handleLoadJSONPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	filename := req.Params.Arguments["filename"]
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Load %s into SQL", filename),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Convert the JSON file "%s" to SQL.

Steps:
1. Ask me for the file content if you do not have it yet.
2. Call convert_json with filename "%s" and mode json_to_sql.
3. Review the CREATE TABLE statement. Column types come from the first record only, so point out keys whose values change type in later records.
4. Show the final SQL.`, filename, filename),
				},
			},
		},
	}, nil
}
