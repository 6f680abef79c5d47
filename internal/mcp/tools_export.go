package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerExportTools() {
	s.mcp.AddTool(mcp.NewTool("list_export_jobs",
		mcp.WithDescription("List saved export jobs with their trigger and last run status"),
	), s.handleListExportJobs)

	s.mcp.AddTool(mcp.NewTool("run_export_job",
		mcp.WithDescription("Run an export job now and return the run record"),
		mcp.WithString("jobId", mcp.Description("Export job ID"), mcp.Required()),
	), s.handleRunExportJob)

	s.mcp.AddTool(mcp.NewTool("list_export_runs",
		mcp.WithDescription("List the most recent runs of an export job"),
		mcp.WithString("jobId", mcp.Description("Export job ID"), mcp.Required()),
	), s.handleListExportRuns)
}

func (s *Server) handleListExportJobs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobs, err := s.exports.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jsonResult(jobs)
}

func (s *Server) handleRunExportJob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}
	run, err := s.exports.RunJob(ctx, jobID)
	if run == nil && err != nil {
		return nil, fmt.Errorf("run job: %w", err)
	}
	// A failed run is still recorded; report it rather than erroring.
	return jsonResult(run)
}

func (s *Server) handleListExportRuns(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := req.GetString("jobId", "")
	if jobID == "" {
		return nil, fmt.Errorf("jobId is required")
	}
	runs, err := s.exports.ListRuns(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return jsonResult(runs)
}
