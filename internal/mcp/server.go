// Package mcp exposes the analysis database over the Model Context Protocol
// so editor agents can query verdicts without touching SQLite directly.
package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"catalyst/internal/store"
)

// Server wraps the MCP SDK server over an open analysis database.
type Server struct {
	MCPServer *sdkmcp.Server
	store     *store.SqlStore
}

// NewServer creates an MCP server with read-only analysis tools.
func NewServer(st *store.SqlStore) *Server {
	s := &Server{store: st}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "catalyst", Version: "dev"},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_projects",
		Description: "List analyzed projects with their total score and recommendation, best score first.",
	}, s.handleListProjects)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_verdict",
		Description: "Get the full verdict for one project: score, recommendation tier, and synthesized narrative.",
	}, s.handleGetVerdict)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_research",
		Description: "Get the stored research narrative for one project.",
	}, s.handleGetResearch)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_questions",
		Description: "Get the six per-question analyses for one project, ordered by question id.",
	}, s.handleGetQuestions)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "get_stats",
		Description: "Get database statistics: analyzed projects, verdicts, cache entries.",
	}, s.handleGetStats)
}

// --- Tool input/output types ---

type listProjectsInput struct{}

type listProjectsOutput struct {
	Projects []*store.Verdict `json:"projects"`
	Total    int              `json:"total"`
}

type projectInput struct {
	Project string `json:"project" jsonschema:"project name as stored by the analyze command"`
}

type getVerdictOutput struct {
	Verdict *store.Verdict `json:"verdict"`
}

type getResearchOutput struct {
	Research *store.Research `json:"research"`
}

type getQuestionsOutput struct {
	Questions []*store.QuestionRow `json:"questions"`
	Total     int                  `json:"total"`
}

type getStatsOutput struct {
	Stats *store.Stats `json:"stats"`
}

// --- Tool handlers ---

func (s *Server) handleListProjects(_ context.Context, _ *sdkmcp.CallToolRequest, _ listProjectsInput) (*sdkmcp.CallToolResult, listProjectsOutput, error) {
	verdicts, err := s.store.ListVerdicts()
	if err != nil {
		return nil, listProjectsOutput{}, fmt.Errorf("list verdicts: %w", err)
	}
	return nil, listProjectsOutput{Projects: verdicts, Total: len(verdicts)}, nil
}

func (s *Server) handleGetVerdict(_ context.Context, _ *sdkmcp.CallToolRequest, input projectInput) (*sdkmcp.CallToolResult, getVerdictOutput, error) {
	v, err := s.store.GetVerdict(input.Project)
	if err != nil {
		return nil, getVerdictOutput{}, fmt.Errorf("get verdict: %w", err)
	}
	if v == nil {
		return nil, getVerdictOutput{}, fmt.Errorf("no verdict for project %q", input.Project)
	}
	return nil, getVerdictOutput{Verdict: v}, nil
}

func (s *Server) handleGetResearch(_ context.Context, _ *sdkmcp.CallToolRequest, input projectInput) (*sdkmcp.CallToolResult, getResearchOutput, error) {
	r, err := s.store.GetResearch(input.Project)
	if err != nil {
		return nil, getResearchOutput{}, fmt.Errorf("get research: %w", err)
	}
	if r == nil {
		return nil, getResearchOutput{}, fmt.Errorf("no research for project %q", input.Project)
	}
	return nil, getResearchOutput{Research: r}, nil
}

func (s *Server) handleGetQuestions(_ context.Context, _ *sdkmcp.CallToolRequest, input projectInput) (*sdkmcp.CallToolResult, getQuestionsOutput, error) {
	rows, err := s.store.ListQuestionRows(input.Project)
	if err != nil {
		return nil, getQuestionsOutput{}, fmt.Errorf("list questions: %w", err)
	}
	return nil, getQuestionsOutput{Questions: rows, Total: len(rows)}, nil
}

func (s *Server) handleGetStats(_ context.Context, _ *sdkmcp.CallToolRequest, _ listProjectsInput) (*sdkmcp.CallToolResult, getStatsOutput, error) {
	st, err := s.store.GetStats()
	if err != nil {
		return nil, getStatsOutput{}, fmt.Errorf("stats: %w", err)
	}
	return nil, getStatsOutput{Stats: st}, nil
}
