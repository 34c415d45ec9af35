package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/leedrag/internal/config"
	"github.com/Aman-CERP/leedrag/internal/embed"
	"github.com/Aman-CERP/leedrag/internal/search"
	"github.com/Aman-CERP/leedrag/internal/store"
	"github.com/Aman-CERP/leedrag/pkg/version"
)

// ServerName is the implementation name announced to clients.
const ServerName = "leedrag"

// SearchEngine is the part of search.Engine the server needs.
type SearchEngine interface {
	Search(ctx context.Context, query string, opts search.Options) (*search.Response, error)
	Credits() []store.Credit
	Status() search.Status
}

// Server bridges MCP clients with the requirement search engine.
type Server struct {
	mcp      *mcp.Server
	engine   SearchEngine
	embedder embed.Embedder
	config   *config.Config
	logger   *slog.Logger

	mu sync.RWMutex
}

// ToolInfo describes a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

const searchRequirementsDescription = "Search LEED v4.1 BD+C reference material for requirement evidence. " +
	"Returns the best passages grouped by credit, each with credit id, section, document, pages and fused score. " +
	"Use credit codes (EA-p2, WE-c1) or plain questions."

var tools = []ToolInfo{
	{
		Name:        ToolSearchRequirements,
		Description: searchRequirementsDescription,
	},
	{
		Name:        ToolListCredits,
		Description: "List the credits and prerequisites present in the loaded snapshot, optionally filtered by category.",
	},
	{
		Name:        ToolSnapshotStatus,
		Description: "Report which snapshot generation is loaded, its size, backend readiness and the query embedder in use.",
	},
}

// NewServer creates a server over engine. embedder may be nil, in which case
// status reports dense retrieval as unavailable.
func NewServer(engine SearchEngine, embedder embed.Embedder, cfg *config.Config) (*Server, error) {
	if engine == nil {
		return nil, errors.New("search engine is required")
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	s := &Server{
		engine:   engine,
		embedder: embedder,
		config:   cfg,
		logger:   slog.Default(),
	}
	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()
	s.registerResources()
	return s, nil
}

// SetLogger replaces the server logger.
func (s *Server) SetLogger(logger *slog.Logger) {
	if logger == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// MCPServer returns the underlying SDK server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns the registered tools.
func (s *Server) ListTools() []ToolInfo {
	out := make([]ToolInfo, len(tools))
	copy(out, tools)
	return out
}

// CallTool invokes a tool by name with JSON-style arguments. It runs the same
// handlers the SDK dispatches to.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolSearchRequirements:
		var in SearchRequirementsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleSearch(ctx, in)
	case ToolListCredits:
		var in ListCreditsInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.handleListCredits(ctx, in)
	case ToolSnapshotStatus:
		return s.handleSnapshotStatus(ctx)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

// Serve runs the server on transport until ctx is done.
func (s *Server) Serve(ctx context.Context, transport string) error {
	logger := s.log()
	logger.Info("starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("MCP server stopped with error", slog.String("error", err.Error()))
			return err
		}
		logger.Info("MCP server stopped")
		return nil
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

func (s *Server) log() *slog.Logger {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logger
}

func (s *Server) handleSearch(ctx context.Context, in SearchRequirementsInput) (*SearchRequirementsOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, NewInvalidParamsError("query parameter is required and must be a non-empty string")
	}

	opts := s.searchOptions(in)
	start := time.Now()
	resp, err := s.engine.Search(ctx, in.Query, opts)
	if err != nil {
		s.log().Warn("search_requirements failed",
			slog.String("query", in.Query),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	s.log().Debug("search_requirements completed",
		slog.String("request_id", resp.RequestID),
		slog.Int("results", len(resp.Results)),
		slog.Int("degraded", len(resp.Degraded)))

	return &SearchRequirementsOutput{
		RequestID:  resp.RequestID,
		Query:      resp.Query,
		Subqueries: resp.Subqueries,
		Generation: resp.Generation,
		Results:    resp.Results,
		Degraded:   resp.Degraded,
		TookMS:     resp.Took.Milliseconds(),
	}, nil
}

// searchOptions overlays the request's explicit fields on the configured defaults.
func (s *Server) searchOptions(in SearchRequirementsInput) search.Options {
	opts := s.config.SearchOptions()
	if in.Limit != 0 {
		opts.Limit = in.Limit
	}
	if in.TopCredits != 0 {
		opts.TopCredits = in.TopCredits
	}
	if in.MaxChunksPerCredit != 0 {
		opts.MaxChunksPerCredit = in.MaxChunksPerCredit
	}
	if in.FusionMethod != "" {
		opts.FusionMethod = search.FusionMethod(strings.ToLower(in.FusionMethod))
	}
	if in.UseHybrid != nil {
		opts.UseHybrid = *in.UseHybrid
	}
	if in.UseQueryExpansion != nil {
		opts.UseQueryExpansion = *in.UseQueryExpansion
	}
	if in.UseGrouping != nil {
		opts.UseGrouping = *in.UseGrouping
	}
	if len(in.DocTypes) > 0 {
		opts.DocTypes = make([]store.DocType, 0, len(in.DocTypes))
		for _, d := range in.DocTypes {
			opts.DocTypes = append(opts.DocTypes, store.DocType(strings.ToLower(strings.TrimSpace(d))))
		}
	}
	return opts
}

func (s *Server) handleListCredits(_ context.Context, in ListCreditsInput) (*ListCreditsOutput, error) {
	credits := s.engine.Credits()
	out := &ListCreditsOutput{Credits: make([]store.Credit, 0, len(credits))}
	for _, c := range credits {
		if in.Category != "" && !strings.EqualFold(c.Category, in.Category) {
			continue
		}
		out.Credits = append(out.Credits, c)
	}
	return out, nil
}

func (s *Server) handleSnapshotStatus(ctx context.Context) (*SnapshotStatusOutput, error) {
	st := s.engine.Status()

	info := SnapshotInfo{
		Loaded:         st.Generation != "",
		Generation:     st.Generation,
		Chunks:         st.Chunks,
		Credits:        st.Credits,
		DocTypes:       make([]string, 0, len(st.DocTypes)),
		DenseBackend:   st.DenseBackend,
		DenseReady:     st.DenseReady,
		LexicalBackend: st.LexicalBackend,
		LexicalReady:   st.LexicalReady,
		EmbeddingModel: st.EmbeddingModel,
	}
	for _, d := range st.DocTypes {
		info.DocTypes = append(info.DocTypes, string(d))
	}
	if !st.LoadedAt.IsZero() {
		info.LoadedAt = st.LoadedAt.UTC().Format(time.RFC3339)
	}

	emb := EmbeddingInfo{Provider: s.config.Embeddings.Provider, Status: "none"}
	if s.embedder != nil {
		emb.Model = s.embedder.ModelName()
		emb.Dimensions = s.embedder.Dimensions()
		emb.Status = "unavailable"
		if s.embedder.Available(ctx) {
			emb.Status = "ready"
		}
		emb.ModelMismatch = st.EmbeddingModel != "" && st.EmbeddingModel != emb.Model
	}

	return &SnapshotStatusOutput{Snapshot: info, Embeddings: emb}, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpListCreditsHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpSnapshotStatusHandler)
	s.log().Debug("MCP tools registered", slog.Int("count", len(tools)))
}

func (s *Server) mcpSearchHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchRequirementsInput) (
	*mcp.CallToolResult,
	SearchRequirementsOutput,
	error,
) {
	out, err := s.handleSearch(ctx, in)
	if err != nil {
		return nil, SearchRequirementsOutput{}, err
	}
	return textResult(FormatSearchResponse(out)), *out, nil
}

func (s *Server) mcpListCreditsHandler(ctx context.Context, _ *mcp.CallToolRequest, in ListCreditsInput) (
	*mcp.CallToolResult,
	ListCreditsOutput,
	error,
) {
	out, err := s.handleListCredits(ctx, in)
	if err != nil {
		return nil, ListCreditsOutput{}, err
	}
	return textResult(FormatCredits(out.Credits)), *out, nil
}

func (s *Server) mcpSnapshotStatusHandler(ctx context.Context, _ *mcp.CallToolRequest, _ SnapshotStatusInput) (
	*mcp.CallToolResult,
	SnapshotStatusOutput,
	error,
) {
	out, err := s.handleSnapshotStatus(ctx)
	if err != nil {
		return nil, SnapshotStatusOutput{}, err
	}
	return nil, *out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// decodeArgs maps loosely typed arguments onto a tool input struct.
func decodeArgs(args map[string]any, dst any) error {
	if len(args) == 0 {
		return nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}
