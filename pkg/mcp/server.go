package mcp

import (
	"context"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flowdeck/flowdeck/internal/editor"
	"github.com/flowdeck/flowdeck/internal/store"
	"github.com/flowdeck/flowdeck/internal/trace"
	"github.com/flowdeck/flowdeck/internal/validation"
)

// FlowdeckServerDeps holds the dependencies for creating a FlowdeckServer.
// Validator and Notifier are optional; nil gets the schema validator and
// the MCP push notifier.
type FlowdeckServerDeps struct {
	Store     store.Store
	Parser    editor.CodeParser
	Tracer    *trace.Tracer
	Validator validation.Validator
	Notifier  ChangeNotifier
	Logger    *slog.Logger
}

// FlowdeckServer wraps an MCP server with flowchart tool handlers.
type FlowdeckServer struct {
	store     store.Store
	parser    editor.CodeParser
	tracer    *trace.Tracer
	validator validation.Validator
	notifier  ChangeNotifier
	logger    *slog.Logger
	sessions  *SessionRegistry
	mcpServer *server.MCPServer
}

// NewFlowdeckServer creates a new FlowdeckServer with all 6 tools registered.
func NewFlowdeckServer(deps FlowdeckServerDeps) *FlowdeckServer {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = trace.New()
	}
	validator := deps.Validator
	if validator == nil {
		validator = validation.MustValidator()
	}

	s := &FlowdeckServer{
		store:     deps.Store,
		parser:    deps.Parser,
		tracer:    tracer,
		validator: validator,
		logger:    logger,
		sessions:  NewSessionRegistry(),
	}

	mcpSrv := server.NewMCPServer(
		"flowdeck",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions("Flowdeck turns source code into editable flowcharts. Use flowdeck.generate to build a flowchart from Pascal or C++ code, flowdeck.get to fetch a stored document, flowdeck.export to render it as mermaid/svg/png, flowdeck.query to list flowcharts or history entries, flowdeck.restore to roll a flowchart back to a history entry, and flowdeck.trace to walk a flowchart under variable bindings."),
	)

	mcpSrv.AddTools(s.tools()...)
	s.mcpServer = mcpSrv

	s.notifier = deps.Notifier
	if s.notifier == nil {
		s.notifier = NewMCPNotifier(mcpSrv, s.sessions, logger)
	}
	return s
}

// Serve starts the stdio transport and blocks until ctx is cancelled or stdin closes.
func (s *FlowdeckServer) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcpServer)
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying MCPServer for testing or custom transports.
func (s *FlowdeckServer) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// tools returns the 6 registered MCP tools as ServerTool entries.
func (s *FlowdeckServer) tools() []server.ServerTool {
	return []server.ServerTool{
		{Tool: generateTool(), Handler: s.handleGenerate},
		{Tool: getTool(), Handler: s.handleGet},
		{Tool: exportTool(), Handler: s.handleExport},
		{Tool: queryTool(), Handler: s.handleQuery},
		{Tool: restoreTool(), Handler: s.handleRestore},
		{Tool: traceTool(), Handler: s.handleTrace},
	}
}

// --- Tool definitions ---

func generateTool() mcp.Tool {
	return mcp.NewTool("flowdeck.generate",
		mcp.WithDescription("Generate a flowchart from source code and store it"),
		mcp.WithString("code", mcp.Required(), mcp.Description("Source code to convert")),
		mcp.WithString("language", mcp.Required(),
			mcp.Enum("pascal", "cpp"),
			mcp.Description("Source language"),
		),
		mcp.WithString("name", mcp.Description("Display name for the stored flowchart (default: Untitled)")),
		mcp.WithString("flowchart_id", mcp.Description("Overwrite an existing flowchart instead of creating a new one")),
	)
}

func getTool() mcp.Tool {
	return mcp.NewTool("flowdeck.get",
		mcp.WithDescription("Fetch a stored flowchart document"),
		mcp.WithString("flowchart_id", mcp.Required(), mcp.Description("ID of the flowchart to fetch")),
	)
}

func exportTool() mcp.Tool {
	return mcp.NewTool("flowdeck.export",
		mcp.WithDescription("Export a stored flowchart. Returns mermaid flowchart syntax, an SVG document, or a base64-encoded PNG image"),
		mcp.WithString("flowchart_id", mcp.Required(), mcp.Description("ID of the flowchart to export")),
		mcp.WithString("format", mcp.Required(),
			mcp.Enum("mermaid", "svg", "png"),
			mcp.Description("Output format: mermaid (flowchart syntax), svg (XML document), or png (base64 image)"),
		),
	)
}

func queryTool() mcp.Tool {
	return mcp.NewTool("flowdeck.query",
		mcp.WithDescription("Query stored flowcharts or history entries"),
		mcp.WithString("resource", mcp.Required(),
			mcp.Enum("flowcharts", "history"),
			mcp.Description("Type of resource to query"),
		),
		mcp.WithObject("filter", mcp.Description("Filter criteria (language, since, limit, offset for flowcharts; flowchart_id, since for history)")),
	)
}

func restoreTool() mcp.Tool {
	return mcp.NewTool("flowdeck.restore",
		mcp.WithDescription("Restore a flowchart to the state captured by a history entry"),
		mcp.WithString("flowchart_id", mcp.Required(), mcp.Description("ID of the flowchart to restore")),
		mcp.WithNumber("sequence", mcp.Required(), mcp.Description("Sequence number of the history entry to restore")),
	)
}

func traceTool() mcp.Tool {
	return mcp.NewTool("flowdeck.trace",
		mcp.WithDescription("Walk a stored flowchart from its start node, evaluating decision conditions against variable bindings"),
		mcp.WithString("flowchart_id", mcp.Required(), mcp.Description("ID of the flowchart to trace")),
		mcp.WithObject("variables", mcp.Description("Variable bindings for condition evaluation")),
	)
}
