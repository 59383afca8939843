package mcp

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
)

// changeMethod is the notification method used for flowchart change pushes.
const changeMethod = "notifications/message"

// ChangeNotifier pushes a change event for a mutated flowchart to whatever
// is watching it.
type ChangeNotifier interface {
	Notify(ctx context.Context, flowchartID string, payload map[string]any) error
}

// MCPNotifier delivers change events over the MCP server's push channel to
// the session registered for the flowchart. Delivery is best-effort: a
// flowchart with no watcher is skipped, and a watcher whose session expired
// is dropped from the registry instead of erroring.
type MCPNotifier struct {
	mcpServer *server.MCPServer
	sessions  *SessionRegistry
	logger    *slog.Logger
}

// NewMCPNotifier builds a notifier backed by the given MCP server and
// watcher registry.
func NewMCPNotifier(mcpServer *server.MCPServer, sessions *SessionRegistry, logger *slog.Logger) *MCPNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &MCPNotifier{mcpServer: mcpServer, sessions: sessions, logger: logger}
}

// Notify pushes payload to the session watching flowchartID, if one exists.
func (n *MCPNotifier) Notify(_ context.Context, flowchartID string, payload map[string]any) error {
	sessionID, ok := n.sessions.SessionFor(flowchartID)
	if !ok {
		return nil
	}

	err := n.mcpServer.SendNotificationToSpecificClient(sessionID, changeMethod, payload)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, server.ErrSessionNotFound):
		// The watcher disconnected since it last called a tool.
		n.logger.Debug("dropping stale flowchart watcher",
			"flowchart_id", flowchartID, "session_id", sessionID)
		n.sessions.Remove(sessionID)
		return nil
	default:
		return err
	}
}
