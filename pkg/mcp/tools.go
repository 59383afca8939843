package mcp

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/flowdeck/flowdeck/internal/generate"
	"github.com/flowdeck/flowdeck/internal/history"
	"github.com/flowdeck/flowdeck/internal/render"
	"github.com/flowdeck/flowdeck/internal/store"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// handleGenerate converts source code into a flowchart and stores it.
func (s *FlowdeckServer) handleGenerate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := req.RequireString("code")
	if err != nil {
		return mcp.NewToolResultError("code is required"), nil
	}
	language, err := req.RequireString("language")
	if err != nil {
		return mcp.NewToolResultError("language is required"), nil
	}
	if strings.TrimSpace(code) == "" {
		return mcp.NewToolResultError("no source code provided"), nil
	}
	if language != "pascal" && language != "cpp" {
		return mcp.NewToolResultError("language must be pascal or cpp"), nil
	}

	name := req.GetString("name", "Untitled")
	flowchartID := req.GetString("flowchart_id", "")
	if flowchartID == "" {
		flowchartID = uuid.New().String()
	}

	f, usedFallback, warnings := s.buildFlowchart(ctx, code, language)
	if f == nil {
		// Only an authorization failure reaches here; the fallback
		// scanner absorbs every other parse failure.
		return mcp.NewToolResultError("parser authorization failed: configure a valid token"), nil
	}

	// Nothing malformed reaches the store; semantic findings ride along as
	// warnings next to the lexer and parser ones.
	if valErr := s.validator.ValidateDocument(f); valErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("generated document failed validation: %v", valErr)), nil
	}
	for _, issue := range s.validator.Analyze(f).Warnings {
		warnings = append(warnings, "analysis: "+issue.Message)
	}

	rec := &store.FlowchartRecord{
		ID:         flowchartID,
		Name:       name,
		Language:   language,
		SourceCode: code,
		Document:   f,
	}
	if saveErr := s.store.SaveFlowchart(ctx, rec); saveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store flowchart: %v", saveErr)), nil
	}

	// Snapshot the generated document so the history log starts populated.
	snapshot, snapErr := history.EncodeSnapshot(f)
	if snapErr == nil {
		desc := "Generated flowchart from code"
		if usedFallback {
			desc = "Generated flowchart from source scan"
		}
		if histErr := s.store.AppendHistory(ctx, &store.HistoryRecord{
			ID:          uuid.New().String(),
			FlowchartID: flowchartID,
			Description: desc,
			Snapshot:    snapshot,
		}); histErr != nil {
			s.logger.Warn("generated flowchart stored without history entry",
				"flowchart_id", flowchartID, "error", histErr)
		}
	}

	s.captureSession(ctx, flowchartID)
	s.notifyChange(ctx, flowchartID, map[string]any{
		"event":        "generated",
		"flowchart_id": flowchartID,
		"nodes":        len(f.Nodes),
	})

	return marshalResult(map[string]any{
		"flowchart_id":  flowchartID,
		"name":          name,
		"nodes":         len(f.Nodes),
		"connections":   len(f.Connections),
		"used_fallback": usedFallback,
		"warnings":      warnings,
	})
}

// buildFlowchart runs the primary parse path and degrades to the line
// scanner on any failure except a missing or rejected token. A nil
// flowchart means authorization failed.
func (s *FlowdeckServer) buildFlowchart(ctx context.Context, code, language string) (*schema.Flowchart, bool, []string) {
	if s.parser == nil {
		return generate.Fallback(code), true, nil
	}

	resp, err := s.parser.Parse(ctx, code, language)
	if err != nil {
		if schema.ErrorCode(err) == schema.ErrCodeAuthRequired {
			return nil, false, nil
		}
		s.logger.Warn("parse failed, falling back to line scanner", "error", err)
		return generate.Fallback(code), true, nil
	}

	doc, err := generate.DecodeRepresentation(resp.Representation)
	if err != nil {
		s.logger.Warn("unusable parser representation, falling back to line scanner", "error", err)
		return generate.Fallback(code), true, nil
	}

	f := generate.FromRepresentation(doc, language)
	if len(f.Nodes) == 0 {
		s.logger.Warn("empty generator output, falling back to line scanner")
		return generate.Fallback(code), true, nil
	}

	var warnings []string
	for _, issue := range resp.LexerErrors {
		warnings = append(warnings, "lexer: "+issue.Text())
	}
	for _, issue := range resp.ParserErrors {
		warnings = append(warnings, "parser: "+issue.Text())
	}
	return f, false, warnings
}

// handleGet returns a stored flowchart record.
func (s *FlowdeckServer) handleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowchartID, err := req.RequireString("flowchart_id")
	if err != nil {
		return mcp.NewToolResultError("flowchart_id is required"), nil
	}

	rec, getErr := s.store.GetFlowchart(ctx, flowchartID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("flowchart lookup failed: %v", getErr)), nil
	}

	s.captureSession(ctx, flowchartID)
	return marshalResult(rec)
}

// handleExport renders a stored flowchart in the requested format.
func (s *FlowdeckServer) handleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowchartID, err := req.RequireString("flowchart_id")
	if err != nil {
		return mcp.NewToolResultError("flowchart_id is required"), nil
	}
	format, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError("format is required"), nil
	}

	rec, getErr := s.store.GetFlowchart(ctx, flowchartID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("flowchart lookup failed: %v", getErr)), nil
	}

	switch format {
	case "mermaid":
		return mcp.NewToolResultText(render.Mermaid(rec.Document)), nil
	case "svg":
		return mcp.NewToolResultText(string(render.ExportSVG(rec.Document))), nil
	case "png":
		png, imgErr := render.ExportPNG(rec.Document)
		if imgErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("image render failed: %v", imgErr)), nil
		}
		return mcp.NewToolResultText(base64.StdEncoding.EncodeToString(png)), nil
	default:
		return mcp.NewToolResultError("format must be mermaid, svg, or png"), nil
	}
}

// handleQuery lists flowcharts or history entries based on filters.
func (s *FlowdeckServer) handleQuery(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resource, err := req.RequireString("resource")
	if err != nil {
		return mcp.NewToolResultError("resource is required"), nil
	}

	filter := mcp.ParseStringMap(req, "filter", nil)

	switch resource {
	case "flowcharts":
		return s.queryFlowcharts(ctx, filter)
	case "history":
		return s.queryHistory(ctx, filter)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown resource type: %s", resource)), nil
	}
}

// handleRestore rolls a flowchart document back to a history entry.
// The history log itself is untouched; restoring never rewrites it.
func (s *FlowdeckServer) handleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowchartID, err := req.RequireString("flowchart_id")
	if err != nil {
		return mcp.NewToolResultError("flowchart_id is required"), nil
	}
	sequence, err := req.RequireInt("sequence")
	if err != nil {
		return mcp.NewToolResultError("sequence is required"), nil
	}

	entries, listErr := s.store.ListHistory(ctx, flowchartID, int64(sequence)-1)
	if listErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("history lookup failed: %v", listErr)), nil
	}
	var entry *store.HistoryRecord
	for _, e := range entries {
		if e.Sequence == int64(sequence) {
			entry = e
			break
		}
	}
	if entry == nil {
		return mcp.NewToolResultError(fmt.Sprintf("no history entry with sequence %d for flowchart %q", sequence, flowchartID)), nil
	}

	f, decodeErr := history.DecodeSnapshot(entry.Snapshot)
	if decodeErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot decode failed: %v", decodeErr)), nil
	}
	if valErr := s.validator.ValidateDocument(f); valErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("snapshot for sequence %d failed validation: %v", sequence, valErr)), nil
	}

	rec, getErr := s.store.GetFlowchart(ctx, flowchartID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("flowchart lookup failed: %v", getErr)), nil
	}
	rec.Document = f
	if saveErr := s.store.SaveFlowchart(ctx, rec); saveErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to store restored flowchart: %v", saveErr)), nil
	}

	s.captureSession(ctx, flowchartID)
	s.notifyChange(ctx, flowchartID, map[string]any{
		"event":        "restored",
		"flowchart_id": flowchartID,
		"sequence":     sequence,
	})

	return marshalResult(map[string]any{
		"flowchart_id": flowchartID,
		"sequence":     sequence,
		"description":  entry.Description,
		"nodes":        len(f.Nodes),
		"connections":  len(f.Connections),
	})
}

// handleTrace walks a stored flowchart under the given variable bindings.
func (s *FlowdeckServer) handleTrace(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	flowchartID, err := req.RequireString("flowchart_id")
	if err != nil {
		return mcp.NewToolResultError("flowchart_id is required"), nil
	}
	vars := mcp.ParseStringMap(req, "variables", nil)

	rec, getErr := s.store.GetFlowchart(ctx, flowchartID)
	if getErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("flowchart lookup failed: %v", getErr)), nil
	}

	res, traceErr := s.tracer.Trace(ctx, rec.Document, vars)
	if traceErr != nil {
		return mcp.NewToolResultError(fmt.Sprintf("trace failed: %v", traceErr)), nil
	}
	return marshalResult(res)
}

// --- Query helpers ---

func (s *FlowdeckServer) queryFlowcharts(ctx context.Context, filter map[string]any) (*mcp.CallToolResult, error) {
	ff := store.FlowchartFilter{
		Limit:  extractInt(filter, "limit", 50),
		Offset: extractInt(filter, "offset", 0),
	}
	if language, ok := filter["language"].(string); ok {
		ff.Language = language
	}
	if since, ok := filter["since"].(string); ok && since != "" {
		if t, err := time.Parse(time.RFC3339, since); err == nil {
			ff.Since = &t
		}
	}

	flowcharts, err := s.store.ListFlowcharts(ctx, ff)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"flowcharts": flowcharts})
}

func (s *FlowdeckServer) queryHistory(ctx context.Context, filter map[string]any) (*mcp.CallToolResult, error) {
	flowchartID, ok := filter["flowchart_id"].(string)
	if !ok || flowchartID == "" {
		return mcp.NewToolResultError("history query requires 'flowchart_id' in filter"), nil
	}
	since := int64(extractInt(filter, "since", 0))

	entries, err := s.store.ListHistory(ctx, flowchartID, since)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("query failed: %v", err)), nil
	}
	return marshalResult(map[string]any{"history": entries})
}

// --- Internal helpers ---

// extractInt safely extracts an integer from a filter map.
func extractInt(filter map[string]any, key string, defaultVal int) int {
	if filter == nil {
		return defaultVal
	}
	v, ok := filter[key]
	if !ok {
		return defaultVal
	}
	switch val := v.(type) {
	case float64:
		return int(val)
	case int:
		return val
	case string:
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// captureSession maps the flowchart ID to its current MCP session for
// change notifications.
func (s *FlowdeckServer) captureSession(ctx context.Context, flowchartID string) {
	if session := server.ClientSessionFromContext(ctx); session != nil {
		s.sessions.Register(flowchartID, session.SessionID())
	}
}

// notifyChange pushes a change event to the flowchart's watcher. Failures
// are logged, never surfaced to the tool caller.
func (s *FlowdeckServer) notifyChange(ctx context.Context, flowchartID string, payload map[string]any) {
	if err := s.notifier.Notify(ctx, flowchartID, payload); err != nil {
		s.logger.Warn("change notification failed",
			"flowchart_id", flowchartID, "error", err)
	}
}

// marshalResult converts a value to a JSON text tool result.
func marshalResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultJSON(json.RawMessage(data))
}
