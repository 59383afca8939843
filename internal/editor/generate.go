package editor

import (
	"context"
	"strings"

	"github.com/flowdeck/flowdeck/internal/generate"
	"github.com/flowdeck/flowdeck/internal/parserclient"
	"github.com/flowdeck/flowdeck/pkg/schema"
)

// CodeParser parses source code into a syntax-tree representation. The
// production implementation is the external parser service client.
type CodeParser interface {
	Parse(ctx context.Context, code, language string) (*parserclient.ParseResponse, error)
}

// GenerateResult reports how a generate request was satisfied.
type GenerateResult struct {
	// UsedFallback is true when the line scanner produced the graph
	// because the primary parse path failed.
	UsedFallback bool
	// FallbackCause is the primary-path failure that triggered the
	// fallback, nil otherwise.
	FallbackCause error
	// Warnings are lexer and parser diagnostics that did not abort
	// generation.
	Warnings []string
}

// GenerateFromSource parses source code and atomically replaces the graph
// with the generated flowchart, recording one history entry. The model and
// history are untouched until a replacement graph is ready.
//
// Failure handling follows the error taxonomy: empty source is rejected
// with no state change; an authorization failure is surfaced and never
// falls back; every other primary-path failure (parser unavailable,
// timeout, out of memory, unusable output) degrades to the line scanner.
// Only one generate request may be in flight at a time.
func (c *Controller) GenerateFromSource(ctx context.Context, code, language string) (*GenerateResult, error) {
	if strings.TrimSpace(code) == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "no source code provided")
	}
	if c.parser == nil {
		return nil, schema.NewError(schema.ErrCodeParserUnavailable, "no parser configured")
	}

	select {
	case c.inFlight <- struct{}{}:
	default:
		return nil, schema.NewError(schema.ErrCodeConflict, "a generate request is already in flight")
	}
	defer func() { <-c.inFlight }()

	token := c.generation.Load()

	resp, err := c.parser.Parse(ctx, code, language)

	// A response that lands after an abort is stale and must not touch
	// the model.
	if c.generation.Load() != token {
		return nil, schema.NewError(schema.ErrCodeParserTimeout, "generation aborted before the parser responded")
	}

	if err != nil {
		if schema.ErrorCode(err) == schema.ErrCodeAuthRequired {
			return nil, err
		}
		c.logger.Warn("parse failed, falling back to line scanner", "error", err)
		return c.applyFallback(code, err)
	}

	doc, err := generate.DecodeRepresentation(resp.Representation)
	if err != nil {
		c.logger.Warn("unusable parser representation, falling back to line scanner", "error", err)
		return c.applyFallback(code, err)
	}

	f := generate.FromRepresentation(doc, language)
	if len(f.Nodes) == 0 {
		cause := schema.NewError(schema.ErrCodeEmptyResult, "generator produced no nodes")
		c.logger.Warn("empty generator output, falling back to line scanner")
		return c.applyFallback(code, cause)
	}

	if err := c.commitGenerated(f, "Generated flowchart from code"); err != nil {
		return nil, err
	}

	result := &GenerateResult{}
	for _, issue := range resp.LexerErrors {
		result.Warnings = append(result.Warnings, "lexer: "+issue.Text())
	}
	for _, issue := range resp.ParserErrors {
		result.Warnings = append(result.Warnings, "parser: "+issue.Text())
	}
	return result, nil
}

// AbortGeneration invalidates the in-flight generate request. The pending
// response, if any, is discarded when it arrives. Safe to call from
// another goroutine.
func (c *Controller) AbortGeneration() {
	c.generation.Add(1)
}

// applyFallback commits the line scanner's graph.
func (c *Controller) applyFallback(source string, cause error) (*GenerateResult, error) {
	f := generate.Fallback(source)
	if err := c.commitGenerated(f, "Generated flowchart from source scan"); err != nil {
		return nil, err
	}
	return &GenerateResult{UsedFallback: true, FallbackCause: cause}, nil
}

// commitGenerated atomically installs a generated flowchart: the history
// entry is recorded first so a snapshot failure leaves the live model
// unmodified, then the model is replaced and ephemeral state cleared.
func (c *Controller) commitGenerated(f *schema.Flowchart, description string) error {
	if _, err := c.log.Record(description, f); err != nil {
		return err
	}
	c.model.Replace(f)
	c.clearEphemeral()
	c.state = StateIdle
	c.logger.Info("installed generated flowchart",
		"nodes", len(f.Nodes), "connections", len(f.Connections))
	return nil
}
