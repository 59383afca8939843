// Package parserclient implements the request/response contract with the
// external code parsing service, including the caller-imposed timeout and
// degraded-memory-error classification.
package parserclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

const (
	// DefaultTimeout bounds every parse request. The service may hang
	// without closing the connection, so the client always imposes its own
	// deadline independent of any server-side timeout.
	DefaultTimeout = 60 * time.Second

	defaultMaxResponseBody = 10 * 1024 * 1024 // 10MB
)

// oomMarkers reclassify a parser error as out-of-memory in the parser
// process, matched case-insensitively against parserErrors[0].message.
var oomMarkers = []string{"bad allocation", "bad_alloc", "memory", "allocation"}

// ParseIssue is one lexer or parser diagnostic from the service.
type ParseIssue struct {
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
	Line    int    `json:"line,omitempty"`
	Column  int    `json:"column,omitempty"`
}

// Text returns the issue's message, falling back to its raw value.
func (i ParseIssue) Text() string {
	if i.Message != "" {
		return i.Message
	}
	return i.Value
}

// ParseResponse is the service's success envelope. Representation may
// arrive double-encoded as a JSON string.
type ParseResponse struct {
	Success        bool            `json:"success"`
	Representation json.RawMessage `json:"representation"`
	LexerErrors    []ParseIssue    `json:"lexerErrors,omitempty"`
	ParserErrors   []ParseIssue    `json:"parserErrors,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Config configures the parser client.
type Config struct {
	BaseURL         string
	Token           string
	Timeout         time.Duration
	MaxResponseBody int64
	HTTPClient      *http.Client
	Logger          *slog.Logger
}

// Client talks to the parser service. Safe for concurrent use.
type Client struct {
	baseURL         string
	token           string
	timeout         time.Duration
	maxResponseBody int64
	httpClient      *http.Client
	logger          *slog.Logger
}

// New creates a parser client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseBody <= 0 {
		cfg.MaxResponseBody = defaultMaxResponseBody
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		token:           cfg.Token,
		timeout:         cfg.Timeout,
		maxResponseBody: cfg.MaxResponseBody,
		httpClient:      cfg.HTTPClient,
		logger:          cfg.Logger,
	}
}

// Parse submits source code for parsing and returns the service envelope.
// Failures come back as FlowErrors with the code carrying the
// classification: AUTH_REQUIRED, PARSER_UNAVAILABLE, PARSER_TIMEOUT,
// PARSER_OOM or PARSE_FAILED.
func (c *Client) Parse(ctx context.Context, code, language string) (*ParseResponse, error) {
	if c.token == "" {
		return nil, schema.NewError(schema.ErrCodeAuthRequired, "authorization required")
	}

	payload, err := json.Marshal(map[string]string{
		"Code":     code,
		"Language": language,
	})
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeParseFailed, "encode parse request").WithCause(err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+"/parser/parse", bytes.NewReader(payload))
	if err != nil {
		return nil, schema.NewError(schema.ErrCodeParseFailed, "build parse request").WithCause(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || reqCtx.Err() != nil {
			return nil, schema.NewError(schema.ErrCodeParserTimeout,
				"parse request timed out; the file is too large or the parser is overloaded").WithCause(err)
		}
		return nil, schema.NewError(schema.ErrCodeParserUnavailable, "parser service unreachable").WithCause(err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBody))
	c.logger.Debug("parser response",
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
		"body_bytes", len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.classifyStatus(resp.StatusCode, body)
	}
	if readErr != nil {
		return nil, schema.NewError(schema.ErrCodeParseFailed, "read parse response").WithCause(readErr)
	}

	var parsed ParseResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, schema.NewError(schema.ErrCodeParseFailed, "decode parse response").WithCause(err)
	}

	// An out-of-memory crash inside the parser shows up as a parser error
	// even when the envelope claims success.
	if len(parsed.ParserErrors) > 0 && isOOMMessage(parsed.ParserErrors[0].Message) {
		return nil, schema.NewError(schema.ErrCodeParserOOM,
			"the parser ran out of memory processing this code; simplify it or split it into parts")
	}

	if !parsed.Success {
		msg := parsed.Error
		if msg == "" {
			msg = "parsing failed"
		}
		return nil, schema.NewError(schema.ErrCodeParseFailed, msg)
	}
	if len(parsed.Representation) == 0 {
		return nil, schema.NewError(schema.ErrCodeParseFailed, "parser returned no representation")
	}

	return &parsed, nil
}

// classifyStatus maps non-2xx responses to the error taxonomy: 401 is an
// authorization failure, 503 is parser-service unavailable with optional
// {error} detail, 504 is a timeout, everything else surfaces the status
// and best-effort error text.
func (c *Client) classifyStatus(status int, body []byte) *schema.FlowError {
	switch status {
	case http.StatusUnauthorized:
		return schema.NewError(schema.ErrCodeAuthRequired, "authorization required")

	case http.StatusServiceUnavailable:
		detail := ""
		var env struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &env) == nil && env.Error != "" {
			detail = ": " + env.Error
		}
		return schema.NewError(schema.ErrCodeParserUnavailable,
			"parser service unavailable"+detail+"; the parser may have crashed on this code, be offline, or the code may be too complex")

	case http.StatusGatewayTimeout:
		return schema.NewError(schema.ErrCodeParserTimeout,
			"parse request timed out; the file is too large or the parser is overloaded")
	}

	text := bestEffortErrorText(body)
	msg := fmt.Sprintf("parser returned status %d", status)
	if text != "" {
		msg += ": " + text
	}
	return schema.NewError(schema.ErrCodeParseFailed, msg)
}

// bestEffortErrorText pulls error/message fields from a JSON body, falling
// back to the raw text.
func bestEffortErrorText(body []byte) string {
	var env struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &env) == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return strings.TrimSpace(string(body))
}

func isOOMMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range oomMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
