package parserclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/flowdeck/pkg/schema"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Config{BaseURL: srv.URL, Token: "test-token"})
}

func TestParse_Success(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]string

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"representation":{"type":"Program","body":{"type":"Block"}}}`))
	})

	resp, err := c.Parse(context.Background(), "int main(){}", "cpp")
	require.NoError(t, err)

	assert.Equal(t, "/parser/parse", gotPath)
	assert.Equal(t, "Bearer test-token", gotAuth)
	assert.Equal(t, "int main(){}", gotBody["Code"])
	assert.Equal(t, "cpp", gotBody["Language"])
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.Representation)
}

func TestParse_DoubleEncodedRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"representation":"{\"program\":{}}"}`))
	})

	resp, err := c.Parse(context.Background(), "program p; begin end.", "pascal")
	require.NoError(t, err)

	// The representation stays raw; decoding is the caller's job.
	assert.JSONEq(t, `"{\"program\":{}}"`, string(resp.Representation))
}

func TestParse_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Parse(context.Background(), "x", "pascal")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeAuthRequired, schema.ErrorCode(err))
}

func TestParse_MissingToken(t *testing.T) {
	c := New(Config{BaseURL: "http://localhost:1"})

	_, err := c.Parse(context.Background(), "x", "pascal")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeAuthRequired, schema.ErrorCode(err))
}

func TestParse_ServiceUnavailable(t *testing.T) {
	t.Run("with error body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":"worker crashed"}`))
		})

		_, err := c.Parse(context.Background(), "x", "pascal")
		require.Error(t, err)
		assert.Equal(t, schema.ErrCodeParserUnavailable, schema.ErrorCode(err))
		assert.Contains(t, err.Error(), "worker crashed")
	})

	t.Run("without body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})

		_, err := c.Parse(context.Background(), "x", "pascal")
		require.Error(t, err)
		assert.Equal(t, schema.ErrCodeParserUnavailable, schema.ErrorCode(err))
	})
}

func TestParse_GatewayTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	})

	_, err := c.Parse(context.Background(), "x", "pascal")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeParserTimeout, schema.ErrorCode(err))
}

func TestParse_ClientTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server can detect the client disconnect
		// and cancel the request context; otherwise srv.Close hangs.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	t.Cleanup(srv.Close)

	c := New(Config{BaseURL: srv.URL, Token: "test-token", Timeout: 50 * time.Millisecond})

	_, err := c.Parse(context.Background(), "x", "pascal")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeParserTimeout, schema.ErrorCode(err))
}

func TestParse_OOMClassification(t *testing.T) {
	for _, msg := range []string{
		"std::bad_alloc",
		"Bad Allocation in parser",
		"out of MEMORY",
		"allocation failure",
	} {
		t.Run(msg, func(t *testing.T) {
			body, _ := json.Marshal(map[string]any{
				"success":        true,
				"representation": map[string]any{"program": map[string]any{}},
				"parserErrors":   []map[string]string{{"message": msg}},
			})
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write(body)
			})

			_, err := c.Parse(context.Background(), "x", "pascal")
			require.Error(t, err, "memory errors override the success flag")
			assert.Equal(t, schema.ErrCodeParserOOM, schema.ErrorCode(err))
		})
	}
}

func TestParse_NonOOMParserErrorsPassThrough(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"representation":{"program":{}},"parserErrors":[{"message":"unexpected token ;"}]}`))
	})

	resp, err := c.Parse(context.Background(), "x", "pascal")
	require.NoError(t, err)
	require.Len(t, resp.ParserErrors, 1)
	assert.Equal(t, "unexpected token ;", resp.ParserErrors[0].Text())
}

func TestParse_FailureEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"error":"syntax error at line 3"}`))
	})

	_, err := c.Parse(context.Background(), "x", "pascal")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeParseFailed, schema.ErrorCode(err))
	assert.Contains(t, err.Error(), "syntax error at line 3")
}

func TestParse_MissingRepresentation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	_, err := c.Parse(context.Background(), "x", "pascal")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeParseFailed, schema.ErrorCode(err))
}

func TestParse_UnexpectedStatus(t *testing.T) {
	t.Run("json error body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"message":"database offline"}`))
		})

		_, err := c.Parse(context.Background(), "x", "pascal")
		require.Error(t, err)
		assert.Equal(t, schema.ErrCodeParseFailed, schema.ErrorCode(err))
		assert.Contains(t, err.Error(), "500")
		assert.Contains(t, err.Error(), "database offline")
	})

	t.Run("plain text body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("malformed request"))
		})

		_, err := c.Parse(context.Background(), "x", "pascal")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "malformed request")
	})
}

func TestParse_Unreachable(t *testing.T) {
	c := New(Config{BaseURL: "http://127.0.0.1:1", Token: "test-token", Timeout: time.Second})

	_, err := c.Parse(context.Background(), "x", "pascal")
	require.Error(t, err)
	assert.Equal(t, schema.ErrCodeParserUnavailable, schema.ErrorCode(err))
}
