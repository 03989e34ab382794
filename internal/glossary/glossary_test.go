package glossary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/marketops/mopctl/internal/retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestExtractSlug(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/glossary/api-gateway/", "api-gateway"},
		{"https://example.com/glossary/sip-trunking", "sip-trunking"},
		{"https://example.com/blog/not-a-term/", ""},
		{"https://example.com/glossary/", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractSlug(tt.url), tt.url)
	}
}

func TestBuildPromptMentionsTermAndLength(t *testing.T) {
	term := &Term{Title: "SIP Trunking", Content: "<p>old</p>", Excerpt: "<p>short</p>"}
	prompt := buildPrompt(term, 600)

	assert.Contains(t, prompt, "SIP Trunking")
	assert.Contains(t, prompt, "600 words")
	assert.Contains(t, prompt, "full_content_html")
	assert.Contains(t, prompt, "excerpt_html")
}

// fakeModel returns a canned response for every prompt.
type fakeModel struct {
	response string
	calls    atomic.Int32
}

func (m *fakeModel) Generate(_ context.Context, _ string) (string, error) {
	m.calls.Add(1)
	return m.response, nil
}

func (m *fakeModel) Model() string { return "fake" }

func writeInputCSV(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "terms.csv")
	content := "Term,Url\n" + strings.Join(rows, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestWPServer(t *testing.T, updates *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wp/v2/glossary", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "editor" || pass != "app-pass" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		slug := r.URL.Query().Get("slug")
		if slug == "empty-term" {
			_ = json.NewEncoder(w).Encode([]map[string]any{{
				"id":      7,
				"title":   map[string]string{"rendered": "Empty Term"},
				"content": map[string]string{"rendered": ""},
				"excerpt": map[string]string{"rendered": ""},
			}})
			return
		}
		if slug == "unknown" {
			_ = json.NewEncoder(w).Encode([]map[string]any{})
			return
		}
		_ = json.NewEncoder(w).Encode([]map[string]any{{
			"id":      42,
			"title":   map[string]string{"rendered": "API Gateway"},
			"content": map[string]string{"rendered": "<p>thin definition</p>"},
			"excerpt": map[string]string{"rendered": "<p>old excerpt</p>"},
		}})
	})
	mux.HandleFunc("/wp-json/wp/v2/glossary/", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "publish", payload["status"])
		assert.NotEmpty(t, payload["content"])
		updates.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]int{"id": 42})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestExpander(t *testing.T, server *httptest.Server, model *fakeModel, cfg Config) *Expander {
	t.Helper()
	wp, err := NewWPClient(WPConfig{
		CollectionURL:       server.URL + "/wp-json/wp/v2/glossary",
		UpdateURLBase:       server.URL + "/wp-json/wp/v2/glossary/",
		Username:            "editor",
		ApplicationPassword: "app-pass",
		Retry:               retry.Config{MaxAttempts: 1},
	}, zap.NewNop())
	require.NoError(t, err)
	return NewExpander(wp, model, cfg, zap.NewNop())
}

func TestRunExpandsAndPublishes(t *testing.T) {
	var updates atomic.Int32
	server := newTestWPServer(t, &updates)
	model := &fakeModel{response: `{"full_content_html": "<h4>How it Works</h4><p>long</p>", "excerpt_html": "<p>new</p>"}`}

	logPath := filepath.Join(t.TempDir(), "log.txt")
	exp := newTestExpander(t, server, model, Config{ResultLog: logPath})

	input := writeInputCSV(t,
		"API Gateway,https://example.com/glossary/api-gateway/",
		"Blog Post,https://example.com/blog/post/",
		"Unknown,https://example.com/glossary/unknown/",
		"Empty,https://example.com/glossary/empty-term/",
	)

	summary, err := exp.Run(context.Background(), input)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.Failed) // unknown slug, empty content
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, int32(1), updates.Load())
	assert.Equal(t, int32(1), model.calls.Load())

	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), "SUCCESS: Updated 'API Gateway' (ID: 42).")
	assert.Contains(t, string(logged), "Total successful updates: 1")
}

func TestRunKeepsOriginalExcerptWhenModelOmitsIt(t *testing.T) {
	var updates atomic.Int32
	server := newTestWPServer(t, &updates)
	model := &fakeModel{response: `{"full_content_html": "<p>expanded</p>"}`}

	exp := newTestExpander(t, server, model, Config{})
	input := writeInputCSV(t, "API Gateway,https://example.com/glossary/api-gateway/")

	summary, err := exp.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestRunUnusableModelOutputFails(t *testing.T) {
	var updates atomic.Int32
	server := newTestWPServer(t, &updates)
	model := &fakeModel{response: "Sorry, I cannot help with that."}

	exp := newTestExpander(t, server, model, Config{})
	input := writeInputCSV(t, "API Gateway,https://example.com/glossary/api-gateway/")

	summary, err := exp.Run(context.Background(), input)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, int32(0), updates.Load())
}

func TestRunRequiresURLColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("Term,Link\na,b\n"), 0o644))

	exp := NewExpander(nil, nil, Config{}, zap.NewNop())
	_, err := exp.Run(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'Url' column")
}
