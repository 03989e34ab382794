package glossary

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/marketops/mopctl/internal/retry"
	"go.uber.org/zap"
)

// Term is a glossary entry as returned by the WordPress REST API, with
// the rendered fields flattened.
type Term struct {
	ID      int
	Title   string
	Content string
	Excerpt string
}

// wpTerm mirrors the REST API's nested rendered-field shape.
type wpTerm struct {
	ID    int `json:"id"`
	Title struct {
		Rendered string `json:"rendered"`
	} `json:"title"`
	Content struct {
		Rendered string `json:"rendered"`
	} `json:"content"`
	Excerpt struct {
		Rendered string `json:"rendered"`
	} `json:"excerpt"`
}

// WPConfig configures the WordPress REST client.
type WPConfig struct {
	// CollectionURL is the glossary collection endpoint, queried by slug.
	CollectionURL string

	// UpdateURLBase is the per-term update endpoint; the term ID is
	// appended.
	UpdateURLBase string

	// Username and ApplicationPassword form the Basic auth pair.
	Username            string
	ApplicationPassword string

	Retry retry.Config
}

// WPClient talks to the WordPress REST API with application-password
// Basic auth.
type WPClient struct {
	cfg           WPConfig
	http          *http.Client
	authorization string
	logger        *zap.Logger
}

// NewWPClient validates the credentials and builds the client.
func NewWPClient(cfg WPConfig, logger *zap.Logger) (*WPClient, error) {
	if cfg.CollectionURL == "" || cfg.UpdateURLBase == "" {
		return nil, fmt.Errorf("wordpress collection and update URLs are required")
	}
	if cfg.Username == "" || cfg.ApplicationPassword == "" {
		return nil, fmt.Errorf("wordpress username or application password not set")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	creds := base64.StdEncoding.EncodeToString([]byte(cfg.Username + ":" + cfg.ApplicationPassword))
	return &WPClient{
		cfg:           cfg,
		http:          &http.Client{Timeout: 30 * time.Second},
		authorization: "Basic " + creds,
		logger:        logger,
	}, nil
}

// TermBySlug fetches a glossary term by slug. A nil Term with nil error
// means no term matched.
func (c *WPClient) TermBySlug(ctx context.Context, slug string) (*Term, error) {
	query := url.Values{"slug": {slug}, "per_page": {"1"}}
	reqURL := c.cfg.CollectionURL + "?" + query.Encode()

	var terms []wpTerm
	err := retry.Do(ctx, c.cfg.Retry, c.logger, "wp.fetch", func(ctx context.Context) error {
		body, err := c.do(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		terms = terms[:0]
		return json.Unmarshal(body, &terms)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch term %q: %w", slug, err)
	}
	if len(terms) == 0 {
		return nil, nil
	}

	t := terms[0]
	return &Term{
		ID:      t.ID,
		Title:   t.Title.Rendered,
		Content: t.Content.Rendered,
		Excerpt: t.Excerpt.Rendered,
	}, nil
}

// UpdateTerm publishes new content and excerpt for a term.
func (c *WPClient) UpdateTerm(ctx context.Context, id int, content, excerpt string) error {
	payload, err := json.Marshal(map[string]string{
		"content": content,
		"excerpt": excerpt,
		"status":  "publish",
		"type":    "glossary",
	})
	if err != nil {
		return err
	}

	updateURL := c.cfg.UpdateURLBase + strconv.Itoa(id)
	err = retry.Do(ctx, c.cfg.Retry, c.logger, "wp.update", func(ctx context.Context) error {
		_, err := c.do(ctx, http.MethodPost, updateURL, payload)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to update term %d: %w", id, err)
	}
	return nil
}

// do runs one authenticated request and classifies the outcome for the
// retry wrapper: rate limits and server errors are transient, other HTTP
// failures are not.
func (c *WPClient) do(ctx context.Context, method, reqURL string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authorization)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, retry.Transient(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, retry.Transient(err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return data, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, retry.Transient(fmt.Errorf("wordpress API returned HTTP %d: %s", resp.StatusCode, snippet(data)))
	default:
		return nil, fmt.Errorf("wordpress API returned HTTP %d: %s", resp.StatusCode, snippet(data))
	}
}

func snippet(b []byte) string {
	const max = 200
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}
