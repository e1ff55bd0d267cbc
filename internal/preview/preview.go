package preview

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/matheus3301/tabroom/internal/metrics"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

// maxBody caps how much of a preview response is read.
const maxBody = 1 << 20

var urlPattern = regexp.MustCompile(`https?://[^\s]+`)

// ExtractURL returns the first http(s) URL in text.
func ExtractURL(text string) (string, bool) {
	u := urlPattern.FindString(text)
	return u, u != ""
}

// Client looks up link previews from an HTTP preview endpoint that answers
// GET <endpoint>?url=<escaped url> with a JSON object.
type Client struct {
	endpoint string
	http     *http.Client
	logger   *zap.Logger
	policy   *bluemonday.Policy
}

type response struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Domain      string `json:"domain"`
}

// NewClient creates a preview client. An empty endpoint disables lookups.
// timeout bounds each request; zero means no client-side limit beyond ctx.
func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
		policy:   bluemonday.StrictPolicy(),
	}
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.endpoint != ""
}

// Lookup fetches the preview for target. Any failure is logged and yields
// nil; Lookup never returns an error to the caller.
func (c *Client) Lookup(ctx context.Context, target string) *chat.LinkPreview {
	if !c.Enabled() {
		return nil
	}
	p, err := c.fetch(ctx, target)
	if err != nil {
		metrics.PreviewLookups.WithLabelValues("error").Inc()
		c.logger.Warn("link preview lookup failed", zap.Error(err), zap.String("url", target))
		return nil
	}
	metrics.PreviewLookups.WithLabelValues("ok").Inc()
	return p
}

func (c *Client) fetch(ctx context.Context, target string) (*chat.LinkPreview, error) {
	reqURL := c.endpoint
	if strings.Contains(reqURL, "?") {
		reqURL += "&"
	} else {
		reqURL += "?"
	}
	reqURL += "url=" + url.QueryEscape(target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("preview endpoint returned %s", resp.Status)
	}

	var body response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode preview: %w", err)
	}

	p := &chat.LinkPreview{
		Title:       c.plain(body.Title),
		Description: c.plain(body.Description),
		ImageRef:    strings.TrimSpace(body.Image),
		Domain:      strings.TrimSpace(body.Domain),
	}
	if p.Domain == "" {
		if u, err := url.Parse(target); err == nil {
			p.Domain = u.Hostname()
		}
	}
	return p, nil
}

// plain strips markup and returns unescaped text.
func (c *Client) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(c.policy.Sanitize(s)))
}
