package raindrop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	errs "github.com/iroshandezilva/raindrop-sync/internal/errors"
)

const (
	// DefaultBaseURL is the public Raindrop REST API root.
	DefaultBaseURL = "https://api.raindrop.io/rest/v1"

	// perPage is the fixed page size for record fetches. 50 is the
	// maximum Raindrop serves per request.
	perPage = 50

	// defaultPause is the delay between successive page requests.
	// Raindrop allows 120 requests per minute; one second between pages
	// keeps even a full-account fetch well under that.
	defaultPause = time.Second

	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory.
	maxAPIResponseBytes = 1024 * 1024
)

// Options adjusts client behavior. The zero value selects the public
// API, no item cap, and the default inter-page pause.
type Options struct {
	// BaseURL overrides the API root. Tests point it at a fake server.
	BaseURL string

	// MaxItems caps the total number of records fetched per run.
	// Zero means unlimited.
	MaxItems int

	// Pause overrides the inter-page delay when positive.
	Pause time.Duration
}

// Client talks to the Raindrop REST API with a bearer token.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	maxItems   int
	pause      time.Duration
	logger     *slog.Logger
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. This prevents the bearer token
// from leaking to third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// NewClient creates a Raindrop API client. If httpClient is nil, a
// client with a 30-second timeout and same-host redirect policy is
// created.
func NewClient(httpClient *http.Client, token string, opts Options, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	pause := opts.Pause
	if pause <= 0 {
		pause = defaultPause
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      token,
		maxItems:   opts.MaxItems,
		pause:      pause,
		logger:     logger,
	}
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}
	// Ensure valid UTF-8 and replace control characters.
	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}

// do sends one authenticated request and returns the response body.
// Raindrop reports some failures as 200 with "result": false, so the
// body is probed for that before being handed back.
func (c *Client) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request body: %w", err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request to %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	// Cap response reads at 1MB. API responses are small JSON payloads.
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, errs.ErrUnauthorized)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s returned status %d (%s): %w",
			method, endpoint, resp.StatusCode, sanitizeResponseBody(respBody), errs.ErrAPIRequest)
	}

	if result := gjson.GetBytes(respBody, "result"); result.Exists() && !result.Bool() {
		msg := gjson.GetBytes(respBody, "errorMessage").Str
		if msg == "" {
			msg = gjson.GetBytes(respBody, "error").Str
		}

		return nil, fmt.Errorf("%s %s: %s: %w", method, endpoint, msg, errs.ErrAPIResponse)
	}

	return respBody, nil
}

// VerifyCredentials checks the configured token against the user
// endpoint. It performs no mutation and is safe to call repeatedly.
func (c *Client) VerifyCredentials(ctx context.Context) error {
	respBody, err := c.do(ctx, http.MethodGet, "/user", nil)
	if err != nil {
		return fmt.Errorf("verifying credentials: %w", err)
	}

	if name := gjson.GetBytes(respBody, "user.fullName").Str; name != "" {
		c.logger.Debug("authenticated with Raindrop", slog.String("user", name))
	}

	return nil
}

// FetchCollections returns the user's complete collection set: root
// collections plus nested children, each child carrying a parent
// reference. Any failure aborts the fetch.
func (c *Client) FetchCollections(ctx context.Context) ([]Collection, error) {
	var all []Collection

	for _, endpoint := range []string{"/collections", "/collections/childrens"} {
		respBody, err := c.do(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("fetching collections: %w", err)
		}

		var resp collectionsResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}

		all = append(all, resp.Items...)
	}

	c.logger.Debug("fetched collections", slog.Int("count", len(all)))

	return all, nil
}

// FetchRaindrops returns every bookmark in the account, page by page
// from collection 0 (all bookmarks). It keeps requesting while the
// previous page came back full AND the running total has not reached
// the server-reported count; the second guard avoids an extra request
// when the final page is exactly full. A configured item cap truncates
// the fetch early. Page requests are paced to respect the service's
// rate limit. Any non-success response aborts the whole fetch; callers
// must not act on a partial record set.
func (c *Client) FetchRaindrops(ctx context.Context) ([]Raindrop, error) {
	var all []Raindrop

	for page := 0; ; page++ {
		if page > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.pause):
			}
		}

		endpoint := fmt.Sprintf("/raindrops/0?perpage=%d&page=%d", perPage, page)

		respBody, err := c.do(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("fetching raindrops page %d: %w", page, err)
		}

		var resp raindropsResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return nil, fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}

		all = append(all, resp.Items...)

		c.logger.Debug("fetched raindrops page",
			slog.Int("page", page),
			slog.Int("items", len(resp.Items)),
			slog.Int("fetched", len(all)),
			slog.Int("total", resp.Count))

		if c.maxItems > 0 && len(all) >= c.maxItems {
			all = all[:c.maxItems]

			c.logger.Info("item cap reached, truncating fetch",
				slog.Int("max_items", c.maxItems))

			break
		}

		if len(resp.Items) < perPage || len(all) >= resp.Count {
			break
		}
	}

	return all, nil
}

// UpdateRaindrop pushes an annotation (and, when tags is non-nil, a
// full replacement tag list) for one record. The request is idempotent;
// callers treat a failure as a per-item error and move on.
func (c *Client) UpdateRaindrop(ctx context.Context, id int64, excerpt string, tags []string) error {
	endpoint := fmt.Sprintf("/raindrop/%d", id)

	if _, err := c.do(ctx, http.MethodPut, endpoint, updateRequest{Excerpt: excerpt, Tags: tags}); err != nil {
		return fmt.Errorf("updating raindrop %d: %w", id, err)
	}

	return nil
}
