// Package search implements a web search client against the DuckDuckGo
// XML API, with rate limiting and bounded retries.
package search

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultBaseURL   = "https://api.duckduckgo.com/"
	defaultUserAgent = "hugchat/1.0 (+https://github.com/hugchat/hugchat)"
	defaultTimeout   = 10 * time.Second
)

// Sentinel errors for the search layer.
var (
	// ErrSearch indicates the search failed after exhausting retries.
	ErrSearch = errors.New("search failed")

	// ErrRateLimited indicates DuckDuckGo rejected the request with 429.
	// Rate limit responses are never retried.
	ErrRateLimited = errors.New("search rate limited")
)

// Result is a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// Response is a parsed search response. Abstract fields are populated
// when DuckDuckGo returns an instant-answer summary for the query.
type Response struct {
	Query       string   `json:"query"`
	Results     []Result `json:"results"`
	Abstract    string   `json:"abstract,omitempty"`
	AbstractURL string   `json:"abstract_url,omitempty"`
}

// Options control one search call. The zero value gets sane defaults.
type Options struct {
	Region     string // default "us-en"
	SafeSearch string // default "moderate"
	MaxResults int    // default 5, applied after parsing
}

// Client queries the DuckDuckGo XML API. Requests are serialized through
// a minimum inter-request delay; concurrent callers queue on the mutex.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	log        zerolog.Logger

	rateDelay  time.Duration
	maxRetries int
	retryDelay time.Duration

	mu          sync.Mutex
	lastRequest time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateDelay sets the minimum delay between consecutive requests.
func WithRateDelay(d time.Duration) Option {
	return func(c *Client) { c.rateDelay = d }
}

// WithRetries sets the retry budget and the base backoff delay. The
// backoff doubles per attempt.
func WithRetries(max int, base time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = max
		c.retryDelay = base
	}
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient creates a DuckDuckGo search client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		log:        zerolog.Nop(),
		rateDelay:  time.Second,
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search runs one query and returns the parsed response. Transport
// failures and 5xx responses are retried with doubling backoff up to the
// retry budget; 429 fails immediately with ErrRateLimited.
func (c *Client) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrSearch)
	}
	if opts.Region == "" {
		opts.Region = "us-en"
	}
	if opts.SafeSearch == "" {
		opts.SafeSearch = "moderate"
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 5
	}

	if err := c.waitForRateLimit(ctx); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * (1 << (attempt - 1))
			c.log.Debug().Int("attempt", attempt).Dur("delay", delay).Str("query", query).Msg("retrying search")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.doRequest(ctx, query, opts)
		if err == nil {
			c.log.Debug().Str("query", query).Int("results", len(resp.Results)).Msg("search completed")
			return resp, nil
		}
		if errors.Is(err, ErrRateLimited) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w: after %d retries: %v", ErrSearch, c.maxRetries, lastErr)
}

// waitForRateLimit reserves the next request slot and sleeps until it
// opens. The reservation happens under the lock so concurrent callers
// queue one rateDelay apart.
func (c *Client) waitForRateLimit(ctx context.Context) error {
	c.mu.Lock()
	wait := c.rateDelay - time.Since(c.lastRequest)
	if wait < 0 {
		wait = 0
	}
	c.lastRequest = time.Now().Add(wait)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}
	select {
	case <-time.After(wait):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) doRequest(ctx context.Context, query string, opts Options) (*Response, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad base url: %v", ErrSearch, err)
	}
	q := u.Query()
	q.Set("q", query)
	q.Set("format", "xml")
	q.Set("region", opts.Region)
	q.Set("safesearch", opts.SafeSearch)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("duckduckgo status %d", httpResp.StatusCode)
	}

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	resp, err := parseXMLResponse(body)
	if err != nil {
		return nil, err
	}
	resp.Query = query
	if len(resp.Results) > opts.MaxResults {
		resp.Results = resp.Results[:opts.MaxResults]
	}
	return resp, nil
}

// ddgResult mirrors one <Result> element of the XML response.
type ddgResult struct {
	Title    string `xml:"Title"`
	FirstURL string `xml:"FirstURL"`
	Text     string `xml:"Text"`
}

type ddgResponse struct {
	Results     []ddgResult `xml:"Results>Result"`
	Abstract    string      `xml:"Abstract"`
	AbstractURL string      `xml:"AbstractURL"`
}

func parseXMLResponse(body []byte) (*Response, error) {
	var parsed ddgResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: invalid xml response: %v", ErrSearch, err)
	}

	resp := &Response{
		Abstract:    strings.TrimSpace(parsed.Abstract),
		AbstractURL: strings.TrimSpace(parsed.AbstractURL),
	}
	for _, r := range parsed.Results {
		title := strings.TrimSpace(r.Title)
		link := strings.TrimSpace(r.FirstURL)
		if title == "" && link == "" {
			continue
		}
		resp.Results = append(resp.Results, Result{
			Title:   title,
			URL:     link,
			Snippet: strings.TrimSpace(r.Text),
		})
	}
	return resp, nil
}
