package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/aincatoni/pcfactory-monitor/pkg/config"
)

// Client wraps http.Client with an automatic retry policy for transient
// failures. It is safe for concurrent use by multiple workers; the underlying
// connection pool is sized to at least the worker count.
type Client struct {
	client    *http.Client
	retry     config.RetryConfig
	userAgent *UserAgent
	acceptLng string
	retryable map[int]struct{}
	sleep     func(time.Duration) // test hook; nil means real timer
}

// UserAgent provides random agents
type UserAgent struct {
	agents []string
	mu     sync.RWMutex
}

// NewUserAgent creates agent provider
func NewUserAgent(agents []string) *UserAgent {
	return &UserAgent{agents: agents}
}

// Random returns random agent
func (ua *UserAgent) Random() string {
	ua.mu.RLock()
	defer ua.mu.RUnlock()
	if len(ua.agents) == 0 {
		return ""
	}
	return ua.agents[rand.Intn(len(ua.agents))]
}

// New creates a client from the HTTP and retry configuration.
func New(httpCfg config.HTTPConfig, retryCfg config.RetryConfig) *Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   httpCfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: httpCfg.Timeout,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConns:        httpCfg.MaxPoolConnections,
		MaxIdleConnsPerHost: httpCfg.MaxPoolConnections,
	}

	retryable := make(map[int]struct{}, len(retryCfg.RetryableStatuses))
	for _, s := range retryCfg.RetryableStatuses {
		retryable[s] = struct{}{}
	}

	return &Client{
		client:    &http.Client{Transport: transport, Timeout: httpCfg.Timeout},
		retry:     retryCfg,
		userAgent: NewUserAgent(httpCfg.UserAgents),
		acceptLng: httpCfg.AcceptLanguage,
		retryable: retryable,
	}
}

// Do performs the request, retrying on transport errors and on any status in
// the retryable set, up to MaxAttempts total attempts. Backoff grows as
// BackoffBase * 2^attempt with jitter; a server Retry-After wins when longer,
// capped at MaxRetryAfter. Non-retryable statuses are returned to the caller
// on the first attempt.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("buffer request body: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := c.wait(req.Context(), c.backoff(attempt-1, lastErr)); err != nil {
				return nil, err
			}
		}

		attemptReq := req.Clone(req.Context())
		if body != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(body))
			attemptReq.ContentLength = int64(len(body))
		}
		attemptReq.Header.Set("User-Agent", c.userAgent.Random())
		if c.acceptLng != "" && attemptReq.Header.Get("Accept-Language") == "" {
			attemptReq.Header.Set("Accept-Language", c.acceptLng)
		}

		resp, err := c.client.Do(attemptReq)
		if err != nil {
			lastErr = err
			continue
		}

		if _, retry := c.retryable[resp.StatusCode]; !retry {
			return resp, nil
		}

		lastErr = &RetryableStatusError{Status: resp.StatusCode, RetryAfter: retryAfter(resp)}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
	}

	return nil, fmt.Errorf("all %d attempts failed: %w", c.retry.MaxAttempts, lastErr)
}

// RetryableStatusError reports a response whose status exhausted the retry
// budget. Status lets the prober distinguish a rate limit from a 5xx.
type RetryableStatusError struct {
	Status     int
	RetryAfter time.Duration
}

func (e *RetryableStatusError) Error() string {
	return fmt.Sprintf("retryable status %d", e.Status)
}

// backoff computes the pause before the attempt following attempt n.
func (c *Client) backoff(n int, lastErr error) time.Duration {
	d := c.retry.BackoffBase * (1 << n)
	// Jitter in [0.5d, 1.5d) spreads retries from concurrent workers.
	d = d/2 + time.Duration(rand.Int63n(int64(d)))

	if c.retry.RespectRetryAfter {
		if se, ok := lastErr.(*RetryableStatusError); ok && se.RetryAfter > d {
			d = se.RetryAfter
		}
	}
	if d > c.retry.MaxRetryAfter {
		d = c.retry.MaxRetryAfter
	}
	return d
}

func (c *Client) wait(ctx context.Context, d time.Duration) error {
	if c.sleep != nil {
		c.sleep(d)
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

// Get performs a GET request with context.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json, text/html, */*;q=0.8")
	return c.Do(req)
}

// PostJSON performs a POST with a JSON-encoded payload.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) (*http.Response, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.Do(req)
}

// DecodeJSON reads and decodes a response body into v, closing the body.
func DecodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	const maxResponseBytes = 10 * 1024 * 1024
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode json: %w", err)
	}
	return nil
}
