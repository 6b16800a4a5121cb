package langgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/agentinbox/internal/retry"
	"github.com/BaSui01/agentinbox/types"
)

// Config configures a Client for one deployment.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	MaxRetries        int
	RetryInitialDelay time.Duration
	// RequestsPerSecond paces outgoing requests; 0 disables pacing.
	RequestsPerSecond float64
	Burst             int
}

// Client talks to a LangGraph deployment over HTTP.
type Client struct {
	cfg     Config
	http    *http.Client
	stream  *http.Client
	limiter *rate.Limiter
	retryer *retry.Retryer
	logger  *zap.Logger
}

// NewClient creates a client. Streams use a client without an overall
// timeout; they end with the run or the caller's context.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	transport := newTransport(cfg.APIKey)
	c := &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout, Transport: transport},
		stream: &http.Client{Transport: transport},
		logger: logger.With(zap.String("component", "langgraph_client")),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.MaxRetries
	if cfg.RetryInitialDelay > 0 {
		policy.InitialDelay = cfg.RetryInitialDelay
	}
	c.retryer = retry.New(policy, c.logger)
	return c
}

// =============================================================================
// threads
// =============================================================================

// SearchThreads lists threads matching req.
func (c *Client) SearchThreads(ctx context.Context, req SearchRequest) ([]Thread, error) {
	return retry.Do(ctx, c.retryer, "threads.search", func(ctx context.Context) ([]Thread, error) {
		var out []Thread
		err := c.do(ctx, http.MethodPost, "/threads/search", req, &out)
		return out, err
	})
}

// GetThread fetches one thread.
func (c *Client) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	return retry.Do(ctx, c.retryer, "threads.get", func(ctx context.Context) (*Thread, error) {
		var out Thread
		if err := c.do(ctx, http.MethodGet, threadPath(threadID, ""), nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// GetThreadState fetches the full execution state of a thread.
func (c *Client) GetThreadState(ctx context.Context, threadID string) (*ThreadState, error) {
	return retry.Do(ctx, c.retryer, "threads.getState", func(ctx context.Context) (*ThreadState, error) {
		var out ThreadState
		if err := c.do(ctx, http.MethodGet, threadPath(threadID, "/state"), nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
}

// UpdateThreadState writes thread state as if node req.AsNode produced it.
// Not retried.
func (c *Client) UpdateThreadState(ctx context.Context, threadID string, req UpdateStateRequest) error {
	return c.do(ctx, http.MethodPost, threadPath(threadID, "/state"), req, nil)
}

// =============================================================================
// runs
// =============================================================================

// CreateRun starts a background run. Not retried: the service owns
// idempotency of resumes.
func (c *Client) CreateRun(ctx context.Context, threadID string, req RunRequest) (*Run, error) {
	var out Run
	if err := c.do(ctx, http.MethodPost, threadPath(threadID, "/runs"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StreamRun starts a run and streams its events. The returned channel is
// closed when the run ends or ctx is canceled.
func (c *Client) StreamRun(ctx context.Context, threadID string, req RunRequest) (<-chan StreamEvent, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, threadPath(threadID, "/runs/stream"), req)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(httpReq)
	if err != nil {
		return nil, transportError("runs.stream", err)
	}
	if resp.StatusCode >= 400 {
		defer resp.Body.Close()
		return nil, mapHTTPError("runs.stream", resp)
	}
	c.logger.Debug("run stream opened", zap.String("thread_id", threadID))
	return readSSE(ctx, resp.Body), nil
}

// =============================================================================
// 🔧 helpers
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	op := method + " " + path
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
	)

	if resp.StatusCode >= 400 {
		return mapHTTPError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewError(types.ErrNetworkFailure, op+": decode response").WithCause(err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return types.NewError(types.ErrNetworkFailure, "rate limiter").WithCause(err)
	}
	return nil
}

func threadPath(threadID, suffix string) string {
	return "/threads/" + url.PathEscape(threadID) + suffix
}

// transportError marks transport failures retryable unless the caller gave up.
func transportError(op string, err error) error {
	e := types.NewNetworkError(op, err)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		e.Retryable = false
	}
	return e
}

func mapHTTPError(op string, resp *http.Response) error {
	msg := readErrorMessage(resp.Body)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "invalid assistant") || strings.Contains(lower, "assistant not found") {
		return types.NewError(types.ErrInvalidAssistant, msg).WithHTTPStatus(resp.StatusCode)
	}
	retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
	return types.Errorf(types.ErrNetworkFailure, "%s: status=%d msg=%s", op, resp.StatusCode, msg).
		WithHTTPStatus(resp.StatusCode).
		WithRetryable(retryable)
}

// readErrorMessage prefers the JSON "detail"/"message" field of an error body.
func readErrorMessage(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 4096))
	var parsed struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &parsed); err == nil {
		if s, ok := parsed.Detail.(string); ok && s != "" {
			return s
		}
		if parsed.Message != "" {
			return parsed.Message
		}
	}
	return strings.TrimSpace(string(data))
}
