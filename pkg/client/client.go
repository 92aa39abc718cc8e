// Package client foundermatch REST API 的 Go 客户端。
// 幂等的 GET 在熔断器保护下有限重试；变更请求只发一次，失败时错误中带回原始输入，由调用方决定是否重新提交。
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"foundermatch/pkg/apperr"
	"foundermatch/pkg/circuitbreaker"
)

// APIError 服务端返回的错误响应；Unwrap 得到领域错误，可用 errors.Is 与 apperr 哨兵比较
type APIError struct {
	Status int
	Err    *apperr.Error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("http %d: %s: %s", e.Status, e.Err.Code, e.Err.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

// MutationError 变更请求失败；Input 为原始请求体
type MutationError struct {
	Method string
	Path   string
	Input  any
	Err    error
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *MutationError) Unwrap() error { return e.Err }

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	breaker *circuitbreaker.CircuitBreaker

	maxRetries int
	backoff    time.Duration
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRetry GET 失败后最多再试 n 次，第 i 次重试前等待 i*backoff
func WithRetry(n int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.backoff = backoff
	}
}

func WithCircuitBreaker(cfg circuitbreaker.Config) Option {
	return func(c *Client) {
		cfg.IsFailure = retryable
		c.breaker = circuitbreaker.NewCircuitBreaker(cfg)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: 10 * time.Second},
		maxRetries: 2,
		backoff:    200 * time.Millisecond,
	}
	cfg := circuitbreaker.DefaultConfig()
	cfg.IsFailure = retryable
	c.breaker = circuitbreaker.NewCircuitBreaker(cfg)

	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) {
	c.token = token
}

// BreakerState 读请求熔断器的当前状态
func (c *Client) BreakerState() circuitbreaker.State {
	return c.breaker.GetState()
}

// retryable 网络错误和 5xx 可以重试，也只有它们计入熔断
func retryable(err error) bool {
	if err == nil || errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	var decodeErr *decodeError
	return !errors.As(err, &decodeErr)
}

type decodeError struct{ err error }

func (e *decodeError) Error() string { return "failed to decode response: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// get 幂等读取，经熔断器执行并按退避重试
func (c *Client) get(ctx context.Context, path string, out any) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = c.breaker.Execute(func() error {
			return c.do(ctx, http.MethodGet, path, nil, out)
		})
		if err == nil || !retryable(err) || attempt >= c.maxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * c.backoff):
		}
	}
}

// mutate 只发送一次
func (c *Client) mutate(ctx context.Context, method, path string, in, out any) error {
	if err := c.do(ctx, method, path, in, out); err != nil {
		return &MutationError{Method: method, Path: path, Input: in, Err: err}
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return readError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

func readError(resp *http.Response) error {
	var body struct {
		Error struct {
			Code    apperr.Code `json:"code"`
			Message string      `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error.Code == "" {
		body.Error.Code = apperr.CodeInternal
		body.Error.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{
		Status: resp.StatusCode,
		Err:    apperr.New(body.Error.Code, "%s", body.Error.Message),
	}
}
