package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultPort          = 11434
	DefaultChatTimeout   = 300 * time.Second
	DefaultModelsTimeout = 30 * time.Second

	maxErrorBody = 4 << 10
)

// Client talks to one Ollama server. It is safe for concurrent use.
type Client struct {
	baseURL       string
	httpClient    *http.Client
	modelsTimeout time.Duration
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithChatTimeout bounds every chat call.
func WithChatTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout, Transport: c.httpClient.Transport}
		}
	}
}

// WithModelsTimeout bounds model listing.
func WithModelsTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.modelsTimeout = timeout
		}
	}
}

// NewClient creates a client for baseURL, e.g. http://10.0.0.5:11434.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:       strings.TrimRight(baseURL, "/"),
		httpClient:    &http.Client{Timeout: DefaultChatTimeout},
		modelsTimeout: DefaultModelsTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the root URL of the Ollama server at host. host may be a bare
// host or IP (port is then appended) or a full http(s) URL.
func BaseURL(host string, port int) string {
	host = strings.TrimSpace(host)
	if port <= 0 {
		port = DefaultPort
	}
	if strings.HasPrefix(host, "http://") || strings.HasPrefix(host, "https://") {
		return strings.TrimRight(host, "/")
	}
	if h, p, err := net.SplitHostPort(host); err == nil {
		return "http://" + net.JoinHostPort(h, p)
	}
	return "http://" + net.JoinHostPort(strings.Trim(host, "[]"), strconv.Itoa(port))
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Chat sends prompt as a single user message and returns the reply content.
func (c *Client) Chat(ctx context.Context, model string, prompt string) (string, error) {
	request := ChatRequest{
		Model:    model,
		Messages: []Message{{Role: "user", Content: prompt}},
		Stream:   false,
	}

	var response ChatResponse
	if err := c.do(ctx, http.MethodPost, "/api/chat", request, &response); err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("chat completion failed: %s", response.Error)
	}
	return response.Message.Content, nil
}

// ListModels returns the names of the models installed on the server.
// Failures are always *ModelListError.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.modelsTimeout)
	defer cancel()

	var response tagsResponse
	if err := c.do(ctx, http.MethodGet, "/api/tags", nil, &response); err != nil {
		if IsTimeout(err) {
			return nil, &ModelListError{Timeout: true, Message: modelListTimeoutMessage, Cause: err}
		}
		return nil, &ModelListError{Message: err.Error(), Cause: err}
	}

	names := make([]string, 0, len(response.Models))
	for _, model := range response.Models {
		names = append(names, model.Name)
	}
	return names, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{StatusCode: resp.StatusCode, Body: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// IsTimeout reports whether err came from a client, context or network deadline.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}
