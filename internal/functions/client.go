package functions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/atendimento-service/internal/config"
)

// ErrNotConfigured is returned when no functions base URL is set.
var ErrNotConfigured = errors.New("backend functions not configured")

// RemoteError reports a non-2xx answer from a backend function.
type RemoteError struct {
	Function string
	Status   int
	Message  string
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("function %s returned %d: %s", e.Function, e.Status, e.Message)
	}
	return fmt.Sprintf("function %s returned %d", e.Function, e.Status)
}

// Invoker calls a backend function by name and decodes its data object into out.
type Invoker interface {
	Invoke(ctx context.Context, name string, payload any, out any) error
}

// Client invokes serverless functions over HTTP using the fiber client agent.
// Calls are never retried.
type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

// NewClient builds a client from config.
func NewClient(cfg config.FunctionsConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout(),
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Invoke posts payload to {base}/functions/{name} and decodes the "data" member into out.
func (c *Client) Invoke(ctx context.Context, name string, payload any, out any) error {
	if c == nil || c.baseURL == "" {
		return ErrNotConfigured
	}
	code, body, err := c.post(ctx, c.baseURL+"/functions/"+name, payload)
	if err != nil {
		return fmt.Errorf("invoke %s: %w", name, err)
	}

	var env envelope
	if len(body) > 0 {
		if err := json.Unmarshal(body, &env); err != nil && code < 300 {
			return fmt.Errorf("decode %s response: %w", name, err)
		}
	}
	if code < 200 || code >= 300 {
		return &RemoteError{Function: name, Status: code, Message: env.Error}
	}
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s data: %w", name, err)
	}
	return nil
}

// PostJSON delivers payload to an arbitrary URL, used for webhook hand-offs.
func (c *Client) PostJSON(ctx context.Context, url string, payload any) error {
	if c == nil {
		return ErrNotConfigured
	}
	code, _, err := c.post(ctx, url, payload)
	if err != nil {
		return err
	}
	if code < 200 || code >= 300 {
		return &RemoteError{Function: url, Status: code}
	}
	return nil
}

func (c *Client) post(ctx context.Context, url string, payload any) (int, []byte, error) {
	if err := ctx.Err(); err != nil {
		return 0, nil, err
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if timeout <= 0 {
		return 0, nil, context.DeadlineExceeded
	}

	agent := fiber.Post(url).JSON(payload).Timeout(timeout)
	if c.apiKey != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+c.apiKey)
	}
	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return code, nil, errors.Join(errs...)
	}
	return code, body, nil
}
