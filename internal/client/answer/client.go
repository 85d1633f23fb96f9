package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxResponseBytes = 1 << 20

// ErrMalformedAnswer reports a 2xx response without a string answer field.
var ErrMalformedAnswer = errors.New("malformed answer payload")

// StatusError is a non-2xx reply from the answer service.
type StatusError struct {
	StatusCode int
	Answer     string
}

func (e *StatusError) Error() string {
	if e.Answer == "" {
		return fmt.Sprintf("answer service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("answer service returned status %d: %s", e.StatusCode, e.Answer)
}

// Client calls POST /ask on an answer service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout bounds each request. Zero leaves requests bounded only by ctx.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask posts question and returns the answer text. Cancelling ctx aborts the
// request and the returned error wraps context.Canceled.
func (c *Client) Ask(ctx context.Context, question string) (string, error) {
	body, err := json.Marshal(map[string]string{"question": question})
	if err != nil {
		return "", fmt.Errorf("encode question: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ask", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ask request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read answer: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Answer:     gjson.GetBytes(payload, "answer").String(),
		}
	}

	if !gjson.ValidBytes(payload) {
		return "", ErrMalformedAnswer
	}
	result := gjson.GetBytes(payload, "answer")
	if result.Type != gjson.String {
		return "", fmt.Errorf("%w: answer field is %s", ErrMalformedAnswer, result.Type)
	}
	if strings.TrimSpace(result.String()) == "" {
		return "", fmt.Errorf("%w: answer is empty", ErrMalformedAnswer)
	}
	return result.String(), nil
}
