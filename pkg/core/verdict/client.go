package verdict

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const analyzePath = "/api/analyze"

// Client calls the external claim-analysis service over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the analysis service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// NewClientWithHTTP creates a client with a custom HTTP client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type analyzeRequest struct {
	Text string `json:"text"`
}

type analyzeResponse struct {
	Status string     `json:"status"`
	Result *RawResult `json:"result"`
}

// Analyze submits an utterance for fact checking and returns the normalized
// verdict. Any transport error, non-2xx status, or malformed body is
// returned as an error; the caller treats all of these like a timeout.
func (c *Client) Analyze(ctx context.Context, text string) (Result, error) {
	body, err := json.Marshal(analyzeRequest{Text: text})
	if err != nil {
		return Result{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+analyzePath, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("analyze request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("analyze error %d: %s", resp.StatusCode, string(msg))
	}

	var parsed analyzeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Result{}, fmt.Errorf("parse response: %w", err)
	}
	if parsed.Result == nil {
		return Result{}, fmt.Errorf("response missing result")
	}

	return Normalize(*parsed.Result), nil
}
