package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// apiClient is a thin wrapper over the kudosd HTTP API.
type apiClient struct {
	baseURL string
	httpc   *http.Client
}

func newAPIClient() *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(serverURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

// postJSON posts body as JSON and decodes the response into out (which may
// be nil).
func (c *apiClient) postJSON(path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	resp, err := c.httpc.Post(c.baseURL+path, "application/json", reader)
	if err != nil {
		return fmt.Errorf("call kudosd: %w", err)
	}
	return c.decode(resp, out)
}

// getJSON fetches path and decodes the JSON response into out.
func (c *apiClient) getJSON(path string, out any) error {
	resp, err := c.httpc.Get(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("call kudosd: %w", err)
	}
	return c.decode(resp, out)
}

// getBytes fetches path and returns the raw body (for audio).
func (c *apiClient) getBytes(path string) ([]byte, error) {
	resp, err := c.httpc.Get(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("call kudosd: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp)
	}
	return io.ReadAll(resp.Body)
}

func (c *apiClient) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// apiError turns the server's {"error","message"} body into an error,
// falling back to the status line.
func apiError(resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return fmt.Errorf("%s", body.Message)
	}
	return fmt.Errorf("kudosd returned %s", resp.Status)
}
