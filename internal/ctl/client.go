package ctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"sessiond/pkg/types"
)

// Client is a thin HTTP client for the sessiond API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient builds a client for baseURL. Streaming requests disable the
// client timeout; everything else uses a short one.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func decodeAPIError(resp *http.Response) error {
	var er types.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err == nil && er.Error != "" {
		return fmt.Errorf("%s (status %d)", er.Error, resp.StatusCode)
	}
	return fmt.Errorf("request failed: status %d", resp.StatusCode)
}

// Models lists registry models.
func (c *Client) Models(ctx context.Context) ([]types.Model, error) {
	var out types.ModelsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/models", nil, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Status returns the server status report.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	var out types.StatusResponse
	err := c.doJSON(ctx, http.MethodGet, "/status", nil, &out)
	return out, err
}

// Sessions lists live sessions.
func (c *Client) Sessions(ctx context.Context) ([]types.SessionStatus, error) {
	var out types.SessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// Create creates a session and returns its status.
func (c *Client) Create(ctx context.Context, req types.CreateSessionRequest) (types.SessionStatus, error) {
	var out types.SessionStatus
	err := c.doJSON(ctx, http.MethodPost, "/sessions", req, &out)
	return out, err
}

// Get fetches one session's status.
func (c *Client) Get(ctx context.Context, id string) (types.SessionStatus, error) {
	var out types.SessionStatus
	err := c.doJSON(ctx, http.MethodGet, "/sessions/"+id, nil, &out)
	return out, err
}

// Destroy removes a session.
func (c *Client) Destroy(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/sessions/"+id, nil, nil)
}

// System sets the session's system prompt.
func (c *Client) System(ctx context.Context, id, text string) error {
	return c.doJSON(ctx, http.MethodPost, "/sessions/"+id+"/system", types.SystemPromptRequest{Text: text}, nil)
}

// Prompt prefills the user prompt and returns the sequence length.
func (c *Client) Prompt(ctx context.Context, id, text string, maxTokens int) (int, error) {
	var out types.PromptResponse
	err := c.doJSON(ctx, http.MethodPost, "/sessions/"+id+"/prompt",
		types.PromptRequest{Text: text, MaxTokens: maxTokens}, &out)
	return out.PromptTokens, err
}

// Next generates one token.
func (c *Client) Next(ctx context.Context, id string) (types.TokenResponse, error) {
	var out types.TokenResponse
	err := c.doJSON(ctx, http.MethodPost, "/sessions/"+id+"/next", struct{}{}, &out)
	return out, err
}

// Reset clears the session's conversation state.
func (c *Client) Reset(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodPost, "/sessions/"+id+"/reset", struct{}{}, nil)
}

// GenerateResult summarizes a finished generate stream.
type GenerateResult struct {
	Content      string
	FinishReason string
	Err          string
}

// Generate streams tokens, writing each fragment to w as it arrives, and
// returns the final summary line.
func (c *Client) Generate(ctx context.Context, id string, maxTokens int, w io.Writer) (GenerateResult, error) {
	var res GenerateResult
	b, err := json.Marshal(types.GenerateRequest{MaxTokens: maxTokens})
	if err != nil {
		return res, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/sessions/"+id+"/generate", bytes.NewReader(b))
	if err != nil {
		return res, err
	}
	req.Header.Set("Content-Type", "application/json")
	// No client timeout for the stream; the context bounds it.
	streamClient := &http.Client{Transport: c.HTTP.Transport}
	resp, err := streamClient.Do(req)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return res, decodeAPIError(resp)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var msg struct {
			Token        string `json:"token"`
			Done         bool   `json:"done"`
			Content      string `json:"content"`
			FinishReason string `json:"finish_reason"`
			Error        string `json:"error"`
		}
		if err := json.Unmarshal(line, &msg); err != nil {
			return res, fmt.Errorf("bad stream line: %w", err)
		}
		if msg.Done {
			res.Content = msg.Content
			res.FinishReason = msg.FinishReason
			res.Err = msg.Error
			break
		}
		if msg.Token != "" && w != nil {
			if _, err := io.WriteString(w, msg.Token); err != nil {
				return res, err
			}
		}
	}
	if err := sc.Err(); err != nil {
		return res, err
	}
	if res.Err != "" {
		return res, fmt.Errorf("generation failed: %s", res.Err)
	}
	return res, nil
}
