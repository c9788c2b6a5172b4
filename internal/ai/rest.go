package ai

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
)

type restPart struct {
	Text string `json:"text,omitempty"`
}

type restContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []restPart `json:"parts"`
}

type restRequest struct {
	Contents []restContent `json:"contents"`
}

type restResponse struct {
	Candidates []struct {
		Content      restContent `json:"content"`
		FinishReason string      `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

const maxErrorBody = 512

// restGenerate posts a single-turn prompt to {base}/models/{model}:generateContent.
func (c *Client) restGenerate(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(restRequest{
		Contents: []restContent{{Role: "user", Parts: []restPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", transportErr("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", transportErr("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", transportErr("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := raw
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return "", transportErr("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var parsed restResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", malformedErr("decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", malformedErr("api error %d %s: %s", parsed.Error.Code, parsed.Error.Status, parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 {
		return "", malformedErr("no candidates")
	}
	parts := parsed.Candidates[0].Content.Parts
	if len(parts) == 0 {
		return "", malformedErr("candidate has no parts")
	}
	if parts[0].Text == "" {
		return "", malformedErr("%w", errEmptyText)
	}
	return parts[0].Text, nil
}
