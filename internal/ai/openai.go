package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const openAIBaseURL = "https://api.openai.com/v1"

type openAI struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

func newOpenAI(apiKey, baseURL string, client *http.Client) *openAI {
	if baseURL == "" {
		baseURL = openAIBaseURL
	}
	return &openAI{httpClient: client, apiKey: apiKey, baseURL: strings.TrimRight(baseURL, "/")}
}

type openAIResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// content is a plain string for text-only prompts and a part list when
// images are attached.
func (o *openAI) content(req Request) any {
	if len(req.Images) == 0 {
		return req.Prompt
	}
	parts := []map[string]any{{"type": "text", "text": req.Prompt}}
	for _, img := range req.Images {
		dataURL := "data:" + img.MimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
		parts = append(parts, map[string]any{
			"type":      "image_url",
			"image_url": map[string]string{"url": dataURL},
		})
	}
	return parts
}

func (o *openAI) Generate(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(map[string]any{
		"model": req.Model,
		"messages": []map[string]any{
			{"role": "user", "content": o.content(req)},
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Provider: "OpenAI", StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var decoded openAIResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("no completion choices returned")
	}
	return decoded.Choices[0].Message.Content, nil
}
