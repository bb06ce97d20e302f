// Package llm - Gemini native API client implementation
// https://ai.google.dev/api/rest
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// GeminiClient implements Client against Gemini's native REST API.
type GeminiClient struct {
	APIKey  string
	Model   string
	BaseURL string
	HTTP    *http.Client
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"` // "user" or "model"
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
	Error      *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

// NewGeminiClient creates a new Gemini native API client.
func NewGeminiClient(apiKey, model string, timeout time.Duration) *GeminiClient {
	if model == "" {
		model = "gemini-2.0-flash"
	}
	if timeout == 0 {
		timeout = 12 * time.Second
	}
	return &GeminiClient{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Chat sends a single system+user exchange.
func (c *GeminiClient) Chat(ctx context.Context, system, user string) (string, error) {
	return c.ChatMessages(ctx, []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}, Options{})
}

// ChatMessages sends a generateContent request.
// Gemini has no system role; system content is prepended to the first user turn.
func (c *GeminiClient) ChatMessages(ctx context.Context, msgs []Message, opts Options) (string, error) {
	var system string
	var contents []geminiContent
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case RoleAssistant:
			contents = append(contents, geminiContent{Role: "model", Parts: []geminiPart{{Text: m.Content}}})
		default:
			contents = append(contents, geminiContent{Role: "user", Parts: []geminiPart{{Text: m.Content}}})
		}
	}
	if system != "" {
		if len(contents) > 0 && contents[0].Role == "user" {
			contents[0].Parts[0].Text = fmt.Sprintf("System Instructions: %s\n\nUser: %s", system, contents[0].Parts[0].Text)
		} else {
			contents = append([]geminiContent{{Role: "user", Parts: []geminiPart{{Text: system}}}}, contents...)
		}
	}

	reqBody := geminiRequest{Contents: contents}
	if opts.Temperature != 0 || opts.MaxTokens != 0 {
		reqBody.GenerationConfig = &geminiGenConfig{
			Temperature:     opts.Temperature,
			MaxOutputTokens: opts.MaxTokens,
		}
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("gemini: marshal request: %w", err)
	}
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, c.Model, c.APIKey)

	// Retry loop (max 2 attempts)
	for attempt := 0; attempt < 2; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
		if err != nil {
			return "", fmt.Errorf("gemini: create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		res, err := c.HTTP.Do(httpReq)
		if err != nil {
			if attempt == 0 {
				time.Sleep(3 * time.Second)
				continue
			}
			return "", fmt.Errorf("gemini: http request: %w", err)
		}
		body, _ := io.ReadAll(res.Body)
		res.Body.Close()

		if res.StatusCode == http.StatusTooManyRequests {
			log.Printf("[gemini] rate limited (429), attempt %d", attempt+1)
			if attempt == 0 {
				time.Sleep(4 * time.Second)
				continue
			}
			return "", fmt.Errorf("gemini: 429 rate limit: %s", string(body))
		}
		if res.StatusCode/100 != 2 {
			if attempt == 0 {
				time.Sleep(2 * time.Second)
				continue
			}
			return "", fmt.Errorf("gemini: %d %s", res.StatusCode, string(body))
		}

		var out geminiResponse
		if err := json.Unmarshal(body, &out); err != nil {
			return "", fmt.Errorf("gemini: decode failed: %w; raw=%s", err, string(body))
		}
		if out.Error != nil {
			if attempt == 0 {
				time.Sleep(2 * time.Second)
				continue
			}
			return "", fmt.Errorf("gemini: %d %s", out.Error.Code, out.Error.Message)
		}
		if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
			if attempt == 0 {
				time.Sleep(time.Second)
				continue
			}
			return "", errors.New("gemini: empty candidates")
		}
		return strings.TrimSpace(out.Candidates[0].Content.Parts[0].Text), nil
	}
	return "", errors.New("gemini: retry exhausted")
}
