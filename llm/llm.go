// Package llm provides a small, pluggable chat-completion client with sane
// env defaults and local (no-key) allowance. The default provider is any
// OpenAI-compatible server, which covers locally hosted models (Ollama,
// llama.cpp, LM Studio).
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

var ErrLLMDisabled = errors.New("llm client disabled (missing key or base url)")

// Message is one chat turn on the wire.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Role values used in Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Options tunes a single completion call. Zero values mean provider defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client is the minimal interface the assistant engine depends on.
type Client interface {
	Chat(ctx context.Context, system, user string) (string, error)
	ChatMessages(ctx context.Context, msgs []Message, opts Options) (string, error)
}

// StreamingClient is implemented by providers that can deliver partial
// output. fn is called once per chunk; returning an error stops the stream.
type StreamingClient interface {
	Client
	ChatStream(ctx context.Context, msgs []Message, opts Options, fn func(chunk string) error) error
}

// LocalClient is an OpenAI-compatible HTTP client.
type LocalClient struct {
	BaseURL string
	APIKey  string
	Model   string
	HTTP    *http.Client
}

type chatReq struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

type chatResp struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string      `json:"message"`
		Type    string      `json:"type,omitempty"`
		Code    interface{} `json:"code,omitempty"`
	} `json:"error,omitempty"`
}

type chatChoice struct {
	Index        int     `json:"index"`
	FinishReason string  `json:"finish_reason"`
	Message      Message `json:"message"`
	Delta        Message `json:"delta"`
}

// Settings seeds client construction, typically from the config file.
// Environment variables override any set field; zero fields fall back to
// defaults.
type Settings struct {
	Provider string
	Model    string
	BaseURL  string
	Timeout  time.Duration
}

// NewFromEnv creates a client from environment variables alone.
func NewFromEnv() (Client, error) {
	return New(Settings{})
}

// New creates a client from s overlaid with environment variables.
// Provider selection: LLM_PROVIDER in {local, openai, gemini, googleai, none};
// default "local". Base URL precedence: LLM_BASE_URL > LLM_URL > s.BaseURL >
// default Ollama endpoint. Key precedence: LLM_API_KEY > OPENAI_API_KEY >
// GEMINI_API_KEY > GOOGLE_API_KEY. Local hosts (localhost/127.0.0.1) allow an
// empty key, as does LLM_ALLOW_NO_KEY=true.
func New(s Settings) (Client, error) {
	provider := strings.ToLower(firstNonEmpty(os.Getenv("LLM_PROVIDER"), s.Provider))
	if provider == "" {
		provider = "local"
	}

	model := firstNonEmpty(os.Getenv("LLM_MODEL"), s.Model)
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 12 * time.Second
	}
	if v := strings.TrimSpace(os.Getenv("LLM_TIMEOUT")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			timeout = d
		}
	}

	switch provider {
	case "none", "off", "disabled":
		return nil, ErrLLMDisabled

	case "gemini", "gemini-native":
		key := firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("GOOGLE_API_KEY"))
		if key == "" {
			return nil, ErrLLMDisabled
		}
		return NewGeminiClient(key, model, timeout), nil

	case "googleai":
		key := firstNonEmpty(os.Getenv("GOOGLE_API_KEY"), os.Getenv("GEMINI_API_KEY"))
		if key == "" {
			return nil, ErrLLMDisabled
		}
		return NewGoogleAIClient(context.Background(), key, model)

	case "local", "openai":
		base := firstNonEmpty(
			os.Getenv("LLM_BASE_URL"),
			os.Getenv("LLM_URL"),
			s.BaseURL,
		)
		if base == "" {
			base = "http://localhost:11434"
		}
		base = normalizeBase(base)

		key := firstNonEmpty(
			os.Getenv("LLM_API_KEY"),
			os.Getenv("OPENAI_API_KEY"),
		)
		if model == "" {
			if provider == "openai" {
				model = "gpt-4o-mini"
			} else {
				model = "llama3.1:8b"
			}
		}

		allowNoKey := strings.EqualFold(os.Getenv("LLM_ALLOW_NO_KEY"), "true") ||
			strings.Contains(base, "localhost") || strings.Contains(base, "127.0.0.1")
		if key == "" && !allowNoKey {
			return nil, ErrLLMDisabled
		}

		return &LocalClient{
			BaseURL: strings.TrimRight(base, "/"),
			APIKey:  key,
			Model:   model,
			HTTP:    &http.Client{Timeout: timeout},
		}, nil

	default:
		return nil, fmt.Errorf("llm: unknown provider %q", provider)
	}
}

// Chat sends a single system+user exchange with provider defaults.
func (c *LocalClient) Chat(ctx context.Context, system, user string) (string, error) {
	return c.ChatMessages(ctx, []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}, Options{})
}

// ChatMessages sends a synchronous chat.completions request.
func (c *LocalClient) ChatMessages(ctx context.Context, msgs []Message, opts Options) (string, error) {
	reqBody := chatReq{
		Model:       c.Model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	b, _ := json.Marshal(reqBody)

	endpoint := c.BaseURL + "/chat/completions"
	httpReq, _ := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(c.APIKey) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	body, _ := io.ReadAll(res.Body)
	var out chatResp
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("llm decode failed: %w; raw=%s", err, strings.TrimSpace(string(body)))
	}
	if out.Error != nil {
		return "", errors.New(strings.TrimSpace(out.Error.Message))
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llm: empty choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

// ChatStream sends a streaming chat.completions request (SSE). fn receives
// each content delta as it arrives. ctx cancellation aborts the stream.
func (c *LocalClient) ChatStream(ctx context.Context, msgs []Message, opts Options, fn func(chunk string) error) error {
	reqBody := chatReq{
		Model:       c.Model,
		Messages:    msgs,
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		Stream:      true,
	}
	b, _ := json.Marshal(reqBody)

	endpoint := c.BaseURL + "/chat/completions"
	httpReq, _ := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if strings.TrimSpace(c.APIKey) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	res, err := c.HTTP.Do(httpReq)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode/100 != 2 {
		body, _ := io.ReadAll(res.Body)
		return fmt.Errorf("llm stream: %d %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	scanner := bufio.NewScanner(res.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			if payload == "[DONE]" {
				return nil
			}
			continue
		}
		var out chatResp
		if err := json.Unmarshal([]byte(payload), &out); err != nil {
			continue // tolerate keep-alives and partial frames
		}
		if len(out.Choices) == 0 {
			continue
		}
		if delta := out.Choices[0].Delta.Content; delta != "" {
			if err := fn(delta); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

// ---------- shared helpers (LLM-side only) ----------

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// normalizeBase adds /v1 for local OpenAI-compatible servers if necessary.
func normalizeBase(u string) string {
	s := strings.TrimRight(strings.TrimSpace(u), "/")
	if s == "" {
		return s
	}
	isLocal := strings.Contains(s, "localhost") || strings.Contains(s, "127.0.0.1")
	if isLocal {
		if !strings.HasSuffix(s, "/v1") && !strings.Contains(s, "/openai/v1") {
			s += "/v1"
		}
	}
	return s
}
