// Package llm wraps the Groq chat completion API behind a small service
// interface. Groq speaks the OpenAI-compatible protocol, so the client is the
// standard go-openai client pointed at the Groq endpoint.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// Service is the LLM service interface.
type Service interface {
	// Chat performs a synchronous chat completion and returns the first
	// choice's content.
	Chat(ctx context.Context, messages []Message) (string, error)

	// DescribeImage asks the vision model for a factual, non-diagnostic
	// description of a base64-encoded image.
	DescribeImage(ctx context.Context, imageBase64 string) (string, error)
}

// Config represents LLM service configuration.
type Config struct {
	APIKey      string
	BaseURL     string // defaults to the Groq endpoint
	Model       string
	VisionModel string
	Timeout     int // request timeout in seconds (default: 60)
}

const defaultGroqBaseURL = "https://api.groq.com/openai/v1"

// imageDescriptionPrompt keeps vision output usable as triage notes and
// explicitly out of diagnosis territory.
const imageDescriptionPrompt = "Describe this medical image factually for clinical triage notes. " +
	"Do not diagnose. Mention visible findings only."

type service struct {
	client      *openai.Client
	model       string
	visionModel string
	timeout     int
}

// NewService creates a new LLM Service.
func NewService(cfg *Config) Service {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGroqBaseURL
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = newHTTPClient()

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		timeout:     timeout,
	}
}

// newHTTPClient builds an HTTP client with sane connection settings for a
// remote completion API.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:    s.model,
		Messages: convertMessages(messages),
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("llm chat request failed", "model", s.model, "error", err)
		return "", fmt.Errorf("llm chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}

	slog.Debug("llm chat response received",
		"model", s.model,
		"content_length", len(resp.Choices[0].Message.Content),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp.Choices[0].Message.Content, nil
}

func (s *service) DescribeImage(ctx context.Context, imageBase64 string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: s.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: imageDescriptionPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: "data:image/jpeg;base64," + imageBase64,
						},
					},
				},
			},
		},
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		slog.Error("llm image analysis failed", "model", s.visionModel, "error", err)
		return "", fmt.Errorf("llm image analysis failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	converted := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		converted[i] = openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
	}
	return converted
}
