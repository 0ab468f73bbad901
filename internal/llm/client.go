package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/sashabaranov/go-openai"
)

// ErrMissingCredential is returned when OPENAI_API_KEY is not set at call time.
var ErrMissingCredential = errors.New("OPENAI_API_KEY is not configured")

// DefaultModel is used when neither OPENAI_BASE_MODEL nor OPENAI_MODEL is set.
const DefaultModel = "gpt-4o-mini"

// #region types

// Message is one chat turn.
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Completer issues a single chat completion.
type Completer interface {
	Complete(ctx context.Context, messages []Message, temperature float32) (string, error)
}

// #endregion types

// #region openai-client

// OpenAIClient is a Completer backed by the OpenAI chat completions API.
// The credential is resolved per call so a missing key never blocks startup.
type OpenAIClient struct {
	getenv func(string) string
}

// NewOpenAIClient returns a client reading its settings from the environment.
func NewOpenAIClient() *OpenAIClient {
	return &OpenAIClient{getenv: os.Getenv}
}

// Model returns the configured model name.
func (o *OpenAIClient) Model() string {
	if m := o.getenv("OPENAI_BASE_MODEL"); m != "" {
		return m
	}
	if m := o.getenv("OPENAI_MODEL"); m != "" {
		return m
	}
	return DefaultModel
}

// Complete implements Completer.
func (o *OpenAIClient) Complete(ctx context.Context, messages []Message, temperature float32) (string, error) {
	apiKey := o.getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return "", ErrMissingCredential
	}

	cfg := openai.DefaultConfig(apiKey)
	if base := o.getenv("OPENAI_BASE_URL"); base != "" {
		cfg.BaseURL = base
	}
	client := openai.NewClientWithConfig(cfg)

	req := openai.ChatCompletionRequest{
		Model:       o.Model(),
		Messages:    make([]openai.ChatCompletionMessage, 0, len(messages)),
		Temperature: temperature,
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	slog.Debug("[LLM] requesting completion", "model", req.Model, "messages", len(messages))
	resp, err := client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	slog.Debug("[LLM] completion received", "finish_reason", resp.Choices[0].FinishReason)
	return resp.Choices[0].Message.Content, nil
}

// #endregion openai-client

// #region roles

// System builds a system message.
func System(content string) Message {
	return Message{Role: openai.ChatMessageRoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: openai.ChatMessageRoleUser, Content: content}
}

// #endregion roles
