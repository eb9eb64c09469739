package ai

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"feelance/internal/core"
)

// Client talks to an OpenAI-compatible chat-completion endpoint. The
// provider is interchangeable: only ordered role/content messages go in,
// text (or JSON text) comes out.
type Client struct {
	client *openai.Client
	model  string
}

// New builds a client for the given credentials. baseURL may be empty to
// use the provider default.
func New(apiKey, baseURL, model string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

func toRequestMessages(messages []core.ChatMessage) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return out
}

// Complete performs a single blocking completion and returns the text.
func (c *Client) Complete(ctx context.Context, messages []core.ChatMessage) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toRequestMessages(messages),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteJSON performs a single blocking completion in JSON-object
// response mode and returns the raw content for the parse chain.
func (c *Client) CompleteJSON(ctx context.Context, messages []core.ChatMessage) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toRequestMessages(messages),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("json completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices in completion response")
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream runs a streaming completion, invoking onToken for every content
// delta as the remote service emits it. It returns the assembled reply.
// An onToken error (typically a disconnected consumer) stops consumption
// of the upstream stream and is returned as-is.
func (c *Client) Stream(ctx context.Context, messages []core.ChatMessage, onToken func(string) error) (string, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: toRequestMessages(messages),
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("open completion stream: %w", err)
	}
	defer stream.Close()

	var reply []byte
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return string(reply), nil
		}
		if err != nil {
			return string(reply), fmt.Errorf("receive stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		reply = append(reply, delta...)
		if err := onToken(delta); err != nil {
			return string(reply), err
		}
	}
}
