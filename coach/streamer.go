// Package coach proxies the AI coach conversation to an OpenAI compatible model.
package coach

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// Streamer produces a completion incrementally.
type Streamer interface {
	// Stream calls onDelta for every content chunk and returns the assembled reply.
	Stream(ctx context.Context, messages []openai.ChatCompletionMessage, onDelta func(string) error) (string, error)
}

// OpenAIStreamer streams chat completions from OpenAI.
type OpenAIStreamer struct {
	client *openai.Client
	model  string
}

// NewOpenAIStreamer returns a streamer for model.
func NewOpenAIStreamer(apiKey, model string) *OpenAIStreamer {
	return &OpenAIStreamer{client: openai.NewClient(apiKey), model: model}
}

func newOpenAIStreamerWithBaseURL(apiKey, model, baseURL string) *OpenAIStreamer {
	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = baseURL
	return &OpenAIStreamer{client: openai.NewClientWithConfig(cfg), model: model}
}

// Stream implements Streamer.
func (o *OpenAIStreamer) Stream(ctx context.Context, messages []openai.ChatCompletionMessage, onDelta func(string) error) (string, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return "", fmt.Errorf("openai stream: %w", err)
	}
	defer stream.Close()

	var reply strings.Builder
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return reply.String(), nil
		}
		if err != nil {
			return reply.String(), fmt.Errorf("openai stream recv: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		delta := resp.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		reply.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return reply.String(), err
		}
	}
}
