package openai

import (
	"context"
	"errors"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ashton-krac/carbonchat/llm"
)

var ErrMissingAPIKey = errors.New("missing OpenAI API key")

// NewGenerator creates a streaming chat-completion generator. The API key is
// checked here so a missing credential fails before any request is made.
func NewGenerator(apiKey string, cfg llm.Config) (llm.Generator, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	return &generator{
		client: openai.NewClient(apiKey),
		cfg:    cfg,
	}, nil
}

type generator struct {
	client *openai.Client
	cfg    llm.Config
}

func (g *generator) Stream(ctx context.Context, system, user string) (<-chan llm.Fragment, error) {
	req := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		Temperature: g.cfg.Temperature,
		Stream:      true,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: system,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: user,
			},
		},
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make(chan llm.Fragment)

	go func() {
		defer close(out)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}

			if err != nil {
				out <- llm.Fragment{Err: err}
				return
			}

			if len(resp.Choices) == 0 {
				continue
			}

			text := resp.Choices[0].Delta.Content
			if text == "" {
				continue
			}

			select {
			case out <- llm.Fragment{Text: text}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
