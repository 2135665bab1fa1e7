package llm

import (
	"context"
	"errors"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type openaiGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator streams chat completions from the OpenAI API.
func NewOpenAIGenerator(apiKey, model string) Generator {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &openaiGenerator{client: openai.NewClient(apiKey), model: model}
}

func (g *openaiGenerator) Generate(ctx context.Context, req Request, consumer func(Chunk) error) error {
	messages := []openai.ChatCompletionMessage{}
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Stream:      true,
	})
	if err != nil {
		return err
	}
	defer stream.Close()

	start := time.Now()
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if err := consumer(Chunk{
			SessionID: req.SessionID,
			Content:   resp.Choices[0].Delta.Content,
			Partial:   resp.Choices[0].FinishReason == "",
			Latency:   time.Since(start),
		}); err != nil {
			return err
		}
	}
}
