package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient implements LLMClient against the OpenAI chat completion API.
// Plain completions are streamed and the fragments concatenated in arrival
// order; structured (schema) requests use a single blocking call so the
// json_schema response format applies.
type OpenAIClient struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIClient creates an OpenAI-backed provider client.
func NewOpenAIClient(apiKey, defaultModel string) (*OpenAIClient, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("intake: openai api key is required")
	}
	if strings.TrimSpace(defaultModel) == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &OpenAIClient{
		client:       openai.NewClient(apiKey),
		defaultModel: defaultModel,
	}, nil
}

// Complete sends the transcript to OpenAI and returns the assistant answer.
func (c *OpenAIClient) Complete(ctx context.Context, req LLMRequest) (LLMResponse, error) {
	if len(req.Messages) == 0 {
		return LLMResponse{}, errors.New("intake: openai requires at least one message")
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       c.model(req),
		Messages:    c.convertMessages(req),
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = int(req.MaxTokens)
	}

	if req.Schema != nil {
		return c.completeStructured(ctx, chatReq, req.Schema)
	}
	return c.completeStreaming(ctx, chatReq)
}

func (c *OpenAIClient) completeStreaming(ctx context.Context, chatReq openai.ChatCompletionRequest) (LLMResponse, error) {
	chatReq.Stream = true
	stream, err := c.client.CreateChatCompletionStream(ctx, chatReq)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("intake: openai stream failed: %w", err)
	}
	defer stream.Close()

	var text strings.Builder
	var stopReason, completionID string
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return LLMResponse{}, fmt.Errorf("intake: openai stream interrupted: %w", err)
		}
		if completionID == "" {
			completionID = chunk.ID
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		text.WriteString(chunk.Choices[0].Delta.Content)
		if chunk.Choices[0].FinishReason != "" {
			stopReason = string(chunk.Choices[0].FinishReason)
		}
	}

	return LLMResponse{
		Text:       strings.TrimSpace(text.String()),
		StopReason: stopReason,
		ThreadID:   completionID,
	}, nil
}

func (c *OpenAIClient) completeStructured(ctx context.Context, chatReq openai.ChatCompletionRequest, schema *ResponseSchema) (LLMResponse, error) {
	chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   schema.Name,
			Schema: schema.Raw,
			Strict: true,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return LLMResponse{}, fmt.Errorf("intake: openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return LLMResponse{}, errors.New("intake: openai returned no choices")
	}

	return LLMResponse{
		Text:       strings.TrimSpace(resp.Choices[0].Message.Content),
		StopReason: string(resp.Choices[0].FinishReason),
		ThreadID:   resp.ID,
		Usage: TokenUsage{
			InputTokens:  int32(resp.Usage.PromptTokens),
			OutputTokens: int32(resp.Usage.CompletionTokens),
			TotalTokens:  int32(resp.Usage.TotalTokens),
		},
	}, nil
}

func (c *OpenAIClient) model(req LLMRequest) string {
	if strings.TrimSpace(req.Model) != "" {
		return req.Model
	}
	return c.defaultModel
}

func (c *OpenAIClient) convertMessages(req LLMRequest) []openai.ChatCompletionMessage {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.System)+len(req.Messages))
	for _, sys := range req.System {
		if strings.TrimSpace(sys) == "" {
			continue
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: sys})
	}
	for _, m := range req.Messages {
		role := m.Role
		switch role {
		case ChatRoleSystem, ChatRoleUser, ChatRoleAssistant:
		default:
			// coerce anything unknown to user
			role = ChatRoleUser
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return msgs
}
