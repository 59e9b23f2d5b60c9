package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint,
// such as a LiteLLM gateway.
type OpenAIProvider struct {
	client *openai.Client
}

func NewOpenAIProvider(cfg ProviderConfig, httpClient *http.Client) *OpenAIProvider {
	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if httpClient != nil {
		oc.HTTPClient = httpClient
	}
	return &OpenAIProvider{client: openai.NewClientWithConfig(oc)}
}

func (p *OpenAIProvider) Chat(ctx context.Context, req Request) (*Response, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	ccr := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if req.Temperature != nil {
		ccr.Temperature = float32(*req.Temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, ccr)
	if err != nil {
		return nil, translateError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyOutput
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return nil, &ProviderError{Type: "content_filter", Message: "response blocked by content filter"}
	}
	if strings.TrimSpace(choice.Message.Content) == "" {
		return nil, ErrEmptyOutput
	}

	return &Response{
		Text:  choice.Message.Content,
		Model: resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// translateError maps go-openai errors onto ProviderError. Transport and
// context errors are returned unchanged.
func translateError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		pe := &ProviderError{
			StatusCode: apiErr.HTTPStatusCode,
			Type:       apiErr.Type,
			Message:    apiErr.Message,
			Err:        err,
		}
		if apiErr.Code != nil {
			pe.Code = fmt.Sprint(apiErr.Code)
		}
		return pe
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &ProviderError{
			StatusCode: reqErr.HTTPStatusCode,
			Message:    reqErr.Error(),
			Err:        err,
		}
	}
	return err
}
