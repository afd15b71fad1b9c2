package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIDefaultModel is used when a request does not name a model.
const OpenAIDefaultModel = "gpt-4o-mini"

func init() {
	RegisterProviderFactory("openai", newOpenAIProvider)
}

type openAIProvider struct {
	BaseProvider
	client     *openai.Client
	classifier ErrorClassifier
}

func newOpenAIProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = OpenAIDefaultModel
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		baseURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		clientConfig.BaseURL = baseURL
	}
	if config.Timeout > 0 {
		clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &openAIProvider{
		BaseProvider: BaseProvider{model: model},
		client:       openai.NewClientWithConfig(clientConfig),
		classifier:   ErrorClassifier{Provider: "openai"},
	}, nil
}

// DoRequest sends a single-turn chat completion.
func (p *openAIProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if options.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: options.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: prompt,
	})

	req := openai.ChatCompletionRequest{
		Model:     options.Model,
		Messages:  messages,
		MaxTokens: options.MaxTokens,
	}
	if options.Temperature != nil {
		req.Temperature = float32(clamp(*options.Temperature, MinTemperature, MaxTemperature))
	}
	if options.TopP != nil {
		req.TopP = float32(*options.TopP)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", 0, 0, p.classifier.classify(err, p.classifyAPIError)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", 0, 0, NewProviderError("openai", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	content := resp.Choices[0].Message.Content
	tokensIn := defaultTokenCounter.count(int64(resp.Usage.PromptTokens), prompt)
	tokensOut := defaultTokenCounter.count(int64(resp.Usage.CompletionTokens), content)
	return content, tokensIn, tokensOut, nil
}

func (p *openAIProvider) classifyAPIError(err error) (*ProviderError, bool) {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return p.classifier.ClassifyHTTPError(apiErr.HTTPStatusCode, apiErr.Message, err), true
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return p.classifier.ClassifyHTTPError(reqErr.HTTPStatusCode, "", err), true
	}
	return nil, false
}
