package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicDefaultModel is used when a request does not name a model.
const AnthropicDefaultModel = "claude-3-5-haiku-latest"

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

type anthropicProvider struct {
	BaseProvider
	client     anthropic.Client
	classifier ErrorClassifier
}

func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	// Retries belong to RetryMiddleware.
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		baseURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: config.Timeout}))
	}

	return &anthropicProvider{
		BaseProvider: BaseProvider{model: model},
		client:       anthropic.NewClient(opts...),
		classifier:   ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoRequest sends a single user message to the Messages API.
func (p *anthropicProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(options.Model),
		MaxTokens: int64(options.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if options.Temperature != nil {
		// Anthropic accepts [0, 1].
		params.Temperature = anthropic.Float(clamp(*options.Temperature, 0, 1))
	}
	if options.TopP != nil {
		params.TopP = anthropic.Float(*options.TopP)
	}
	if options.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: options.System}}
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return "", 0, 0, p.classifier.classify(err, p.classifyAPIError)
	}

	var text strings.Builder
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	content := text.String()
	if content == "" {
		return "", 0, 0, NewProviderError("anthropic", ErrorTypeUnknown, 0, "", ErrEmptyResponse)
	}

	tokensIn := defaultTokenCounter.count(message.Usage.InputTokens, prompt)
	tokensOut := defaultTokenCounter.count(message.Usage.OutputTokens, content)
	return content, tokensIn, tokensOut, nil
}

func (p *anthropicProvider) classifyAPIError(err error) (*ProviderError, bool) {
	var apiErr *anthropic.Error
	if !errors.As(err, &apiErr) {
		return nil, false
	}
	return p.classifier.ClassifyHTTPError(apiErr.StatusCode, "", err), true
}
