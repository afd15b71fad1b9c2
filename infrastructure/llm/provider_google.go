package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is used when a request does not name a model.
const GoogleDefaultModel = "gemini-2.0-flash"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

type googleProvider struct {
	BaseProvider
	client     *genai.Client
	classifier ErrorClassifier
}

func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		baseURL, err := ValidateBaseURL(config.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid BaseURL: %w", err)
		}
		cc.HTTPOptions.BaseURL = baseURL
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	return &googleProvider{
		BaseProvider: BaseProvider{model: model},
		client:       client,
		classifier:   ErrorClassifier{Provider: "google"},
	}, nil
}

// DoRequest calls GenerateContent. Gemini has no system role here, so the
// system prompt is prepended to the user text.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts map[string]any) (string, int, int, error) {
	options := ParseRequestOptions(opts, p.GetModel())

	text := prompt
	if options.System != "" {
		text = options.System + "\n\n" + prompt
	}
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(min(options.MaxTokens, math.MaxInt32)),
	}
	if options.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*options.Temperature))
	}
	if options.TopP != nil {
		config.TopP = genai.Ptr(float32(*options.TopP))
	}

	resp, err := p.client.Models.GenerateContent(ctx, options.Model, contents, config)
	if err != nil {
		return "", 0, 0, p.classifier.classify(err, p.classifyAPIError)
	}

	content := resp.Text()
	if content == "" {
		return "", 0, 0, NewProviderError("google", ErrorTypeContentPolicy, 0, "no candidate text", ErrEmptyResponse)
	}

	var reportedIn, reportedOut int64
	if u := resp.UsageMetadata; u != nil {
		reportedIn, reportedOut = int64(u.PromptTokenCount), int64(u.CandidatesTokenCount)
	}
	return content, defaultTokenCounter.count(reportedIn, text), defaultTokenCounter.count(reportedOut, content), nil
}

func (p *googleProvider) classifyAPIError(err error) (*ProviderError, bool) {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		if isSafetyBlock(apiErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code, "request blocked by safety filters", err), true
		}
		return p.classifier.ClassifyHTTPError(apiErr.Code, message, err), true
	}

	var genaiErr genai.APIError
	if errors.As(err, &genaiErr) {
		return p.classifier.ClassifyHTTPError(genaiErr.Code, genaiErr.Message, err), true
	}
	return nil, false
}

func isSafetyBlock(apiErr *googleapi.Error) bool {
	lower := strings.ToLower(apiErr.Message)
	if strings.Contains(lower, "safety") || strings.Contains(lower, "blocked") {
		return true
	}
	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}
	return false
}
