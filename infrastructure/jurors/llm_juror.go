package jurors

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-jury/internal/domain"
	"github.com/ahrav/go-jury/internal/ports"
)

var _ ports.Juror = (*LLMJuror)(nil)

// Default LLMJuror configuration values.
const (
	DefaultLLMTemperature = 0.7
	DefaultLLMMaxTokens   = 256
)

// DefaultPrompt asks for a single JSON vote. It is rendered with a
// promptData value.
const DefaultPrompt = `You are {{.Juror}}, a juror in a party game.
Rate the player "{{.Player}}" on the criterion "{{.Criterion}}".
{{- if .Description}}
The criterion means: {{.Description}}
{{- end}}
{{- if .Retry}}
Your previous answer could not be used. Follow the format exactly.
{{- end}}
Answer with a JSON object only: {"vote": <integer from {{.MinVote}} to {{.MaxVote}}>, "reasoning": "<one sentence>"}`

// LLMJurorConfig configures an LLMJuror.
type LLMJurorConfig struct {
	// Prompt is a text/template rendered for each ballot. It may reference
	// .Juror, .Player, .Criterion, .Description, .Attempt, .Retry, .MinVote
	// and .MaxVote. Empty selects DefaultPrompt.
	Prompt string `yaml:"prompt" json:"prompt" validate:"omitempty,min=20"`

	// Persona is sent as the system prompt.
	Persona string `yaml:"persona" json:"persona" validate:"max=2000"`

	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens" validate:"omitempty,min=16,max=4000"`
}

// DefaultLLMJurorConfig returns the configuration used for zero fields.
func DefaultLLMJurorConfig() LLMJurorConfig {
	return LLMJurorConfig{
		Prompt:      DefaultPrompt,
		Temperature: DefaultLLMTemperature,
		MaxTokens:   DefaultLLMMaxTokens,
	}
}

// voteResponse is the JSON object a model answers with. Vote is a float so
// that "7.0" decodes; fractional votes are rejected afterwards.
type voteResponse struct {
	Vote      *float64 `json:"vote" validate:"required"`
	Reasoning string   `json:"reasoning"`
}

type promptData struct {
	domain.Ballot
	Retry   bool
	MinVote int
	MaxVote int
}

// LLMJuror votes by asking a language model. It holds no per-ballot state
// and is safe for concurrent use.
type LLMJuror struct {
	name      string
	client    ports.LLMClient
	config    LLMJurorConfig
	prompt    *template.Template
	validator *validator.Validate
	logger    *slog.Logger
}

// NewLLMJuror creates an LLMJuror. Zero MaxTokens and an empty Prompt are
// replaced by their defaults; Temperature is taken as given.
func NewLLMJuror(name string, client ports.LLMClient, config LLMJurorConfig, logger *slog.Logger) (*LLMJuror, error) {
	if name == "" {
		return nil, errors.New("juror name cannot be empty")
	}
	if client == nil {
		return nil, errors.New("LLM client cannot be nil")
	}
	if config.Prompt == "" {
		config.Prompt = DefaultPrompt
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = DefaultLLMMaxTokens
	}

	v := validator.New()
	if err := v.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration for juror %s: %w", name, err)
	}

	tmpl, err := template.New(name).Option("missingkey=error").Parse(config.Prompt)
	if err != nil {
		return nil, fmt.Errorf("invalid prompt template for juror %s: %w", name, err)
	}

	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &LLMJuror{
		name:      name,
		client:    client,
		config:    config,
		prompt:    tmpl,
		validator: v,
		logger:    logger.With("juror", name, "model", client.GetModel()),
	}, nil
}

// Name returns the juror's roster name.
func (j *LLMJuror) Name() string { return j.name }

// Vote renders the prompt for ballot, asks the model and parses its vote.
// Every error is a *ports.JurorError. Answers without a usable vote wrap
// ports.ErrUnparsableVote; votes outside [domain.MinVote, domain.MaxVote]
// wrap domain.ErrInvalidVote.
func (j *LLMJuror) Vote(ctx context.Context, ballot domain.Ballot) (int, error) {
	var buf bytes.Buffer
	err := j.prompt.Execute(&buf, promptData{
		Ballot:  ballot,
		Retry:   ballot.Attempt > 1,
		MinVote: domain.MinVote,
		MaxVote: domain.MaxVote,
	})
	if err != nil {
		return 0, ports.NewJurorError(j.name, ballot.Attempt, fmt.Errorf("render prompt: %w", err))
	}

	options := map[string]any{
		"temperature": j.config.Temperature,
		"max_tokens":  j.config.MaxTokens,
	}
	if j.config.Persona != "" {
		options["system"] = j.config.Persona
	}

	response, err := j.client.Complete(ctx, buf.String(), options)
	if err != nil {
		return 0, ports.NewJurorError(j.name, ballot.Attempt, err)
	}

	vote, reasoning, err := j.parse(response)
	if err != nil {
		j.logger.WarnContext(ctx, "rejected juror answer",
			"player", ballot.Player,
			"criterion", ballot.Criterion,
			"attempt", ballot.Attempt,
			"error", err)
		return 0, ports.NewJurorError(j.name, ballot.Attempt, err)
	}

	j.logger.DebugContext(ctx, "juror voted",
		"player", ballot.Player,
		"criterion", ballot.Criterion,
		"vote", vote,
		"reasoning", reasoning)
	return vote, nil
}

func (j *LLMJuror) parse(response string) (int, string, error) {
	raw := extractJSON(response)
	if raw == "" {
		return 0, "", fmt.Errorf("%w: no JSON object in %d chars", ports.ErrUnparsableVote, len(response))
	}

	var resp voteResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ports.ErrUnparsableVote, err)
	}
	if err := j.validator.Struct(resp); err != nil {
		return 0, "", fmt.Errorf("%w: %v", ports.ErrUnparsableVote, err)
	}

	v := *resp.Vote
	if v != math.Trunc(v) {
		return 0, "", fmt.Errorf("%w: vote %g is not an integer", ports.ErrUnparsableVote, v)
	}
	if v < domain.MinVote || v > domain.MaxVote {
		return 0, "", fmt.Errorf("%w: %g outside [%d, %d]", domain.ErrInvalidVote, v, domain.MinVote, domain.MaxVote)
	}
	return int(v), resp.Reasoning, nil
}

// extractJSON returns the first JSON object in response: the body of a
// fenced code block when there is one, else the first balanced {...} span.
// It returns "" when no object is found.
func extractJSON(response string) string {
	response = strings.TrimSpace(response)

	if _, rest, ok := strings.Cut(response, "```"); ok {
		// Drop the language tag, if any.
		if nl := strings.IndexByte(rest, '\n'); nl != -1 {
			rest = rest[nl+1:]
		}
		if body, _, ok := strings.Cut(rest, "```"); ok {
			if body = strings.TrimSpace(body); strings.HasPrefix(body, "{") {
				return body
			}
		}
	}

	start := strings.IndexByte(response, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString, escaped := false, false
	for i := start; i < len(response); i++ {
		c := response[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && inString:
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
		case c == '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
