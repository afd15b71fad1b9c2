package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequestOptions(t *testing.T) {
	tests := []struct {
		name     string
		opts     map[string]any
		wantMax  int
		wantMod  string
		wantTemp *float64
		wantTopP *float64
		wantSys  string
	}{
		{
			name:    "nil options use defaults",
			wantMax: DefaultMaxTokens,
			wantMod: "default-model",
		},
		{
			name: "all recognized options",
			opts: map[string]any{
				"max_tokens":  64,
				"model":       "override",
				"temperature": 0.3,
				"top_p":       0.9,
				"system":      "You are a fair juror.",
			},
			wantMax:  64,
			wantMod:  "override",
			wantTemp: ptr(0.3),
			wantTopP: ptr(0.9),
			wantSys:  "You are a fair juror.",
		},
		{
			name: "invalid values fall back",
			opts: map[string]any{
				"max_tokens":  -5,
				"model":       "",
				"temperature": 3.5,
				"top_p":       "high",
			},
			wantMax: DefaultMaxTokens,
			wantMod: "default-model",
		},
		{
			name:    "wrong types are ignored",
			opts:    map[string]any{"max_tokens": 64.0, "temperature": 1},
			wantMax: DefaultMaxTokens,
			wantMod: "default-model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseRequestOptions(tt.opts, "default-model")

			assert.Equal(t, tt.wantMax, got.MaxTokens)
			assert.Equal(t, tt.wantMod, got.Model)
			assert.Equal(t, tt.wantTemp, got.Temperature)
			assert.Equal(t, tt.wantTopP, got.TopP)
			assert.Equal(t, tt.wantSys, got.System)
		})
	}
}

func TestValidateBaseURL(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "", want: ""},
		{in: "https://api.example.com/v1", want: "https://api.example.com/v1"},
		{in: "http://127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{in: "ftp://example.com", wantErr: true},
		{in: "api.example.com", wantErr: true},
		{in: "https://", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ValidateBaseURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTokenCounter(t *testing.T) {
	tc := TokenCounter{CharactersPerToken: 4}

	assert.Equal(t, 0, tc.EstimateTokens(""))
	assert.Equal(t, 1, tc.EstimateTokens("a"))
	assert.Equal(t, 1, tc.EstimateTokens("abcd"))
	assert.Equal(t, 2, tc.EstimateTokens("abcde"))
	assert.Equal(t, 42, tc.count(42, "ignored"))
	assert.Equal(t, 1, tc.count(0, "abc"))
	assert.Equal(t, 1, TokenCounter{}.EstimateTokens("abc"), "zero ratio falls back to the default")
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 1.0, clamp(1.7, 0, 1))
	assert.Equal(t, 0.0, clamp(-0.2, 0, 1))
	assert.Equal(t, 0.5, clamp(0.5, 0, 1))
	assert.Equal(t, 3, clamp(9, 1, 3))
}

func TestBaseProvider_Model(t *testing.T) {
	var b BaseProvider
	b.SetModel("gpt-4o-mini")
	assert.Equal(t, "gpt-4o-mini", b.GetModel())
}

func ptr[T any](v T) *T { return &v }
