package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-jury/infrastructure/jurors"
	"github.com/ahrav/go-jury/internal/domain"
	"github.com/ahrav/go-jury/internal/ports"
)

// stubClient is a ports.LLMClient that always answers with the same vote.
type stubClient struct{ model string }

func (c stubClient) Complete(context.Context, string, map[string]any) (string, error) {
	return `{"vote": 6, "reasoning": "fine"}`, nil
}

func (c stubClient) EstimateTokens(text string) (int, error) { return len(text), nil }

func (c stubClient) GetModel() string { return c.model }

// stubClients hands out stubClients and records the specs asked for.
type stubClients struct {
	specs []string
	err   error
}

func (s *stubClients) Client(spec string) (ports.LLMClient, error) {
	s.specs = append(s.specs, spec)
	if s.err != nil {
		return nil, s.err
	}
	return stubClient{model: spec}, nil
}

func TestJurorRegistry_Register(t *testing.T) {
	r := NewJurorRegistry()
	assert.Equal(t, []string{KindScripted}, r.Kinds())
	assert.True(t, r.Has(KindScripted))
	assert.False(t, r.Has(KindLLM))

	assert.Error(t, r.Register("", scriptedFactory))
	assert.Error(t, r.Register(KindHuman, nil))

	require.NoError(t, r.Register(KindLLM, LLMJurorFactory(&stubClients{}, nil)))
	require.NoError(t, r.Register(KindHuman, scriptedFactory))
	assert.Equal(t, []string{KindHuman, KindLLM, KindScripted}, r.Kinds())
}

func TestJurorRegistry_Create(t *testing.T) {
	five := 5
	clients := &stubClients{}
	r := NewJurorRegistry()
	require.NoError(t, r.Register(KindLLM, LLMJurorFactory(clients, nil)))

	t.Run("scripted", func(t *testing.T) {
		juror, err := r.Create(JurorConfig{Name: "Alice", Kind: KindScripted, Script: &jurors.Script{Default: &five}})
		require.NoError(t, err)
		assert.IsType(t, &jurors.ScriptedJuror{}, juror)
		assert.Equal(t, "Alice", juror.Name())
	})

	t.Run("scripted without script", func(t *testing.T) {
		_, err := r.Create(JurorConfig{Name: "Alice", Kind: KindScripted})
		assert.ErrorIs(t, err, ports.ErrConfigNotFound)
	})

	t.Run("llm", func(t *testing.T) {
		juror, err := r.Create(JurorConfig{Name: "Robot", Kind: KindLLM, Model: "openai/gpt-4o-mini"})
		require.NoError(t, err)
		assert.IsType(t, &jurors.LLMJuror{}, juror)
		assert.Equal(t, []string{"openai/gpt-4o-mini"}, clients.specs)

		vote, err := juror.Vote(context.Background(), domain.Ballot{Juror: "Robot", Player: "Léa", Criterion: "Humour", Attempt: 1})
		require.NoError(t, err)
		assert.Equal(t, 6, vote)
	})

	t.Run("llm with custom config", func(t *testing.T) {
		_, err := r.Create(JurorConfig{
			Name:  "Critic",
			Kind:  KindLLM,
			Model: "anthropic/claude-3-5-haiku-latest",
			LLM:   &jurors.LLMJurorConfig{Temperature: 9},
		})
		assert.Error(t, err, "invalid llm config is rejected by the juror")
	})

	t.Run("llm without model", func(t *testing.T) {
		_, err := r.Create(JurorConfig{Name: "Robot", Kind: KindLLM})
		assert.ErrorIs(t, err, ports.ErrConfigNotFound)
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := r.Create(JurorConfig{Name: "Zed", Kind: "oracle"})
		assert.ErrorIs(t, err, ErrUnknownJurorKind)
	})
}

func TestLLMJurorFactory_ClientError(t *testing.T) {
	cause := errors.New("no such provider")
	factory := LLMJurorFactory(&stubClients{err: cause}, nil)

	_, err := factory(JurorConfig{Name: "Robot", Kind: KindLLM, Model: "acme/x"})

	assert.ErrorIs(t, err, cause)
}

func TestJurorRegistry_Build(t *testing.T) {
	five := 5
	config := &GameConfig{
		Jury: []JurorConfig{
			{Name: "Alice", Kind: KindScripted, Script: &jurors.Script{Default: &five}},
			{Name: "Bob", Kind: KindScripted, Script: &jurors.Script{Default: &five}},
		},
	}

	built, err := NewJurorRegistry().Build(config)
	require.NoError(t, err)
	require.Len(t, built, 2)
	assert.Equal(t, "Alice", built[0].Name())
	assert.Equal(t, "Bob", built[1].Name())

	config.Jury = append(config.Jury, JurorConfig{Name: "Carl", Kind: KindHuman})
	_, err = NewJurorRegistry().Build(config)
	assert.ErrorIs(t, err, ErrUnknownJurorKind)
}
