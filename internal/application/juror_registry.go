package application

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/ahrav/go-jury/infrastructure/jurors"
	"github.com/ahrav/go-jury/internal/ports"
)

// Built-in juror kinds.
const (
	KindHuman    = "human"
	KindScripted = "scripted"
	KindLLM      = "llm"
)

// ErrUnknownJurorKind is returned when no factory is registered for a kind.
var ErrUnknownJurorKind = errors.New("unknown juror kind")

// JurorFactory builds a juror from its configuration.
type JurorFactory func(config JurorConfig) (ports.Juror, error)

// ClientSource hands out LLM clients by "provider/model" spec.
// *llm.Registry satisfies it.
type ClientSource interface {
	Client(spec string) (ports.LLMClient, error)
}

// JurorRegistry maps juror kinds to factories. The scripted kind is always
// registered; callers add llm and human factories for the capabilities they
// have.
type JurorRegistry struct {
	mu        sync.RWMutex
	factories map[string]JurorFactory
}

// NewJurorRegistry creates a registry with the scripted kind registered.
func NewJurorRegistry() *JurorRegistry {
	r := &JurorRegistry{factories: make(map[string]JurorFactory)}
	r.factories[KindScripted] = scriptedFactory
	return r
}

// Register adds or replaces the factory for kind.
func (r *JurorRegistry) Register(kind string, factory JurorFactory) error {
	if kind == "" {
		return errors.New("juror kind cannot be empty")
	}
	if factory == nil {
		return errors.New("factory function cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
	return nil
}

// Has reports whether kind has a registered factory.
func (r *JurorRegistry) Has(kind string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns the registered kinds, sorted.
func (r *JurorRegistry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for kind := range r.factories {
		kinds = append(kinds, kind)
	}
	slices.Sort(kinds)
	return kinds
}

// Create builds one juror.
func (r *JurorRegistry) Create(config JurorConfig) (ports.Juror, error) {
	r.mu.RLock()
	factory, ok := r.factories[config.Kind]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJurorKind, config.Kind)
	}

	juror, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create juror %s of kind %s: %w", config.Name, config.Kind, err)
	}
	return juror, nil
}

// Build creates the game's jurors in jury order.
func (r *JurorRegistry) Build(config *GameConfig) ([]ports.Juror, error) {
	built := make([]ports.Juror, 0, len(config.Jury))
	for _, jc := range config.Jury {
		juror, err := r.Create(jc)
		if err != nil {
			return nil, err
		}
		built = append(built, juror)
	}
	return built, nil
}

func scriptedFactory(config JurorConfig) (ports.Juror, error) {
	if config.Script == nil {
		return nil, ports.NewConfigError("jury.script", ports.ErrConfigNotFound)
	}
	return jurors.NewScriptedJuror(config.Name, *config.Script)
}

// LLMJurorFactory returns a factory for the llm kind. Jurors naming the same
// model share the client clients hands out, and with it any rate limit.
func LLMJurorFactory(clients ClientSource, logger *slog.Logger) JurorFactory {
	return func(config JurorConfig) (ports.Juror, error) {
		if config.Model == "" {
			return nil, ports.NewConfigError("jury.model", ports.ErrConfigNotFound)
		}
		client, err := clients.Client(config.Model)
		if err != nil {
			return nil, err
		}

		llmConfig := jurors.DefaultLLMJurorConfig()
		if config.LLM != nil {
			llmConfig = *config.LLM
		}
		return jurors.NewLLMJuror(config.Name, client, llmConfig, logger)
	}
}
