package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-jury/infrastructure/matching"
)

// NearDuplicateThreshold is the similarity above which two distinct roster
// names are reported as likely typos of each other.
const NearDuplicateThreshold = 0.85

// Loader parses and validates game configuration files.
type Loader struct {
	validator *validator.Validate
	logger    *slog.Logger
}

// NewLoader creates a Loader. Juror kinds are checked against registry.
func NewLoader(registry *JurorRegistry, logger *slog.Logger) (*Loader, error) {
	if registry == nil {
		return nil, errors.New("juror registry cannot be nil")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	v := validator.New()
	if err := RegisterGameValidators(v, registry.Has); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	return &Loader{validator: v, logger: logger}, nil
}

// LoadFromFile reads and validates the configuration at path.
func (l *Loader) LoadFromFile(ctx context.Context, path string) (*GameConfig, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return l.load(ctx, data)
}

// LoadFromReader reads and validates a configuration from r.
func (l *Loader) LoadFromReader(ctx context.Context, r io.Reader) (*GameConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}
	return l.load(ctx, data)
}

func (l *Loader) load(ctx context.Context, data []byte) (*GameConfig, error) {
	config, err := parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := l.validator.Struct(config); err != nil {
		return nil, fmt.Errorf("validation failed: struct validation failed: %w", err)
	}
	if err := validateSemantics(config); err != nil {
		return nil, fmt.Errorf("validation failed: semantic validation failed: %w", err)
	}

	for _, w := range NameWarnings(config, NearDuplicateThreshold) {
		l.logger.WarnContext(ctx, "possible duplicate names", "detail", w)
	}
	return config, nil
}

// parseYAML decodes strictly: unknown fields are errors.
func parseYAML(data []byte) (*GameConfig, error) {
	var config GameConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// validateSemantics checks cross references that struct tags cannot
// express. Repeated roster names are legal and not checked here.
func validateSemantics(config *GameConfig) error {
	criteria := config.CriterionNames()
	for _, j := range config.Jury {
		if j.Script == nil {
			continue
		}
		for player, byCriterion := range j.Script.Votes {
			if !slices.Contains(config.Players, player) {
				return fmt.Errorf("juror %s scripts votes for unknown player %q%s",
					j.Name, player, suggest(player, config.Players))
			}
			for criterion := range byCriterion {
				if !slices.Contains(criteria, criterion) {
					return fmt.Errorf("juror %s scripts votes for unknown criterion %q%s",
						j.Name, criterion, suggest(criterion, criteria))
				}
			}
		}
	}
	return nil
}

func suggest(name string, roster []string) string {
	match, err := matching.Matcher{}.Resolve(name, slices.Values(roster))
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", match)
}

// NameWarnings reports distinct names within each roster whose similarity
// is at least threshold, such as "Theo" and "Théo".
func NameWarnings(config *GameConfig, threshold float64) []string {
	rosters := []struct {
		kind  string
		names []string
	}{
		{"players", config.Players},
		{"jury", config.JurorNames()},
		{"criteria", config.CriterionNames()},
	}

	var warnings []string
	for _, r := range rosters {
		for _, p := range matching.NearDuplicates(r.names, threshold) {
			warnings = append(warnings, fmt.Sprintf("%s: %q and %q look alike (%.0f%%)", r.kind, p.A, p.B, p.Similarity*100))
		}
	}
	return warnings
}
