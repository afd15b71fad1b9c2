// Command jury plays a jury-judged party game in the terminal.
//
// The game is read from a YAML file (see examples/friday_night.yaml) and can
// be edited before it starts. Human jurors vote at the keyboard; scripted
// and LLM jurors vote on their own. Process settings come from JURY_*
// environment variables, optionally loaded from a .env file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"golang.org/x/time/rate"

	"github.com/ahrav/go-jury/infrastructure/jurors"
	"github.com/ahrav/go-jury/infrastructure/llm"
	"github.com/ahrav/go-jury/infrastructure/middleware"
	"github.com/ahrav/go-jury/internal/application"
	"github.com/ahrav/go-jury/internal/ports"
)

// Circuit breaker settings for every LLM client.
const (
	circuitMaxFailures = 5
	circuitCooldown    = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, errQuit) {
			pterm.Info.Println("Bye.")
			return
		}
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "Path to the game configuration file; empty starts an empty game")
		envFile    = flag.String("env", ".env", "Optional .env file with JURY_* settings")
		edit       = flag.Bool("edit", false, "Edit the rosters before the game starts")
		reportPath = flag.String("report", "", "Write the final report as JSON to this file")
	)
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}
	rc, err := application.LoadRuntimeConfig(nil)
	if err != nil {
		return err
	}
	logger := newLogger(rc.SlogLevel())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	shutdown, err := setupTracing(ctx, rc.OTLPEndpoint)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("flush traces", "error", err)
		}
	}()

	reg := newMetricsRegistry()
	metrics := middleware.NewPrometheusMetrics(reg)
	if rc.MetricsAddr != "" {
		if err := serveMetrics(ctx, rc.MetricsAddr, reg, logger); err != nil {
			return fmt.Errorf("serve metrics: %w", err)
		}
	}

	registry, err := newJurorRegistry(rc, metrics, logger)
	if err != nil {
		return err
	}

	config, err := loadGame(ctx, *configPath, registry, logger)
	if err != nil {
		return err
	}

	if game := config.NewGame(); *edit || !game.CanStart() {
		if err := editRoster(newRosterEditor(game)); err != nil {
			return err
		}
		applyRoster(config, game)
	}

	session, err := application.NewSessionFromConfig(config, registry,
		application.WithLogger(logger),
		application.WithObservers(consoleObserver{}, middleware.NewMetricsObserver(metrics)),
	)
	if err != nil {
		return err
	}

	report, err := session.Play(ctx)
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	if *reportPath != "" {
		return writeReport(*reportPath, report)
	}
	return nil
}

// newJurorRegistry registers the human, scripted and llm juror kinds. LLM
// jurors share one spend budget across providers.
func newJurorRegistry(rc application.RuntimeConfig, metrics ports.MetricsCollector, logger *slog.Logger) (*application.JurorRegistry, error) {
	registry := application.NewJurorRegistry()

	console := jurors.NewConsole(ptermPrompt)
	if err := registry.Register(application.KindHuman, func(jc application.JurorConfig) (ports.Juror, error) {
		return console.Juror(jc.Name)
	}); err != nil {
		return nil, err
	}

	providers := rc.Providers()
	if len(providers) == 0 {
		noLLM := func(jc application.JurorConfig) (ports.Juror, error) {
			return nil, fmt.Errorf("llm juror %q needs %sOPENAI_API_KEY, %sANTHROPIC_API_KEY or %sGOOGLE_API_KEY: %w",
				jc.Name, application.EnvPrefix, application.EnvPrefix, application.EnvPrefix, ports.ErrConfigNotFound)
		}
		return registry, registry.Register(application.KindLLM, noLLM)
	}

	budget, err := middleware.NewBudgetManager(middleware.BudgetFromConfig(rc), middleware.NewOTelBudgetObserver(metrics))
	if err != nil {
		return nil, err
	}
	clients, err := llm.NewRegistry(llm.RegistryConfig{
		Providers:  providers,
		Timeout:    rc.LLMTimeout,
		Middleware: providerMiddleware(rc, metrics, budget),
	})
	if err != nil {
		return nil, err
	}
	logger.Debug("llm providers configured", "providers", clients.Providers())

	return registry, registry.Register(application.KindLLM, application.LLMJurorFactory(clients, logger))
}

// providerMiddleware returns the middleware chain for the clients of one
// provider: tracing, metrics, budget, circuit breaker, retry, optional rate
// limit and timeout. The registry asks once per model; the breaker and the
// rate limiter are built on the first call for a provider and shared by
// every model on it.
func providerMiddleware(rc application.RuntimeConfig, metrics ports.MetricsCollector, budget *middleware.BudgetManager) func(provider string) []llm.Middleware {
	type guards struct {
		breaker llm.Middleware
		limiter llm.Middleware
	}
	var (
		mu     sync.Mutex
		shared = make(map[string]guards)
	)

	return func(provider string) []llm.Middleware {
		mu.Lock()
		g, ok := shared[provider]
		if !ok {
			g.breaker = llm.CircuitBreakerMiddleware(provider, circuitMaxFailures, circuitCooldown, metrics)
			if rc.LLMRequestsPerSecond > 0 {
				g.limiter = llm.RateLimitMiddleware(rate.Limit(rc.LLMRequestsPerSecond), 1)
			}
			shared[provider] = g
		}
		mu.Unlock()

		mw := []llm.Middleware{
			llm.TracingMiddleware(provider),
			llm.MetricsMiddleware(provider, metrics),
			budget.Middleware(),
			g.breaker,
			llm.RetryMiddleware(rc.LLMMaxRetries, 500*time.Millisecond, 10*time.Second),
		}
		if g.limiter != nil {
			mw = append(mw, g.limiter)
		}
		return append(mw, llm.TimeoutMiddleware(rc.LLMTimeout))
	}
}

// loadGame reads the game file, or returns an empty game when path is empty.
func loadGame(ctx context.Context, path string, registry *application.JurorRegistry, logger *slog.Logger) (*application.GameConfig, error) {
	if path == "" {
		return &application.GameConfig{Version: "1.0.0"}, nil
	}
	loader, err := application.NewLoader(registry, logger)
	if err != nil {
		return nil, err
	}
	return loader.LoadFromFile(ctx, path)
}

func writeReport(path string, report any) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	pterm.Success.Printfln("Report written to %s", path)
	return nil
}
