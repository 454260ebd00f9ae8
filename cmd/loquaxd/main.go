// Command loquaxd is the main entry point for the Loquax agent server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"golang.org/x/sync/errgroup"

	"github.com/loquax-ai/loquax/internal/app"
	"github.com/loquax-ai/loquax/internal/config"
	"github.com/loquax-ai/loquax/internal/history"
	"github.com/loquax-ai/loquax/internal/observe"
	"github.com/loquax-ai/loquax/internal/tools"
	"github.com/loquax-ai/loquax/internal/tools/gmail"
	"github.com/loquax-ai/loquax/internal/tools/news"
	"github.com/loquax-ai/loquax/internal/tools/qrcode"
	"github.com/loquax-ai/loquax/internal/tools/timestamp"
	"github.com/loquax-ai/loquax/internal/web"
	"github.com/loquax-ai/loquax/pkg/llm"
	"github.com/loquax-ai/loquax/pkg/llm/anyllm"
	openaidirect "github.com/loquax-ai/loquax/pkg/llm/openai"
)

const defaultListenAddr = ":8080"

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "loquaxd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "loquaxd: %v\n", err)
		}
		return 1
	}

	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("loquaxd starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "loquax",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()
	metrics := observe.Default()

	// ── Model backend ─────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	client, err := reg.CreateLLM(cfg.LLM)
	if err != nil {
		slog.Error("failed to create model client", "name", cfg.LLM.Name, "err", err)
		return 1
	}
	slog.Info("model client created", "name", cfg.LLM.Name, "model", cfg.LLM.Model)

	// ── Tools ─────────────────────────────────────────────────────────────────
	registry := buildToolRegistry(cfg)
	slog.Info("tools registered", "tools", registry.Names())

	// ── History store ─────────────────────────────────────────────────────────
	store, closeStore, err := buildHistoryStore(ctx, cfg.History)
	if err != nil {
		slog.Error("failed to open history store", "driver", cfg.History.Driver, "err", err)
		return 1
	}
	defer closeStore()

	// ── Session manager ───────────────────────────────────────────────────────
	manager, err := app.NewManager(app.ManagerConfig{
		Client:         client,
		Registry:       registry,
		Store:          store,
		MaxTurns:       cfg.Memory.MaxTurns,
		SystemTemplate: cfg.SystemMessage,
		Metrics:        metrics,
	})
	if err != nil {
		slog.Error("failed to initialise session manager", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := web.NewServer(manager, web.Checker{
		Name: "history",
		Check: func(ctx context.Context) error {
			_, err := store.Load(ctx, "readyz-probe")
			return err
		},
	})

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}
	httpSrv := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutdown signal received, stopping…")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// registerBuiltinProviders wires all built-in model client factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// openai, anthropic, gemini, deepseek, mistral, groq, llamacpp, llamafile
	// all share the same pattern: optional APIKey + optional BaseURL.
	for _, providerName := range []string{
		"openai", "anthropic", "gemini",
		"deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Client, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ollama is a local server; it uses BaseURL for the address, not an API key.
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Client, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// openai-direct talks to the OpenAI API via the official SDK instead of
	// the any-llm abstraction.
	reg.RegisterLLM("openai-direct", func(entry config.ProviderEntry) (llm.Client, error) {
		var opts []openaidirect.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaidirect.WithBaseURL(entry.BaseURL))
		}
		return openaidirect.New(entry.APIKey, entry.Model, opts...)
	})
}

// buildToolRegistry registers every tool the config enables.
func buildToolRegistry(cfg *config.Config) *tools.Registry {
	registry := tools.NewRegistry()

	if cfg.Tools.Timestamp.Enabled {
		registry.Register(timestamp.New())
	}
	if cfg.Tools.News.Enabled {
		registry.Register(news.New(news.Config{APIKey: cfg.Tools.News.APIKey}))
	}
	if cfg.Tools.QRCode.Enabled {
		registry.Register(qrcode.New())
	}
	if cfg.Tools.Gmail.Enabled {
		registry.Register(gmail.New(gmail.Config{
			CredentialsFile: cfg.Tools.Gmail.CredentialsFile,
			TokenFile:       cfg.Tools.Gmail.TokenFile,
		}))
	}
	return registry
}

// buildHistoryStore opens the persistence backend named by cfg. The returned
// close function is a no-op for backends without connections to release.
func buildHistoryStore(ctx context.Context, cfg config.HistoryConfig) (history.Store, func(), error) {
	switch cfg.Driver {
	case config.HistoryPostgres:
		store, err := history.NewPostgres(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case config.HistorySQLite:
		store, err := history.NewSQLite(cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Warn("history store close error", "err", err)
			}
		}, nil

	case "", config.HistoryMemory:
		return history.NewMemStore(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown history driver %q", cfg.Driver)
	}
}

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
