// Command captionforge turns media files into corrected, optionally
// translated caption and transcript documents.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/captionforge/internal/config"
	"github.com/MrWong99/captionforge/internal/correct"
	"github.com/MrWong99/captionforge/internal/diarize"
	"github.com/MrWong99/captionforge/internal/health"
	"github.com/MrWong99/captionforge/internal/observe"
	"github.com/MrWong99/captionforge/internal/pipeline"
	"github.com/MrWong99/captionforge/internal/render"
	"github.com/MrWong99/captionforge/internal/resilience"
	"github.com/MrWong99/captionforge/internal/store"
	"github.com/MrWong99/captionforge/internal/translate"
	"github.com/MrWong99/captionforge/internal/watch"
	diarizeprov "github.com/MrWong99/captionforge/pkg/provider/diarize"
	"github.com/MrWong99/captionforge/pkg/provider/llm"
	"github.com/MrWong99/captionforge/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/captionforge/pkg/provider/llm/openai"
	"github.com/MrWong99/captionforge/pkg/provider/stt"
	"github.com/MrWong99/captionforge/pkg/provider/stt/whisper"
)

// version is stamped via -ldflags at release time.
var version = "dev"

// llmRequestTimeout is the HTTP-level ceiling on a single completion call for
// providers that support one. The stages impose their own per-attempt context
// deadline as well.
const llmRequestTimeout = 2 * time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	watchMode := flag.Bool("watch", false, "watch input_dir for new media files instead of processing arguments")
	flag.Parse()

	// A .env file next to the binary can hold API keys referenced by the
	// provider packages. Missing files are fine.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "captionforge: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "captionforge: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	slog.Info("captionforge starting",
		"version", version,
		"config", *configPath,
		"log_level", cfg.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	// ── Instantiate collaborators ─────────────────────────────────────────────
	collab, err := buildCollaborators(ctx, cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}
	defer collab.close()

	// ── Assemble the pipeline ─────────────────────────────────────────────────
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		slog.Error("failed to create output directory", "dir", cfg.OutputDir, "err", err)
		return 1
	}

	p, err := buildPipeline(cfg, collab)
	if err != nil {
		slog.Error("failed to assemble pipeline", "err", err)
		return 1
	}

	// ── Health and metrics server ─────────────────────────────────────────────
	if cfg.MetricsAddr != "" {
		startMetricsServer(ctx, cfg, collab)
	}

	printStartupSummary(cfg)

	// ── Run ───────────────────────────────────────────────────────────────────
	if *watchMode {
		return runWatch(ctx, cfg, p)
	}
	return runOnce(ctx, p, flag.Args())
}

// runOnce processes the files given on the command line and exits.
func runOnce(ctx context.Context, p *pipeline.Pipeline, files []string) int {
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "captionforge: no input files; pass media files as arguments or use -watch")
		return 2
	}
	if err := p.Run(ctx, files); err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("interrupted")
			return 1
		}
		slog.Error("run finished with failures", "err", err)
		return 1
	}
	slog.Info("all files processed")
	return 0
}

// runWatch blocks watching cfg.InputDir until the signal context is
// cancelled.
func runWatch(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline) int {
	if cfg.InputDir == "" {
		fmt.Fprintln(os.Stderr, "captionforge: -watch requires input_dir to be set in the config")
		return 2
	}

	w, err := watch.New(watch.Config{
		Dir:           cfg.InputDir,
		MaxConcurrent: cfg.Workers,
	}, func(ctx context.Context, path string) error {
		_, err := p.ProcessFile(ctx, path)
		return err
	})
	if err != nil {
		slog.Error("failed to start watcher", "dir", cfg.InputDir, "err", err)
		return 1
	}
	defer w.Close()

	slog.Info("ready, press Ctrl+C to shut down")
	if err := w.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("watcher error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
// Each factory receives a config.ProviderEntry and constructs the provider
// from the real implementation packages.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// openai uses the official SDK directly; the remaining hosted providers
	// share the any-llm pattern of optional APIKey + optional BaseURL.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		opts := []oaillm.Option{oaillm.WithTimeout(llmRequestTimeout)}
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
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
	reg.RegisterLLM("ollama", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []anyllmlib.Option
		if entry.BaseURL != "" {
			opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
		}
		return anyllm.New("ollama", entry.Model, opts...)
	})

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("whisper", func(entry config.ProviderEntry) (stt.Provider, error) {
		modelPath := entry.Model
		if modelPath == "" {
			modelPath = optString(entry.Options, "model_path")
		}
		var opts []whisper.Option
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		if threads := optInt(entry.Options, "threads"); threads > 0 {
			opts = append(opts, whisper.WithThreads(uint(threads)))
		}
		return whisper.New(modelPath, opts...)
	})
}

// collaborators holds everything the pipeline needs that outlives a single
// file: providers, the artifact store, and their cleanup hooks.
type collaborators struct {
	stt     stt.Provider
	llm     llm.Provider
	diarize diarizeprov.Provider
	store   store.Store
	pg      *store.PGStore
	closers []func() error
}

func (c *collaborators) close() {
	if c.store != nil {
		c.store.Close()
	}
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			slog.Warn("cleanup error", "err", err)
		}
	}
}

// buildCollaborators instantiates the providers named in cfg and the
// configured artifact store.
func buildCollaborators(ctx context.Context, cfg *config.Config, reg *config.Registry) (*collaborators, error) {
	c := &collaborators{}

	// STT is the one mandatory provider; the loader already enforced that a
	// name is present.
	sttProvider, err := reg.CreateSTT(cfg.Providers.STT)
	if err != nil {
		return nil, fmt.Errorf("create stt provider %q: %w", cfg.Providers.STT.Name, err)
	}
	if closer, ok := sttProvider.(io.Closer); ok {
		c.closers = append(c.closers, closer.Close)
	}
	c.stt = sttProvider
	slog.Info("provider created", "kind", "stt", "name", cfg.Providers.STT.Name)

	if name := cfg.Providers.LLM.Name; name != "" {
		primary, err := reg.CreateLLM(cfg.Providers.LLM)
		if err != nil {
			return nil, fmt.Errorf("create llm provider %q: %w", name, err)
		}
		primary = observe.InstrumentLLM(name, primary, observe.DefaultMetrics())
		slog.Info("provider created", "kind", "llm", "name", name)

		if len(cfg.Providers.LLMFallbacks) > 0 {
			group := resilience.NewLLMFallback(primary, name, resilience.FallbackConfig{})
			for _, entry := range cfg.Providers.LLMFallbacks {
				fb, err := reg.CreateLLM(entry)
				if err != nil {
					return nil, fmt.Errorf("create llm fallback %q: %w", entry.Name, err)
				}
				group.AddFallback(entry.Name, observe.InstrumentLLM(entry.Name, fb, observe.DefaultMetrics()))
				slog.Info("provider created", "kind", "llm_fallback", "name", entry.Name)
			}
			c.llm = group
		} else {
			c.llm = primary
		}
	}

	if name := cfg.Providers.Diarize.Name; name != "" {
		p, err := reg.CreateDiarize(cfg.Providers.Diarize)
		if errors.Is(err, config.ErrProviderNotRegistered) {
			slog.Warn("diarization provider not available, using silence-gap heuristic", "name", name)
		} else if err != nil {
			return nil, fmt.Errorf("create diarize provider %q: %w", name, err)
		} else {
			c.diarize = p
			slog.Info("provider created", "kind", "diarize", "name", name)
		}
	}

	if c.store, c.pg, err = buildStore(ctx, cfg.Artifacts); err != nil {
		return nil, err
	}
	return c, nil
}

// buildStore constructs the artifact store selected by cfg. The postgres
// connection is retried with backoff; a database restarting alongside us is
// not a reason to die.
func buildStore(ctx context.Context, cfg config.ArtifactsConfig) (store.Store, *store.PGStore, error) {
	switch cfg.Backend {
	case "", config.ArtifactNone:
		return nil, nil, nil
	case config.ArtifactFilesystem:
		fs, err := store.NewFS(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("create filesystem store: %w", err)
		}
		slog.Info("artifact store ready", "backend", "filesystem", "dir", cfg.Dir)
		return fs, nil, nil
	case config.ArtifactPostgres:
		pg, err := resilience.RetryWithResult(ctx, resilience.RetryConfig{Name: "postgres store"}, func() (*store.PGStore, error) {
			return store.NewPG(ctx, cfg.PostgresDSN)
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres store: %w", err)
		}
		slog.Info("artifact store ready", "backend", "postgres")
		return pg, pg, nil
	default:
		return nil, nil, fmt.Errorf("unknown artifact backend %q", cfg.Backend)
	}
}

// buildPipeline constructs the optional stages from cfg and assembles the
// controller around the transcription stage.
func buildPipeline(cfg *config.Config, c *collaborators) (*pipeline.Pipeline, error) {
	transcriber, err := pipeline.NewTranscribeStage(c.stt, cfg.Transcribe.Language, cfg.TmpDir)
	if err != nil {
		return nil, err
	}

	var opts []pipeline.Option
	if cfg.Diarize.Enabled {
		st, err := diarize.NewStage(c.diarize, diarize.Config{
			MinSpeakers: cfg.Diarize.MinSpeakers,
			MaxSpeakers: cfg.Diarize.MaxSpeakers,
			MinPause:    cfg.Diarize.MinPause,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithDiarization(st))
	}
	if cfg.Correct.Enabled {
		st, err := correct.NewStage(c.llm, correct.Config{
			Level:         correct.Level(cfg.Correct.Level),
			CustomPrompt:  cfg.Correct.CustomPrompt,
			Glossary:      cfg.Correct.Glossary,
			BatchSize:     cfg.Correct.BatchSize,
			ContextWindow: cfg.Correct.ContextWindow,
			Concurrency:   cfg.Correct.Concurrency,
			Temperature:   cfg.Correct.Temperature,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithCorrection(st))
	}
	if cfg.Translate.Enabled {
		st, err := translate.NewStage(c.llm, translate.Config{
			TargetLanguage: cfg.Translate.TargetLanguage,
			BatchSize:      cfg.Translate.BatchSize,
			Concurrency:    cfg.Translate.Concurrency,
			Temperature:    cfg.Translate.Temperature,
		})
		if err != nil {
			return nil, err
		}
		opts = append(opts, pipeline.WithTranslation(st))
	}
	if c.store != nil {
		opts = append(opts, pipeline.WithStore(c.store))
	}

	return pipeline.New(transcriber, pipeline.Config{
		OutputDir: cfg.OutputDir,
		Formats:   cfg.Render.Formats,
		RenderOptions: render.Options{
			Title:            cfg.Render.Title,
			FrameRate:        cfg.Render.FrameRate,
			IncludeTimecodes: cfg.Render.IncludeTimecodes,
			IncludeSpeakers:  cfg.Render.IncludeSpeakers,
		},
		Workers:     cfg.Workers,
		MaxDuration: cfg.Rechunk.MaxDuration,
		MaxChars:    cfg.Rechunk.MaxChars,
		MergeGap:    cfg.Rechunk.MergeGap,
	}, opts...)
}

// ── Health and metrics server ─────────────────────────────────────────────────

// startMetricsServer serves /metrics, /healthz, and /readyz on
// cfg.MetricsAddr until ctx is cancelled.
func startMetricsServer(ctx context.Context, cfg *config.Config, c *collaborators) {
	checkers := []health.Checker{
		health.FFmpegChecker(),
		health.DirChecker("output_dir", cfg.OutputDir),
	}
	if c.pg != nil {
		checkers = append(checkers, health.Checker{Name: "database", Check: c.pg.Ping})
	}

	mux := http.NewServeMux()
	health.New(checkers...).Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           observe.Middleware(observe.DefaultMetrics())(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server error", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("metrics server shutdown error", "err", err)
		}
	}()
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════════╗")
	fmt.Println("║        CaptionForge startup summary       ║")
	fmt.Println("╠═══════════════════════════════════════════╣")
	printRow("STT", providerLabel(cfg.Providers.STT.Name, cfg.Providers.STT.Model))
	printRow("LLM", providerLabel(cfg.Providers.LLM.Name, cfg.Providers.LLM.Model))
	printRow("Diarize", stageLabel(cfg.Diarize.Enabled, diarizeLabel(cfg)))
	printRow("Correct", stageLabel(cfg.Correct.Enabled, cfg.Correct.Level))
	printRow("Translate", stageLabel(cfg.Translate.Enabled, cfg.Translate.TargetLanguage))
	printRow("Formats", strings.Join(cfg.Render.Formats, ","))
	printRow("Artifacts", string(cfg.Artifacts.Backend))
	printRow("Metrics", cfg.MetricsAddr)
	fmt.Println("╚═══════════════════════════════════════════╝")
}

func printRow(key, value string) {
	if value == "" {
		value = "(disabled)"
	}
	if len(value) > 23 {
		value = value[:20] + "..."
	}
	fmt.Printf("║  %-12s : %-23s ║\n", key, value)
}

func providerLabel(name, model string) string {
	if name == "" {
		return ""
	}
	if model == "" {
		return name
	}
	return name + " / " + model
}

func stageLabel(enabled bool, detail string) string {
	if !enabled {
		return ""
	}
	if detail == "" {
		return "enabled"
	}
	return "enabled, " + detail
}

func diarizeLabel(cfg *config.Config) string {
	if cfg.Providers.Diarize.Name != "" {
		return cfg.Providers.Diarize.Name
	}
	return "silence-gap"
}

// ── Logger ────────────────────────────────────────────────────────────────────

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

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	s, _ := opts[key].(string)
	return s
}

// optInt extracts an integer value from a provider Options map[string]any.
// YAML decodes integers as int.
func optInt(opts map[string]any, key string) int {
	if opts == nil {
		return 0
	}
	n, _ := opts[key].(int)
	return n
}
