package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"sessiond/internal/config"
	"sessiond/internal/engine"
	"sessiond/internal/httpapi"
	"sessiond/internal/manager"
	"sessiond/internal/registry"
)

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitCSV splits a comma-separated list, trimming whitespace and dropping
// empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func main() {
	addr := flag.String("addr", envOr("SESSIOND_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	modelsDir := flag.String("models-dir", envOr("SESSIOND_MODELS_DIR", "~/models/llm"), "Directory to scan for *.gguf model files")
	defaultModel := flag.String("default-model", envOr("SESSIOND_DEFAULT_MODEL", ""), "Default model id when create omits model")
	configPath := flag.String("config", envOr("SESSIOND_CONFIG", ""), "Optional config file (.yaml/.json/.toml); flags override")
	contextWindow := flag.Int("context-window", 0, "Default context window in tokens (0=built-in default)")
	gpuLayers := flag.Int("gpu-layers", 0, "Default GPU offload layer count")
	batchSize := flag.Int("batch-size", 0, "Decode batch size cap (0=built-in default)")
	threads := flag.Int("threads", 0, "CPU threads for evaluation (0=auto)")
	maxSessions := flag.Int("max-sessions", 0, "Maximum concurrent sessions (0=default)")
	maxQueueDepth := flag.Int("max-queue-depth", 0, "Per-session queue depth (0=default)")
	maxWaitMS := flag.Int("max-wait-ms", 0, "Max queue wait before 429, milliseconds (0=default)")
	generateTimeoutS := flag.Int64("generate-timeout-s", 0, "Generate request timeout in seconds (0=disabled)")
	corsOrigins := flag.String("cors-origins", envOr("SESSIOND_CORS_ORIGINS", ""), "Comma-separated allowed CORS origins (empty disables CORS)")
	flag.Parse()

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "sessiond").Logger()

	var cfg config.Config
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", *configPath).Msg("load config")
		}
	}
	// File values fill in anything the flags left at zero; explicitly set
	// flags always win.
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })
	if cfg.Addr == "" || set["addr"] {
		cfg.Addr = *addr
	}
	if cfg.ModelsDir == "" || set["models-dir"] {
		cfg.ModelsDir = *modelsDir
	}
	if cfg.DefaultModel == "" || set["default-model"] {
		if *defaultModel != "" {
			cfg.DefaultModel = *defaultModel
		}
	}
	if *contextWindow > 0 {
		cfg.ContextWindow = *contextWindow
	}
	if *gpuLayers > 0 {
		cfg.GPULayers = *gpuLayers
	}
	if *batchSize > 0 {
		cfg.BatchSize = *batchSize
	}
	if *threads > 0 {
		cfg.Threads = *threads
	}
	if *maxSessions > 0 {
		cfg.MaxSessions = *maxSessions
	}
	if *maxQueueDepth > 0 {
		cfg.MaxQueueDepth = *maxQueueDepth
	}
	if *maxWaitMS > 0 {
		cfg.MaxWaitMS = *maxWaitMS
	}
	if *generateTimeoutS > 0 {
		cfg.GenerateTimeoutS = *generateTimeoutS
	}

	reg, err := registry.LoadDir(cfg.ModelsDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.ModelsDir).Msg("load models")
	}
	logger.Info().Int("models", len(reg)).Bool("llama", engine.Built()).Msg("registry loaded")

	mgr := manager.NewWithConfig(engine.New(), manager.Config{
		Registry:      reg,
		DefaultModel:  cfg.DefaultModel,
		ContextWindow: cfg.ContextWindow,
		GPULayers:     cfg.GPULayers,
		BatchSize:     cfg.BatchSize,
		Threads:       cfg.Threads,
		MaxSessions:   cfg.MaxSessions,
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWaitMS) * time.Millisecond,
	})
	defer mgr.Close()

	httpapi.SetLogger(logger)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetGenerateTimeoutSeconds(cfg.GenerateTimeoutS)
	if origins := splitCSV(*corsOrigins); len(origins) > 0 {
		httpapi.SetCORSOptions(true, origins,
			[]string{"GET", "POST", "DELETE", "OPTIONS"},
			[]string{"Accept", "Content-Type", "X-Log-Level"})
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetBaseContext(baseCtx)

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr)}

	go func() {
		logger.Info().Str("addr", cfg.Addr).Str("models_dir", cfg.ModelsDir).Msg("sessiond listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown (Ctrl+C / SIGTERM)
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	cancelBase()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown")
	}
}
