package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/rakib91221/StableGen/comfy"
	"github.com/rakib91221/StableGen/config"
	"github.com/rakib91221/StableGen/graph"
	"github.com/rakib91221/StableGen/orchestrator"
	"github.com/rakib91221/StableGen/scene"
	"github.com/rakib91221/StableGen/types"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// A .env next to the binary overrides nothing already exported.
	_ = godotenv.Load()

	switch os.Args[1] {
	case "generate":
		runGenerate(os.Args[2:])
	case "graph":
		runGraph(os.Args[2:])
	case "ping":
		runPing(os.Args[2:])
	case "validate":
		runValidate(os.Args[2:])
	case "version":
		printVersion()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// runGenerate textures a directory-backed scene end to end.
func runGenerate(args []string) {
	fs := flag.NewFlagSet("generate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	sceneDir := fs.String("scene", "", "Scene directory with per-viewpoint guidance renders")
	reprojectDir := fs.String("reproject", "", "Re-project the generated images of this previous run")
	fs.Parse(args)

	if *sceneDir == "" {
		fmt.Fprintln(os.Stderr, "generate requires --scene")
		os.Exit(1)
	}

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	logger.Info("starting stablegen",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit))

	sc, err := scene.NewFileScene(*sceneDir, logger)
	if err != nil {
		fatal(logger, "scene load failed", err)
	}

	backend := comfy.NewClient(cfg.Backend.Address, logger)
	orch := orchestrator.New(cfg, sc, backend, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := orchestrator.Options{}
	if *reprojectDir != "" {
		opts.Reproject = true
		opts.ReprojectDir = *reprojectDir
	}

	h, err := orch.Start(ctx, opts)
	if err != nil {
		fatal(logger, "run rejected", err)
	}

	// The CLI is its own main context; pump until the run reports.
	var result types.Result
	done := make(chan struct{})
	go func() {
		result = <-h.Result()
		close(done)
	}()
	pumpCtx, cancelPump := context.WithCancel(context.Background())
	go func() {
		<-done
		cancelPump()
	}()
	go func() {
		<-ctx.Done()
		h.Cancel()
	}()
	orch.Dispatcher().Pump(pumpCtx)
	<-done

	switch result.Outcome {
	case types.OutcomeSuccess:
		logger.Info("run succeeded",
			zap.Int("jobs", result.JobsCompleted),
			zap.Int("revision", int(result.Revision)))
	case types.OutcomeCancelled:
		logger.Warn("run cancelled", zap.Int("jobs", result.JobsCompleted))
		os.Exit(130)
	default:
		fatal(logger, "run failed", result.Err)
	}
}

// runGraph compiles the configured job into a backend graph and prints
// it, a dry run of the payload the backend would receive.
func runGraph(args []string) {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	logger := initLogger(cfg.Log)
	defer logger.Sync()

	g, err := graph.Build(logger, graph.Spec{
		Job: types.GenerationJob{
			Mode:     cfg.Generation.Mode,
			Prompt:   cfg.Generation.Prompt,
			Negative: cfg.Generation.NegativePrompt,
			Guidance: types.GuidanceArtifacts{
				Depth:  "depth.png",
				Canny:  "canny.png",
				Normal: "normal.png",
			},
			Params: types.SamplingParams{
				Seed:      cfg.Generation.Seed,
				Steps:     cfg.Generation.Steps,
				CFG:       cfg.Generation.CFG,
				Sampler:   cfg.Generation.Sampler,
				Scheduler: cfg.Generation.Scheduler,
				ClipSkip:  cfg.Generation.ClipSkip,
				Denoise:   1.0,
				Width:     cfg.Generation.Width,
				Height:    cfg.Generation.Height,
			},
		},
		Architecture: cfg.Generation.Architecture,
		Model:        cfg.Generation.Model,
		ControlUnits: cfg.ControlUnits,
		LoRAUnits:    cfg.LoRAUnits,
		Adapter:      cfg.Adapter,
		Mask:         cfg.Mask,
		Inpaint:      cfg.Inpaint,
	})
	if err != nil {
		fatal(logger, "graph build failed", err)
	}
	fmt.Println(g.String())
}

// runPing checks backend reachability.
func runPing(args []string) {
	fs := flag.NewFlagSet("ping", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	addr := fs.String("addr", "", "Backend address (overrides config)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if *addr != "" {
		cfg.Backend.Address = *addr
	}

	client := comfy.NewClient(cfg.Backend.Address, zap.NewNop())
	if err := client.Ping(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "backend unreachable: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

// runValidate loads and validates the configuration.
func runValidate(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file (YAML)")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK")
}

func loadConfig(path string) *config.Config {
	loader := config.NewLoader()
	if path != "" {
		loader = loader.WithConfigPath(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg config.LogConfig) *zap.Logger {
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	zcfg := zap.NewProductionConfig()
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = level

	logger, err := zcfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	return logger
}

func fatal(logger *zap.Logger, msg string, err error) {
	logger.Error(msg, zap.Error(err))
	logger.Sync()
	os.Exit(1)
}

func printVersion() {
	fmt.Printf("stablegen %s\n", Version)
	fmt.Printf("  Build Time: %s\n", BuildTime)
	fmt.Printf("  Git Commit: %s\n", GitCommit)
}

func printUsage() {
	fmt.Println(`stablegen - scene texturing via a diffusion backend

Usage:
  stablegen <command> [options]

Commands:
  generate  Texture a directory-backed scene
  graph     Print the compiled backend graph for the current config
  ping      Check backend reachability
  validate  Load and validate the configuration
  version   Show version information
  help      Show this help message

Options for 'generate':
  --config <path>     Path to configuration file (YAML)
  --scene <dir>       Scene directory with per-viewpoint guidance renders
  --reproject <dir>   Re-project a previous run instead of generating

Examples:
  stablegen generate --scene ./renders --config stablegen.yaml
  stablegen graph --config stablegen.yaml
  stablegen ping --addr 127.0.0.1:8188
  stablegen version`)
}
