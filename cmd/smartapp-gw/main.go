package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/smartapp-gw/internal/config"
	"github.com/mattjoyce/smartapp-gw/internal/dispatcher"
	"github.com/mattjoyce/smartapp-gw/internal/log"
	"github.com/mattjoyce/smartapp-gw/internal/signature"
	"github.com/mattjoyce/smartapp-gw/internal/webhook"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "check":
		os.Exit(runCheck(args))
	case "lock":
		os.Exit(runLock(args))
	case "version":
		fmt.Printf("smartapp-gw version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`smartapp-gw - SmartApp webhook lifecycle gateway

Usage:
  smartapp-gw <command> [flags]

Commands:
  start     Start the webhook gateway in foreground
  check     Validate configuration and app definition
  lock      Pin the app definition hash in the configuration output
  version   Show version information
  help      Show this help message

Flags:
  --config <path>   Path to configuration file (required for start/check/lock)
`)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: smartapp-gw start --config <path>")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("smartapp-gw starting", "version", version, "config", *configPath)

	definition, err := cfg.LoadDefinition()
	if err != nil {
		logger.Error("failed to load app definition", "path", cfg.Definition, "error", err)
		return 1
	}
	logger.Info("app definition loaded",
		"app_id", definition.ID,
		"name", definition.Name,
		"pages", len(definition.ConfigPages),
	)

	opts := []dispatcher.Option{
		dispatcher.WithLogger(log.WithComponent("dispatcher")),
	}
	if *cfg.CheckSignatures {
		keys := signature.NewKeyCache(
			signature.NewHTTPKeySource(cfg.KeyServerURL),
			cfg.KeyCacheTTL(),
		)
		verifier, err := signature.NewVerifier(keys, definition.TargetURL, cfg.ClockSkew())
		if err != nil {
			logger.Error("failed to build signature verifier", "error", err)
			return 1
		}
		opts = append(opts, dispatcher.WithVerifier(verifier))
	} else {
		logger.Warn("signature verification is DISABLED; local development only")
	}
	if cfg.StrictEvents {
		opts = append(opts, dispatcher.WithStrictEvents())
	}

	handler := dispatcher.LoggingHandler{Logger: log.WithComponent("handler")}
	disp := dispatcher.New(definition, handler, opts...)

	path, err := webhook.PathFromTargetURL(definition.TargetURL)
	if err != nil {
		logger.Error("failed to derive webhook path", "target_url", definition.TargetURL, "error", err)
		return 1
	}
	maxBody, err := config.ParseMaxBodySize(cfg.MaxBodySize)
	if err != nil {
		logger.Error("invalid max_body_size", "value", cfg.MaxBodySize, "error", err)
		return 1
	}

	server := webhook.New(webhook.Config{
		Listen:      cfg.Listen,
		Path:        path,
		MaxBodySize: maxBody,
	}, disp, log.WithComponent("webhook"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(ctx); err != nil && err != context.Canceled {
			errCh <- err
		}
	}()

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	case err := <-errCh:
		logger.Error("webhook server failed", "error", err)
		return 1
	}

	logger.Info("smartapp-gw stopped")
	return 0
}

// runCheck validates the configuration and the app definition without
// starting the server.
func runCheck(args []string) int {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: smartapp-gw check --config <path>")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config check FAILED: %v\n", err)
		return 1
	}

	definition, err := cfg.LoadDefinition()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Definition check FAILED: %v\n", err)
		return 1
	}

	fmt.Printf("Configuration OK: %s\n", *configPath)
	fmt.Printf("Definition OK: %s (%s, %d pages)\n",
		cfg.Definition, definition.ID, len(definition.ConfigPages))
	if cfg.DefinitionHash != "" {
		fmt.Println("Definition hash verified.")
	}
	return 0
}

// runLock prints the current BLAKE3 hash of the app definition so it can be
// pinned as definition_hash in the configuration.
func runLock(args []string) int {
	fs := flag.NewFlagSet("lock", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}
	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: smartapp-gw lock --config <path>")
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	hash, err := config.ComputeFileHash(cfg.Definition)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash definition: %v\n", err)
		return 1
	}

	fmt.Printf("definition_hash: %s\n", hash)
	return 0
}
