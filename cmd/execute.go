// Package cmd contains the command-line entry points for the surfkit server.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/surfkit/surfkit/internal/log"
)

// Version information (injected at build time via ldflags).
var (
	AppVersion = "0.1.0"
	BuildTime  = "unknown"
	GitCommit  = "unknown"
)

// Execute is the main entry point. It handles flag parsing and command
// routing; main.go stays a minimal shim.
func Execute() error {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version", "--version", "-v":
			return printVersionInfo()
		case "help", "--help", "-h":
			printHelp()
			return nil
		case "serve":
			// fall through to the default below
		default:
			printHelp()
			return fmt.Errorf("unknown command %q", os.Args[1])
		}
	}

	logger := initLogger()
	slog.SetDefault(logger)

	if err := checkRequiredEnv(); err != nil {
		return err
	}

	return runServe(logger)
}

// initLogger initializes the structured logger.
//
// Log level is controlled by the DEBUG environment variable:
//   - DEBUG set (any value): debug level logging
//   - DEBUG not set: info level logging
func initLogger() *slog.Logger {
	cfg := log.Config{Level: slog.LevelInfo, JSON: true}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
		cfg.AddSource = true
	}
	return log.New(cfg)
}

// checkRequiredEnv verifies that required environment variables are set.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprint(os.Stderr, `GEMINI_API_KEY is not set.

surfkit generates UI through the Gemini API and cannot start without a key:

  export GEMINI_API_KEY=your-api-key

Keys are issued at https://ai.google.dev/
`)
		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}

// printVersionInfo displays version information.
func printVersionInfo() error {
	fmt.Printf("surfkit v%s\n", AppVersion)
	fmt.Printf("Build: %s\n", BuildTime)
	fmt.Printf("Commit: %s\n", GitCommit)
	return nil
}

// printHelp displays the help message.
func printHelp() {
	fmt.Println("surfkit - Generative UI server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  surfkit              Start the HTTP API server (default)")
	fmt.Println("  surfkit serve        Start the HTTP API server")
	fmt.Println("  surfkit --version    Show version information")
	fmt.Println("  surfkit --help       Show this help")
	fmt.Println()
	fmt.Println("Endpoints:")
	fmt.Println("  POST /api/v1/sessions            Establish a session for a widget catalog")
	fmt.Println("  POST /api/v1/generate/stream     Stream UI mutations over SSE")
	fmt.Println("  POST /api/v1/generate            Synchronous generation (Genkit flow)")
	fmt.Println("  GET  /health                     Liveness probe")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
	fmt.Println("  SURFKIT_*          Optional: Config overrides (see ~/.surfkit/config.yaml)")
}
