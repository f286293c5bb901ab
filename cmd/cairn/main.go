package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split from main for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	_ = godotenv.Load()
	setupLogging(stderr)

	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "import":
		return runImportCmd(args[2:], stdout, stderr)
	case "create":
		return runCreateCmd(args[2:], stdout, stderr)
	case "list":
		return runListCmd(args[2:], stdout, stderr)
	case "get":
		return runGetCmd(args[2:], stdout, stderr)
	case "migrate":
		return runMigrateCmd(args[2:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		_, _ = fmt.Fprintf(stderr, "unknown command %q\n", args[1])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, `Usage: cairn <command> [flags]

Commands:
  import   resolve and import an artifact graph from a root URL
  create   materialize an artifact from a JSON document
  list     list imported artifacts
  get      show one artifact with its collections
  migrate  create database tables
  help     show this message`)
}

func setupLogging(stderr io.Writer) {
	level := slog.LevelInfo
	switch strings.ToUpper(os.Getenv("LOG_LEVEL")) {
	case "DEBUG":
		level = slog.LevelDebug
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
