// Package main is the CogniDocs CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/cognidocs/internal/cli"
	"github.com/hyperjump/cognidocs/internal/config"
	"github.com/hyperjump/cognidocs/internal/models"
	"github.com/hyperjump/cognidocs/internal/server"
	"github.com/hyperjump/cognidocs/internal/watcher"
	"github.com/hyperjump/cognidocs/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "/usr/local/etc/cognidocs/config.yaml"
	defaultServerURL  = "http://localhost:8000"
)

// loadConfig loads .env, then the config at path. When path is the default, config.yaml in the
// current directory wins if it exists. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, "", err
	}
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "query":
		runQuery()
	case "status":
		runStatus()
	case "documents":
		runDocuments()
	case "watch":
		runWatch()
	case "version", "--version", "-v":
		fmt.Printf("cognidocs version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging (retrieved chunks, inbox events, etc.)")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("mode", cfg.Retrieval.Mode),
		zap.Bool("debug", debugMode))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	var watchSvc server.WatchService
	if len(cfg.Watch.Directories) > 0 {
		w := watcher.NewWatcher(components.Indexer, cfg.Watch.RecursiveOrDefault(), watcher.WithLogger(logger))
		if err := w.Start(ctx, cfg.Watch.Directories); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
		defer w.Stop()
		watchSvc = w
	}

	srv := server.NewServer(components.Engine, components.Indexer, cfg, logger, watchSvc, resolvedConfigPath)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

// clientFlags registers the flags shared by subcommands that talk to a running server.
func clientFlags(fs *flag.FlagSet) (serverURL, output *string, timeout *time.Duration) {
	serverURL = fs.String("server", defaultServerURL, "server URL")
	output = fs.String("output", "text", "output format: text or json")
	timeout = fs.Duration("timeout", 2*time.Minute, "request timeout")
	return serverURL, output, timeout
}

func outputFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	serverURL, output, timeout := clientFlags(fs)
	_ = fs.Parse(argsReorder(os.Args[2:]))
	if fs.NArg() < 1 {
		fatalf("Usage: cognidocs ingest [flags] <file.pdf> [file.pdf...]")
	}
	format := outputFormat(*output)

	client := cli.NewClient(*serverURL, *timeout)
	resp, err := client.Upload(context.Background(), fs.Args())
	if err != nil {
		fatalf("Ingest failed: %v", err)
	}
	if err := cli.WriteUpload(os.Stdout, resp, format); err != nil {
		fatalf("Output failed: %v", err)
	}
	if len(resp.UploadedFiles) < len(resp.Results) {
		os.Exit(2)
	}
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	serverURL, output, timeout := clientFlags(fs)
	maxResults := fs.Int("max-results", models.MaxContextChunks, "maximum context chunks (1-3)")
	noSources := fs.Bool("no-sources", false, "omit sources from the answer")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		fatalf("Usage: cognidocs query [flags] <question>")
	}
	format := outputFormat(*output)
	includeSources := !*noSources
	req := &models.QueryRequest{Question: question, MaxResults: *maxResults, IncludeSources: &includeSources}

	ans, err := cli.NewClient(*serverURL, *timeout).Query(context.Background(), req)
	if err != nil {
		fatalf("Query failed: %v", err)
	}
	if err := cli.WriteAnswer(os.Stdout, ans, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path (direct mode)")
	serverURL, output, timeout := clientFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)
	ctx := context.Background()

	var st *cli.StatusReport
	if *serverURL != "" {
		var err error
		st, err = cli.NewClient(*serverURL, *timeout).Status(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
	} else {
		// Direct mode reads the configured external store without a running server.
		components := directComponents(ctx, *configPath)
		defer components.Close()
		s, err := components.Engine.Status(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		st = &cli.StatusReport{Mode: s.Mode, DocumentsCount: s.DocumentsCount, ChunkCount: s.ChunkCount}
	}
	if err := cli.WriteStatus(os.Stdout, st, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runDocuments() {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	serverURL, output, timeout := clientFlags(fs)
	_ = fs.Parse(os.Args[2:])
	format := outputFormat(*output)

	docs, err := cli.NewClient(*serverURL, *timeout).Documents(context.Background())
	if err != nil {
		fatalf("Listing documents failed: %v", err)
	}
	if err := cli.WriteDocuments(os.Stdout, docs, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runWatch() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: cognidocs watch <add|remove|list> [path]")
		fmt.Println("  cognidocs watch add <path>     Add an inbox directory")
		fmt.Println("  cognidocs watch remove <path>  Stop watching an inbox directory")
		fmt.Println("  cognidocs watch list           List inbox directories")
		os.Exit(1)
	}
	sub := os.Args[2]
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	serverURL := fs.String("server", defaultServerURL, "server URL")
	noSync := fs.Bool("no-sync", false, "do not ingest PDFs already in the directory")
	_ = fs.Parse(argsReorder(os.Args[3:]))
	client := cli.NewClient(*serverURL, 30*time.Second)
	ctx := context.Background()

	switch sub {
	case "add", "remove":
		if fs.NArg() < 1 {
			fatalf("Usage: cognidocs watch %s <path>", sub)
		}
		path, err := filepath.Abs(fs.Arg(0))
		if err != nil {
			fatalf("Invalid path: %v", err)
		}
		if sub == "add" {
			if err := client.AddWatchDirectory(ctx, path, !*noSync); err != nil {
				fatalf("Add failed: %v", err)
			}
			fmt.Printf("Added: %s\n", path)
			return
		}
		if err := client.RemoveWatchDirectory(ctx, path); err != nil {
			fatalf("Remove failed: %v", err)
		}
		fmt.Printf("Removed: %s\n", path)
	case "list":
		dirs, err := client.WatchDirectories(ctx)
		if err != nil {
			fatalf("List failed: %v", err)
		}
		for _, d := range dirs {
			fmt.Println(d)
		}
	default:
		fatalf("Unknown watch subcommand: %s", sub)
	}
}

func directComponents(ctx context.Context, configPath string) *Components {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	logger, err := utils.NewCLILogger(cfg.Debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	if cfg.Retrieval.Mode == config.ModeMemory {
		logger.Warn("memory mode keeps chunks inside the server process; direct status only sees an empty store")
	}
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	return components
}

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// argsReorder moves any flags (and their values) that appear after the positional arguments
// to the front so that flag.Parse sees them. The flag package stops at the first non-flag
// argument, so "cognidocs query what is X -output json" would otherwise leave -output unparsed.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func printUsage() {
	fmt.Println(`cognidocs - Ask questions about your PDF documents

Usage:
  cognidocs server [flags]                 Start the HTTP server
  cognidocs ingest [flags] <file.pdf>...   Upload PDFs to a running server
  cognidocs query [flags] <question>       Ask a question
  cognidocs status [flags]                 Show storage mode and knowledge base size
  cognidocs documents [flags]              List ingested documents
  cognidocs watch <add|remove|list>        Manage inbox directories
  cognidocs version                        Show version
  cognidocs help                           Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/cognidocs/config.yaml; ./config.yaml wins when present)
  --debug            Enable debug logging

Client Flags (ingest, query, status, documents):
  --server string    Server URL (default: http://localhost:8000)
  --output string    Output format: text or json (default: text)
  --timeout duration Request timeout (default: 2m)

Query Flags:
  --max-results int  Maximum context chunks, 1-3 (default: 3)
  --no-sources       Omit sources from the answer

Status Flags:
  --config string    Config file path, used with --server "" to read an external store directly

Watch Flags:
  --server string    Server URL (default: http://localhost:8000)
  --no-sync          Do not ingest PDFs already in the added directory

Environment:
  OPENAI_API_KEY     API key for answers and embeddings
  COGNIDOCS_MODE     Storage mode override: memory, qdrant or pgvector
  QDRANT_URL, DATABASE_URL, REDIS_URL
                     External store and embedding cache locations

Examples:
  cognidocs server
  cognidocs ingest Tesla_2023_10K_Report.pdf manual.pdf
  cognidocs query "What were Tesla's total revenues in 2023?"
  cognidocs query --output json how do I reset the console
  cognidocs status --output json
  cognidocs watch add ./inbox`)
}
