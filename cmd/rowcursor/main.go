package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/chzyer/readline"
	_ "modernc.org/sqlite"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/telemetry"
)

// Command completer for readline
var completer = readline.NewPrefixCompleter(
	readline.PcItem(".help"),
	readline.PcItem(".open"),
	readline.PcItem(".close"),
	readline.PcItem(".exit"),
	readline.PcItem(".strategy",
		readline.PcItem("eager"),
		readline.PcItem("simple"),
		readline.PcItem("forward"),
		readline.PcItem("random"),
		readline.PcItem("window"),
		readline.PcItem("auto"),
	),
	readline.PcItem(".window"),
	readline.PcItem(".capacity"),
	readline.PcItem(".save"),
	readline.PcItem(".filter"),
	readline.PcItem(".stats"),
	readline.PcItem(".digest"),
	readline.PcItem("QUERY", readline.PcItem("SELECT")),
	readline.PcItem("COUNT", readline.PcItem("SELECT")),
	readline.PcItem("GET"),
	readline.PcItem("SIZE"),
	readline.PcItem("SCAN"),
	readline.PcItem("FIND"),
	readline.PcItem("CLOSE"),
)

// Options holds the command line settings
type Options struct {
	ConfigPath  string
	DBPath      string
	Strategy    string
	WindowSize  int
	Capacity    int
	LogLevel    string
	Telemetry   bool
	MetricsAddr string
}

func main() {
	opts := parseFlags()

	cfg, err := loadConfig(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	tel, shutdown, err := setupTelemetry(ctx, cfg, opts.MetricsAddr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting telemetry: %v\n", err)
		os.Exit(1)
	}
	defer shutdown()

	shell := NewShell(ctx, cfg, tel, os.Stdout)
	defer shell.Close()

	if opts.DBPath != "" {
		fmt.Printf("Opening database at %s\n", opts.DBPath)
		if err := shell.Open(opts.DBPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %s\n", err)
			os.Exit(1)
		}
	}

	runInteractive(shell)
}

// parseFlags parses command line flags and returns the options
func parseFlags() Options {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "rowcursor - browse SQLite query results through lazy result lists\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: rowcursor [options] [database_path]\n\n")
		fmt.Fprintf(flag.CommandLine.Output(), "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(flag.CommandLine.Output(), "\nFor the command list, start rowcursor and type .help\n")
	}

	configPath := flag.String("config", "", "Configuration file (JSON)")
	strategy := flag.String("strategy", "", "Result list strategy: eager, simple, forward, random, window or auto")
	windowSize := flag.Int("window", 0, "Window size of the window strategy")
	capacity := flag.Int("capacity", -1, "Cache capacity of the random strategy (0 = unbounded)")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error")
	tel := flag.Bool("telemetry", false, "Export metrics and traces")
	metricsAddr := flag.String("metrics-address", "localhost:9464", "Address serving /metrics when the prometheus exporter is on")

	flag.Parse()

	var dbPath string
	if flag.NArg() > 0 {
		dbPath = flag.Arg(0)
	}

	return Options{
		ConfigPath: *configPath,
		DBPath:     dbPath,
		Strategy:   *strategy,
		WindowSize: *windowSize,
		Capacity:   *capacity,
		LogLevel:   *logLevel,
		Telemetry:  *tel,

		MetricsAddr: *metricsAddr,
	}
}

// loadConfig reads the configuration file if any, applies the environment
// and then the flags that were set.
func loadConfig(opts Options) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if opts.ConfigPath != "" {
		loaded, err := config.LoadConfigFromFile(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.Update(func(c *config.Config) {
		c.Telemetry.LoadFromEnv()
		if opts.Strategy != "" {
			c.Strategy = config.Strategy(strings.ToLower(opts.Strategy))
		}
		if opts.WindowSize != 0 {
			c.WindowSize = opts.WindowSize
		}
		if opts.Capacity >= 0 {
			c.CacheCapacity = opts.Capacity
		}
		if opts.LogLevel != "" {
			c.LogLevel = opts.LogLevel
		}
		if opts.Telemetry {
			c.Telemetry.Enabled = true
		}
	})

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupTelemetry starts the export pipeline when telemetry is enabled, and
// the /metrics endpoint when the prometheus exporter is configured.
func setupTelemetry(ctx context.Context, cfg *config.Config, metricsAddr string) (telemetry.Telemetry, func(), error) {
	if !cfg.Telemetry.Enabled {
		return telemetry.NewNoop(), func() {}, nil
	}

	pipeline, err := telemetry.NewPipeline(ctx, cfg.Telemetry, os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	tel, err := pipeline.Telemetry(cfg.Telemetry)
	if err != nil {
		_ = pipeline.Shutdown(ctx)
		return nil, nil, err
	}

	var server *http.Server
	if handler := pipeline.MetricsHandler(); handler != nil && metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", handler)
		server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "Error serving metrics: %v\n", err)
			}
		}()
		fmt.Printf("Serving metrics on http://%s/metrics\n", metricsAddr)
	}

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if server != nil {
			if err := server.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error stopping metrics server: %v\n", err)
			}
		}
		if err := tel.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down telemetry: %v\n", err)
		}
		if err := pipeline.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error shutting down telemetry: %v\n", err)
		}
	}
	return tel, shutdown, nil
}

// runInteractive starts the interactive CLI mode
func runInteractive(shell *Shell) {
	fmt.Println("rowcursor version 1.0.0")
	fmt.Println("Enter .help for usage hints.")

	historyFile := filepath.Join(os.TempDir(), ".rowcursor_history")
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          shell.Prompt(),
		HistoryFile:     historyFile,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing readline: %s\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		rl.SetPrompt(shell.Prompt())

		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					break
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			fmt.Fprintf(os.Stderr, "Error reading input: %s\n", err)
			continue
		}

		if err := shell.Execute(line); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
	}
}
