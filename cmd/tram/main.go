package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"tram/builtins"
	"tram/eval"
	"tram/task"
	"tram/trace"
	"tram/treefile"
)

func main() {
	configPath := flag.String("config", "", "YAML config file")

	// Limits
	ticks := flag.Int64("ticks", 0, "Tick limit per program (0 = unlimited)")
	maxDepth := flag.Int("max-depth", 0, "Maximum activation depth")
	timeout := flag.Duration("timeout", 0, "Wall-clock limit per program (e.g. 5s)")

	// Scheduling
	jobs := flag.Int("jobs", 0, "Programs run at once (0 = no limit)")
	failFast := flag.Bool("fail-fast", false, "Stop the remaining programs after the first failure")

	// Trace flags
	traceEnabled := flag.Bool("trace", false, "Enable execution tracing")
	traceFilter := flag.String("trace-filter", "", "Trace filter pattern (glob, e.g., 'util.*' or '*_test')")

	repl := flag.Bool("repl", false, "Start an interactive session")
	verbose := flag.Bool("v", false, "Debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: tram [flags] program.yaml ...\n       tram -repl\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg := defaultConfig()
	if *configPath != "" {
		var err error
		if cfg, err = loadConfig(*configPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}

	// Flags given explicitly win over the config file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "ticks":
			cfg.Ticks = *ticks
		case "max-depth":
			cfg.MaxDepth = *maxDepth
		case "timeout":
			cfg.Timeout = *timeout
		case "jobs":
			cfg.Jobs = *jobs
		case "fail-fast":
			cfg.FailFast = *failFast
		case "trace":
			cfg.Trace.Enabled = *traceEnabled
		case "trace-filter":
			cfg.Trace.Filters = splitFilters(*traceFilter)
		case "v":
			if *verbose {
				cfg.LogLevel = "debug"
			}
		}
	})

	level, err := cfg.level()
	if err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// Initialize tracer
	if cfg.Trace.Enabled {
		trace.Init(true, cfg.Trace.Filters, os.Stderr)
		log.Printf("Tracing enabled (filters: %v)", cfg.Trace.Filters)
	} else {
		trace.Init(false, nil, nil)
	}

	opts := eval.DefaultOptions()
	opts.TickLimit = cfg.Ticks
	opts.MaxDepth = cfg.MaxDepth
	opts.Logger = logger
	opts.Tracer = trace.Global()

	registry := builtins.NewRegistry()

	if *repl {
		os.Exit(runREPL(cfg, opts, registry))
	}
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	os.Exit(runFiles(cfg, opts, registry, flag.Args()))
}

func splitFilters(s string) []string {
	if s == "" {
		return nil
	}
	filters := strings.Split(s, ",")
	for i := range filters {
		filters[i] = strings.TrimSpace(filters[i])
	}
	return filters
}

// runFiles runs every program as its own task and reports failures with
// their tracebacks. Output streams directly for a single program and is
// printed per program, in order, otherwise.
func runFiles(cfg *Config, opts *eval.Options, registry *builtins.Registry, paths []string) int {
	buffered := len(paths) > 1
	if buffered {
		opts.Print = nil
	}

	mgr := task.NewManager(opts, registry.Install)
	mgr.SetTimeout(cfg.Timeout)

	tasks := make([]*task.Task, 0, len(paths))
	for _, path := range paths {
		code, err := treefile.DecodeFile(path)
		if err != nil {
			log.Printf("%v", err)
			return 1
		}
		tasks = append(tasks, mgr.CreateTask(path, code))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runErr := mgr.RunAll(ctx, tasks, cfg.Jobs, cfg.FailFast)

	for _, t := range tasks {
		if buffered {
			fmt.Printf("== %s\n", t.Name)
			for _, line := range t.GetOutput() {
				fmt.Println(line)
			}
		}
		switch t.GetState() {
		case task.TaskFailed:
			fmt.Fprintf(os.Stderr, "%s failed:\n", t.Name)
			for _, line := range task.FormatTraceback(t.Traceback, t.Err) {
				fmt.Fprintf(os.Stderr, "  %s\n", line)
			}
		case task.TaskKilled:
			fmt.Fprintf(os.Stderr, "%s: interrupted\n", t.Name)
		}
	}

	if runErr != nil {
		log.Printf("%v", runErr)
		return 1
	}
	return 0
}
