package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"slices"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/KevoDB/rowcursor/pkg/config"
)

const defaultRowCount = 10000

var (
	// Command line flags
	strategies  = flag.String("strategies", "all", "Comma separated strategies to run (eager, simple, forward, random, window or all)")
	patterns    = flag.String("patterns", "all", "Comma separated access patterns (forward, backward, random, iterate or all)")
	sources     = flag.String("sources", "all", "Comma separated row sources (list, seq, merged, sqlite or all)")
	numRows     = flag.Int("rows", defaultRowCount, "Number of rows in the data set")
	reads       = flag.Int("reads", 0, "Reads made by the random pattern (default: rows)")
	windowSize  = flag.Int("window", config.DefaultWindowSize, "Window size of the window strategy")
	capacity    = flag.Int("capacity", 0, "Cache capacity of the random strategy (0 = unbounded)")
	seed        = flag.Int64("seed", 1, "Seed of the random pattern")
	dataDir     = flag.String("data-dir", "./benchmark-data", "Directory for the SQLite data set (empty disables it)")
	cpuProfile  = flag.String("cpu-profile", "", "Write CPU profile to file")
	resultsFile = flag.String("results", "", "CSV file to write results to (in addition to stdout)")
)

func main() {
	flag.Parse()

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Could not create CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Could not start CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	if *dataDir != "" {
		if _, err := os.Stat(*dataDir); err == nil {
			fmt.Println("Cleaning previous benchmark data...")
			if err := os.RemoveAll(*dataDir); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to clean benchmark directory: %v\n", err)
			}
		}
	}

	bench, err := NewBench(context.Background(), *numRows, *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to prepare data set: %v\n", err)
		os.Exit(1)
	}
	defer bench.Close()

	bench.WindowSize = *windowSize
	bench.CacheCapacity = *capacity
	bench.Seed = *seed
	if *reads > 0 {
		bench.Reads = *reads
	}

	strategyNames := make([]string, len(config.Strategies))
	for i, s := range config.Strategies {
		strategyNames[i] = string(s)
	}

	fmt.Printf("Benchmark Report (%s)\n", time.Now().Format(time.RFC3339))
	fmt.Printf("Rows: %d, Window: %d, Capacity: %d, Seed: %d\n\n", *numRows, *windowSize, *capacity, *seed)

	var results []BenchmarkResult
	for _, source := range selection(*sources, bench.Sources()) {
		for _, pattern := range selection(*patterns, allPatterns) {
			for _, name := range selection(*strategies, strategyNames) {
				strategy := config.Strategy(name)
				if !Supported(strategy, source) {
					continue
				}

				result, err := bench.Run(strategy, source, pattern)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s/%s/%s failed: %v\n", source, pattern, strategy, err)
					continue
				}
				results = append(results, result)
			}
		}
	}

	PrintResultTable(os.Stdout, results)

	status := 0
	for _, m := range CheckDigests(results) {
		fmt.Fprintf(os.Stderr, "Mismatch: %s\n", m)
		status = 1
	}

	if *resultsFile != "" {
		if err := SaveResultCSV(results, *resultsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write results: %v\n", err)
			status = 1
		} else {
			fmt.Printf("Results saved to %s\n", *resultsFile)
		}
	}

	if status != 0 {
		os.Exit(status)
	}
}

// selection parses a comma separated flag value against the known names
func selection(value string, known []string) []string {
	if value == "" || value == "all" {
		return known
	}

	var out []string
	for _, name := range strings.Split(value, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if slices.Contains(known, name) {
			out = append(out, name)
			continue
		}
		fmt.Fprintf(os.Stderr, "Unknown value %q ignored\n", name)
	}
	return out
}
