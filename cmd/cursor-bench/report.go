package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// BenchmarkResult stores the results of one strategy, source and pattern run
type BenchmarkResult struct {
	Strategy      string
	Source        string
	Pattern       string
	Rows          int
	Reads         int
	Duration      float64 // seconds
	Latency       float64 // microseconds per read
	NextCalls     uint64
	AbsoluteCalls uint64
	CurrentCalls  uint64
	ResetCalls    uint64
	ProviderFreed bool
	Digest        uint64
	Timestamp     time.Time
}

var csvHeader = []string{
	"Timestamp", "Strategy", "Source", "Pattern", "Rows", "Reads",
	"Duration", "Latency", "Next", "Absolute", "Current", "Reset",
	"Freed", "Digest",
}

// SaveResultCSV saves benchmark results to a CSV file
func SaveResultCSV(results []BenchmarkResult, filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range results {
		record := []string{
			r.Timestamp.Format(time.RFC3339),
			r.Strategy,
			r.Source,
			r.Pattern,
			strconv.Itoa(r.Rows),
			strconv.Itoa(r.Reads),
			fmt.Sprintf("%.6f", r.Duration),
			fmt.Sprintf("%.3f", r.Latency),
			strconv.FormatUint(r.NextCalls, 10),
			strconv.FormatUint(r.AbsoluteCalls, 10),
			strconv.FormatUint(r.CurrentCalls, 10),
			strconv.FormatUint(r.ResetCalls, 10),
			strconv.FormatBool(r.ProviderFreed),
			strconv.FormatUint(r.Digest, 16),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// LoadResultCSV loads benchmark results from a CSV file
func LoadResultCSV(filename string) ([]BenchmarkResult, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	// Skip header
	if len(records) <= 1 {
		return []BenchmarkResult{}, nil
	}
	records = records[1:]

	results := make([]BenchmarkResult, 0, len(records))
	for _, record := range records {
		if len(record) < len(csvHeader) {
			continue
		}

		timestamp, _ := time.Parse(time.RFC3339, record[0])
		rows, _ := strconv.Atoi(record[4])
		reads, _ := strconv.Atoi(record[5])
		duration, _ := strconv.ParseFloat(record[6], 64)
		latency, _ := strconv.ParseFloat(record[7], 64)
		next, _ := strconv.ParseUint(record[8], 10, 64)
		absolute, _ := strconv.ParseUint(record[9], 10, 64)
		current, _ := strconv.ParseUint(record[10], 10, 64)
		reset, _ := strconv.ParseUint(record[11], 10, 64)
		freed, _ := strconv.ParseBool(record[12])
		digest, _ := strconv.ParseUint(record[13], 16, 64)

		results = append(results, BenchmarkResult{
			Timestamp:     timestamp,
			Strategy:      record[1],
			Source:        record[2],
			Pattern:       record[3],
			Rows:          rows,
			Reads:         reads,
			Duration:      duration,
			Latency:       latency,
			NextCalls:     next,
			AbsoluteCalls: absolute,
			CurrentCalls:  current,
			ResetCalls:    reset,
			ProviderFreed: freed,
			Digest:        digest,
		})
	}

	return results, nil
}

// PrintResultTable writes a formatted table of benchmark results
func PrintResultTable(w io.Writer, results []BenchmarkResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No results to display")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Strategy", "Source", "Pattern", "Reads", "Latency", "Next", "Absolute", "Current", "Reset", "Freed"})

	for _, r := range results {
		latencyUnit := "µs"
		latency := r.Latency
		if latency > 1000 {
			latencyUnit = "ms"
			latency /= 1000
		}

		freed := "no"
		if r.ProviderFreed {
			freed = "yes"
		}

		t.AppendRow(table.Row{
			r.Strategy,
			r.Source,
			r.Pattern,
			r.Reads,
			fmt.Sprintf("%.2f%s", latency, latencyUnit),
			r.NextCalls,
			r.AbsoluteCalls,
			r.CurrentCalls,
			r.ResetCalls,
			freed,
		})
	}

	t.SetStyle(table.StyleLight)
	t.Style().Format = table.FormatOptions{
		Footer: text.FormatDefault,
		Header: text.FormatDefault,
		Row:    text.FormatDefault,
	}
	t.Render()
}

// CheckDigests reports runs whose rows differ from the first run of the same
// source and pattern.
func CheckDigests(results []BenchmarkResult) []string {
	type key struct{ source, pattern string }
	first := make(map[key]BenchmarkResult)

	var mismatches []string
	for _, r := range results {
		k := key{r.Source, r.Pattern}
		ref, ok := first[k]
		if !ok {
			first[k] = r
			continue
		}
		if r.Digest != ref.Digest {
			mismatches = append(mismatches, fmt.Sprintf("%s/%s: %s read different rows than %s",
				r.Source, r.Pattern, r.Strategy, ref.Strategy))
		}
	}
	return mismatches
}
