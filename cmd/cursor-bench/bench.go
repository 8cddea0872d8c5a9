package main

import (
	"cmp"
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
	"github.com/KevoDB/rowcursor/pkg/provider/bounded"
	"github.com/KevoDB/rowcursor/pkg/provider/composite"
	"github.com/KevoDB/rowcursor/pkg/resultlist"
	"github.com/KevoDB/rowcursor/pkg/sqlprovider"
)

// Access patterns
const (
	PatternForward  = "forward"
	PatternBackward = "backward"
	PatternRandom   = "random"
	PatternIterate  = "iterate"
)

// Row sources
const (
	SourceList   = "list"
	SourceSeq    = "seq"
	SourceSQLite = "sqlite"
	SourceMerged = "merged"
)

// mergeShards is the number of lists the merged source interleaves
const mergeShards = 3

var allPatterns = []string{PatternForward, PatternBackward, PatternRandom, PatternIterate}

// Bench holds the data set shared by every run
type Bench struct {
	ctx  context.Context
	rows []sqlprovider.Row
	db   *sql.DB

	WindowSize    int
	CacheCapacity int
	Reads         int
	Seed          int64
}

// NewBench builds n rows. When dataDir is set the rows are also loaded into
// a SQLite database there.
func NewBench(ctx context.Context, n int, dataDir string) (*Bench, error) {
	b := &Bench{
		ctx:        ctx,
		rows:       make([]sqlprovider.Row, n),
		WindowSize: config.DefaultWindowSize,
		Reads:      n,
		Seed:       1,
	}
	for i := range b.rows {
		b.rows[i] = sqlprovider.Row{int64(i), fmt.Sprintf("row-%06d", i)}
	}

	if dataDir == "" {
		return b, nil
	}
	if err := b.loadSQLite(dataDir); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Bench) loadSQLite(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, "bench.db")
	_ = os.Remove(path)

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	tx, err := db.BeginTx(b.ctx, nil)
	if err != nil {
		db.Close()
		return err
	}
	if _, err := tx.ExecContext(b.ctx, `CREATE TABLE rows (id INTEGER PRIMARY KEY, name TEXT)`); err != nil {
		tx.Rollback()
		db.Close()
		return err
	}
	for _, row := range b.rows {
		if _, err := tx.ExecContext(b.ctx, `INSERT INTO rows (id, name) VALUES (?, ?)`, row...); err != nil {
			tx.Rollback()
			db.Close()
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		db.Close()
		return err
	}

	b.db = db
	return nil
}

// Close releases the database
func (b *Bench) Close() error {
	if b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Sources returns the sources this bench can serve
func (b *Bench) Sources() []string {
	if b.db != nil {
		return []string{SourceList, SourceSeq, SourceMerged, SourceSQLite}
	}
	return []string{SourceList, SourceSeq, SourceMerged}
}

func (b *Bench) newProvider(source string, strategy config.Strategy) (provider.RowProvider[sqlprovider.Row], error) {
	switch source {
	case SourceList:
		return provider.NewListProvider(b.rows), nil
	case SourceSeq:
		return provider.FromSlice(b.rows), nil
	case SourceMerged:
		return b.mergedProvider()
	case SourceSQLite:
		if b.db == nil {
			return nil, fmt.Errorf("no SQLite data set loaded")
		}
		opts := []sqlprovider.Option{
			sqlprovider.WithCountQuery(`SELECT COUNT(*) FROM rows`),
			sqlprovider.WithLogger(log.Discard()),
		}
		if strategy == config.StrategySimple || strategy == config.StrategyRandom {
			opts = append(opts, sqlprovider.WithScrollEmulation())
		}
		return sqlprovider.New(b.ctx, b.db, `SELECT id, name FROM rows ORDER BY id`, opts...), nil
	default:
		return nil, fmt.Errorf("unknown source %q", source)
	}
}

// mergedProvider deals the rows round robin into shards and merges them back
// by id, then bounds the result to the data set like a paged query would.
func (b *Bench) mergedProvider() (provider.RowProvider[sqlprovider.Row], error) {
	shards := make([][]sqlprovider.Row, mergeShards)
	for i, row := range b.rows {
		shards[i%mergeShards] = append(shards[i%mergeShards], row)
	}

	sources := make([]provider.RowProvider[sqlprovider.Row], mergeShards)
	for i := range shards {
		sources[i] = provider.NewListProvider(shards[i])
	}

	merged, err := composite.NewOrderedByKey(rowID, cmp.Compare[int64], sources...)
	if err != nil {
		return nil, err
	}
	paged, err := bounded.NewRangeProvider[sqlprovider.Row](merged, 0, len(b.rows))
	if err != nil {
		return nil, err
	}
	return paged, nil
}

func rowID(row sqlprovider.Row) int64 {
	return row[0].(int64)
}

// Supported reports whether strategy can run over source
func Supported(strategy config.Strategy, source string) bool {
	if source != SourceSeq && source != SourceMerged {
		return true
	}
	return strategy != config.StrategySimple && strategy != config.StrategyRandom
}

// indexes returns the read order of pattern over n rows
func (b *Bench) indexes(pattern string, n int) []int {
	out := make([]int, 0, n)
	switch pattern {
	case PatternForward:
		for i := 0; i < n; i++ {
			out = append(out, i)
		}
	case PatternBackward:
		for i := n - 1; i >= 0; i-- {
			out = append(out, i)
		}
	case PatternRandom:
		if n == 0 {
			return out
		}
		rng := rand.New(rand.NewSource(b.Seed))
		for i := 0; i < b.Reads; i++ {
			out = append(out, rng.Intn(n))
		}
	}
	return out
}

// Run reads the data set from source through a view of the given strategy
func (b *Bench) Run(strategy config.Strategy, source, pattern string) (BenchmarkResult, error) {
	result := BenchmarkResult{
		Strategy:  string(strategy),
		Source:    source,
		Pattern:   pattern,
		Rows:      len(b.rows),
		Timestamp: time.Now(),
	}

	if !slices.Contains(allPatterns, pattern) {
		return result, fmt.Errorf("unknown pattern %q", pattern)
	}

	base, err := b.newProvider(source, strategy)
	if err != nil {
		return result, err
	}
	counted := provider.NewCounting(base, nil)

	start := time.Now()
	view, err := resultlist.New[sqlprovider.Row](strategy, counted,
		resultlist.WithWindowSize(b.WindowSize),
		resultlist.WithCacheCapacity(b.CacheCapacity),
		resultlist.WithLogger(log.Discard()),
	)
	if err != nil {
		return result, err
	}
	defer view.Close()

	read, err := b.read(view, pattern)
	if err != nil {
		return result, err
	}
	elapsed := time.Since(start)

	result.Reads = len(read)
	result.Duration = elapsed.Seconds()
	if len(read) > 0 {
		result.Latency = float64(elapsed.Microseconds()) / float64(len(read))
	}
	result.NextCalls = counted.Calls(provider.OpNext)
	result.AbsoluteCalls = counted.Calls(provider.OpAbsolute)
	result.CurrentCalls = counted.Calls(provider.OpCurrent)
	result.ResetCalls = counted.Calls(provider.OpReset)
	result.ProviderFreed = !view.IsProviderOpen()
	result.Digest = resultlist.DigestRows(read)
	return result, nil
}

func (b *Bench) read(view resultlist.View[sqlprovider.Row], pattern string) ([]sqlprovider.Row, error) {
	if pattern == PatternIterate {
		var rows []sqlprovider.Row
		for row, err := range view.All() {
			if err != nil {
				return nil, err
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	n, err := view.Size()
	if err != nil {
		return nil, err
	}

	order := b.indexes(pattern, n)
	rows := make([]sqlprovider.Row, 0, len(order))
	for _, i := range order {
		row, err := view.Get(i)
		if err != nil {
			return nil, fmt.Errorf("read %d: %w", i, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
