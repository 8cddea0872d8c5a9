package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/KevoDB/rowcursor/pkg/provider"
	"github.com/KevoDB/rowcursor/pkg/provider/filtered"
	"github.com/KevoDB/rowcursor/pkg/resultlist"
	"github.com/KevoDB/rowcursor/pkg/sqlprovider"
	"github.com/KevoDB/rowcursor/pkg/stats"
	"github.com/KevoDB/rowcursor/pkg/telemetry"
)

// errExit is returned by Execute when the shell should stop
var errExit = errors.New("exit")

const helpText = `
rowcursor - browse query results through lazy result lists

Usage:
  rowcursor [options] [database_path]

Commands:
  .help                   - Show this help message
  .open PATH              - Open a SQLite database at PATH
  .close                  - Close the current database
  .exit                   - Exit the program
  .strategy [NAME]        - Show or set the strategy (eager, simple, forward, random, window, auto)
  .window N               - Set the window size of the window strategy
  .capacity N             - Set the cache capacity of the random strategy (0 = unbounded)
  .save PATH              - Save the current settings as a configuration file
  .filter [PREFIX]        - Keep only rows whose first column starts with PREFIX (no argument clears it)
  .stats                  - Show the provider calls made by the current result
  .digest                 - Print a fingerprint of the current result

  QUERY sql...            - Run a query and keep its result open
  COUNT sql...            - Count query used to size the next QUERY
  GET index               - Print the row at index
  SIZE                    - Print the number of rows
  SCAN [start [end]]      - Print rows [start, end)
  FIND value              - Print the first row whose first column equals value
  CLOSE                   - Close the current result
`

// Shell runs commands against a database and keeps at most one open result.
type Shell struct {
	ctx    context.Context
	db     *sql.DB
	dbPath string
	out    io.Writer

	cfg     *config.Config
	logger  log.Logger
	metrics resultlist.ViewMetrics

	countQuery string
	filter     string
	query      string
	columns    []string
	view       resultlist.View[sqlprovider.Row]
	calls      *stats.AtomicCollector
}

// NewShell creates a shell writing to out
func NewShell(ctx context.Context, cfg *config.Config, tel telemetry.Telemetry, out io.Writer) *Shell {
	return &Shell{
		ctx:     ctx,
		out:     out,
		cfg:     cfg,
		logger:  log.WithField("component", "shell"),
		metrics: resultlist.NewViewMetrics(tel),
	}
}

// Open opens the SQLite database at path, closing any previous one
func (s *Shell) Open(path string) error {
	s.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(s.ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to open database: %w", err)
	}

	s.db = db
	s.dbPath = path
	return nil
}

// Close closes the open result and database
func (s *Shell) Close() {
	s.closeResult()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.logger.Warn("closing database: %v", err)
		}
		s.db = nil
		s.dbPath = ""
	}
}

func (s *Shell) closeResult() {
	if s.view == nil {
		return
	}
	if err := s.view.Close(); err != nil {
		s.logger.Warn("closing result: %v", err)
	}
	s.view = nil
	s.columns = nil
	s.query = ""
}

// Prompt returns the prompt for the current state
func (s *Shell) Prompt() string {
	strategy, _, _ := s.cfg.Snapshot()
	switch {
	case s.dbPath == "":
		return "rowcursor> "
	case s.view != nil:
		return fmt.Sprintf("rowcursor:%s[%s*]> ", s.dbPath, strategy)
	default:
		return fmt.Sprintf("rowcursor:%s[%s]> ", s.dbPath, strategy)
	}
}

// Execute runs one command line. It returns errExit for .exit.
func (s *Shell) Execute(line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	parts := strings.Fields(line)
	cmd := strings.ToUpper(parts[0])
	rest := strings.TrimSpace(line[len(parts[0]):])

	if strings.HasPrefix(cmd, ".") {
		return s.dotCommand(strings.ToLower(cmd), parts[1:])
	}

	switch cmd {
	case "QUERY":
		return s.runQuery(rest)
	case "COUNT":
		s.countQuery = rest
		fmt.Fprintln(s.out, "Count query set")
		return nil
	case "CLOSE":
		if s.view == nil {
			return errors.New("no open result")
		}
		s.closeResult()
		fmt.Fprintln(s.out, "Result closed")
		return nil
	}

	if s.view == nil {
		return errors.New("no open result, run QUERY first")
	}

	switch cmd {
	case "GET":
		if len(parts) != 2 {
			return errors.New("usage: GET index")
		}
		i, err := strconv.Atoi(parts[1])
		if err != nil {
			return fmt.Errorf("invalid index %q", parts[1])
		}
		row, err := s.view.Get(i)
		if err != nil {
			return s.resultError(err)
		}
		s.printRow(i, row)

	case "SIZE":
		n, err := s.view.Size()
		if err != nil {
			return s.resultError(err)
		}
		fmt.Fprintf(s.out, "%d rows\n", n)

	case "SCAN":
		return s.scan(parts[1:])

	case "FIND":
		if len(parts) < 2 {
			return errors.New("usage: FIND value")
		}
		return s.find(rest)

	default:
		return fmt.Errorf("unknown command %q, enter .help for usage hints", parts[0])
	}
	return nil
}

func (s *Shell) dotCommand(cmd string, args []string) error {
	switch cmd {
	case ".help":
		fmt.Fprint(s.out, helpText)

	case ".exit":
		return errExit

	case ".open":
		if len(args) != 1 {
			return errors.New("missing path argument")
		}
		if err := s.Open(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Database opened at %s\n", args[0])

	case ".close":
		if s.db == nil {
			return errors.New("no database open")
		}
		s.Close()
		fmt.Fprintln(s.out, "Database closed")

	case ".strategy":
		if len(args) == 0 {
			strategy, windowSize, capacity := s.cfg.Snapshot()
			fmt.Fprintf(s.out, "strategy=%s window=%d capacity=%d\n", strategy, windowSize, capacity)
			return nil
		}
		strategy := config.Strategy(strings.ToLower(args[0]))
		if !strategy.Valid() {
			return fmt.Errorf("unknown strategy %q", args[0])
		}
		s.cfg.Update(func(c *config.Config) { c.Strategy = strategy })
		fmt.Fprintf(s.out, "Strategy set to %s (applies to the next QUERY)\n", strategy)

	case ".window", ".capacity":
		if len(args) != 1 {
			return fmt.Errorf("usage: %s N", cmd)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid number %q", args[0])
		}
		if cmd == ".window" {
			if n <= 0 {
				return errors.New("window size must be positive")
			}
			s.cfg.Update(func(c *config.Config) { c.WindowSize = n })
		} else {
			if n < 0 {
				return errors.New("cache capacity must not be negative")
			}
			s.cfg.Update(func(c *config.Config) { c.CacheCapacity = n })
		}
		fmt.Fprintf(s.out, "%s set to %d\n", strings.TrimPrefix(cmd, "."), n)

	case ".save":
		if len(args) != 1 {
			return errors.New("missing path argument")
		}
		if err := s.cfg.SaveConfig(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "Configuration saved to %s\n", args[0])

	case ".filter":
		if len(args) == 0 {
			s.filter = ""
			fmt.Fprintln(s.out, "Filter cleared")
			return nil
		}
		s.filter = args[0]
		fmt.Fprintf(s.out, "Filter set to prefix %q (applies to the next QUERY)\n", s.filter)

	case ".stats":
		if s.calls == nil {
			return errors.New("no result has been opened")
		}
		s.printStats()

	case ".digest":
		if s.view == nil {
			return errors.New("no open result")
		}
		sum, err := resultlist.Digest(s.view)
		if err != nil {
			return s.resultError(err)
		}
		fmt.Fprintf(s.out, "%016x\n", sum)

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	return nil
}

func (s *Shell) runQuery(query string) error {
	if s.db == nil {
		return errors.New("no database open")
	}
	if query == "" {
		return errors.New("usage: QUERY sql")
	}
	s.closeResult()

	opts := []sqlprovider.Option{sqlprovider.WithLogger(s.logger)}
	if s.countQuery != "" {
		opts = append(opts, sqlprovider.WithCountQuery(s.countQuery))
	}
	strategy, _, _ := s.cfg.Snapshot()
	if strategy == config.StrategySimple || strategy == config.StrategyRandom {
		opts = append(opts, sqlprovider.WithScrollEmulation())
	}

	sqlp := sqlprovider.New(s.ctx, s.db, query, opts...)
	var source provider.RowProvider[sqlprovider.Row] = sqlp
	if s.filter != "" {
		fp, err := filtered.NewFilteredProvider[sqlprovider.Row](sqlp, filtered.PrefixFilter(firstColumn, s.filter))
		if err != nil {
			return err
		}
		source = fp
	}

	s.calls = stats.NewAtomicCollector()
	counted := provider.NewCounting(source, s.calls)

	start := time.Now()
	view, err := resultlist.NewFromConfig[sqlprovider.Row](s.cfg, counted, resultlist.WithMetrics(s.metrics))
	if err != nil {
		return err
	}

	s.view = view
	s.query = query
	s.columns = sqlp.Columns()
	s.countQuery = ""

	fmt.Fprintf(s.out, "Result opened with %s strategy in %s\n", view.Strategy(), time.Since(start).Round(time.Microsecond))
	if len(s.columns) > 0 {
		fmt.Fprintf(s.out, "Columns: %s\n", strings.Join(s.columns, ", "))
	}
	return nil
}

func (s *Shell) scan(args []string) error {
	start, end := 0, provider.Unbounded
	var err error
	if len(args) > 0 {
		if start, err = strconv.Atoi(args[0]); err != nil {
			return fmt.Errorf("invalid start %q", args[0])
		}
	}
	if len(args) > 1 {
		if end, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("invalid end %q", args[1])
		}
	}
	if start < 0 || end < start {
		return fmt.Errorf("invalid range [%d, %d)", start, end)
	}

	it := s.view.IterFrom(start)
	count := 0
	for it.Index()+1 < end && it.Next() {
		s.printRow(it.Index(), it.Value())
		count++
	}
	if err := it.Err(); err != nil {
		return s.resultError(err)
	}

	fmt.Fprintf(s.out, "%d rows\n", count)
	return nil
}

func (s *Shell) find(value string) error {
	it := s.view.Iter()
	for it.Next() {
		row := it.Value()
		if len(row) > 0 && fmt.Sprint(row[0]) == value {
			s.printRow(it.Index(), row)
			return nil
		}
	}
	if err := it.Err(); err != nil {
		return s.resultError(err)
	}
	fmt.Fprintln(s.out, "Not found")
	return nil
}

// resultError drops a result that failed; it can no longer be read
func (s *Shell) resultError(err error) error {
	if s.view != nil && s.view.IsClosed() {
		s.closeResult()
	}
	return err
}

func firstColumn(row sqlprovider.Row) string {
	if len(row) == 0 || row[0] == nil {
		return ""
	}
	return fmt.Sprint(row[0])
}

func (s *Shell) printRow(index int, row sqlprovider.Row) {
	values := make([]string, len(row))
	for i, v := range row {
		if v == nil {
			values[i] = "NULL"
			continue
		}
		values[i] = fmt.Sprint(v)
	}
	fmt.Fprintf(s.out, "%d: %s\n", index, strings.Join(values, " | "))
}

func (s *Shell) printStats() {
	all := s.calls.GetStats()
	keys := make([]string, 0, len(all))
	for k := range all {
		if strings.HasSuffix(k, "_ops") || k == "rows_returned" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Fprintf(s.out, "%-16s %v\n", k, all[k])
	}
	if s.view != nil {
		fmt.Fprintf(s.out, "%-16s %v\n", "provider_open", s.view.IsProviderOpen())
	}
}
