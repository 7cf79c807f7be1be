// Package loader imports CSV files into the embedded SQLite engine so pivots
// never hold the whole file in memory.
package loader

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database"
	"github.com/jeffhb60/csv-pivot-app/internal/adapters/database/sqlite"
	"github.com/jeffhb60/csv-pivot-app/internal/core/query/dialect"
	"github.com/jeffhb60/csv-pivot-app/internal/debug"
)

const metaTable = "_csvpivot_meta"

// Options configures a Loader.
type Options struct {
	// CacheDir holds one database per imported file. Empty means in-memory.
	CacheDir   string
	SampleRows int
	BatchSize  int
	Delimiter  rune
}

// Loader imports CSV files read through an afero filesystem.
type Loader struct {
	fs   afero.Fs
	opts Options
}

// Dataset is an imported CSV ready to be queried.
type Dataset struct {
	Path     string
	Adapter  *sqlite.SQLiteAdapter
	Relation *database.TableRelation
	Headers  []string
	Types    []string
	Rows     int64
	// Cached is set when the import was reused from an earlier run.
	Cached bool
}

// Close releases the database connection.
func (d *Dataset) Close(ctx context.Context) error {
	return d.Adapter.Disconnect(ctx)
}

// New creates a loader, filling in defaults for unset options.
func New(fs afero.Fs, opts Options) *Loader {
	if opts.SampleRows <= 0 {
		opts.SampleRows = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 500
	}
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}
	return &Loader{fs: fs, opts: opts}
}

// Load imports path, or reuses the cached import when the file is unchanged.
func (l *Loader) Load(ctx context.Context, path string) (*Dataset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	info, err := l.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	pathKey := fmt.Sprintf("%016x", xxh3.HashString(abs))
	contentKey := fmt.Sprintf("%016x", xxh3.HashString(
		abs+"|"+strconv.FormatInt(info.Size(), 10)+"|"+strconv.FormatInt(info.ModTime().UnixNano(), 10)+
			"|"+string(l.opts.Delimiter)+"|"+strconv.Itoa(l.opts.SampleRows)))
	table := TableName(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))

	url := ":memory:"
	if l.opts.CacheDir != "" {
		if err := os.MkdirAll(l.opts.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache dir: %w", err)
		}
		url = filepath.Join(l.opts.CacheDir, "csvpivot-"+pathKey+"-"+contentKey+".db")
	}

	adapter, err := sqlite.NewSQLiteAdapter(database.Config{URL: url})
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(ctx); err != nil {
		return nil, err
	}

	ds := &Dataset{
		Path:     path,
		Adapter:  adapter,
		Relation: database.NewTableRelation(adapter, table, contentKey),
	}

	if rows, ok := l.cached(ctx, adapter, contentKey); ok {
		ds.Rows, ds.Cached = rows, true
		debug.Debug("Reusing imported CSV", "path", abs, "db", url, "rows", rows)
		return ds, l.describe(ctx, ds)
	}

	if err := l.importFile(ctx, ds, table, contentKey); err != nil {
		adapter.Disconnect(ctx)
		if url != ":memory:" {
			os.Remove(url)
		}
		return nil, err
	}
	if l.opts.CacheDir != "" {
		l.pruneStale(pathKey, url)
	}
	return ds, nil
}

func (l *Loader) cached(ctx context.Context, a *sqlite.SQLiteAdapter, key string) (int64, bool) {
	rows, err := a.Query(ctx, "SELECT row_count FROM "+metaTable+" WHERE cache_key = ?", key)
	if err != nil {
		return 0, false
	}
	defer rows.Close()
	var n int64
	if !rows.Next() || rows.Scan(&n) != nil {
		return 0, false
	}
	return n, true
}

func (l *Loader) describe(ctx context.Context, ds *Dataset) error {
	cols, err := ds.Relation.Columns(ctx)
	if err != nil {
		return err
	}
	for _, c := range cols {
		ds.Headers = append(ds.Headers, c.Name)
		ds.Types = append(ds.Types, c.Type)
	}
	return nil
}

func (l *Loader) importFile(ctx context.Context, ds *Dataset, table, key string) error {
	f, err := l.fs.Open(ds.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", ds.Path, err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReaderSize(f, 1<<20))
	r.Comma = l.opts.Delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%s is empty", ds.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	ds.Headers = CleanHeaders(header)

	sample := make([][]string, 0, l.opts.SampleRows)
	for len(sample) < l.opts.SampleRows {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read row %d: %w", len(sample)+2, err)
		}
		sample = append(sample, rec)
	}

	ds.Types = make([]string, len(ds.Headers))
	for i := range ds.Headers {
		col := make([]string, 0, len(sample))
		for _, rec := range sample {
			if i < len(rec) {
				col = append(col, rec[i])
			}
		}
		ds.Types[i] = InferType(col)
	}

	if err := l.createTables(ctx, ds.Adapter, table, ds.Headers, ds.Types); err != nil {
		return err
	}

	batches := make(chan [][]any, 4)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		width := len(ds.Headers)
		batch := make([][]any, 0, l.opts.BatchSize)
		line := 1
		send := func(rec []string) error {
			line++
			row := make([]any, width)
			for i := 0; i < width && i < len(rec); i++ {
				row[i] = Convert(rec[i], ds.Types[i])
			}
			if len(rec) > width {
				debug.Debug("Dropping extra fields", "line", line, "fields", len(rec), "columns", width)
			}
			batch = append(batch, row)
			if len(batch) < l.opts.BatchSize {
				return nil
			}
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
			batch = make([][]any, 0, l.opts.BatchSize)
			return nil
		}

		for _, rec := range sample {
			if err := send(rec); err != nil {
				return err
			}
		}
		for {
			rec, err := r.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to read line %d: %w", line+1, err)
			}
			if err := send(rec); err != nil {
				return err
			}
		}
		if len(batch) > 0 {
			select {
			case batches <- batch:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var inserted int64
	g.Go(func() error {
		n, err := l.write(gctx, ds.Adapter, table, len(ds.Headers), key, batches)
		inserted = n
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	ds.Rows = inserted
	debug.Debug("Imported CSV", "path", ds.Path, "table", table, "rows", inserted, "columns", len(ds.Headers))
	return nil
}

func (l *Loader) createTables(ctx context.Context, a *sqlite.SQLiteAdapter, table string, headers, types []string) error {
	d := dialect.SQLite{}
	defs := make([]string, len(headers))
	for i, h := range headers {
		defs[i] = d.QuoteIdent(h) + " " + types[i]
	}
	stmts := []string{
		"DROP TABLE IF EXISTS " + d.QuoteIdent(table),
		"CREATE TABLE " + d.QuoteIdent(table) + " (" + strings.Join(defs, ", ") + ")",
		"CREATE TABLE IF NOT EXISTS " + metaTable + " (cache_key TEXT PRIMARY KEY, row_count INTEGER NOT NULL)",
		"DELETE FROM " + metaTable,
	}
	for _, s := range stmts {
		if _, err := a.Execute(ctx, s); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}
	return nil
}

// write inserts every batch inside one transaction and records the cache key last,
// so an interrupted import is never mistaken for a complete one.
func (l *Loader) write(ctx context.Context, a *sqlite.SQLiteAdapter, table string, width int, key string, batches <-chan [][]any) (int64, error) {
	tx, err := a.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", width), ", ")
	stmt, err := tx.Prepare(ctx, "INSERT INTO "+dialect.SQLite{}.QuoteIdent(table)+" VALUES ("+placeholders+")")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var n int64
	for batch := range batches {
		for _, row := range batch {
			if _, err := stmt.ExecContext(ctx, row...); err != nil {
				return n, fmt.Errorf("failed to insert row %d: %w", n+1, err)
			}
			n++
		}
	}
	if err := ctx.Err(); err != nil {
		return n, err
	}

	if _, err := tx.Execute(ctx, "INSERT INTO "+metaTable+" (cache_key, row_count) VALUES (?, ?)", key, n); err != nil {
		return n, err
	}
	return n, tx.Commit()
}

// pruneStale removes databases of earlier versions of the same file.
func (l *Loader) pruneStale(pathKey, keep string) {
	matches, err := filepath.Glob(filepath.Join(l.opts.CacheDir, "csvpivot-"+pathKey+"-*.db"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if m == keep {
			continue
		}
		if err := os.Remove(m); err == nil {
			debug.Debug("Removed stale import", "db", m)
		}
	}
}
