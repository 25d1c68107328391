// Package catalog is a SQLite backed filter list library. It implements
// flm.Manager so a bridge has a real instance to drive.
//
// A Catalog keeps its lists in agflm_standard.db or agflm_dns.db inside the
// configured working directory. Calls are safe for concurrent use; the
// database is accessed through a single connection.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"github.com/VanDung-dev/flm-bridge/flm"
	"github.com/VanDung-dev/flm-bridge/logging"
)

const (
	StandardDatabaseName = "agflm_standard.db"
	DNSDatabaseName      = "agflm_dns.db"
)

// DatabaseName returns the file name used for a list type.
func DatabaseName(t flm.FilterListType) string {
	if t == flm.DNS {
		return DNSDatabaseName
	}
	return StandardDatabaseName
}

// Catalog is a flm.Manager over a SQLite file.
type Catalog struct {
	db   *sql.DB
	path string
	log  zerolog.Logger
	now  func() time.Time

	// transport is used for every outgoing request when set.
	transport http.RoundTripper

	mu  sync.RWMutex
	cfg flm.Configuration
}

var _ flm.Manager = (*Catalog)(nil)

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Catalog) { c.log = log }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Catalog) { c.now = now }
}

// WithTransport replaces the HTTP transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Catalog) { c.transport = rt }
}

// Factory returns a flm.Factory that builds catalogs with opts.
func Factory(opts ...Option) flm.Factory {
	return func(cfg flm.Configuration) (flm.Manager, error) {
		return New(cfg, opts...)
	}
}

// New opens or creates the database described by cfg.
func New(cfg flm.Configuration, opts ...Option) (*Catalog, error) {
	dir := cfg.WorkingDirectory
	if dir == "" {
		dir = "."
	}
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, flm.Errorf(flm.KindPathNotFound, "working directory %s", dir)
		}
		return nil, fsError(err)
	}
	if !info.IsDir() {
		return nil, flm.Errorf(flm.KindCannotOpenDatabase, "%s is not a directory", dir)
	}

	path, err := filepath.Abs(filepath.Join(dir, DatabaseName(cfg.FilterListType)))
	if err != nil {
		return nil, flm.Errorf(flm.KindCannotOpenDatabase, "%v", err)
	}

	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, flm.Errorf(flm.KindCannotOpenDatabase, "%v", err)
	}
	db.SetMaxOpenConns(1)

	c := &Catalog{
		db:   db,
		path: path,
		cfg:  cfg,
		log:  logging.Nop(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, dbError(err)
	}
	if cfg.AutoLiftUpDatabase {
		if err := c.LiftUpDatabase(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	c.log.Debug().Str("path", path).Msg("catalog opened")
	return c, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

func (c *Catalog) config() flm.Configuration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// GetDatabasePath returns the absolute database file path.
func (c *Catalog) GetDatabasePath(ctx context.Context) (string, error) {
	return c.path, nil
}

// GetDatabaseVersion returns the schema version, or nil before the first
// lift up.
func (c *Catalog) GetDatabaseVersion(ctx context.Context) (*int32, error) {
	v, err := schemaVersion(ctx, c.db)
	if err != nil {
		return nil, err
	}
	if v == 0 {
		return nil, nil
	}
	return &v, nil
}

// LiftUpDatabase applies pending schema migrations.
func (c *Catalog) LiftUpDatabase(ctx context.Context) error {
	return c.withTx(ctx, func(tx *sql.Tx) error {
		return migrate(ctx, tx)
	})
}

// ChangeLocale switches to suggestedLocale, or to its language part, when
// the index has lists in it.
func (c *Catalog) ChangeLocale(ctx context.Context, suggestedLocale string) (bool, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT lang FROM filter_locale`)
	if err != nil {
		return false, dbError(err)
	}
	var available []string
	for rows.Next() {
		var lang string
		if err := rows.Scan(&lang); err != nil {
			rows.Close()
			return false, dbError(err)
		}
		available = append(available, lang)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return false, dbError(err)
	}

	normalized := flm.NormalizeLocale(suggestedLocale)
	fallback := flm.FallbackLocale(normalized)
	fallbackFound := false
	for _, lang := range available {
		if lang == normalized {
			c.setLocale(lang)
			return true, nil
		}
		if fallback != "" && lang == fallback {
			fallbackFound = true
		}
	}
	if fallbackFound {
		c.setLocale(fallback)
		return true, nil
	}
	return false, nil
}

func (c *Catalog) setLocale(locale string) {
	c.mu.Lock()
	c.cfg.Locale = locale
	c.mu.Unlock()
}

// Locale returns the active locale.
func (c *Catalog) Locale() string {
	return c.config().Locale
}

// SetProxyMode changes how later requests are proxied.
func (c *Catalog) SetProxyMode(ctx context.Context, mode flm.RequestProxyMode) error {
	if mode.Mode == flm.UseCustomProxy && mode.Addr == "" {
		return flm.Errorf(flm.KindInvalidConfiguration, "custom proxy mode without address")
	}
	c.mu.Lock()
	c.cfg.RequestProxyMode = mode
	c.mu.Unlock()
	return nil
}

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (c *Catalog) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return dbError(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return dbError(err)
	}
	return nil
}

func inClause(ids []flm.FilterID) (string, []any) {
	if len(ids) == 0 {
		return "(NULL)", nil
	}
	args := make([]any, len(ids))
	b := make([]byte, 0, len(ids)*2+1)
	b = append(b, '(')
	for i, id := range ids {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
		args[i] = id
	}
	b = append(b, ')')
	return string(b), args
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func describe(op string, err error) error {
	return fmt.Errorf("catalog: %s: %w", op, err)
}
