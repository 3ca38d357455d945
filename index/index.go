package index

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/Dshubhambadola/CivicSeal/index/migrations"
)

// Dialect selects SQL driver and migration set.
type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func (d Dialect) driverName() string {
	if d == SQLite {
		return "sqlite"
	}
	return "pgx"
}

func (d Dialect) gooseDialect() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

var sqlitePragmas = []string{
	"PRAGMA journal_mode=WAL;",
	"PRAGMA synchronous=NORMAL;",
	"PRAGMA busy_timeout=5000;",
}

// Index owns the database handle and hands out repositories bound to it.
type Index struct {
	db      *sql.DB
	dialect Dialect
	log     *slog.Logger
}

// New wraps an already opened database.
func New(db *sql.DB, dialect Dialect, log *slog.Logger) *Index {
	return &Index{db: db, dialect: dialect, log: log}
}

// ParseDSN maps a configured DSN to a dialect and a driver DSN.
//
// Supported forms:
//   - postgres://... or postgresql://...
//   - sqlite://path/to/file.db
//   - sqlite::memory:
//   - file:... (SQLite URI)
func ParseDSN(dsn string) (Dialect, string, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return Postgres, dsn, nil
	case dsn == "sqlite::memory:":
		return SQLite, ":memory:", nil
	case strings.HasPrefix(dsn, "sqlite://"):
		return SQLite, strings.TrimPrefix(dsn, "sqlite://"), nil
	case strings.HasPrefix(dsn, "file:"):
		return SQLite, dsn, nil
	default:
		return "", "", fmt.Errorf("unsupported index DSN %q", dsn)
	}
}

// Open connects to the index described by dsn and applies migrations.
func Open(ctx context.Context, dsn string, log *slog.Logger) (*Index, error) {
	dialect, driverDSN, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(dialect.driverName(), driverDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", dialect, err)
	}

	if dialect == SQLite {
		// Every connection to :memory: is a separate database.
		if driverDSN == ":memory:" || strings.Contains(driverDSN, "mode=memory") {
			db.SetMaxOpenConns(1)
		}
		for _, pragma := range sqlitePragmas {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	} else {
		db.SetMaxOpenConns(20)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach %s index: %w", dialect, err)
	}

	idx := New(db, dialect, log)
	if err := idx.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("Index ready", slog.String("dialect", string(dialect)))
	return idx, nil
}

// Migrate applies the embedded goose migrations for the index dialect.
func (i *Index) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(&gooseLogger{log: i.log})
	if err := goose.SetDialect(i.dialect.gooseDialect()); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.UpContext(ctx, i.db, string(i.dialect)); err != nil {
		return fmt.Errorf("failed to migrate index: %w", err)
	}
	return nil
}

func (i *Index) DB() *sql.DB {
	return i.db
}

func (i *Index) Dialect() Dialect {
	return i.dialect
}

// Ping reports whether the database is reachable.
func (i *Index) Ping(ctx context.Context) error {
	return i.db.PingContext(ctx)
}

func (i *Index) Close() error {
	return i.db.Close()
}

func (i *Index) Identities() *IdentityRepository {
	return NewIdentityRepository(i.db)
}

func (i *Index) Documents() *DocumentRepository {
	return NewDocumentRepository(i.db)
}

func (i *Index) Shares() *ShareRepository {
	return NewShareRepository(i.db)
}

func (i *Index) Links() *LinkRepository {
	return NewLinkRepository(i.db)
}

// gooseLogger routes migration output through slog.
type gooseLogger struct {
	log *slog.Logger
}

func (l *gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrations"))
}

func (l *gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, v...)), slog.String("component", "migrations"))
	os.Exit(1)
}
