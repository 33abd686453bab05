package internal

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect is the SQL flavour of the event store
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DefaultTable is the table holding session events
const DefaultTable = "session_events"

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Database wraps a connection to the event store
type Database struct {
	*sql.DB
	Dialect Dialect
	// Path is the sqlite file or the postgres URL the database was opened from
	Path string
}

// DetectDialect picks the dialect from a database URL. Anything that is not
// a postgres URL is treated as a sqlite file path.
func DetectDialect(url string) Dialect {
	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return DialectPostgres
	}
	return DialectSQLite
}

// OpenDatabase opens the event store. SQLite files are opened read-only when
// readOnly is set; a missing file is then an error.
func OpenDatabase(url string, readOnly bool) (*Database, error) {
	dialect := DetectDialect(url)

	var db *sql.DB
	var err error
	switch dialect {
	case DialectPostgres:
		db, err = sql.Open("pgx", url)
		if err == nil {
			db.SetMaxOpenConns(10)
			db.SetMaxIdleConns(2)
			db.SetConnMaxLifetime(5 * time.Minute)
		}
	default:
		dsn := strings.TrimPrefix(url, "sqlite://")
		if readOnly && dsn != ":memory:" {
			// only file: URIs carry mode through to sqlite3_open_v2
			dsn = "file:" + dsn + "?mode=ro"
		}
		db, err = sql.Open("sqlite", dsn)
		if err == nil {
			// sqlite serializes writers anyway and :memory: databases are per connection
			db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, &StorageError{Path: url, Op: "open", Err: err}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, &StorageError{Path: url, Op: "open", Err: fmt.Errorf("database ping failed: %w", err)}
	}

	LogDebug("Opened %s database %s", dialect, redactURL(url))
	return &Database{DB: db, Dialect: dialect, Path: url}, nil
}

// Rebind rewrites ? placeholders to $n for postgres
func (d *Database) Rebind(query string) string {
	if d.Dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ValidateTableName rejects anything that is not a plain SQL identifier
func ValidateTableName(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("invalid table name %q", table)
	}
	return nil
}

// SchemaStatements returns the DDL creating the events table and its index
func SchemaStatements(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	session_id TEXT,
	kind TEXT,
	timestamp TEXT,
	sequence_hint BIGINT,
	payload TEXT
)`, table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%s_session ON %s (session_id)`, table, table),
	}
}

// EnsureSchema creates the events table when it does not exist
func (d *Database) EnsureSchema(ctx context.Context, table string) error {
	if err := ValidateTableName(table); err != nil {
		return &StorageError{Path: d.Path, Op: "migrate", Err: err}
	}
	for _, stmt := range SchemaStatements(table) {
		if _, err := d.ExecContext(ctx, stmt); err != nil {
			return &StorageError{Path: d.Path, Op: "migrate", Err: err}
		}
	}
	return nil
}

// TableExists reports whether the events table is present
func (d *Database) TableExists(ctx context.Context, table string) (bool, error) {
	var query string
	switch d.Dialect {
	case DialectPostgres:
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_name = ?`
	default:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}
	var n int
	if err := d.QueryRowContext(ctx, d.Rebind(query), table).Scan(&n); err != nil {
		return false, &StorageError{Path: d.Path, Op: "query", Err: err}
	}
	return n > 0, nil
}

// redactURL hides the password of a postgres URL
func redactURL(url string) string {
	at := strings.LastIndex(url, "@")
	scheme := strings.Index(url, "://")
	if at < 0 || scheme < 0 {
		return url
	}
	creds := url[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return url[:scheme+3] + creds[:colon] + ":***" + url[at:]
	}
	return url
}
