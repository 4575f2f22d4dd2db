package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/areajoin/internal/config"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Connection holds the database connection
type Connection struct {
	DB     *sql.DB
	Driver string
}

// NewConnection opens a Postgres connection from the standard PG* variables
func NewConnection(ctx context.Context) (*Connection, error) {
	return Open(ctx, PostgresDSNFromEnv())
}

// PostgresDSNFromEnv builds a lib/pq keyword DSN from PGHOST, PGPORT, PGUSER,
// PGPASSWORD, PGDATABASE and PGSSLMODE.
func PostgresDSNFromEnv() string {
	host := config.GetEnv("PGHOST", "localhost")
	port := config.GetEnv("PGPORT", "5432")
	user := config.GetEnv("PGUSER", "postgres")
	password := config.GetEnv("PGPASSWORD", "")
	dbname := config.GetEnv("PGDATABASE", "areajoin")
	sslmode := config.GetEnv("PGSSLMODE", "disable")

	dsn := fmt.Sprintf("host=%s port=%s user=%s dbname=%s sslmode=%s", host, port, user, dbname, sslmode)
	if password != "" {
		dsn += " password=" + password
	}
	return dsn
}

// Pool sizes a server database pool.
type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PoolFromEnv reads DB_MAX_OPEN_CONNS, DB_MAX_IDLE_CONNS and
// DB_CONN_MAX_LIFETIME_MINUTES. Lifetimes of zero or less never expire.
func PoolFromEnv() Pool {
	minutes := config.GetEnvFloat("DB_CONN_MAX_LIFETIME_MINUTES", 30)
	return Pool{
		MaxOpenConns:    config.GetEnvInt("DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    config.GetEnvInt("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime: time.Duration(minutes * float64(time.Minute)),
	}
}

// ParseDSN picks a driver for dsn and returns the data source name that
// driver expects.
//
//	postgres://..., postgresql://..., host=... -> postgres
//	sqlite://path, sqlite3://path, file:..., :memory:, *.db, *.sqlite -> sqlite3
func ParseDSN(dsn string) (driver, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)

	switch {
	case dsn == "":
		return "", "", fmt.Errorf("empty database DSN")
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return DriverPostgres, dsn, nil
	case strings.HasPrefix(lower, "sqlite3://"):
		return DriverSQLite, dsn[len("sqlite3://"):], nil
	case strings.HasPrefix(lower, "sqlite://"):
		return DriverSQLite, dsn[len("sqlite://"):], nil
	case strings.HasPrefix(lower, "file:"), lower == ":memory:",
		strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"), strings.HasSuffix(lower, ".sqlite3"):
		return DriverSQLite, dsn, nil
	case strings.Contains(lower, "host=") || strings.Contains(lower, "dbname="):
		return DriverPostgres, dsn, nil
	}
	return "", "", fmt.Errorf("cannot determine database driver for DSN %q", redact(dsn))
}

// Open connects to dsn and verifies the connection with a ping.
func Open(ctx context.Context, dsn string) (*Connection, error) {
	driver, source, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Set connection pool settings
	switch driver {
	case DriverSQLite:
		// every sqlite connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	default:
		pool := PoolFromEnv()
		db.SetMaxOpenConns(pool.MaxOpenConns)
		db.SetMaxIdleConns(pool.MaxIdleConns)
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{DB: db, Driver: driver}, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}

// redact hides the password of URL style DSNs in error messages.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	userinfo := dsn[scheme+3 : at]
	if colon := strings.Index(userinfo, ":"); colon >= 0 {
		return dsn[:scheme+3] + userinfo[:colon] + ":xxxxx" + dsn[at:]
	}
	return dsn
}
