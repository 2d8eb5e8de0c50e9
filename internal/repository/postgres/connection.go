package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"canopy/internal/domain/repositories"
)

// RepositoryConfig holds configuration for repository implementations
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames holds dynamically prefixed table names
type TableNames struct {
	Spaces       string
	Pages        string
	Hierarchy    string
	Permissions  string
	Groups       string
	GroupMembers string
}

// NewTableNames creates table names with the given prefix
func NewTableNames(prefix string) *TableNames {
	return &TableNames{
		Spaces:       fmt.Sprintf("%sspaces", prefix),
		Pages:        fmt.Sprintf("%spages", prefix),
		Hierarchy:    fmt.Sprintf("%spage_hierarchy", prefix),
		Permissions:  fmt.Sprintf("%spage_permissions", prefix),
		Groups:       fmt.Sprintf("%sgroups", prefix),
		GroupMembers: fmt.Sprintf("%sgroup_members", prefix),
	}
}

// CreateConnectionPool creates a new pgx connection pool.
//
// When the connection string points at a transaction-pooling PgBouncer
// (port 6543), prepared statements break with "prepared statement already
// exists". QueryExecModeCacheDescribe keeps the extended protocol but caches
// statement descriptions instead of prepared statements, which is pooler
// compatible. An explicit default_query_exec_mode in the connection string
// takes precedence.
//
// Dynamic table prefixes (dev_, test_, prod_) are interpolated into SQL
// strings before they reach the database, so each environment gets its own
// statements.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	// Configure pool size
	config.MaxConns = 25
	config.MinConns = 5

	if config.ConnConfig.Port == 6543 && config.ConnConfig.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("auto-configured cache_describe mode for PgBouncer compatibility", "port", 6543)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// GetExecutor returns the appropriate query executor for the context.
// If a transaction is present in the context, it returns the transaction.
// Otherwise, it returns the provided pool. This is what lets advisory locks
// and closure replacements share the rebuild transaction.
func GetExecutor(ctx context.Context, pool *pgxpool.Pool) repositories.DBTX {
	if tx := repositories.GetTx(ctx); tx != nil {
		return tx
	}
	return pool
}
