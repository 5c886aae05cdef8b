// Package catalog provides read access to the beverage retailer's
// product database behind a dialect abstraction (sqlite or postgres).
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/brewline-ai/brewline-engine/pkg/config"
	"github.com/brewline-ai/brewline-engine/pkg/logging"
)

// EmptyResultsMarker is the formatted output for a query with no rows.
const EmptyResultsMarker = "Không tìm thấy kết quả"

// Store is a read-only handle on the product catalog.
type Store struct {
	db           *sql.DB
	dialect      Dialect
	queryTimeout time.Duration
	translations Translations
	logger       *zap.Logger
}

// Open connects to the configured catalog database. When cfg.ReadOnly
// is set the connection itself is opened read-only, a second barrier
// behind statement validation.
func Open(cfg *config.CatalogConfig, logger *zap.Logger) (*Store, error) {
	var (
		db      *sql.DB
		dialect Dialect
		err     error
	)

	switch cfg.Driver {
	case "sqlite":
		dsn := cfg.Path
		if cfg.ReadOnly {
			dsn = fmt.Sprintf("file:%s?mode=ro", url.PathEscape(cfg.Path))
		}
		db, err = sql.Open("sqlite3", dsn)
		dialect = sqliteDialect{}
	case "postgres":
		dsn := cfg.DSN
		if cfg.ReadOnly {
			dsn = appendDSNOption(dsn, "default_transaction_read_only=on")
		}
		db, err = sql.Open("pgx", dsn)
		dialect = postgresDialect{}
	default:
		return nil, fmt.Errorf("unsupported catalog driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}

	translations, err := LoadTranslations(cfg.TranslationsPath)
	if err != nil {
		return nil, err
	}

	store := &Store{
		db:           db,
		dialect:      dialect,
		queryTimeout: time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		translations: translations,
		logger:       logger.Named("catalog"),
	}

	store.logger.Info("catalog opened",
		zap.String("driver", cfg.Driver),
		zap.String("dsn", logging.SanitizeDSN(cfg.DSN)),
		zap.Bool("read_only", cfg.ReadOnly))

	return store, nil
}

// appendDSNOption adds a key=value option to either URL-style or
// key/value-style postgres connection strings.
func appendDSNOption(dsn, option string) string {
	if strings.Contains(dsn, "://") {
		if strings.Contains(dsn, "?") {
			return dsn + "&" + option
		}
		return dsn + "?" + option
	}
	return strings.TrimSpace(dsn + " " + option)
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the active dialect.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// DB exposes the underlying handle for index building jobs.
func (s *Store) DB() *sql.DB {
	return s.db
}

// ExecuteQuery runs an already-validated SELECT under the configured
// timeout. It returns the column order alongside the rows as
// column-keyed maps, so formatting can follow the query's projection.
func (s *Store) ExecuteQuery(ctx context.Context, query string) ([]string, []map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()

	s.logger.Debug("executing query", zap.String("query", logging.SanitizeQuery(query)))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("read columns: %w", err)
	}

	var results []map[string]any
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("scan row: %w", err)
		}

		record := make(map[string]any, len(columns))
		for i, col := range columns {
			record[col] = normalizeValue(values[i])
		}
		results = append(results, record)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate rows: %w", err)
	}

	return columns, results, nil
}

// normalizeValue converts driver byte slices to strings so formatted
// output and JSON stay readable.
func normalizeValue(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

// FormatResults renders query results one row per line as
// "col: value, col: value", preserving the query's column order.
// Empty results yield EmptyResultsMarker.
func FormatResults(columns []string, results []map[string]any) string {
	if len(results) == 0 {
		return EmptyResultsMarker
	}

	var sb strings.Builder
	for i, row := range results {
		if i > 0 {
			sb.WriteByte('\n')
		}
		parts := make([]string, 0, len(columns))
		for _, col := range columns {
			parts = append(parts, fmt.Sprintf("%s: %v", col, row[col]))
		}
		sb.WriteString(strings.Join(parts, ", "))
	}
	return sb.String()
}

// ExecuteAndFormat runs a validated SELECT and formats the rows for
// prompt inclusion.
func (s *Store) ExecuteAndFormat(ctx context.Context, query string) (string, error) {
	columns, results, err := s.ExecuteQuery(ctx, query)
	if err != nil {
		return "", err
	}
	return FormatResults(columns, results), nil
}
