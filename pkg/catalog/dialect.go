package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Column describes one column of a catalog table.
type Column struct {
	Name       string
	Type       string
	PrimaryKey bool
}

// ForeignKey describes a reference between catalog tables.
type ForeignKey struct {
	FromColumn string
	ToTable    string
	ToColumn   string
}

// Index describes a named index on a catalog table.
type Index struct {
	Name   string
	Unique bool
}

// Dialect abstracts the differences between the supported catalog
// databases: introspection queries, placeholder syntax, and the string
// aggregation function the SQL prompt should teach the model.
type Dialect interface {
	// Name identifies the dialect ("sqlite" or "postgres").
	Name() string
	// TableNames lists user tables, excluding engine-internal ones.
	TableNames(ctx context.Context, db *sql.DB) ([]string, error)
	// Columns lists the columns of a table in definition order.
	Columns(ctx context.Context, db *sql.DB, table string) ([]Column, error)
	// ForeignKeys lists outgoing references of a table.
	ForeignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error)
	// Indexes lists named indexes of a table, excluding automatic ones.
	Indexes(ctx context.Context, db *sql.DB, table string) ([]Index, error)
	// AggregateFunc is the string aggregation function for folding
	// product variants into one row.
	AggregateFunc() string
	// Placeholder renders the i-th (1-based) bind parameter.
	Placeholder(i int) string
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

func (sqliteDialect) TableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (sqliteDialect) Columns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table_info %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, Column{Name: name, Type: colType, PrimaryKey: pk > 0})
	}
	return columns, rows.Err()
}

func (sqliteDialect) ForeignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("foreign_key_list %s: %w", table, err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var (
			id, seq                   int
			refTable, from, to        string
			onUpdate, onDelete, match string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, ForeignKey{FromColumn: from, ToTable: refTable, ToColumn: to})
	}
	return fks, rows.Err()
}

func (sqliteDialect) Indexes(ctx context.Context, db *sql.DB, table string) ([]Index, error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("index_list %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		if strings.HasPrefix(name, "sqlite_autoindex") {
			continue
		}
		indexes = append(indexes, Index{Name: name, Unique: unique == 1})
	}
	return indexes, rows.Err()
}

func (sqliteDialect) AggregateFunc() string { return "GROUP_CONCAT" }

func (sqliteDialect) Placeholder(int) string { return "?" }

type postgresDialect struct{}

func (postgresDialect) Name() string { return "postgres" }

func (postgresDialect) TableNames(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan table name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (postgresDialect) Columns(ctx context.Context, db *sql.DB, table string) ([]Column, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT c.column_name,
		       c.data_type,
		       EXISTS (
		           SELECT 1
		           FROM information_schema.table_constraints tc
		           JOIN information_schema.key_column_usage kcu
		             ON tc.constraint_name = kcu.constraint_name
		            AND tc.table_schema = kcu.table_schema
		           WHERE tc.constraint_type = 'PRIMARY KEY'
		             AND tc.table_name = c.table_name
		             AND kcu.column_name = c.column_name
		       ) AS is_pk
		FROM information_schema.columns c
		WHERE c.table_schema = 'public' AND c.table_name = $1
		ORDER BY c.ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("columns %s: %w", table, err)
	}
	defer rows.Close()

	var columns []Column
	for rows.Next() {
		var col Column
		if err := rows.Scan(&col.Name, &col.Type, &col.PrimaryKey); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, col)
	}
	return columns, rows.Err()
}

func (postgresDialect) ForeignKeys(ctx context.Context, db *sql.DB, table string) ([]ForeignKey, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT kcu.column_name, ccu.table_name, ccu.column_name
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
		  ON tc.constraint_name = kcu.constraint_name
		 AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage ccu
		  ON tc.constraint_name = ccu.constraint_name
		 AND tc.table_schema = ccu.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = 'public'
		  AND tc.table_name = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("foreign keys %s: %w", table, err)
	}
	defer rows.Close()

	var fks []ForeignKey
	for rows.Next() {
		var fk ForeignKey
		if err := rows.Scan(&fk.FromColumn, &fk.ToTable, &fk.ToColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		fks = append(fks, fk)
	}
	return fks, rows.Err()
}

func (postgresDialect) Indexes(ctx context.Context, db *sql.DB, table string) ([]Index, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT indexname, indexdef LIKE 'CREATE UNIQUE%'
		FROM pg_indexes
		WHERE schemaname = 'public' AND tablename = $1`, table)
	if err != nil {
		return nil, fmt.Errorf("indexes %s: %w", table, err)
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.Name, &idx.Unique); err != nil {
			return nil, fmt.Errorf("scan index: %w", err)
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (postgresDialect) AggregateFunc() string { return "STRING_AGG" }

func (postgresDialect) Placeholder(i int) string { return fmt.Sprintf("$%d", i) }

// quoteIdent wraps an identifier in double quotes, doubling embedded
// quotes. Introspection pragmas interpolate table names, so they go
// through here rather than bind parameters.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
