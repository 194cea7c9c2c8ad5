package docseq

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PGStore implements Store on top of the document_sequences table.
type PGStore struct {
	db DBTX
}

// NewPGStore wraps db. Pass a pgx.Tx so that Bump holds the counter row lock
// for the lifetime of the document insert.
func NewPGStore(db DBTX) *PGStore {
	return &PGStore{db: db}
}

// Codes implements Store.
func (s *PGStore) Codes(ctx context.Context, series Series) ([]string, error) {
	table, column := identifiers(series)
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s IS NOT NULL AND %s <> ''`, column, table, column, column)
	var args []interface{}
	if series.Format.Scoped && series.Format.Prefix != "" {
		query += fmt.Sprintf(` AND starts_with(%s, $1)`, column)
		args = append(args, series.Format.Prefix)
	}
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// Exists implements Store.
func (s *PGStore) Exists(ctx context.Context, series Series, code string) (bool, error) {
	table, column := identifiers(series)
	var exists bool
	err := s.db.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1)`, table, column), code).Scan(&exists)
	return exists, err
}

// Bump implements Store.
func (s *PGStore) Bump(ctx context.Context, key string, floor int64) (int64, error) {
	const query = `
		INSERT INTO document_sequences (seq_key, last_value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (seq_key) DO UPDATE
		SET last_value = GREATEST(document_sequences.last_value + 1, EXCLUDED.last_value),
		    updated_at = NOW()
		RETURNING last_value`
	var value int64
	if err := s.db.QueryRow(ctx, query, key, floor).Scan(&value); err != nil {
		return 0, err
	}
	return value, nil
}

// Peek implements Store.
func (s *PGStore) Peek(ctx context.Context, key string) (int64, bool, error) {
	var value int64
	err := s.db.QueryRow(ctx, `SELECT last_value FROM document_sequences WHERE seq_key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return value, true, nil
}

func identifiers(series Series) (string, string) {
	return pgx.Identifier{series.Table}.Sanitize(), pgx.Identifier{series.Column}.Sanitize()
}
