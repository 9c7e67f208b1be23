package dictionary

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Sentence-Anagram-Service/pkg/resilience"
)

// Source produces the ordered word list an Index is built from.
type Source interface {
	Words(ctx context.Context) ([]string, error)
}

// FileSource reads a newline-delimited word list from disk.
type FileSource struct {
	Path string
}

func (s FileSource) Words(ctx context.Context) ([]string, error) {
	return LoadFile(s.Path)
}

// Querier is the subset of *sql.DB and *sql.Tx the Postgres source needs.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresSource reads the word list from a table shaped like:
//
//	CREATE TABLE dictionary_words (
//	    position BIGSERIAL PRIMARY KEY,
//	    word     TEXT NOT NULL
//	);
type PostgresSource struct {
	DB    Querier
	Table string
}

// Words reads the table in position order. Connection and query failures
// are retryable; an empty table or an unreadable row is not.
func (s PostgresSource) Words(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT word FROM %s ORDER BY position`, pq.QuoteIdentifier(s.Table))
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying %s: %v", apperrors.ErrDictionaryUnavailable, s.Table, err)
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, resilience.Permanent(fmt.Errorf("scanning dictionary row: %w", err))
		}
		if w != "" {
			words = append(words, w)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating %s: %v", apperrors.ErrDictionaryUnavailable, s.Table, err)
	}
	if len(words) == 0 {
		return nil, resilience.Permanent(fmt.Errorf("%w: table %s is empty", apperrors.ErrDictionaryUnavailable, s.Table))
	}
	return words, nil
}

// Import replaces the contents of table with words, preserving their order,
// using a single COPY inside one transaction.
func Import(ctx context.Context, db *postgres.Client, table string, words []string) error {
	return db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`TRUNCATE %s RESTART IDENTITY`, pq.QuoteIdentifier(table))); err != nil {
			return fmt.Errorf("truncating %s: %w", table, err)
		}
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, "word"))
		if err != nil {
			return fmt.Errorf("preparing copy into %s: %w", table, err)
		}
		for _, w := range words {
			if _, err := stmt.ExecContext(ctx, w); err != nil {
				stmt.Close()
				return fmt.Errorf("copying word %q: %w", w, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flushing copy into %s: %w", table, err)
		}
		return stmt.Close()
	})
}

// NewSource picks the configured source. db may be nil unless the source is
// postgres.
func NewSource(cfg config.DictionaryConfig, db *postgres.Client) (Source, error) {
	switch cfg.Source {
	case config.DictionarySourceFile:
		return FileSource{Path: cfg.Path}, nil
	case config.DictionarySourcePostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: postgres source configured without a database", apperrors.ErrDictionaryUnavailable)
		}
		return PostgresSource{DB: db.DB, Table: cfg.Table}, nil
	default:
		return nil, fmt.Errorf("unknown dictionary source %q", cfg.Source)
	}
}

// Build loads words from src, retrying transient failures, and indexes them.
func Build(ctx context.Context, src Source) (*Index, error) {
	logger := slog.Default().With("component", "dictionary")
	start := time.Now()

	attempts := 3
	if _, ok := src.(FileSource); ok {
		attempts = 1
	}

	var words []string
	err := resilience.Retry(ctx, "load-dictionary", resilience.RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: 500 * time.Millisecond,
	}, func() error {
		var err error
		words, err = src.Words(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	idx := NewIndex(words)
	logger.Info("dictionary indexed",
		"words", idx.Len(),
		"signatures", idx.Signatures(),
		"duration", time.Since(start),
	)
	return idx, nil
}
