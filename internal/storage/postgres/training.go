package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/eikewelk/econdata/internal/export"
)

const batchSize = 50

// TrainingStore persists curated products-in-listing rows to PostgreSQL.
type TrainingStore struct {
	db *sql.DB
}

// Open connects to PostgreSQL, waits for it to accept connections and
// creates the schema.
func Open(ctx context.Context, dsn string) (*TrainingStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			_ = db.Close()
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}

	s := &TrainingStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return s, nil
}

func (s *TrainingStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS products_in_listings (
			record_id        TEXT        PRIMARY KEY,
			listing_id       TEXT        NOT NULL,
			product_id       TEXT        NOT NULL DEFAULT '',
			product_name     TEXT        NOT NULL DEFAULT '',
			state            VARCHAR(16) NOT NULL,
			is_training_data BOOLEAN     NOT NULL DEFAULT TRUE,
			exported_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_pil_listing ON products_in_listings(listing_id);
		CREATE INDEX IF NOT EXISTS idx_pil_product ON products_in_listings(product_id);
	`)
	return err
}

// Replace swaps all stored rows for rows in one transaction.
func (s *TrainingStore) Replace(ctx context.Context, rows []export.TrainingRow) error {
	return s.replace(ctx, "", rows)
}

// ReplaceListing swaps the stored rows of one listing for rows, leaving the
// other listings alone. Rows of other listings are rejected.
func (s *TrainingStore) ReplaceListing(ctx context.Context, listingID string, rows []export.TrainingRow) error {
	if listingID == "" {
		return fmt.Errorf("postgres: empty listing id")
	}
	for _, r := range rows {
		if r.ListingID != listingID {
			return fmt.Errorf("postgres: record %s belongs to listing %q, not %q", r.RecordID, r.ListingID, listingID)
		}
	}
	return s.replace(ctx, listingID, rows)
}

// deleteQuery clears the table, or only listingID's rows when it is set.
func deleteQuery(listingID string) (string, []any) {
	if listingID == "" {
		return "DELETE FROM products_in_listings", nil
	}
	return "DELETE FROM products_in_listings WHERE listing_id = $1", []any{listingID}
}

func (s *TrainingStore) replace(ctx context.Context, listingID string, rows []export.TrainingRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args := deleteQuery(listingID)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	for i := 0; i < len(rows); i += batchSize {
		end := min(i+batchSize, len(rows))
		query, args := insertBatch(rows[i:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("postgres: insert batch at %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func insertBatch(batch []export.TrainingRow) (string, []any) {
	const cols = 6
	values := make([]string, 0, len(batch))
	args := make([]any, 0, len(batch)*cols)

	for idx, r := range batch {
		base := idx * cols
		values = append(values, fmt.Sprintf("($%d,$%d,$%d,$%d,$%d,$%d)",
			base+1, base+2, base+3, base+4, base+5, base+6))
		args = append(args, r.RecordID, r.ListingID, r.ProductID, r.ProductName, r.State, r.IsTrainingData)
	}

	query := fmt.Sprintf(`
		INSERT INTO products_in_listings (record_id, listing_id, product_id, product_name, state, is_training_data)
		VALUES %s
		ON CONFLICT (record_id) DO NOTHING
	`, strings.Join(values, ","))
	return query, args
}

// FetchAll returns the stored rows ordered by listing and record.
func (s *TrainingStore) FetchAll(ctx context.Context) ([]export.TrainingRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT record_id, listing_id, product_id, product_name, state, is_training_data
		FROM products_in_listings
		ORDER BY listing_id, record_id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var out []export.TrainingRow
	for rows.Next() {
		var r export.TrainingRow
		if err := rows.Scan(&r.RecordID, &r.ListingID, &r.ProductID, &r.ProductName, &r.State, &r.IsTrainingData); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *TrainingStore) Close() error {
	return s.db.Close()
}
