package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/repository"
)

// COMPILE-TIME INTERFACE CHECK:
// If *DB stops satisfying repository.DocumentStore, this line fails to compile.
var _ repository.DocumentStore = (*DB)(nil)

// Get retrieves a single document.
//
// sql.ErrNoRows is translated to apperror.NotFound so callers can test with
// errors.Is(err, apperror.ErrNotFound) without knowing which backend is in use.
func (db *DB) Get(ctx context.Context, collection, key string) (*repository.Document, error) {
	var (
		doc  repository.Document
		body string
	)

	err := db.conn.QueryRowContext(ctx,
		`SELECT key, body, updated_at FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&doc.Key, &body, &doc.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound(collection, key)
		}
		return nil, fmt.Errorf("sqlite: getting %s/%s: %w", collection, key, err)
	}

	doc.Body = json.RawMessage(body)
	return &doc, nil
}

// Set creates or replaces a document.
//
// UPSERT:
// INSERT ... ON CONFLICT DO UPDATE keeps the original created_at while replacing
// the body. INSERT OR REPLACE would delete and re-insert the row, losing it.
func (db *DB) Set(ctx context.Context, collection, key string, body json.RawMessage) error {
	if err := repository.ValidateBody(body); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO documents (collection, key, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		collection, key, string(body), now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting %s/%s: %w", collection, key, err)
	}

	return nil
}

// Create inserts a document only if the key is not taken.
func (db *DB) Create(ctx context.Context, collection, key string, body json.RawMessage) error {
	if err := repository.ValidateBody(body); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := db.conn.ExecContext(ctx,
		`INSERT INTO documents (collection, key, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (collection, key) DO NOTHING`,
		collection, key, string(body), now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating %s/%s: %w", collection, key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.Conflict(collection, key)
	}

	return nil
}

// Update merges fields into an existing document.
//
// The read and the write run in one transaction so two concurrent Updates on
// the same document can't interleave and drop each other's fields.
func (db *DB) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning update of %s/%s: %w", collection, key, err)
	}
	defer tx.Rollback() // no-op after Commit

	var body string
	err = tx.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	).Scan(&body)
	if err != nil {
		if err == sql.ErrNoRows {
			return apperror.NotFound(collection, key)
		}
		return fmt.Errorf("sqlite: reading %s/%s for update: %w", collection, key, err)
	}

	merged, err := repository.MergeFields(json.RawMessage(body), fields)
	if err != nil {
		return fmt.Errorf("sqlite: merging %s/%s: %w", collection, key, err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET body = ?, updated_at = ? WHERE collection = ? AND key = ?`,
		string(merged), time.Now().UTC(), collection, key,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating %s/%s: %w", collection, key, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing update of %s/%s: %w", collection, key, err)
	}
	return nil
}

// Query returns every document in a collection.
//
// No pagination: the catalog is small and the client wants the full snapshot.
// defer rows.Close() returns the connection to the pool even on early return.
func (db *DB) Query(ctx context.Context, collection string) ([]repository.Document, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT key, body, updated_at FROM documents WHERE collection = ? ORDER BY key`,
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: querying %s: %w", collection, err)
	}
	defer rows.Close()

	docs := []repository.Document{}
	for rows.Next() {
		var (
			d    repository.Document
			body string
		)
		if err := rows.Scan(&d.Key, &body, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", collection, err)
		}
		d.Body = json.RawMessage(body)
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s: %w", collection, err)
	}

	return docs, nil
}

// Delete removes a document. Same RowsAffected pattern as Create.
func (db *DB) Delete(ctx context.Context, collection, key string) error {
	result, err := db.conn.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND key = ?`,
		collection, key,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting %s/%s: %w", collection, key, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return apperror.NotFound(collection, key)
	}

	return nil
}
