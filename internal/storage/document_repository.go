package storage

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/docustore/internal/models"
	"github.com/jackc/pgx/v5"
)

// DocumentRepository persists emulated contract documents in Postgres
type DocumentRepository struct {
	db *PostgresDB
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *PostgresDB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Get retrieves a document, or nil when absent
func (r *DocumentRepository) Get(ctx context.Context, collection, key string) (*models.StoredDocument, error) {
	query := `
		SELECT collection, doc_key, owner, data, updated_at
		FROM documents
		WHERE collection = $1 AND doc_key = $2
	`

	var doc models.StoredDocument
	err := r.db.Pool().QueryRow(ctx, query, collection, key).Scan(
		&doc.Collection,
		&doc.Key,
		&doc.Owner,
		&doc.Data,
		&doc.UpdatedAt,
	)
	if stderrors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document %s/%s: %w", collection, key, err)
	}
	return &doc, nil
}

// Put inserts or replaces a document
func (r *DocumentRepository) Put(ctx context.Context, doc *models.StoredDocument) error {
	query := `
		INSERT INTO documents (collection, doc_key, owner, data, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (collection, doc_key) DO UPDATE SET
			owner = EXCLUDED.owner,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Pool().Exec(ctx, query,
		doc.Collection,
		doc.Key,
		doc.Owner,
		doc.Data,
		doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to put document %s/%s: %w", doc.Collection, doc.Key, err)
	}
	return nil
}

// Remove deletes a document; removing an absent key is not an error
func (r *DocumentRepository) Remove(ctx context.Context, collection, key string) error {
	_, err := r.db.Pool().Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND doc_key = $2`, collection, key)
	if err != nil {
		return fmt.Errorf("failed to remove document %s/%s: %w", collection, key, err)
	}
	return nil
}

// ListByOwner returns up to limit of owner's documents in collection,
// ordered by key, with keys strictly greater than startAfter
func (r *DocumentRepository) ListByOwner(ctx context.Context, owner, collection, startAfter string, limit int) ([]*models.StoredDocument, error) {
	query := `
		SELECT collection, doc_key, owner, data, updated_at
		FROM documents
		WHERE owner = $1 AND collection = $2 AND doc_key > $3
		ORDER BY doc_key
		LIMIT $4
	`

	rows, err := r.db.Pool().Query(ctx, query, owner, collection, startAfter, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.StoredDocument
	for rows.Next() {
		var doc models.StoredDocument
		if err := rows.Scan(&doc.Collection, &doc.Key, &doc.Owner, &doc.Data, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, &doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}
	return docs, nil
}
