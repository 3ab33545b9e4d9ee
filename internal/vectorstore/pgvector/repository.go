// Package pgvector stores product chunks in Postgres with the pgvector
// extension. A collection maps to the value of the collection column.
package pgvector

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/circulx/products-rag/internal/vectorstore"
)

// Schema creates the tables the repository expects.
const Schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS product_chunk (
	id          TEXT PRIMARY KEY,
	collection  TEXT NOT NULL,
	seller_name TEXT NOT NULL,
	content     TEXT NOT NULL,
	metadata    JSONB NOT NULL DEFAULT '{}',
	embedding   vector(768) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS product_chunk_seller_idx ON product_chunk (collection, seller_name);
`

type PgRepository struct {
	db         *pgxpool.Pool
	collection string
	embedder   vectorstore.Embedder
}

// NewPgRepository checks that the collection has at least been created by the
// importer and returns a handle scoped to it.
func NewPgRepository(ctx context.Context, db *pgxpool.Pool, collection string, embedder vectorstore.Embedder) (*PgRepository, error) {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	var exists bool
	err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM product_chunk WHERE collection = $1)`,
		collection,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("collection %q: %w", collection, vectorstore.ErrCollectionNotFound)
	}

	return &PgRepository{db: db, collection: collection, embedder: embedder}, nil
}

// NewWriter returns a repository without the existence check, for the importer.
func NewWriter(ctx context.Context, db *pgxpool.Pool, collection string, embedder vectorstore.Embedder) (*PgRepository, error) {
	if _, err := db.Exec(ctx, Schema); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &PgRepository{db: db, collection: collection, embedder: embedder}, nil
}

func (r *PgRepository) Upsert(ctx context.Context, docs []vectorstore.Document) error {
	batch := &pgx.Batch{}
	for _, d := range docs {
		vec, err := r.embedder.Embed(ctx, d.Text)
		if err != nil {
			return fmt.Errorf("embed %s: %w", d.ID, err)
		}
		batch.Queue(`
			INSERT INTO product_chunk (id, collection, seller_name, content, metadata, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE
			SET seller_name = EXCLUDED.seller_name,
			    content     = EXCLUDED.content,
			    metadata    = EXCLUDED.metadata,
			    embedding   = EXCLUDED.embedding,
			    updated_at  = now()
		`,
			d.ID,
			r.collection,
			d.Metadata[vectorstore.SellerKey],
			d.Text,
			d.Metadata,
			pgvector.NewVector(vec),
		)
	}
	if batch.Len() == 0 {
		return nil
	}
	return r.db.SendBatch(ctx, batch).Close()
}

// Query runs a nearest-neighbour search. Only the seller_name key of Where is
// honoured; it is the only filter the retriever sends.
func (r *PgRepository) Query(ctx context.Context, req vectorstore.QueryRequest) (*vectorstore.QueryResult, error) {
	limit := req.NResults
	if limit <= 0 {
		limit = 10
	}

	emb, err := r.embedder.Embed(ctx, req.Text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	vec := pgvector.NewVector(emb)

	rows, err := r.db.Query(ctx, `
		SELECT id, content, metadata, embedding <-> $3 AS distance
		FROM product_chunk
		WHERE collection = $1
		  AND ($2 = '' OR seller_name = $2)
		ORDER BY embedding <-> $3
		LIMIT $4
	`, r.collection, req.Where[vectorstore.SellerKey], vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		ids   []string
		docs  []string
		metas []map[string]any
		dists []float32
	)
	for rows.Next() {
		var (
			id, content string
			meta        map[string]any
			dist        float64
		)
		if err := rows.Scan(&id, &content, &meta, &dist); err != nil {
			return nil, err
		}
		ids = append(ids, id)
		docs = append(docs, content)
		metas = append(metas, meta)
		dists = append(dists, float32(dist))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &vectorstore.QueryResult{
		IDs:       [][]string{ids},
		Documents: [][]string{docs},
		Metadatas: [][]map[string]any{metas},
		Distances: [][]float32{dists},
	}, nil
}

func (r *PgRepository) Close() error {
	r.db.Close()
	return nil
}

var _ vectorstore.Store = (*PgRepository)(nil)
