//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package pgvector provides a PostgreSQL-backed vector store using the
// pgvector extension.
package pgvector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvec "github.com/pgvector/pgvector-go"

	"trpc.group/trpc-go/trpc-flow-go/vectorstore"
)

// Verify that Store implements the vectorstore.Store interface.
var _ vectorstore.Store = (*Store)(nil)

// DefaultDimensions matches the default OpenAI embedding dimension.
const DefaultDimensions = 1536

// Store implements vectorstore.Store on PostgreSQL via pgx.
type Store struct {
	db         *pgxpool.Pool
	dimensions int
}

// Option represents a functional option for configuring the Store.
type Option func(*Store)

// WithDimensions sets the dimension of the embedding column. It must
// match the embedder's dimension.
func WithDimensions(dimensions int) Option {
	return func(s *Store) {
		s.dimensions = dimensions
	}
}

// New creates a Store backed by the given pgx connection pool.
func New(db *pgxpool.Pool, opts ...Option) *Store {
	s := &Store{
		db:         db,
		dimensions: DefaultDimensions,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Initialize implements vectorstore.Store. It creates the vector
// extension and the documents table if they don't exist.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `CREATE EXTENSION IF NOT EXISTS vector;`); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS documents (
    id         SERIAL PRIMARY KEY,
    content    TEXT NOT NULL,
    embedding  vector(%d) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`, s.dimensions)
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Insert implements vectorstore.Store.
func (s *Store) Insert(ctx context.Context, content string, embedding []float64) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (content, embedding) VALUES ($1, $2);`,
		content, toVector(embedding))
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// QueryNearest implements vectorstore.Store. Cosine distance ordering
// yields the single most similar document.
func (s *Store) QueryNearest(ctx context.Context, embedding []float64) (string, error) {
	var content string
	err := s.db.QueryRow(ctx,
		`SELECT content FROM documents ORDER BY embedding <=> $1 LIMIT 1;`,
		toVector(embedding)).Scan(&content)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", vectorstore.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query nearest document: %w", err)
	}
	return content, nil
}

// toVector converts an embedding to the pgvector wire type.
func toVector(embedding []float64) pgvec.Vector {
	values := make([]float32, len(embedding))
	for i, v := range embedding {
		values[i] = float32(v)
	}
	return pgvec.NewVector(values)
}
