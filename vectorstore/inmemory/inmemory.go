//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory vector store implementation.
// It is the default when no database is configured and the store used
// throughout the tests.
package inmemory

import (
	"context"
	"math"
	"sync"

	"trpc.group/trpc-go/trpc-flow-go/vectorstore"
)

// Verify that Store implements the vectorstore.Store interface.
var _ vectorstore.Store = (*Store)(nil)

type document struct {
	content   string
	embedding []float64
}

// Store keeps documents in memory and ranks them by cosine similarity.
type Store struct {
	mu   sync.RWMutex
	docs []document
}

// New creates an empty in-memory vector store.
func New() *Store {
	return &Store{}
}

// Initialize implements vectorstore.Store. It is a no-op.
func (s *Store) Initialize(ctx context.Context) error {
	return nil
}

// Insert implements vectorstore.Store.
func (s *Store) Insert(ctx context.Context, content string, embedding []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, document{
		content:   content,
		embedding: append([]float64(nil), embedding...),
	})
	return nil
}

// QueryNearest implements vectorstore.Store. It returns the content of
// the document with the highest cosine similarity to the query vector.
func (s *Store) QueryNearest(ctx context.Context, embedding []float64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.docs) == 0 {
		return "", vectorstore.ErrNotFound
	}

	best := 0
	bestScore := math.Inf(-1)
	for i, doc := range s.docs {
		if score := cosineSimilarity(embedding, doc.embedding); score > bestScore {
			best = i
			bestScore = score
		}
	}
	return s.docs[best].content, nil
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// cosineSimilarity computes the cosine similarity between two vectors.
// Mismatched lengths compare over the shorter prefix; zero vectors score 0.
func cosineSimilarity(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
