//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package vectorstore defines the vector similarity store contract
// consumed by the vectordb-store and vectordb-retrieve nodes.
package vectorstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by QueryNearest when the store holds no documents.
var ErrNotFound = errors.New("vectorstore: no documents found")

// Store persists (content, embedding) pairs and answers top-1 nearest
// neighbor queries by similarity. The store is process-wide and shared
// by all vectordb nodes.
type Store interface {
	// Initialize creates backing schema. It is idempotent; the engine
	// calls it lazily before the first insert or query.
	Initialize(ctx context.Context) error

	// Insert stores one document with its embedding.
	Insert(ctx context.Context, content string, embedding []float64) error

	// QueryNearest returns the content of the single most similar
	// document, or ErrNotFound when the store is empty.
	QueryNearest(ctx context.Context, embedding []float64) (string, error)
}
