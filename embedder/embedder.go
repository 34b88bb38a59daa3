//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package embedder defines the text embedding contract consumed by the
// vector database nodes.
package embedder

import "context"

// Embedder converts text into a dense vector representation.
type Embedder interface {
	// GetEmbedding returns the embedding vector for the given text.
	GetEmbedding(ctx context.Context, text string) ([]float64, error)

	// GetDimensions returns the number of dimensions in the embedding
	// vectors produced by this embedder.
	GetDimensions() int
}
