//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "errors"

var (
	// ErrUnknownNodeType is returned when a type tag does not name one of
	// the closed set of node variants.
	ErrUnknownNodeType = errors.New("graph: unknown node type")
	// ErrConnectorInUse is returned by Connect when the output connector
	// already feeds a wire.
	ErrConnectorInUse = errors.New("graph: output connector already wired")
	// ErrMaxStepsExceeded is returned by Run when a propagation chain does
	// not terminate within the configured step limit (usually a wiring cycle).
	ErrMaxStepsExceeded = errors.New("graph: max execution steps exceeded")
	// ErrNoModel is returned when an llm node runs without a completion model.
	ErrNoModel = errors.New("graph: no completion model configured")
	// ErrNoEmbedder is returned when a vectordb node runs without an embedder.
	ErrNoEmbedder = errors.New("graph: no embedder configured")
	// ErrNoVectorStore is returned when a vectordb node runs without a vector store.
	ErrNoVectorStore = errors.New("graph: no vector store configured")
)
