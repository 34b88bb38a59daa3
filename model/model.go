//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package model defines the chat-completion contract consumed by the
// execution engine.
package model

import "context"

// Request is a one-shot chat completion request: a system prompt, one
// user message, and whether the answer must be a JSON object.
type Request struct {
	// SystemPrompt is the node's stored system prompt.
	SystemPrompt string
	// UserMessage is the value propagated into the node.
	UserMessage string
	// JSONOutput requests a structured (JSON object) response instead of
	// free text.
	JSONOutput bool
}

// Completer produces one chat completion per request. Implementations
// must treat an empty result as a failure of their own; the engine also
// guards against empty content.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}
