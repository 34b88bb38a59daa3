//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package openai provides the OpenAI-compatible chat completion adapter.
package openai

import (
	"context"
	"fmt"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-flow-go/model"
)

// Verify that Model implements the model.Completer interface.
var _ model.Completer = (*Model)(nil)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "gpt-4o-mini"

// Model is a one-shot chat completion client backed by the OpenAI API
// or any OpenAI-compatible endpoint.
type Model struct {
	client openai.Client
	name   string

	apiKey         string
	baseURL        string
	requestOptions []openaiopt.RequestOption
}

// Option represents a functional option for configuring the Model.
type Option func(*Model)

// WithModel sets the chat model name.
func WithModel(name string) Option {
	return func(m *Model) {
		m.name = name
	}
}

// WithAPIKey sets the API key. If not provided, the OPENAI_API_KEY
// environment variable is used by the underlying SDK.
func WithAPIKey(apiKey string) Option {
	return func(m *Model) {
		m.apiKey = apiKey
	}
}

// WithBaseURL sets the API base URL for OpenAI-compatible providers.
func WithBaseURL(baseURL string) Option {
	return func(m *Model) {
		m.baseURL = baseURL
	}
}

// WithExtraOptions appends raw request options passed to every call.
func WithExtraOptions(opts ...openaiopt.RequestOption) Option {
	return func(m *Model) {
		m.requestOptions = append(m.requestOptions, opts...)
	}
}

// New creates a new OpenAI completion adapter with the given options.
func New(opts ...Option) *Model {
	m := &Model{
		name: DefaultModel,
	}
	for _, opt := range opts {
		opt(m)
	}

	var clientOpts []openaiopt.RequestOption
	if m.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(m.apiKey))
	}
	if m.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(m.baseURL))
	}
	clientOpts = append(clientOpts, m.requestOptions...)
	m.client = openai.NewClient(clientOpts...)

	return m
}

// Complete implements model.Completer. It sends the system prompt and
// user message as a single chat completion and returns the first
// choice's content.
func (m *Model) Complete(ctx context.Context, req model.Request) (string, error) {
	chatRequest := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(m.name),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserMessage),
		},
	}
	if req.JSONOutput {
		chatRequest.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	} else {
		chatRequest.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfText: &shared.ResponseFormatTextParam{},
		}
	}

	completion, err := m.client.Chat.Completions.New(ctx, chatRequest)
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", nil
	}
	return completion.Choices[0].Message.Content, nil
}

// Name returns the configured chat model name.
func (m *Model) Name() string {
	return m.name
}
