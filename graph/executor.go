//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-flow-go/embedder"
	"trpc.group/trpc-go/trpc-flow-go/internal/parse"
	"trpc.group/trpc-go/trpc-flow-go/log"
	"trpc.group/trpc-go/trpc-flow-go/model"
	"trpc.group/trpc-go/trpc-flow-go/vectorstore"
)

// msgNoContent is the error recorded on an llm node when the provider
// returns an empty completion. It is user-visible in the node panel.
const msgNoContent = "No response content received"

// defaultMaxSteps bounds one propagation chain. Fan-out per connector is
// at most one, so only a wiring cycle can reach the bound.
const defaultMaxSteps = 1000

// Executor walks the graph from a starting node, propagating a value
// along the single wired path. Node state mutations go through the
// store, which is the only externally observable trace of progress.
type Executor struct {
	store    *Store
	model    model.Completer
	embedder embedder.Embedder
	maxSteps int

	speedMu sync.RWMutex
	speed   Speed

	vdbMu    sync.Mutex
	vdb      vectorstore.Store
	vdbReady bool
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithModel sets the chat-completion adapter used by llm nodes.
func WithModel(m model.Completer) ExecutorOption {
	return func(e *Executor) {
		e.model = m
	}
}

// WithEmbedder sets the embedding adapter used by vectordb nodes.
func WithEmbedder(em embedder.Embedder) ExecutorOption {
	return func(e *Executor) {
		e.embedder = em
	}
}

// WithVectorStore sets the vector store used by vectordb nodes. It is
// initialized lazily on first use and shared across runs.
func WithVectorStore(vs vectorstore.Store) ExecutorOption {
	return func(e *Executor) {
		e.vdb = vs
	}
}

// WithSpeed sets the per-step pacing delay.
func WithSpeed(s Speed) ExecutorOption {
	return func(e *Executor) {
		e.speed = s
	}
}

// WithMaxSteps overrides the step limit for one propagation chain.
// Non-positive values disable the limit.
func WithMaxSteps(n int) ExecutorOption {
	return func(e *Executor) {
		e.maxSteps = n
	}
}

// NewExecutor creates an executor bound to the given store.
func NewExecutor(store *Store, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:    store,
		speed:    SpeedRealtime,
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetSpeed changes the pacing delay for subsequent steps. It is safe to
// call while runs are in flight; each step reads the current speed.
func (e *Executor) SetSpeed(s Speed) {
	e.speedMu.Lock()
	defer e.speedMu.Unlock()
	e.speed = s
}

// hop carries the resolved next node and the value to feed it.
type hop struct {
	nodeID string
	input  string
}

// Run propagates input from the node with the given id until the chain
// terminates. Each step resolves the node from a fresh snapshot, so a
// node deleted mid-run simply ends the chain.
//
// The walk is iterative rather than recursive: a wiring cycle would
// otherwise recurse without bound, so the chain is cut off at the step
// limit with ErrMaxStepsExceeded instead.
//
// llm failures are contained: they are recorded on the node and Run
// returns nil. vectordb adapter failures abort the chain and are
// returned to the caller, with no per-node error field.
func (e *Executor) Run(ctx context.Context, startNodeID, input string) error {
	current := startNodeID
	for steps := 0; ; steps++ {
		if e.maxSteps > 0 && steps >= e.maxSteps {
			return fmt.Errorf("%w after %d steps", ErrMaxStepsExceeded, steps)
		}
		node, ok := e.store.Snapshot().Node(current)
		if !ok {
			return nil
		}

		e.store.SetActiveNode(node.ID)
		if err := e.pause(ctx); err != nil {
			e.store.SetActiveNode("")
			return err
		}
		next, err := e.step(ctx, node, input)
		// The active marker covers exactly one step: it is cleared on
		// every exit path before the next node starts.
		e.store.SetActiveNode("")
		if err != nil {
			return err
		}
		if next == nil {
			return nil
		}
		current, input = next.nodeID, next.input
	}
}

// pause suspends for the configured pacing delay. A zero delay returns
// immediately with no timer, so realtime runs have no suspension point
// here.
func (e *Executor) pause(ctx context.Context) error {
	e.speedMu.RLock()
	d := e.speed.Delay()
	e.speedMu.RUnlock()
	if d == 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// step runs one node's behavior and resolves the next hop, if any.
// Dispatch is an exhaustive switch over the closed variant set.
func (e *Executor) step(ctx context.Context, node *Node, input string) (*hop, error) {
	switch node.Type {
	case NodeTypeConsole:
		return e.forward(node.ID, input), nil
	case NodeTypeLLM:
		return e.stepLLM(ctx, node, input)
	case NodeTypeEnd:
		work := node.Clone()
		work.State.(*EndState).Value = input
		e.store.UpdateNode(work)
		return nil, nil
	case NodeTypeCase:
		return e.stepCase(node, input), nil
	case NodeTypeVectorStore:
		return e.stepVectorStore(ctx, node, input)
	case NodeTypeVectorRetrieve:
		return e.stepVectorRetrieve(ctx, node, input)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, node.Type)
	}
}

// forward resolves the single wire leaving the node's output connector.
// A missing wire is a valid terminal state, not an error.
func (e *Executor) forward(nodeID, output string) *hop {
	next, ok := e.store.Snapshot().NextNode(OutputConnectorID(nodeID))
	if !ok {
		return nil
	}
	return &hop{nodeID: next.ID, input: output}
}

// stepLLM runs a chat completion with the node's system prompt and the
// propagated input as the user message. Failures are recorded in the
// node's error field and end the branch; loading is cleared on every
// path.
func (e *Executor) stepLLM(ctx context.Context, node *Node, input string) (*hop, error) {
	work := node.Clone()
	state := work.State.(*LLMState)
	state.Loading = true
	state.Error = nil
	e.store.UpdateNode(work)

	result, err := e.complete(ctx, state, input)
	if err == nil && result == "" {
		err = errors.New(msgNoContent)
	}
	if err != nil {
		log.Errorf("llm node %s: completion failed: %v", node.ID, err)
		msg := err.Error()
		state.Error = &msg
		state.Loading = false
		e.store.UpdateNode(work)
		return nil, nil
	}

	state.Loading = false
	e.store.UpdateNode(work)

	if state.StructuredOutput {
		// Providers occasionally emit near-JSON in json_object mode.
		result = parse.NormalizeJSON(result)
	}
	return e.forward(node.ID, result), nil
}

func (e *Executor) complete(ctx context.Context, state *LLMState, input string) (string, error) {
	if e.model == nil {
		return "", ErrNoModel
	}
	return e.model.Complete(ctx, model.Request{
		SystemPrompt: state.Prompt,
		UserMessage:  input,
		JSONOutput:   state.StructuredOutput,
	})
}

// stepCase parses the input as a JSON object and routes the value under
// ValueKey through the connector named by the value under CaseKey.
// Every validation failure terminates the branch silently (log only);
// case nodes carry no error state.
func (e *Executor) stepCase(node *Node, input string) *hop {
	state := node.State.(*CaseState)

	var payload map[string]any
	if err := json.Unmarshal([]byte(input), &payload); err != nil {
		log.Errorf("case node %s: failed to parse JSON input: %v", node.ID, err)
		return nil
	}
	if state.CaseKey == "" || state.ValueKey == "" {
		log.Warnf("case node %s: case or value key not set", node.ID)
		return nil
	}
	caseValue, ok := payload[state.CaseKey]
	if !ok {
		log.Warnf("case node %s: case key %q not found in input", node.ID, state.CaseKey)
		return nil
	}
	outputValue, ok := payload[state.ValueKey]
	if !ok {
		log.Warnf("case node %s: value key %q not found in input", node.ID, state.ValueKey)
		return nil
	}

	output, err := json.Marshal(outputValue)
	if err != nil {
		log.Errorf("case node %s: failed to encode output value: %v", node.ID, err)
		return nil
	}

	// An unwired case label is a dead branch: valid, not an error.
	next, ok := e.store.Snapshot().NextNode(CaseConnectorID(node.ID, caseLabel(caseValue)))
	if !ok {
		return nil
	}
	return &hop{nodeID: next.ID, input: string(output)}
}

// caseLabel renders a JSON value the way it names a connector: strings
// as-is, everything else in its JSON text form.
func caseLabel(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	text, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(text)
}

// stepVectorStore embeds the input, inserts it into the vector store and
// forwards the input unchanged. Adapter errors abort the chain.
func (e *Executor) stepVectorStore(ctx context.Context, node *Node, input string) (*hop, error) {
	vec, err := e.embed(ctx, input)
	if err != nil {
		log.Errorf("vectordb-store node %s: %v", node.ID, err)
		return nil, err
	}
	if err := e.ensureVectorStore(ctx); err != nil {
		log.Errorf("vectordb-store node %s: %v", node.ID, err)
		return nil, err
	}
	if err := e.vdb.Insert(ctx, input, vec); err != nil {
		log.Errorf("vectordb-store node %s: insert failed: %v", node.ID, err)
		return nil, err
	}
	return e.forward(node.ID, input), nil
}

// stepVectorRetrieve embeds the input, fetches the nearest document and
// forwards input and document joined by a newline. Adapter errors abort
// the chain; an empty store surfaces vectorstore.ErrNotFound.
func (e *Executor) stepVectorRetrieve(ctx context.Context, node *Node, input string) (*hop, error) {
	vec, err := e.embed(ctx, input)
	if err != nil {
		log.Errorf("vectordb-retrieve node %s: %v", node.ID, err)
		return nil, err
	}
	if err := e.ensureVectorStore(ctx); err != nil {
		log.Errorf("vectordb-retrieve node %s: %v", node.ID, err)
		return nil, err
	}
	content, err := e.vdb.QueryNearest(ctx, vec)
	if err != nil {
		log.Errorf("vectordb-retrieve node %s: query failed: %v", node.ID, err)
		return nil, err
	}
	return e.forward(node.ID, input+"\n"+content), nil
}

func (e *Executor) embed(ctx context.Context, text string) ([]float64, error) {
	if e.embedder == nil {
		return nil, ErrNoEmbedder
	}
	return e.embedder.GetEmbedding(ctx, text)
}

// ensureVectorStore initializes the shared vector store exactly once.
// The ready flag is set only on success, so a failed initialization is
// retried by the next vectordb step.
func (e *Executor) ensureVectorStore(ctx context.Context) error {
	e.vdbMu.Lock()
	defer e.vdbMu.Unlock()
	if e.vdbReady {
		return nil
	}
	if e.vdb == nil {
		return ErrNoVectorStore
	}
	if err := e.vdb.Initialize(ctx); err != nil {
		return err
	}
	e.vdbReady = true
	return nil
}
