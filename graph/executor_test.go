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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-flow-go/model"
	"trpc.group/trpc-go/trpc-flow-go/vectorstore/inmemory"
)

// stubCompleter returns a fixed result or error and records requests.
type stubCompleter struct {
	result   string
	err      error
	requests []model.Request
}

func (s *stubCompleter) Complete(ctx context.Context, req model.Request) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	return s.result, nil
}

// stubEmbedder maps known texts to fixed vectors so similarity ordering
// is deterministic.
type stubEmbedder struct {
	vectors map[string][]float64
	err     error
}

func (s *stubEmbedder) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	if s.err != nil {
		return nil, s.err
	}
	if v, ok := s.vectors[text]; ok {
		return v, nil
	}
	return []float64{1, 0, 0}, nil
}

func (s *stubEmbedder) GetDimensions() int { return 3 }

func wireUp(t *testing.T, s *Store, fromNode *Node, fromConnector string, toNode *Node) {
	t.Helper()
	require.NoError(t, s.Connect(&Wire{
		ID:            NewID(),
		FromNode:      fromNode.ID,
		FromConnector: fromConnector,
		ToNode:        toNode.ID,
		ToConnector:   InputConnectorID(toNode.ID),
	}))
}

// linearChain builds console -> llm -> end and returns the three nodes.
func linearChain(t *testing.T, s *Store) (*Node, *Node, *Node) {
	t.Helper()
	console := NewConsoleNode(0, 0)
	llm := NewLLMNode(100, 0)
	llm.State = &LLMState{Prompt: "system prompt"}
	end := NewEndNode(200, 0)
	s.AddNode(console)
	s.AddNode(llm)
	s.AddNode(end)
	wireUp(t, s, console, OutputConnectorID(console.ID), llm)
	wireUp(t, s, llm, OutputConnectorID(llm.ID), end)
	return console, llm, end
}

func TestPropagateLinearChain(t *testing.T) {
	s := NewStore()
	console, llm, end := linearChain(t, s)
	completer := &stubCompleter{result: "R"}
	e := NewExecutor(s, WithModel(completer))

	require.NoError(t, e.Run(context.Background(), console.ID, "hi"))

	endState, _ := s.Snapshot().Node(end.ID)
	assert.Equal(t, "R", endState.State.(*EndState).Value)

	llmState, _ := s.Snapshot().Node(llm.ID)
	state := llmState.State.(*LLMState)
	assert.False(t, state.Loading, "Expected loading to be cleared")
	assert.Nil(t, state.Error, "Expected no error")

	require.Len(t, completer.requests, 1)
	assert.Equal(t, "system prompt", completer.requests[0].SystemPrompt)
	assert.Equal(t, "hi", completer.requests[0].UserMessage)
}

func TestLLMFailureContainment(t *testing.T) {
	s := NewStore()
	console, llm, end := linearChain(t, s)
	before, _ := s.Snapshot().Node(end.ID)
	beforeValue := before.State.(*EndState).Value

	e := NewExecutor(s, WithModel(&stubCompleter{err: errors.New("boom")}))
	require.NoError(t, e.Run(context.Background(), console.ID, "hi"),
		"Expected llm failure to be contained, not returned")

	after, _ := s.Snapshot().Node(end.ID)
	assert.Equal(t, beforeValue, after.State.(*EndState).Value,
		"Expected end node to be untouched")

	llmNode, _ := s.Snapshot().Node(llm.ID)
	state := llmNode.State.(*LLMState)
	require.NotNil(t, state.Error)
	assert.Equal(t, "boom", *state.Error)
	assert.False(t, state.Loading, "Expected loading to be cleared on failure")
}

func TestLLMEmptyContentIsFailure(t *testing.T) {
	s := NewStore()
	console, llm, _ := linearChain(t, s)

	e := NewExecutor(s, WithModel(&stubCompleter{result: ""}))
	require.NoError(t, e.Run(context.Background(), console.ID, "hi"))

	llmNode, _ := s.Snapshot().Node(llm.ID)
	state := llmNode.State.(*LLMState)
	require.NotNil(t, state.Error)
	assert.Equal(t, "No response content received", *state.Error)
}

func TestLLMWithoutModelRecordsError(t *testing.T) {
	s := NewStore()
	console, llm, _ := linearChain(t, s)

	e := NewExecutor(s)
	require.NoError(t, e.Run(context.Background(), console.ID, "hi"))

	llmNode, _ := s.Snapshot().Node(llm.ID)
	state := llmNode.State.(*LLMState)
	require.NotNil(t, state.Error, "Expected missing model to be recorded on the node")
	assert.False(t, state.Loading)
}

func TestLLMStructuredOutputRepair(t *testing.T) {
	s := NewStore()
	console, llm, end := linearChain(t, s)
	work := llm.Clone()
	work.State.(*LLMState).StructuredOutput = true
	s.UpdateNode(work)

	// Single quotes: near-JSON the provider should not emit, but does.
	e := NewExecutor(s, WithModel(&stubCompleter{result: "{'answer': 42}"}))
	require.NoError(t, e.Run(context.Background(), console.ID, "hi"))

	endNode, _ := s.Snapshot().Node(end.ID)
	got := endNode.State.(*EndState).Value
	assert.True(t, json.Valid([]byte(got)), "Expected repaired JSON, got %q", got)
}

func TestCaseBranching(t *testing.T) {
	s := NewStore()
	caseNode := NewCaseNode(0, 0)
	caseNode.State = &CaseState{CaseKey: "k", ValueKey: "v", Cases: []string{"a", "b"}}
	nodeX := NewEndNode(100, 0)
	nodeY := NewEndNode(100, 100)
	s.AddNode(caseNode)
	s.AddNode(nodeX)
	s.AddNode(nodeY)
	wireUp(t, s, caseNode, CaseConnectorID(caseNode.ID, "a"), nodeX)
	wireUp(t, s, caseNode, CaseConnectorID(caseNode.ID, "b"), nodeY)

	e := NewExecutor(s)
	require.NoError(t, e.Run(context.Background(), caseNode.ID, `{"k":"a","v":42}`))

	x, _ := s.Snapshot().Node(nodeX.ID)
	assert.Equal(t, "42", x.State.(*EndState).Value, "Expected value forwarded to the matching branch")
	y, _ := s.Snapshot().Node(nodeY.ID)
	assert.Equal(t, "", y.State.(*EndState).Value, "Expected other branch to be untouched")
}

func TestCaseForwardsJSONEncodedValues(t *testing.T) {
	s := NewStore()
	caseNode := NewCaseNode(0, 0)
	caseNode.State = &CaseState{CaseKey: "k", ValueKey: "v", Cases: []string{"a"}}
	end := NewEndNode(100, 0)
	s.AddNode(caseNode)
	s.AddNode(end)
	wireUp(t, s, caseNode, CaseConnectorID(caseNode.ID, "a"), end)

	e := NewExecutor(s)
	require.NoError(t, e.Run(context.Background(), caseNode.ID, `{"k":"a","v":{"nested":true}}`))

	got, _ := s.Snapshot().Node(end.ID)
	assert.JSONEq(t, `{"nested":true}`, got.State.(*EndState).Value)
}

func TestCaseTerminatesSilently(t *testing.T) {
	cases := []struct {
		name  string
		state *CaseState
		input string
	}{
		{"invalid json", &CaseState{CaseKey: "k", ValueKey: "v", Cases: []string{"a"}}, "not json"},
		{"keys not set", &CaseState{Cases: []string{"a"}}, `{"k":"a","v":1}`},
		{"case key missing", &CaseState{CaseKey: "k", ValueKey: "v", Cases: []string{"a"}}, `{"v":1}`},
		{"value key missing", &CaseState{CaseKey: "k", ValueKey: "v", Cases: []string{"a"}}, `{"k":"a"}`},
		{"dead branch", &CaseState{CaseKey: "k", ValueKey: "v", Cases: []string{"a"}}, `{"k":"unwired","v":1}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			s := NewStore()
			caseNode := NewCaseNode(0, 0)
			caseNode.State = c.state
			end := NewEndNode(100, 0)
			s.AddNode(caseNode)
			s.AddNode(end)
			wireUp(t, s, caseNode, CaseConnectorID(caseNode.ID, "a"), end)

			e := NewExecutor(s)
			require.NoError(t, e.Run(context.Background(), caseNode.ID, c.input),
				"Expected silent termination, no error")

			got, _ := s.Snapshot().Node(end.ID)
			assert.Equal(t, "", got.State.(*EndState).Value, "Expected no propagation")
		})
	}
}

func TestVectorStoreAndRetrieve(t *testing.T) {
	s := NewStore()
	vdb := inmemory.New()
	emb := &stubEmbedder{vectors: map[string][]float64{
		"the sky is blue":        {1, 0, 0},
		"grass is green":         {0, 1, 0},
		"what color is the sky?": {0.9, 0.1, 0},
	}}

	storeNode := NewVectorStoreNode(0, 0)
	s.AddNode(storeNode)
	e := NewExecutor(s, WithEmbedder(emb), WithVectorStore(vdb))

	require.NoError(t, e.Run(context.Background(), storeNode.ID, "the sky is blue"))
	require.NoError(t, e.Run(context.Background(), storeNode.ID, "grass is green"))
	assert.Equal(t, 2, vdb.Len())

	retrieveNode := NewVectorRetrieveNode(0, 0)
	end := NewEndNode(100, 0)
	s.AddNode(retrieveNode)
	s.AddNode(end)
	wireUp(t, s, retrieveNode, OutputConnectorID(retrieveNode.ID), end)

	require.NoError(t, e.Run(context.Background(), retrieveNode.ID, "what color is the sky?"))

	got, _ := s.Snapshot().Node(end.ID)
	assert.Equal(t, "what color is the sky?\nthe sky is blue",
		got.State.(*EndState).Value,
		"Expected input concatenated with the nearest document")
}

func TestVectorStoreForwardsInputUnchanged(t *testing.T) {
	s := NewStore()
	storeNode := NewVectorStoreNode(0, 0)
	end := NewEndNode(100, 0)
	s.AddNode(storeNode)
	s.AddNode(end)
	wireUp(t, s, storeNode, OutputConnectorID(storeNode.ID), end)

	e := NewExecutor(s, WithEmbedder(&stubEmbedder{}), WithVectorStore(inmemory.New()))
	require.NoError(t, e.Run(context.Background(), storeNode.ID, "payload"))

	got, _ := s.Snapshot().Node(end.ID)
	assert.Equal(t, "payload", got.State.(*EndState).Value)
}

func TestVectorAdapterFailureAbortsChain(t *testing.T) {
	s := NewStore()
	storeNode := NewVectorStoreNode(0, 0)
	end := NewEndNode(100, 0)
	s.AddNode(storeNode)
	s.AddNode(end)
	wireUp(t, s, storeNode, OutputConnectorID(storeNode.ID), end)

	wantErr := errors.New("embedding service down")
	e := NewExecutor(s, WithEmbedder(&stubEmbedder{err: wantErr}), WithVectorStore(inmemory.New()))

	err := e.Run(context.Background(), storeNode.ID, "payload")
	assert.ErrorIs(t, err, wantErr, "Expected vectordb failure to propagate to the caller")

	got, _ := s.Snapshot().Node(end.ID)
	assert.Equal(t, "", got.State.(*EndState).Value)
	assert.Equal(t, "", s.Snapshot().ActiveNode(), "Expected active marker cleared on abort")
}

func TestRunMissingStartNodeHaltsNaturally(t *testing.T) {
	s := NewStore()
	e := NewExecutor(s)
	assert.NoError(t, e.Run(context.Background(), "gone", "hi"))
}

func TestConsoleWithoutWireTerminates(t *testing.T) {
	s := NewStore()
	console := NewConsoleNode(0, 0)
	s.AddNode(console)
	e := NewExecutor(s)
	assert.NoError(t, e.Run(context.Background(), console.ID, "hi"))
}

func TestMaxStepsCutsOffCycle(t *testing.T) {
	s := NewStore()
	a := NewConsoleNode(0, 0)
	b := NewConsoleNode(100, 0)
	s.AddNode(a)
	s.AddNode(b)
	wireUp(t, s, a, OutputConnectorID(a.ID), b)
	wireUp(t, s, b, OutputConnectorID(b.ID), a)

	e := NewExecutor(s, WithMaxSteps(10))
	err := e.Run(context.Background(), a.ID, "loop")
	assert.ErrorIs(t, err, ErrMaxStepsExceeded)
	assert.Equal(t, "", s.Snapshot().ActiveNode())
}

func TestActiveNodeClearedAfterRun(t *testing.T) {
	s := NewStore()
	console, _, _ := linearChain(t, s)
	e := NewExecutor(s, WithModel(&stubCompleter{result: "R"}))
	require.NoError(t, e.Run(context.Background(), console.ID, "hi"))
	assert.Equal(t, "", s.Snapshot().ActiveNode())
}

func TestRealtimeRunHasNoPacingDelay(t *testing.T) {
	s := NewStore()
	console, _, _ := linearChain(t, s)
	e := NewExecutor(s, WithModel(&stubCompleter{result: "R"}), WithSpeed(SpeedRealtime))

	start := time.Now()
	require.NoError(t, e.Run(context.Background(), console.ID, "hi"))
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"Expected realtime run to resolve without suspension")
}

func TestSetSpeedAppliesToSubsequentSteps(t *testing.T) {
	s := NewStore()
	console, _, _ := linearChain(t, s)
	e := NewExecutor(s, WithModel(&stubCompleter{result: "R"}), WithSpeed(SpeedSlow))
	e.SetSpeed(SpeedRealtime)

	start := time.Now()
	require.NoError(t, e.Run(context.Background(), console.ID, "hi"))
	assert.Less(t, time.Since(start), 100*time.Millisecond,
		"Expected the overridden speed to take effect")
}

func TestSetSpeedConcurrentWithRun(t *testing.T) {
	s := NewStore()
	console, _, _ := linearChain(t, s)
	e := NewExecutor(s, WithModel(&stubCompleter{result: "R"}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			e.SetSpeed(SpeedFast)
			e.SetSpeed(SpeedRealtime)
		}
	}()
	require.NoError(t, e.Run(context.Background(), console.ID, "hi"))
	<-done
}

func TestPacedRunHonorsContextCancellation(t *testing.T) {
	s := NewStore()
	console, _, _ := linearChain(t, s)
	e := NewExecutor(s, WithModel(&stubCompleter{result: "R"}), WithSpeed(SpeedSlow))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := e.Run(ctx, console.ID, "hi")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "", s.Snapshot().ActiveNode())
}
