//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package graph provides the node graph data model and the execution
// engine for flow canvases: typed nodes wired together by directed
// connectors, with a value propagated along a single path at a time.
package graph

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// NodeType identifies one of the closed set of node variants.
type NodeType string

const (
	// NodeTypeConsole is the console input node. It is a pure source:
	// it has no input connector and forwards submitted text unchanged.
	NodeTypeConsole NodeType = "console"
	// NodeTypeLLM is the chat-completion node.
	NodeTypeLLM NodeType = "llm"
	// NodeTypeEnd is the terminal node that records the last received value.
	NodeTypeEnd NodeType = "end"
	// NodeTypeCase is the branching node that routes a JSON payload by key.
	NodeTypeCase NodeType = "case"
	// NodeTypeVectorStore is the node that stores its input in the vector database.
	NodeTypeVectorStore NodeType = "vectordb-store"
	// NodeTypeVectorRetrieve is the node that augments its input with the
	// nearest document from the vector database.
	NodeTypeVectorRetrieve NodeType = "vectordb-retrieve"
)

// Node is one unit of graph state. X and Y are canvas coordinates; they
// only matter for connector geometry, never for execution.
type Node struct {
	ID    string    `json:"id"`
	X     float64   `json:"x"`
	Y     float64   `json:"y"`
	Type  NodeType  `json:"type"`
	State NodeState `json:"state"`
}

// NodeState is the variant-specific mutable payload of a node. It is a
// sealed sum type: exactly one implementation exists per NodeType.
type NodeState interface {
	// Clone returns a deep copy. The store replaces state wholesale on
	// every update, so a retained reference never aliases a snapshot.
	Clone() NodeState

	nodeState()
}

// ConsoleState holds the console node's prompt text.
type ConsoleState struct {
	Prompt string `json:"prompt"`
}

// LLMState holds the llm node's configuration and in-flight status.
type LLMState struct {
	Prompt           string  `json:"prompt"`
	StructuredOutput bool    `json:"structuredOutput"`
	Loading          bool    `json:"loading"`
	Error            *string `json:"error"`
}

// EndState records the last value that reached the end node.
type EndState struct {
	Value string `json:"value"`
}

// CaseState configures the case node. Cases is ordered and unique by
// value; the order is the connector order.
type CaseState struct {
	CaseKey  string   `json:"caseKey"`
	ValueKey string   `json:"valueKey"`
	Cases    []string `json:"cases"`
}

// VectorStoreState is the (empty) state of a vectordb-store node.
type VectorStoreState struct{}

// VectorRetrieveState is the (empty) state of a vectordb-retrieve node.
type VectorRetrieveState struct{}

func (*ConsoleState) nodeState()        {}
func (*LLMState) nodeState()            {}
func (*EndState) nodeState()            {}
func (*CaseState) nodeState()           {}
func (*VectorStoreState) nodeState()    {}
func (*VectorRetrieveState) nodeState() {}

// Clone returns a deep copy of the state.
func (s *ConsoleState) Clone() NodeState {
	c := *s
	return &c
}

// Clone returns a deep copy of the state.
func (s *LLMState) Clone() NodeState {
	c := *s
	if s.Error != nil {
		e := *s.Error
		c.Error = &e
	}
	return &c
}

// Clone returns a deep copy of the state.
func (s *EndState) Clone() NodeState {
	c := *s
	return &c
}

// Clone returns a deep copy of the state.
func (s *CaseState) Clone() NodeState {
	c := *s
	c.Cases = append([]string(nil), s.Cases...)
	return &c
}

// Clone returns a deep copy of the state.
func (s *VectorStoreState) Clone() NodeState {
	return &VectorStoreState{}
}

// Clone returns a deep copy of the state.
func (s *VectorRetrieveState) Clone() NodeState {
	return &VectorRetrieveState{}
}

// Clone returns a copy of the node with its state deep-copied.
func (n *Node) Clone() *Node {
	c := *n
	if n.State != nil {
		c.State = n.State.Clone()
	}
	return &c
}

// NewID returns a fresh unique identifier for nodes and wires.
func NewID() string {
	return uuid.NewString()
}

// NewConsoleNode creates a console node at the given canvas position.
func NewConsoleNode(x, y float64) *Node {
	return &Node{ID: NewID(), X: x, Y: y, Type: NodeTypeConsole, State: &ConsoleState{}}
}

// NewLLMNode creates an llm node at the given canvas position.
func NewLLMNode(x, y float64) *Node {
	return &Node{ID: NewID(), X: x, Y: y, Type: NodeTypeLLM, State: &LLMState{}}
}

// NewEndNode creates an end node at the given canvas position.
func NewEndNode(x, y float64) *Node {
	return &Node{ID: NewID(), X: x, Y: y, Type: NodeTypeEnd, State: &EndState{}}
}

// NewCaseNode creates a case node at the given canvas position.
func NewCaseNode(x, y float64) *Node {
	return &Node{ID: NewID(), X: x, Y: y, Type: NodeTypeCase, State: &CaseState{}}
}

// NewVectorStoreNode creates a vectordb-store node at the given canvas position.
func NewVectorStoreNode(x, y float64) *Node {
	return &Node{ID: NewID(), X: x, Y: y, Type: NodeTypeVectorStore, State: &VectorStoreState{}}
}

// NewVectorRetrieveNode creates a vectordb-retrieve node at the given canvas position.
func NewVectorRetrieveNode(x, y float64) *Node {
	return &Node{ID: NewID(), X: x, Y: y, Type: NodeTypeVectorRetrieve, State: &VectorRetrieveState{}}
}

// NewNode creates a node of the given type with zero-value state.
func NewNode(typ NodeType, x, y float64) (*Node, error) {
	state, err := newState(typ)
	if err != nil {
		return nil, err
	}
	return &Node{ID: NewID(), X: x, Y: y, Type: typ, State: state}, nil
}

func newState(typ NodeType) (NodeState, error) {
	switch typ {
	case NodeTypeConsole:
		return &ConsoleState{}, nil
	case NodeTypeLLM:
		return &LLMState{}, nil
	case NodeTypeEnd:
		return &EndState{}, nil
	case NodeTypeCase:
		return &CaseState{}, nil
	case NodeTypeVectorStore:
		return &VectorStoreState{}, nil
	case NodeTypeVectorRetrieve:
		return &VectorRetrieveState{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, typ)
	}
}

// nodeEnvelope mirrors Node with a raw state payload so that the state
// type can be selected from the type tag during decoding.
type nodeEnvelope struct {
	ID    string          `json:"id"`
	X     float64         `json:"x"`
	Y     float64         `json:"y"`
	Type  NodeType        `json:"type"`
	State json.RawMessage `json:"state"`
}

// UnmarshalJSON decodes a node, dispatching the state decode on the type tag.
func (n *Node) UnmarshalJSON(data []byte) error {
	var env nodeEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	state, err := newState(env.Type)
	if err != nil {
		return err
	}
	if len(env.State) > 0 {
		if err := json.Unmarshal(env.State, state); err != nil {
			return fmt.Errorf("decode %s state: %w", env.Type, err)
		}
	}
	n.ID = env.ID
	n.X = env.X
	n.Y = env.Y
	n.Type = env.Type
	n.State = state
	return nil
}
