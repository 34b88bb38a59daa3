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
	"encoding/json"
	"fmt"
)

// SerializedState is the flat snapshot format: every node and wire,
// nothing else. The selection and active pointers are transient and are
// never persisted.
type SerializedState struct {
	Nodes []*Node `json:"nodes"`
	Wires []*Wire `json:"wires"`
}

// Export serializes the current graph to indented JSON.
func (s *Store) Export() ([]byte, error) {
	snap := s.Snapshot()
	state := SerializedState{
		Nodes: snap.Nodes(),
		Wires: snap.Wires(),
	}
	return json.MarshalIndent(state, "", "  ")
}

// Import replaces the graph with the one in the given JSON document.
// selectedNode and activeNode are reset; they are live references that
// do not survive a snapshot.
func (s *Store) Import(data []byte) error {
	var state SerializedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	s.mutate(func(next *Snapshot) {
		next.nodes = make(map[string]*Node, len(state.Nodes))
		next.wires = make(map[string]*Wire, len(state.Wires))
		for _, n := range state.Nodes {
			next.nodes[n.ID] = n
		}
		for _, w := range state.Wires {
			next.wires[w.ID] = w
		}
		next.selectedNode = ""
		next.activeNode = ""
	})
	return nil
}
