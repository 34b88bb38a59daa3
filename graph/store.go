//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "sync"

// Wire is a directed edge from a source node's output connector to a
// target node's input connector.
type Wire struct {
	ID            string `json:"id"`
	FromNode      string `json:"fromNode"`
	FromConnector string `json:"fromConnector"`
	ToNode        string `json:"toNode"`
	ToConnector   string `json:"toConnector"`
}

// Snapshot is an immutable view of the graph at one point in time. The
// store swaps in a fresh snapshot on every mutation, so a consumer that
// grabbed a snapshot before suspending observes a consistent view no
// matter how the store changes underneath.
type Snapshot struct {
	nodes        map[string]*Node
	wires        map[string]*Wire
	selectedNode string
	activeNode   string
}

// Node looks up a node by id.
func (s *Snapshot) Node(id string) (*Node, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Wire looks up a wire by id.
func (s *Snapshot) Wire(id string) (*Wire, bool) {
	w, ok := s.wires[id]
	return w, ok
}

// Nodes returns all nodes. Iteration order is not meaningful.
func (s *Snapshot) Nodes() []*Node {
	nodes := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	return nodes
}

// Wires returns all wires. Iteration order is not meaningful.
func (s *Snapshot) Wires() []*Wire {
	wires := make([]*Wire, 0, len(s.wires))
	for _, w := range s.wires {
		wires = append(wires, w)
	}
	return wires
}

// SelectedNode returns the id of the node with UI focus, or "".
func (s *Snapshot) SelectedNode() string { return s.selectedNode }

// ActiveNode returns the id of the node currently executing, or "".
func (s *Snapshot) ActiveNode() string { return s.activeNode }

// WireFrom returns the wire leaving the given output connector, if any.
// The one-wire-per-output-connector invariant makes the result unique.
func (s *Snapshot) WireFrom(connectorID string) (*Wire, bool) {
	for _, w := range s.wires {
		if w.FromConnector == connectorID {
			return w, true
		}
	}
	return nil, false
}

// ConnectorInUse reports whether any wire already leaves the given
// output connector.
func (s *Snapshot) ConnectorInUse(connectorID string) bool {
	_, ok := s.WireFrom(connectorID)
	return ok
}

// NextNode resolves the node reachable through the given output
// connector: the wire's target, looked up by id at call time.
func (s *Snapshot) NextNode(connectorID string) (*Node, bool) {
	w, ok := s.WireFrom(connectorID)
	if !ok {
		return nil, false
	}
	return s.Node(w.ToNode)
}

// Store is the single source of truth for nodes and wires. All mutation
// is copy-on-write: each operation derives a new snapshot and publishes
// it atomically. Operations on absent ids are no-ops; the store never
// returns an error.
type Store struct {
	mu   sync.RWMutex
	snap *Snapshot
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{snap: &Snapshot{
		nodes: make(map[string]*Node),
		wires: make(map[string]*Wire),
	}}
}

// Snapshot returns the current immutable view.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// mutate derives the next snapshot from the current one under the write
// lock. The derived snapshot starts with shallow map copies; fn mutates
// the copies only.
func (s *Store) mutate(fn func(next *Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := &Snapshot{
		nodes:        make(map[string]*Node, len(s.snap.nodes)),
		wires:        make(map[string]*Wire, len(s.snap.wires)),
		selectedNode: s.snap.selectedNode,
		activeNode:   s.snap.activeNode,
	}
	for id, n := range s.snap.nodes {
		next.nodes[id] = n
	}
	for id, w := range s.snap.wires {
		next.wires[id] = w
	}
	fn(next)
	s.snap = next
}

// AddNode inserts a node. An id collision overwrites; callers are
// expected to mint fresh ids (NewID).
func (s *Store) AddNode(n *Node) {
	s.mutate(func(next *Snapshot) {
		next.nodes[n.ID] = n
	})
}

// RemoveNode deletes a node and cascades: every wire touching the node
// in either direction is dropped, and the selection is cleared if it
// pointed at the removed node.
func (s *Store) RemoveNode(id string) {
	s.mutate(func(next *Snapshot) {
		delete(next.nodes, id)
		for wireID, w := range next.wires {
			if w.FromNode == id || w.ToNode == id {
				delete(next.wires, wireID)
			}
		}
		if next.selectedNode == id {
			next.selectedNode = ""
		}
	})
}

// UpdateNode replaces the stored node with a clone of the given one.
// Cloning both the record and its state keeps a caller's in-progress
// mutation from leaking into previously published snapshots. Wires
// attached to connectors the updated node no longer has (a removed case
// label) are dropped immediately.
func (s *Store) UpdateNode(n *Node) {
	s.mutate(func(next *Snapshot) {
		if _, ok := next.nodes[n.ID]; !ok {
			return
		}
		clone := n.Clone()
		next.nodes[n.ID] = clone
		valid := clone.connectorIDs()
		for wireID, w := range next.wires {
			if w.FromNode != n.ID && w.ToNode != n.ID {
				continue
			}
			if w.FromNode == n.ID {
				if _, ok := valid[w.FromConnector]; !ok {
					delete(next.wires, wireID)
					continue
				}
			}
			if w.ToNode == n.ID {
				if _, ok := valid[w.ToConnector]; !ok {
					delete(next.wires, wireID)
				}
			}
		}
	})
}

// AddWire inserts a wire as-is. The one-wire-per-output-connector
// invariant is the caller's responsibility here; use Connect for a
// validating insert.
func (s *Store) AddWire(w *Wire) {
	s.mutate(func(next *Snapshot) {
		next.wires[w.ID] = w
	})
}

// Connect inserts a wire after checking that its source connector is
// not already wired. On violation the wire set is left unchanged and
// ErrConnectorInUse is returned.
func (s *Store) Connect(w *Wire) error {
	var err error
	s.mutate(func(next *Snapshot) {
		for _, existing := range next.wires {
			if existing.FromConnector == w.FromConnector {
				err = ErrConnectorInUse
				return
			}
		}
		next.wires[w.ID] = w
	})
	return err
}

// RemoveWire deletes a wire by id. No cascade.
func (s *Store) RemoveWire(id string) {
	s.mutate(func(next *Snapshot) {
		delete(next.wires, id)
	})
}

// SetSelectedNode sets the UI selection pointer. Last write wins; no
// validation. Empty string clears.
func (s *Store) SetSelectedNode(id string) {
	s.mutate(func(next *Snapshot) {
		next.selectedNode = id
	})
}

// SetActiveNode sets the executing-node pointer. Last write wins; no
// validation. Empty string clears.
func (s *Store) SetActiveNode(id string) {
	s.mutate(func(next *Snapshot) {
		next.activeNode = id
	})
}
