//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

package graph

import "fmt"

// ConnectorType distinguishes input ports from output ports.
type ConnectorType string

const (
	// ConnectorInput marks a connector that receives a value.
	ConnectorInput ConnectorType = "input"
	// ConnectorOutput marks a connector that emits a value.
	ConnectorOutput ConnectorType = "output"
)

// Connector is one port of a node. The ID is stable and derivable from
// the node id alone, so wires can be resolved without a live node
// reference. X and Y are the port's canvas position for the given anchor.
type Connector struct {
	ID   string        `json:"id"`
	Type ConnectorType `json:"type"`
	X    float64       `json:"x"`
	Y    float64       `json:"y"`
}

// InputConnectorID derives the id of a node's input connector.
func InputConnectorID(nodeID string) string {
	return nodeID + "-input"
}

// OutputConnectorID derives the id of a node's single output connector.
func OutputConnectorID(nodeID string) string {
	return nodeID + "-output"
}

// CaseConnectorID derives the id of a case node's output connector for
// the given case label.
func CaseConnectorID(nodeID, label string) string {
	return fmt.Sprintf("%s-output-%s", nodeID, label)
}

// Node body dimensions, used only to position connectors relative to a
// screen anchor.
const (
	llmWidth    = 120
	endWidth    = 120
	consoleSize = 150
	vectorWidth = 150
	caseWidth   = 80
	caseHeight  = 150
)

// Connectors returns the node's ports with positions relative to the
// given screen anchor. The id set is a pure function of the node id and,
// for case nodes, the current case labels.
func (n *Node) Connectors(screenX, screenY float64) []Connector {
	switch n.Type {
	case NodeTypeConsole:
		return []Connector{
			{ID: OutputConnectorID(n.ID), Type: ConnectorOutput, X: screenX + consoleSize/2, Y: screenY},
		}
	case NodeTypeLLM:
		return []Connector{
			{ID: InputConnectorID(n.ID), Type: ConnectorInput, X: screenX - llmWidth/2, Y: screenY},
			{ID: OutputConnectorID(n.ID), Type: ConnectorOutput, X: screenX + llmWidth/2, Y: screenY},
		}
	case NodeTypeEnd:
		return []Connector{
			{ID: InputConnectorID(n.ID), Type: ConnectorInput, X: screenX - endWidth/2, Y: screenY},
		}
	case NodeTypeCase:
		state, _ := n.State.(*CaseState)
		connectors := []Connector{
			{ID: InputConnectorID(n.ID), Type: ConnectorInput, X: screenX - caseWidth/2, Y: screenY},
		}
		if state == nil {
			return connectors
		}
		// One output per case label, evenly spaced down the right edge.
		spacing := float64(caseHeight) / float64(len(state.Cases)+1)
		for i, label := range state.Cases {
			connectors = append(connectors, Connector{
				ID:   CaseConnectorID(n.ID, label),
				Type: ConnectorOutput,
				X:    screenX + caseWidth/2,
				Y:    screenY - caseHeight/2 + spacing*float64(i+1),
			})
		}
		return connectors
	case NodeTypeVectorStore, NodeTypeVectorRetrieve:
		return []Connector{
			{ID: InputConnectorID(n.ID), Type: ConnectorInput, X: screenX - vectorWidth/2, Y: screenY},
			{ID: OutputConnectorID(n.ID), Type: ConnectorOutput, X: screenX + vectorWidth/2, Y: screenY},
		}
	default:
		return nil
	}
}

// connectorIDs returns the set of connector ids currently valid for the
// node. UpdateNode uses it to drop wires left dangling by a case label
// removal.
func (n *Node) connectorIDs() map[string]struct{} {
	ids := make(map[string]struct{})
	for _, c := range n.Connectors(0, 0) {
		ids[c.ID] = struct{}{}
	}
	return ids
}
