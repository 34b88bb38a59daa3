//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the graph store and execution engine over HTTP.
// The canvas frontend is a separate application; this API is its backend.
package server

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"

	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/log"
)

// Server wires HTTP routes to a graph store and executor.
type Server struct {
	app   *fiber.App
	store *graph.Store
	exec  *graph.Executor
}

// New creates a Server for the given store and executor.
func New(store *graph.Store, exec *graph.Executor) *Server {
	s := &Server{
		app:   fiber.New(),
		store: store,
		exec:  exec,
	}
	s.routes()
	return s
}

// App returns the underlying fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves the API on the given address until the listener fails.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

type graphView struct {
	Nodes        []*graph.Node `json:"nodes"`
	Wires        []*graph.Wire `json:"wires"`
	SelectedNode string        `json:"selectedNode"`
	ActiveNode   string        `json:"activeNode"`
}

type newNodeRequest struct {
	Type graph.NodeType `json:"type"`
	X    float64        `json:"x"`
	Y    float64        `json:"y"`
}

type newWireRequest struct {
	FromNode      string `json:"fromNode"`
	FromConnector string `json:"fromConnector"`
	ToNode        string `json:"toNode"`
	ToConnector   string `json:"toConnector"`
}

type selectionRequest struct {
	Node string `json:"node"`
}

type runRequest struct {
	Node  string `json:"node"`
	Input string `json:"input"`
}

type speedRequest struct {
	Speed string `json:"speed"`
}

func (s *Server) routes() {
	app := s.app

	app.Get("/graph", func(c fiber.Ctx) error {
		snap := s.store.Snapshot()
		return c.JSON(graphView{
			Nodes:        snap.Nodes(),
			Wires:        snap.Wires(),
			SelectedNode: snap.SelectedNode(),
			ActiveNode:   snap.ActiveNode(),
		})
	})

	// Nodes.
	app.Post("/nodes", func(c fiber.Ctx) error {
		var req newNodeRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		node, err := graph.NewNode(req.Type, req.X, req.Y)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		s.store.AddNode(node)
		return c.Status(201).JSON(node)
	})

	app.Get("/nodes/:id", func(c fiber.Ctx) error {
		node, ok := s.store.Snapshot().Node(c.Params("id"))
		if !ok {
			return c.Status(404).JSON(fiber.Map{"error": "node not found"})
		}
		return c.JSON(node)
	})

	app.Put("/nodes/:id", func(c fiber.Ctx) error {
		var node graph.Node
		if err := c.Bind().JSON(&node); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		node.ID = c.Params("id")
		if _, ok := s.store.Snapshot().Node(node.ID); !ok {
			return c.Status(404).JSON(fiber.Map{"error": "node not found"})
		}
		s.store.UpdateNode(&node)
		return c.SendStatus(204)
	})

	app.Delete("/nodes/:id", func(c fiber.Ctx) error {
		s.store.RemoveNode(c.Params("id"))
		return c.SendStatus(204)
	})

	// Wires.
	app.Post("/wires", func(c fiber.Ctx) error {
		var req newWireRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		wire := &graph.Wire{
			ID:            graph.NewID(),
			FromNode:      req.FromNode,
			FromConnector: req.FromConnector,
			ToNode:        req.ToNode,
			ToConnector:   req.ToConnector,
		}
		if err := s.store.Connect(wire); err != nil {
			if errors.Is(err, graph.ErrConnectorInUse) {
				return c.Status(409).JSON(fiber.Map{"error": "output connector already wired"})
			}
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(wire)
	})

	app.Delete("/wires/:id", func(c fiber.Ctx) error {
		s.store.RemoveWire(c.Params("id"))
		return c.SendStatus(204)
	})

	// Selection.
	app.Put("/selection", func(c fiber.Ctx) error {
		var req selectionRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		s.store.SetSelectedNode(req.Node)
		return c.SendStatus(204)
	})

	// Execution.
	app.Post("/run", func(c fiber.Ctx) error {
		var req runRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		if _, ok := s.store.Snapshot().Node(req.Node); !ok {
			return c.Status(404).JSON(fiber.Map{"error": "node not found"})
		}
		// Fire and forget: progress is observable through node state,
		// aborted chains land in the log.
		go func() {
			if err := s.exec.Run(context.Background(), req.Node, req.Input); err != nil {
				log.Errorf("run from node %s aborted: %v", req.Node, err)
			}
		}()
		return c.Status(202).JSON(fiber.Map{"message": "run started"})
	})

	app.Put("/speed", func(c fiber.Ctx) error {
		var req speedRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		s.exec.SetSpeed(graph.ParseSpeed(req.Speed))
		return c.SendStatus(204)
	})

	// Snapshot import and export.
	app.Get("/export", func(c fiber.Ctx) error {
		data, err := s.store.Export()
		if err != nil {
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Send(data)
	})

	app.Post("/import", func(c fiber.Ctx) error {
		if err := s.store.Import(c.Body()); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		return c.SendStatus(204)
	})
}
