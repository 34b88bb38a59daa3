//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// flowd serves the flow graph API: graph store, execution engine and
// JSON snapshot endpoints, backed by OpenAI-compatible adapters.
package main

import (
	"context"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"trpc.group/trpc-go/trpc-flow-go/embedder"
	embopenai "trpc.group/trpc-go/trpc-flow-go/embedder/openai"
	"trpc.group/trpc-go/trpc-flow-go/graph"
	"trpc.group/trpc-go/trpc-flow-go/log"
	modelopenai "trpc.group/trpc-go/trpc-flow-go/model/openai"
	"trpc.group/trpc-go/trpc-flow-go/server"
	"trpc.group/trpc-go/trpc-flow-go/vectorstore"
	"trpc.group/trpc-go/trpc-flow-go/vectorstore/inmemory"
	"trpc.group/trpc-go/trpc-flow-go/vectorstore/pgvector"
)

func main() {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	if level := os.Getenv("LOG_LEVEL"); level != "" {
		log.SetLevel(level)
	}

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		log.Warnf("OPENAI_API_KEY is not set; llm and vectordb nodes will fail")
	}

	completer := modelopenai.New(
		modelopenai.WithAPIKey(apiKey),
		modelopenai.WithBaseURL(os.Getenv("OPENAI_BASE_URL")),
		modelopenai.WithModel(chatModel()),
	)
	var emb embedder.Embedder = embopenai.New(
		embopenai.WithAPIKey(apiKey),
		embopenai.WithBaseURL(os.Getenv("OPENAI_BASE_URL")),
	)

	store := graph.NewStore()
	exec := graph.NewExecutor(store,
		graph.WithModel(completer),
		graph.WithEmbedder(emb),
		graph.WithVectorStore(newVectorStore()),
		graph.WithSpeed(graph.ParseSpeed(os.Getenv("EXECUTION_SPEED"))),
	)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":3000"
	}
	log.Infof("flowd listening on %s", addr)
	if err := server.New(store, exec).Listen(addr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

func chatModel() string {
	if name := os.Getenv("FLOW_MODEL"); name != "" {
		return name
	}
	return modelopenai.DefaultModel
}

// newVectorStore picks pgvector when PG_DSN is set, in-memory otherwise.
func newVectorStore() vectorstore.Store {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		return inmemory.New()
	}
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("connect to postgres: %v", err)
	}
	return pgvector.New(pool)
}
