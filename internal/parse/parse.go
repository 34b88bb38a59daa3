//
// Tencent is pleased to support the open source community by making trpc-flow-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-flow-go is licensed under the Apache License Version 2.0.
//
//

// Package parse normalizes structured model output before it is
// propagated through the graph.
package parse

import (
	"encoding/json"

	"github.com/kaptinlin/jsonrepair"
)

// NormalizeJSON returns content unchanged when it is already valid JSON.
// Otherwise it attempts to repair the near-JSON text models sometimes
// emit in structured output mode (single quotes, trailing commas, code
// fences). When repair fails the original content is returned so the
// downstream node sees what the model actually said.
func NormalizeJSON(content string) string {
	if json.Valid([]byte(content)) {
		return content
	}
	repaired, err := jsonrepair.JSONRepair(content)
	if err != nil {
		return content
	}
	return repaired
}
