// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "sort"

// =============================================================================
// MODEL CATALOG
// =============================================================================

// ModelInfo describes one model artifact set the runtime can load.
type ModelInfo struct {
	// ID is the runtime model identifier passed to the engine adapter.
	ID string
	// Name is the user-facing display name.
	Name string
	// Tier is a rough capability label shown in pickers.
	Tier string
	// ApproxSizeGB is the artifact download size shown before warmup.
	ApproxSizeGB float64
}

// DefaultModelID is the model selected before any user choice.
const DefaultModelID = "Llama-3.1-8B-Instruct-q4f32_1-MLC"

// Catalog maps runtime model identifiers to their display metadata.
var Catalog = map[string]ModelInfo{
	"Llama-3.1-8B-Instruct-q4f32_1-MLC": {
		ID:           "Llama-3.1-8B-Instruct-q4f32_1-MLC",
		Name:         "SONIC 1 (Standard)",
		Tier:         "Standard",
		ApproxSizeGB: 4.6,
	},
	"Qwen2-7B-Instruct-q4f32_1-MLC": {
		ID:           "Qwen2-7B-Instruct-q4f32_1-MLC",
		Name:         "SONIC 2 (Pro)",
		Tier:         "Pro",
		ApproxSizeGB: 4.1,
	},
	"Mistral-7B-Instruct-v0.3-q4f32_1-MLC": {
		ID:           "Mistral-7B-Instruct-v0.3-q4f32_1-MLC",
		Name:         "SONIC 3 (Lite)",
		Tier:         "Lite",
		ApproxSizeGB: 3.9,
	},
}

// GetModelInfo looks up a catalog entry by runtime identifier.
func GetModelInfo(id string) (ModelInfo, bool) {
	info, ok := Catalog[id]
	return info, ok
}

// DisplayName returns the catalog display name for a model identifier, or
// the identifier itself for models outside the catalog.
func DisplayName(id string) string {
	if info, ok := Catalog[id]; ok {
		return info.Name
	}
	return id
}

// CatalogIDs returns all catalog model identifiers in stable order.
func CatalogIDs() []string {
	ids := make([]string, 0, len(Catalog))
	for id := range Catalog {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
