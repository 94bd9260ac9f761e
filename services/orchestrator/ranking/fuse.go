// Copyright (C) 2025 Anindya Paul
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package ranking

import (
	"fmt"
	"sort"

	"github.com/Anindya-Paul07/Ayurveda/services/orchestrator/retrieval"
)

// Source tags on a fused recommendation.
const (
	SourceBase     = "base"
	SourcePersonal = "personal"
	SourceBoth     = "both"
)

// fusedEntry pairs a document with its running fusion score.
type fusedEntry struct {
	doc    retrieval.Document
	score  float64
	origin string
}

// fuse merges base and personal search results into one descending-scored
// list.
//
// # Description
//
// Base results score 1.0 - 0.1*rank. A personal result whose document id is
// already present adds weight * (1.0 - 0.1*rank) to the existing entry and
// tags it "both"; otherwise it joins as a new entry scored purely by the
// weighted decay, tagged "personal". Personalization can only add to
// relevance, never replace a strong base match: an item on both lists
// outranks a base-only item whenever the combined score says so.
//
// Identity is the best-effort document id; documents without one are
// treated as distinct, so near-duplicate content from id-less stores is not
// merged. The sort is stable, keeping insertion order for equal scores.
func fuse(base, personal []retrieval.Document, weight float64) []fusedEntry {
	index := make(map[string]int, len(base))
	entries := make([]fusedEntry, 0, len(base)+len(personal))

	for i, doc := range base {
		key := doc.ID()
		if key == "" {
			key = fmt.Sprintf("base#%d", i)
		}
		entry := fusedEntry{
			doc:    doc,
			score:  1.0 - 0.1*float64(i),
			origin: SourceBase,
		}
		if j, seen := index[key]; seen {
			entries[j] = entry
			continue
		}
		index[key] = len(entries)
		entries = append(entries, entry)
	}

	for i, doc := range personal {
		key := doc.ID()
		if key == "" {
			key = fmt.Sprintf("personal#%d", i)
		}
		boost := weight * (1.0 - 0.1*float64(i))
		if j, seen := index[key]; seen {
			entries[j].score += boost
			entries[j].origin = SourceBoth
			continue
		}
		index[key] = len(entries)
		entries = append(entries, fusedEntry{
			doc:    doc,
			score:  boost,
			origin: SourcePersonal,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].score > entries[j].score
	})
	return entries
}
