// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package aggregate normalizes retrieved evidence into a single
// generation-ready context.
//
// Aggregate is a pure function: deterministic for a given input, no
// failure modes. It deduplicates evidence, assigns stable citation refs
// (L1, L2 for local, W1, W2 for web), and renders each side into a
// newline-joined text block the synthesizer embeds verbatim in its
// prompt. A side with no evidence renders as an empty block, never as
// placeholder text that could be mistaken for evidence.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/poiesic/sift/core"
)

const (
	// Character budget for each evidence block
	localBudget = 2000
	webBudget   = 2000

	excerptMaxChars = 400
)

// Aggregate merges local and web evidence into a normalized context.
// Input ordering is preserved; the adapters have already rank-sorted
// their results.
func Aggregate(localHits []core.LocalEvidence, webHits []core.WebEvidence) core.NormalizedContext {
	localSources := normalizeLocal(localHits)
	webSources := normalizeWeb(webHits)

	return core.NormalizedContext{
		LocalSources: localSources,
		WebSources:   webSources,
		LocalBlock:   renderLocalBlock(localSources),
		WebBlock:     renderWebBlock(webSources),
	}
}

// normalizeLocal deduplicates by chunk id, flattens excerpts, and
// assigns L-refs until the character budget runs out.
func normalizeLocal(hits []core.LocalEvidence) []core.LocalEvidence {
	seen := make(map[string]bool, len(hits))
	var sources []core.LocalEvidence
	budget := localBudget

	for _, hit := range hits {
		if seen[hit.ChunkId] {
			continue
		}
		if budget <= 0 {
			break
		}

		excerpt := hit.Excerpt
		if excerpt == "" {
			excerpt = hit.Text
		}
		excerpt = flatten(excerpt)

		normalized := hit
		normalized.Ref = fmt.Sprintf("L%d", len(sources)+1)
		normalized.Excerpt = excerpt

		sources = append(sources, normalized)
		seen[hit.ChunkId] = true
		budget -= len(excerpt)
	}

	return sources
}

// normalizeWeb deduplicates by URL, flattens snippets, and assigns
// W-refs until the character budget runs out. Hits without a URL are
// dropped; they cannot be cited.
func normalizeWeb(hits []core.WebEvidence) []core.WebEvidence {
	seen := make(map[string]bool, len(hits))
	var sources []core.WebEvidence
	budget := webBudget

	for _, hit := range hits {
		if hit.URL == "" || seen[hit.URL] {
			continue
		}

		normalized := hit
		normalized.Ref = fmt.Sprintf("W%d", len(sources)+1)
		normalized.Snippet = flatten(hit.Snippet)

		sources = append(sources, normalized)
		seen[hit.URL] = true
		budget -= len(normalized.Snippet)
		if budget <= 0 {
			break
		}
	}

	return sources
}

// renderLocalBlock renders local evidence as ref-anchored lines.
func renderLocalBlock(sources []core.LocalEvidence) string {
	if len(sources) == 0 {
		return ""
	}

	var lines []string
	remaining := localBudget
	for _, src := range sources {
		line := fmt.Sprintf("[%s] %s: %s", src.Ref, src.Section, src.Excerpt)
		if remaining-len(line) <= 0 {
			break
		}
		lines = append(lines, line)
		remaining -= len(line)
	}
	return strings.Join(lines, "\n")
}

// renderWebBlock renders web evidence as ref-anchored lines.
func renderWebBlock(sources []core.WebEvidence) string {
	if len(sources) == 0 {
		return ""
	}

	var lines []string
	remaining := webBudget
	for _, src := range sources {
		line := fmt.Sprintf("[%s] [%s] %s (%s): %s", src.Ref, src.Time, src.Title, src.URL, src.Snippet)
		if remaining-len(line) <= 0 {
			break
		}
		lines = append(lines, line)
		remaining -= len(line)
	}
	return strings.Join(lines, "\n")
}

// flatten trims text, collapses newlines, and caps length.
func flatten(text string) string {
	flattened := strings.ReplaceAll(strings.TrimSpace(text), "\n", " ")
	if len(flattened) <= excerptMaxChars {
		return flattened
	}
	runes := []rune(flattened)
	if len(runes) <= excerptMaxChars {
		return flattened
	}
	return string(runes[:excerptMaxChars])
}
