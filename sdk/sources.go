package parley

import (
	"strings"

	"github.com/vasara-ai/parley/pkg/core/types"
)

// MergeSources appends incoming sources to existing, keeping URIs unique and
// preserving the order of first appearance. Sources with a blank URI are
// dropped. The inputs are not mutated.
func MergeSources(existing, incoming []types.Source) []types.Source {
	merged := make([]types.Source, 0, len(existing)+len(incoming))
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	add := func(src types.Source) {
		uri := strings.TrimSpace(src.URI)
		if uri == "" {
			return
		}
		if _, ok := seen[uri]; ok {
			return
		}
		seen[uri] = struct{}{}
		merged = append(merged, src)
	}
	for _, src := range existing {
		add(src)
	}
	for _, src := range incoming {
		add(src)
	}
	return merged
}
