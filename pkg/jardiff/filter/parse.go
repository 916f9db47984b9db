package filter

import (
	"fmt"
	"strings"

	"github.com/jamesainslie/jardiff/pkg/jardiff/types"
)

// ParseKinds parses a comma-separated list of kind names such as
// "size_diff,only_in_1". The aliases "only" and "content" expand to both
// only_in kinds and to size_diff plus content_diff.
func ParseKinds(s string) ([]types.Kind, error) {
	var kinds []types.Kind
	seen := make(map[types.Kind]bool)
	add := func(k types.Kind) {
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}

	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "":
			continue
		case "only":
			add(types.KindOnlyIn1)
			add(types.KindOnlyIn2)
		case "content":
			add(types.KindSizeDiff)
			add(types.KindContentDiff)
		default:
			k, err := types.ParseKind(part)
			if err != nil {
				return nil, fmt.Errorf("parsing kinds %q: %w", s, err)
			}
			add(k)
		}
	}
	return kinds, nil
}
