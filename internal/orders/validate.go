package orders

import (
	"context"
	"sort"
)

// ExistsFunc answers a batched existence lookup: which of the given ids are
// present in the store.
type ExistsFunc func(ctx context.Context, ids []int64) (map[int64]struct{}, error)

type Partition struct {
	Valid   []int64
	Invalid []int64
}

// ValidateRefs partitions candidate foreign keys into valid and invalid sets
// using exactly one batched lookup, never one query per id. Duplicates are
// collapsed, Valid keeps first-seen order, Invalid is sorted for stable
// reporting. An empty input yields two empty sets without touching the store.
func ValidateRefs(ctx context.Context, ids []int64, exists ExistsFunc) (Partition, error) {
	if len(ids) == 0 {
		return Partition{}, nil
	}

	seen := make(map[int64]struct{}, len(ids))
	uniq := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		uniq = append(uniq, id)
	}

	existing, err := exists(ctx, uniq)
	if err != nil {
		return Partition{}, err
	}

	var p Partition
	for _, id := range uniq {
		if _, ok := existing[id]; ok {
			p.Valid = append(p.Valid, id)
		} else {
			p.Invalid = append(p.Invalid, id)
		}
	}
	sort.Slice(p.Invalid, func(i, j int) bool { return p.Invalid[i] < p.Invalid[j] })
	return p, nil
}
