package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// snapshotExists returns an ExistsFunc over a fixed id set and a pointer to
// its call counter.
func snapshotExists(existing ...int64) (ExistsFunc, *int) {
	set := make(map[int64]struct{}, len(existing))
	for _, id := range existing {
		set[id] = struct{}{}
	}
	calls := 0
	fn := func(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
		calls++
		out := make(map[int64]struct{})
		for _, id := range ids {
			if _, ok := set[id]; ok {
				out[id] = struct{}{}
			}
		}
		return out, nil
	}
	return fn, &calls
}

func TestValidateRefsEmptyInput(t *testing.T) {
	exists, calls := snapshotExists(1, 2, 3)

	p, err := ValidateRefs(context.Background(), nil, exists)
	require.NoError(t, err)
	assert.Empty(t, p.Valid)
	assert.Empty(t, p.Invalid)
	assert.Equal(t, 0, *calls, "empty input must not hit the store")
}

func TestValidateRefsPartition(t *testing.T) {
	exists, calls := snapshotExists(10, 20)

	p, err := ValidateRefs(context.Background(), []int64{10, 999, 20, 404}, exists)
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 20}, p.Valid)
	assert.Equal(t, []int64{404, 999}, p.Invalid, "invalid ids are sorted")
	assert.Equal(t, 1, *calls, "exactly one batched lookup per call")
}

func TestValidateRefsCollapsesDuplicates(t *testing.T) {
	var got []int64
	exists := func(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
		got = ids
		return map[int64]struct{}{5: {}}, nil
	}

	p, err := ValidateRefs(context.Background(), []int64{5, 5, 7, 5, 7}, exists)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 7}, got)
	assert.Equal(t, []int64{5}, p.Valid)
	assert.Equal(t, []int64{7}, p.Invalid)
}

func TestValidateRefsIdempotent(t *testing.T) {
	exists, _ := snapshotExists(1, 3)
	ids := []int64{1, 2, 3, 4}

	first, err := ValidateRefs(context.Background(), ids, exists)
	require.NoError(t, err)
	second, err := ValidateRefs(context.Background(), ids, exists)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidateRefsLookupError(t *testing.T) {
	boom := errors.New("connection reset")
	exists := func(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
		return nil, boom
	}

	_, err := ValidateRefs(context.Background(), []int64{1}, exists)
	require.ErrorIs(t, err, boom)
}
