package internaldefs

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterDefsAreUnique(t *testing.T) {
	names := make(map[string]bool, len(CounterDefs))
	ids := make(map[uint16]bool, len(CounterDefs))
	for _, def := range CounterDefs {
		assert.True(t, strings.HasPrefix(def.Name, "authclient_"), def.Name)
		assert.True(t, strings.HasSuffix(def.Name, "_total"), def.Name)
		assert.False(t, names[def.Name], "duplicate name %s", def.Name)
		assert.False(t, ids[uint16(def.ID)], "duplicate id for %s", def.Name)
		names[def.Name] = true
		ids[uint16(def.ID)] = true
	}
}

func TestBucketHelpers(t *testing.T) {
	require.Len(t, HistogramBoundSuffix, len(HistogramBounds))

	normalized := NormalizeBuckets([]uint64{1, 2, 3})
	assert.Equal(t, [8]uint64{1, 2, 3}, normalized)
	assert.Equal(t, [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}, CumulativeBuckets(normalized))

	long := NormalizeBuckets([]uint64{1, 1, 1, 1, 1, 1, 1, 1, 9})
	assert.Equal(t, uint64(1), long[7])
}
