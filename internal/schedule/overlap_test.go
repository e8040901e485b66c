package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOverlaps(t *testing.T) {
	testCases := []struct {
		name   string
		aStart int
		aEnd   int
		bStart int
		bEnd   int
		want   bool
	}{
		{"touching endpoints", 9, 11, 11, 13, false},
		{"partial overlap", 9, 11, 10, 12, true},
		{"contained", 9, 17, 10, 11, true},
		{"identical", 9, 11, 9, 11, true},
		{"disjoint", 9, 10, 14, 16, false},
		{"touching at start", 11, 13, 9, 11, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Overlaps(at(tc.aStart), at(tc.aEnd), at(tc.bStart), at(tc.bEnd))
			assert.Equal(t, tc.want, got)

			// Symmetry
			assert.Equal(t, got, Overlaps(at(tc.bStart), at(tc.bEnd), at(tc.aStart), at(tc.aEnd)))
		})
	}
}
