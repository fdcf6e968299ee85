package qdrantDB

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSegmentPointID_Deterministic(t *testing.T) {
	first := SegmentPointID("171234-doc.pdf", 7)
	second := SegmentPointID("171234-doc.pdf", 7)

	assert.Equal(t, first, second, "the same logical segment must always map to the same point")

	_, err := uuid.Parse(first)
	assert.NoError(t, err, "point IDs must be valid UUIDs")
}

func TestSegmentPointID_DistinctSegments(t *testing.T) {
	base := SegmentPointID("171234-doc.pdf", 0)

	assert.NotEqual(t, base, SegmentPointID("171234-doc.pdf", 1), "neighboring segments must get distinct points")
	assert.NotEqual(t, base, SegmentPointID("999999-doc.pdf", 0), "same index in another document must get a distinct point")

	//the separator keeps (name, index) pairs unambiguous
	assert.NotEqual(t, SegmentPointID("doc1", 23), SegmentPointID("doc12", 3))
}
