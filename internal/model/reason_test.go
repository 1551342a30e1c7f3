package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonCatalogComplete(t *testing.T) {
	seen := make(map[ReasonID]bool)
	for _, reason := range AllReasons {
		assert.False(t, seen[reason.ID], "duplicate reason id %s", reason.ID)
		seen[reason.ID] = true

		assert.NotEmpty(t, reason.Label.Primary)
		assert.NotEmpty(t, reason.Label.Secondary)
		assert.NotEmpty(t, reason.Guidance.Primary)
		assert.NotEmpty(t, reason.Guidance.Secondary)
	}

	found, ok := ReasonByID(ReasonDuplicate)
	require.True(t, ok)
	assert.Equal(t, Duplicate, found)

	_, ok = ReasonByID("no-such-reason")
	assert.False(t, ok)
}

func TestMissingReferenceGuidanceFormat(t *testing.T) {
	// Both languages name the same reference shape.
	assert.Contains(t, MissingReference.Guidance.Primary, "SACCO.IKIMINA(.MEMBER)")
	assert.Contains(t, MissingReference.Guidance.Secondary, "SACCO.IKIMINA(.MEMBER)")
}
