package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMemoryMetadata_DerivesCredits(t *testing.T) {
	// Given: chunks for two credits, one of them described explicitly
	chunks := []*Chunk{
		{ChunkID: "a", CreditID: "EA-p2", CreditCode: "EA", CreditName: "Minimum Energy Performance", DocType: DocTypePrerequisite},
		{ChunkID: "b", CreditID: "WE-c1", CreditCode: "WE", CreditName: "Outdoor Water Use Reduction", DocType: DocTypeCredit},
	}
	credits := []Credit{{CreditID: "WE-c1", Code: "WE", Name: "Outdoor Water Use Reduction", PointsMin: 1, PointsMax: 2}}

	// When: building the store
	m, err := NewMemoryMetadata(chunks, credits)
	require.NoError(t, err)

	// Then: explicit credits win and missing ones are derived from chunk labels
	all := m.Credits()
	require.Len(t, all, 2)
	assert.Equal(t, "EA-p2", all[0].CreditID)
	assert.Equal(t, "Minimum Energy Performance", all[0].Name)
	assert.Equal(t, 2, all[1].PointsMax)

	c, ok := m.GetChunk("b")
	require.True(t, ok)
	assert.Equal(t, "WE-c1", c.CreditID)
	assert.Equal(t, []DocType{DocTypeCredit, DocTypePrerequisite}, m.DocTypes())
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []*Chunk{chunks[0], chunks[1]}, m.Chunks())
}

func TestNewMemoryMetadata_RejectsDuplicateIDs(t *testing.T) {
	_, err := NewMemoryMetadata([]*Chunk{{ChunkID: "a"}, {ChunkID: "a"}}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate chunk_id")

	_, err = NewMemoryMetadata([]*Chunk{{}}, nil)
	assert.Error(t, err)
}
