package store

import (
	"fmt"
	"sort"
)

// MetadataStore resolves chunk ids to chunk records and lists credits.
type MetadataStore interface {
	GetChunk(id string) (*Chunk, bool)
	Credits() []Credit
	Credit(id string) (Credit, bool)
	DocTypes() []DocType
	Len() int
}

// MemoryMetadata is an immutable in-memory MetadataStore.
type MemoryMetadata struct {
	chunks  map[string]*Chunk
	order   []string
	credits map[string]Credit
}

var _ MetadataStore = (*MemoryMetadata)(nil)

// NewMemoryMetadata indexes chunks by id. Credits missing from the credits
// list are derived from chunk labels. Duplicate chunk ids are rejected.
func NewMemoryMetadata(chunks []*Chunk, credits []Credit) (*MemoryMetadata, error) {
	m := &MemoryMetadata{
		chunks:  make(map[string]*Chunk, len(chunks)),
		order:   make([]string, 0, len(chunks)),
		credits: make(map[string]Credit, len(credits)),
	}

	for _, c := range chunks {
		if c.ChunkID == "" {
			return nil, fmt.Errorf("chunk with empty chunk_id")
		}
		if _, dup := m.chunks[c.ChunkID]; dup {
			return nil, fmt.Errorf("duplicate chunk_id %q", c.ChunkID)
		}
		m.chunks[c.ChunkID] = c
		m.order = append(m.order, c.ChunkID)
	}

	for _, cr := range credits {
		if cr.CreditID != "" {
			m.credits[cr.CreditID] = cr
		}
	}
	for _, id := range m.order {
		c := m.chunks[id]
		if c.CreditID == "" {
			continue
		}
		if _, ok := m.credits[c.CreditID]; !ok {
			m.credits[c.CreditID] = Credit{
				CreditID: c.CreditID,
				Code:     c.CreditCode,
				Name:     c.CreditName,
				Category: c.Category,
			}
		}
	}

	return m, nil
}

// GetChunk returns the chunk with the given id.
func (m *MemoryMetadata) GetChunk(id string) (*Chunk, bool) {
	c, ok := m.chunks[id]
	return c, ok
}

// Chunks returns all chunks in load order.
func (m *MemoryMetadata) Chunks() []*Chunk {
	out := make([]*Chunk, len(m.order))
	for i, id := range m.order {
		out[i] = m.chunks[id]
	}
	return out
}

// Credits returns all credits ordered by credit id.
func (m *MemoryMetadata) Credits() []Credit {
	out := make([]Credit, 0, len(m.credits))
	for _, c := range m.credits {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreditID < out[j].CreditID })
	return out
}

// Credit returns the credit with the given id.
func (m *MemoryMetadata) Credit(id string) (Credit, bool) {
	c, ok := m.credits[id]
	return c, ok
}

// DocTypes returns the distinct document types present, sorted.
func (m *MemoryMetadata) DocTypes() []DocType {
	seen := make(map[DocType]struct{})
	for _, c := range m.chunks {
		seen[c.DocType] = struct{}{}
	}
	out := make([]DocType, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of chunks.
func (m *MemoryMetadata) Len() int {
	return len(m.chunks)
}
