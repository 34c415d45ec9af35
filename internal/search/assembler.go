package search

// Assemble converts hits into result records, capped at limit.
// Every provenance field of the chunk is carried through.
func Assemble(hits []Hit, limit int) []Result {
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]Result, 0, len(hits))
	for i, h := range hits {
		c := h.Chunk
		results = append(results, Result{
			Rank:            i + 1,
			ChunkID:         c.ChunkID,
			CreditID:        c.CreditID,
			CreditCode:      c.CreditCode,
			CreditName:      c.CreditName,
			Section:         c.Section,
			DocType:         c.DocType,
			PageStart:       c.PageStart,
			PageEnd:         c.PageEnd,
			SourceDocument:  c.SourceDocument,
			FusedScore:      h.Fused.FusedScore,
			Components:      h.Fused.Components,
			RetrievalMethod: h.Fused.RetrievalMethod(),
			Text:            c.Text,
		})
	}
	return results
}
