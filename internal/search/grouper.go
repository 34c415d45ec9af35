package search

import (
	"sort"
)

// GroupByCredit partitions hits by credit id and keeps the best groups.
//
// A group's representative score is its highest fused score. The top
// topCredits groups are kept, ordered by representative score and then
// credit id. Inside a group, hits are ordered by section priority with ties
// kept in fused order, then truncated to maxPerCredit.
//
// hits must already be sorted by fused score.
func GroupByCredit(hits []Hit, topCredits, maxPerCredit int) []ResultGroup {
	if len(hits) == 0 || topCredits <= 0 || maxPerCredit <= 0 {
		return []ResultGroup{}
	}

	index := make(map[string]int)
	var groups []ResultGroup
	for _, h := range hits {
		id := h.Chunk.CreditID
		gi, ok := index[id]
		if !ok {
			gi = len(groups)
			index[id] = gi
			groups = append(groups, ResultGroup{CreditID: id, RepresentativeScore: h.Fused.FusedScore})
		}
		g := &groups[gi]
		g.Hits = append(g.Hits, h)
		if h.Fused.FusedScore > g.RepresentativeScore {
			g.RepresentativeScore = h.Fused.FusedScore
		}
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].RepresentativeScore != groups[j].RepresentativeScore {
			return groups[i].RepresentativeScore > groups[j].RepresentativeScore
		}
		return groups[i].CreditID < groups[j].CreditID
	})
	if len(groups) > topCredits {
		groups = groups[:topCredits]
	}

	for i := range groups {
		members := groups[i].Hits
		sort.SliceStable(members, func(a, b int) bool {
			return members[a].Chunk.Section.Priority() < members[b].Chunk.Section.Priority()
		})
		if len(members) > maxPerCredit {
			groups[i].Hits = members[:maxPerCredit]
		}
	}

	return groups
}

// FlattenGroups concatenates group hits, preserving group and intra-group order.
func FlattenGroups(groups []ResultGroup) []Hit {
	var n int
	for _, g := range groups {
		n += len(g.Hits)
	}
	out := make([]Hit, 0, n)
	for _, g := range groups {
		out = append(out, g.Hits...)
	}
	return out
}
