package search

import (
	"sort"
)

// Fuser combines ranked lists into one deterministic ranking.
//
// Stage 1 (intra-list weighting) min-max normalizes the dense and lexical
// lists of one sub-query and merges them as
//
//	hybrid = DenseWeight·norm(dense) + LexicalWeight·norm(lexical)
//
// A chunk seen by one backend only gets that side's term alone.
//
// Stage 2 (cross-list fusion) is reciprocal rank fusion:
//
//	score = Σ 1/(K + rank_i)
//
// over every list containing the chunk. Absence contributes nothing.
type Fuser struct {
	Method        FusionMethod
	DenseWeight   float64
	LexicalWeight float64
	K             int
}

// NewFuser creates a Fuser from search options.
func NewFuser(opts Options) *Fuser {
	k := opts.RRFK
	if k <= 0 {
		k = DefaultRRFConstant
	}
	return &Fuser{
		Method:        opts.FusionMethod,
		DenseWeight:   opts.DenseWeight,
		LexicalWeight: opts.LexicalWeight,
		K:             k,
	}
}

// Fuse combines all sub-query lists and returns results sorted best first.
//
// With FusionWeighted and a single sub-query, the fused score is the hybrid
// score. With FusionWeighted and several sub-queries, RRF runs over the
// per-sub-query hybrid lists. With FusionRRF, RRF runs over every
// sub-query × backend list directly.
func (f *Fuser) Fuse(lists []SubqueryLists) []*FusedResult {
	acc := make(map[string]*FusedResult)
	for _, sq := range lists {
		recordRaw(acc, sq.Dense, BackendDense)
		recordRaw(acc, sq.Lexical, BackendLexical)
	}
	if len(acc) == 0 {
		return []*FusedResult{}
	}

	switch f.Method {
	case FusionRRF:
		var ranked [][]RankedCandidate
		for _, sq := range lists {
			f.recordNorms(acc, sq)
			ranked = append(ranked, sq.Dense, sq.Lexical)
		}
		f.applyRRF(acc, ranked)

	default:
		hybrids := make([][]RankedCandidate, 0, len(lists))
		for _, sq := range lists {
			hybrids = append(hybrids, f.weigh(acc, sq))
		}
		if len(lists) == 1 {
			for _, c := range hybrids[0] {
				acc[c.ChunkID].FusedScore = c.RawScore
			}
		} else {
			f.applyRRF(acc, hybrids)
		}
	}

	results := make([]*FusedResult, 0, len(acc))
	for _, r := range acc {
		results = append(results, r)
	}
	sortFused(results)
	return results
}

// weigh runs stage 1 for one sub-query and returns the hybrid list, re-ranked.
func (f *Fuser) weigh(acc map[string]*FusedResult, sq SubqueryLists) []RankedCandidate {
	denseNorm := minMaxNormalize(sq.Dense)
	lexNorm := minMaxNormalize(sq.Lexical)
	f.recordNorms(acc, sq)

	denseRaw := make(map[string]float64, len(sq.Dense))
	for _, c := range sq.Dense {
		denseRaw[c.ChunkID] = c.RawScore
	}

	hybrid := make(map[string]float64, len(denseNorm)+len(lexNorm))
	for id, n := range denseNorm {
		hybrid[id] += f.DenseWeight * n
	}
	for id, n := range lexNorm {
		hybrid[id] += f.LexicalWeight * n
	}

	origin := ListOrigin{SubqueryIndex: sq.Index, Subquery: sq.Subquery, Backend: BackendHybrid}
	out := make([]RankedCandidate, 0, len(hybrid))
	for id, score := range hybrid {
		out = append(out, RankedCandidate{ChunkID: id, RawScore: score, Origin: origin})
		if score > acc[id].Components.Hybrid {
			acc[id].Components.Hybrid = score
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.RawScore != b.RawScore {
			return a.RawScore > b.RawScore
		}
		da, okA := denseRaw[a.ChunkID]
		db, okB := denseRaw[b.ChunkID]
		if okA != okB {
			return okA
		}
		if da != db {
			return da > db
		}
		return a.ChunkID < b.ChunkID
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}

// recordNorms keeps the best normalized score per backend for audit.
func (f *Fuser) recordNorms(acc map[string]*FusedResult, sq SubqueryLists) {
	for id, n := range minMaxNormalize(sq.Dense) {
		if n > acc[id].Components.DenseNorm {
			acc[id].Components.DenseNorm = n
		}
	}
	for id, n := range minMaxNormalize(sq.Lexical) {
		if n > acc[id].Components.LexicalNorm {
			acc[id].Components.LexicalNorm = n
		}
	}
}

// applyRRF sets FusedScore to the sum of reciprocal-rank contributions.
// Contributions are summed in origin order so the score does not depend on
// the order lists are supplied in.
func (f *Fuser) applyRRF(acc map[string]*FusedResult, lists [][]RankedCandidate) {
	for _, list := range lists {
		for _, c := range list {
			r := acc[c.ChunkID]
			r.Components.Contributions = append(r.Components.Contributions, Contribution{
				Origin: c.Origin,
				Rank:   c.Rank,
				Score:  RRFContribution(f.K, c.Rank),
			})
		}
	}

	for _, r := range acc {
		contribs := r.Components.Contributions
		sort.Slice(contribs, func(i, j int) bool {
			if contribs[i].Origin != contribs[j].Origin {
				return contribs[i].Origin.less(contribs[j].Origin)
			}
			return contribs[i].Rank < contribs[j].Rank
		})
		var sum float64
		for _, c := range contribs {
			sum += c.Score
		}
		r.FusedScore = sum
	}
}

// RRFContribution is one list's reciprocal-rank term for a 1-based rank.
func RRFContribution(k, rank int) float64 {
	return 1.0 / float64(k+rank)
}

// recordRaw creates accumulator entries and keeps the best raw score per backend.
func recordRaw(acc map[string]*FusedResult, list []RankedCandidate, backend Backend) {
	for _, c := range list {
		r, ok := acc[c.ChunkID]
		if !ok {
			r = &FusedResult{ChunkID: c.ChunkID}
			acc[c.ChunkID] = r
		}
		comp := &r.Components
		switch backend {
		case BackendDense:
			if !comp.HasDense || c.RawScore > comp.DenseRaw {
				comp.DenseRaw = c.RawScore
			}
			comp.HasDense = true
		case BackendLexical:
			if !comp.HasLexical || c.RawScore > comp.LexicalRaw {
				comp.LexicalRaw = c.RawScore
			}
			comp.HasLexical = true
		}
	}
}

// minMaxNormalize scales a list's raw scores to [0,1].
// A list with no spread (all scores equal, or a single hit) normalizes to 0,
// so a lone hit from one backend adds nothing to the hybrid score.
func minMaxNormalize(list []RankedCandidate) map[string]float64 {
	out := make(map[string]float64, len(list))
	if len(list) == 0 {
		return out
	}

	lo, hi := list[0].RawScore, list[0].RawScore
	for _, c := range list[1:] {
		lo = min(lo, c.RawScore)
		hi = max(hi, c.RawScore)
	}

	span := hi - lo
	for _, c := range list {
		if span == 0 {
			out[c.ChunkID] = 0
			continue
		}
		n := (c.RawScore - lo) / span
		if prev, seen := out[c.ChunkID]; !seen || n > prev {
			out[c.ChunkID] = n
		}
	}
	return out
}

// sortFused orders results by fused score, then raw dense similarity (a
// chunk with a dense score before one without), then chunk id.
func sortFused(results []*FusedResult) {
	sort.Slice(results, func(i, j int) bool {
		return fusedLess(results[i], results[j])
	})
}

func fusedLess(a, b *FusedResult) bool {
	if a.FusedScore != b.FusedScore {
		return a.FusedScore > b.FusedScore
	}
	if a.Components.HasDense != b.Components.HasDense {
		return a.Components.HasDense
	}
	if a.Components.DenseRaw != b.Components.DenseRaw {
		return a.Components.DenseRaw > b.Components.DenseRaw
	}
	return a.ChunkID < b.ChunkID
}
