package mcp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Aman-CERP/leedrag/internal/search"
	"github.com/Aman-CERP/leedrag/internal/store"
)

func TestFormatSearchResponse(t *testing.T) {
	resp := sampleResponse("energy performance")
	out := &SearchRequirementsOutput{
		Query:      resp.Query,
		Generation: resp.Generation,
		Results:    resp.Results,
		Degraded:   resp.Degraded,
	}

	md := FormatSearchResponse(out)

	assert.Contains(t, md, `## Requirement evidence for "energy performance"`)
	assert.Contains(t, md, "Found 1 passage (snapshot g1)")
	assert.Contains(t, md, "### 1. EA-p2 Minimum Energy Performance (requirements)")
	assert.Contains(t, md, "bdc-v41.pdf, pp. 12-13")
	assert.Contains(t, md, "**Score:** 0.720")
	assert.Contains(t, md, "> Partial results: lexical backend timed out")
}

func TestFormatSearchResponse_Empty(t *testing.T) {
	md := FormatSearchResponse(&SearchRequirementsOutput{Query: "nothing", Results: []search.Result{}})
	assert.Equal(t, "No requirement evidence found for \"nothing\".\n", md)
}

func TestFormatSearchResponse_TruncatesText(t *testing.T) {
	long := strings.Repeat("a", maxExcerpt+50)
	md := FormatSearchResponse(&SearchRequirementsOutput{
		Query:   "q",
		Results: []search.Result{{Rank: 1, CreditID: "WE-c1", Text: long}},
	})
	assert.Contains(t, md, strings.Repeat("a", maxExcerpt)+"…")
	assert.NotContains(t, md, strings.Repeat("a", maxExcerpt+1))
}

func TestFormatCredits(t *testing.T) {
	md := FormatCredits([]store.Credit{
		{CreditID: "EA-p2", Name: "Minimum Energy Performance", Category: "Energy and Atmosphere"},
		{CreditID: "WE-c1", Name: "Outdoor Water Use Reduction", PointsMin: 1, PointsMax: 2},
		{CreditID: "MR-c2", Name: "Disclosure", PointsMin: 2, PointsMax: 2},
	})
	assert.Contains(t, md, "| EA-p2 | Minimum Energy Performance | Energy and Atmosphere | required |")
	assert.Contains(t, md, "| WE-c1 | Outdoor Water Use Reduction |  | 1-2 |")
	assert.Contains(t, md, "| MR-c2 | Disclosure |  | 2 |")

	assert.Equal(t, "No credits in the loaded snapshot.\n", FormatCredits(nil))
}

func TestPageRange(t *testing.T) {
	assert.Equal(t, "pages n/a", pageRange(0, 0))
	assert.Equal(t, "p. 4", pageRange(4, 4))
	assert.Equal(t, "pp. 4-6", pageRange(4, 6))
}
