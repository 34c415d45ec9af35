package search

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpand(t *testing.T) {
	tests := []struct {
		name  string
		query string
		max   int
		want  []string
	}{
		{
			name:  "no rule matches",
			query: "hello world",
			max:   6,
			want:  []string{"hello world"},
		},
		{
			name:  "category keyword",
			query: "water",
			max:   6,
			want: []string{
				"water",
				"WE water use reduction requirements LEED v4.1",
				"WE outdoor water use reduction thresholds",
				"WE water use reduction LEED v4.1 BD+C",
				"WE outdoor water use reduction LEED v4.1 BD+C",
				"water LEED v4.1 BD+C",
			},
		},
		{
			name:  "credit code with requirements intent",
			query: "EA-p2 requirements",
			max:   6,
			want: []string{
				"EA-p2 requirements",
				"EA-p2 prerequisite requirements LEED v4.1",
				"EA-p2 credit requirements LEED v4.1",
				"EA-p2 requirements prerequisite requirements",
				"EA-p2 requirements credit requirements",
				"EA-p2 requirements LEED v4.1 BD+C",
			},
		},
		{
			name:  "credit code without intent",
			query: "WE-c1",
			max:   6,
			want: []string{
				"WE-c1",
				"WE-c1 credit LEED v4.1 BD+C",
				"WE-c1 requirements thresholds",
				"WE-c1 LEED v4.1 BD+C",
			},
		},
		{
			name:  "mentions LEED so no suffix",
			query: "LEED thresholds",
			max:   6,
			want: []string{
				"LEED thresholds",
				"LEED thresholds thresholds points",
			},
		},
		{
			name:  "max one returns original only",
			query: "EA-p2 requirements",
			max:   1,
			want:  []string{"EA-p2 requirements"},
		},
		{
			name:  "cap truncates in order",
			query: "water",
			max:   2,
			want:  []string{"water", "WE water use reduction requirements LEED v4.1"},
		},
		{
			name:  "trims whitespace",
			query: "  hello  ",
			max:   6,
			want:  []string{"hello"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Expand(tt.query, tt.max))
		})
	}
}

func TestExpand_DefaultMax(t *testing.T) {
	got := Expand("energy efficiency requirements for water and materials", 0)

	assert.Len(t, got, DefaultMaxSubqueries)
	assert.Equal(t, "energy efficiency requirements for water and materials", got[0])
}

func TestExpand_Properties(t *testing.T) {
	queries := []string{
		"EA-p2", "energy", "water efficiency thresholds", "MR documentation evidence",
		"indoor site location innovation regional", "What is required for EQ-c1 and SS-c3 and LT-c2 and IN-c1?",
		"leed points", "", "x",
	}

	for _, q := range queries {
		for _, limit := range []int{1, 2, 3, 6, 10} {
			got := Expand(q, limit)

			// Then: original first, bounded, case-insensitively unique
			assert.NotEmpty(t, got)
			assert.LessOrEqual(t, len(got), limit)
			assert.Equal(t, strings.TrimSpace(q), got[0])
			seen := make(map[string]bool)
			for _, s := range got {
				key := strings.ToLower(s)
				assert.False(t, seen[key], "duplicate %q for %q", s, q)
				seen[key] = true
			}
			assert.Equal(t, got, Expand(q, limit), "deterministic")
		}
	}
}

func TestExtractFeatures_CreditCodes(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"credit ids", "EA-p2 and WE-c1", []string{"EA-p2", "WE-c1"}},
		{"bare category code", "WHAT IS REQUIRED IN EA", []string{"EA"}},
		{"bare IN and IP are words", "IP RIGHTS IN USE", nil},
		{"IN and IP with suffix", "IN-c1 IP-p1", []string{"IN-c1", "IP-p1"}},
		{"lower case is not a code", "ea-p2 in energy", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractFeatures(tt.query).codes)
		})
	}
}

func TestExpand_UpperCaseQueryHasNoINCode(t *testing.T) {
	got := Expand("WHAT IS REQUIRED IN EA", 6)

	for _, s := range got {
		assert.False(t, strings.HasPrefix(s, "IN "), s)
	}
}

func TestExpand_AtMostThreeCodes(t *testing.T) {
	got := Expand("EA-c1 WE-c2 MR-c3 EQ-c4", 20)

	var codeLines int
	for _, s := range got[1:] {
		if strings.HasSuffix(s, " credit "+ratingSystemSuffix) {
			codeLines++
		}
	}
	assert.Equal(t, 3, codeLines)
	assert.NotContains(t, got, "EQ-c4 credit LEED v4.1 BD+C")
}
