package search

import (
	"strings"
)

// queryFeatures is what Expand detects in a query before synthesizing sub-queries.
type queryFeatures struct {
	codes            []string
	categories       []categoryRule
	terms            []termRule
	hasRequirements  bool
	hasThresholds    bool
	hasDocumentation bool
	mentionsLEED     bool
}

// Expand turns a query into an ordered list of sub-queries for retrieval.
//
// The original query is always first. Reformulations follow in a fixed
// order: credit-code phrasings (or, when no code is present, category
// phrasings), term expansions, intent-section phrasings, and finally a
// rating-system phrasing. Duplicates are removed case-insensitively and the
// list is capped at maxSubqueries (DefaultMaxSubqueries when <= 0).
// A query that matches no rule is returned alone.
func Expand(query string, maxSubqueries int) []string {
	if maxSubqueries <= 0 {
		maxSubqueries = DefaultMaxSubqueries
	}

	q := strings.TrimSpace(query)
	if q == "" || maxSubqueries == 1 {
		return []string{q}
	}

	f := extractFeatures(q)

	var generated []string
	generated = append(generated, codePhrasings(f)...)
	if len(f.codes) == 0 {
		generated = append(generated, categoryPhrasings(f)...)
	}
	generated = append(generated, termPhrasings(f)...)
	generated = append(generated, sectionPhrasings(q, f)...)

	if len(generated) > 0 && !f.mentionsLEED {
		generated = append(generated, q+" "+ratingSystemSuffix)
	}

	return dedupeQueries(append([]string{q}, generated...), maxSubqueries)
}

func extractFeatures(q string) queryFeatures {
	lower := strings.ToLower(q)
	f := queryFeatures{
		hasRequirements:  containsAny(lower, requirementsIntent),
		hasThresholds:    containsAny(lower, thresholdsIntent),
		hasDocumentation: containsAny(lower, documentationIntent),
		mentionsLEED:     strings.Contains(lower, "leed"),
	}

	seen := make(map[string]bool)
	for _, m := range creditCodePattern.FindAllString(q, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		f.codes = append(f.codes, m)
		if len(f.codes) == maxCodeMatches {
			break
		}
	}

	for _, rule := range categoryRules {
		if len(f.categories) == maxCategoryMatches {
			break
		}
		if strings.Contains(lower, rule.keyword) {
			f.categories = append(f.categories, rule)
		}
	}

	for _, rule := range termRules {
		if len(f.terms) == maxTermMatches {
			break
		}
		if strings.Contains(lower, rule.term) {
			f.terms = append(f.terms, rule)
		}
	}

	return f
}

func codePhrasings(f queryFeatures) []string {
	out := make([]string, 0, 2*len(f.codes))
	for _, code := range f.codes {
		if f.hasRequirements {
			out = append(out,
				code+" prerequisite requirements "+versionSuffix,
				code+" credit requirements "+versionSuffix)
		} else {
			out = append(out,
				code+" credit "+ratingSystemSuffix,
				code+" requirements thresholds")
		}
	}
	return out
}

func categoryPhrasings(f queryFeatures) []string {
	var out []string
	for _, c := range f.categories {
		out = append(out, c.phrases...)
	}
	return out
}

func termPhrasings(f queryFeatures) []string {
	var out []string
	for _, t := range f.terms {
		n := min(expansionsPerTerm, len(t.expansions))
		for _, exp := range t.expansions[:n] {
			switch {
			case !f.hasRequirements:
				out = append(out, exp+" "+ratingSystemSuffix)
			case !strings.Contains(strings.ToLower(exp), "requirement"):
				out = append(out, exp+" requirements "+versionSuffix)
			}
		}
	}
	return out
}

func sectionPhrasings(q string, f queryFeatures) []string {
	var out []string
	if f.hasRequirements {
		out = append(out, q+" prerequisite requirements", q+" credit requirements")
	}
	if f.hasThresholds {
		out = append(out, q+" thresholds points")
	}
	if f.hasDocumentation {
		out = append(out, q+" documentation submittals")
	}
	return out
}

// dedupeQueries removes case-insensitive duplicates, keeping first occurrences, and caps the list.
func dedupeQueries(queries []string, limit int) []string {
	seen := make(map[string]bool, len(queries))
	out := make([]string, 0, min(len(queries), limit))
	for _, q := range queries {
		key := strings.ToLower(strings.TrimSpace(q))
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
