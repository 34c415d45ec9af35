package search

import "regexp"

// Static lookup tables for query expansion. Matching is case-sensitive for
// credit codes and case-insensitive for everything else.
var (
	// creditCodePattern matches category codes and credit ids such as "EA",
	// "EA-p2", "WE-c1". The prefix must be uppercase as written. IN and IP
	// are English words in upper-case text, so they only match with a suffix.
	creditCodePattern = regexp.MustCompile(`\b(?:(?:EA|WE|MR|EQ|SS|LT|RP)(?:-[A-Za-z]{0,2}\d+)?|(?:IN|IP)-[A-Za-z]{0,2}\d+)\b`)

	requirementsIntent  = []string{"requirement", "prerequisite"}
	thresholdsIntent    = []string{"threshold", "point", "score"}
	documentationIntent = []string{"documentation", "submittal", "evidence"}
)

const (
	ratingSystemSuffix = "LEED v4.1 BD+C"
	versionSuffix      = "LEED v4.1"
	maxCodeMatches     = 3
	maxCategoryMatches = 2
	maxTermMatches     = 3
	expansionsPerTerm  = 2
)

// categoryRule maps a category keyword to canonical reformulations.
type categoryRule struct {
	keyword string
	code    string
	phrases []string
}

// categoryRules is ordered; the first matches win when more than
// maxCategoryMatches keywords appear.
var categoryRules = []categoryRule{
	{"energy", "EA", []string{
		"EA Minimum Energy Performance requirements LEED v4.1 BD+C",
		"EA Optimize Energy Performance requirements thresholds",
		"energy performance prerequisite baseline ASHRAE Appendix G",
	}},
	{"water", "WE", []string{
		"WE water use reduction requirements LEED v4.1",
		"WE outdoor water use reduction thresholds",
	}},
	{"materials", "MR", []string{
		"MR building product disclosure requirements",
		"MR construction waste management requirements",
	}},
	{"indoor", "EQ", []string{
		"EQ minimum indoor air quality performance requirements",
		"EQ daylight and quality views thresholds",
	}},
	{"site", "SS", []string{
		"SS construction activity pollution prevention requirements",
		"SS rainwater management thresholds",
	}},
	{"location", "LT", []string{
		"LT access to quality transit requirements",
		"LT reduced parking footprint thresholds",
	}},
	{"innovation", "IN", []string{
		"IN innovation credit requirements",
	}},
	{"regional", "RP", []string{
		"RP regional priority credit requirements",
	}},
}

// termRule maps a domain term to a few expansions. Order matters: longer
// phrases come first so "energy efficiency" is tried before "energy".
type termRule struct {
	term       string
	expansions []string
}

var termRules = []termRule{
	{"energy efficiency", []string{
		"EA Minimum Energy Performance",
		"EA Optimize Energy Performance",
		"energy performance prerequisite baseline ASHRAE",
		"dual metric energy performance greenhouse gas emissions",
	}},
	{"energy", []string{
		"EA credit requirements",
		"energy performance ASHRAE 90.1",
		"energy efficiency optimization",
		"renewable energy credits",
	}},
	{"water", []string{
		"WE water use reduction",
		"WE outdoor water use reduction",
		"WE indoor water use reduction",
		"water efficiency fixtures",
	}},
	{"materials", []string{
		"MR building life-cycle impact reduction",
		"MR building product disclosure",
		"MR construction and demolition waste management",
		"MR environmental product declarations",
	}},
	{"requirements", []string{
		"prerequisite requirements",
		"credit requirements",
		"documentation requirements",
		"compliance requirements",
	}},
	{"efficiency", []string{
		"energy efficiency",
		"water efficiency",
		"resource efficiency",
		"operational efficiency",
	}},
}
