package mcp

import (
	"fmt"
	"strings"

	"github.com/Aman-CERP/leedrag/internal/store"
)

// maxExcerpt bounds the passage text shown per result.
const maxExcerpt = 600

// FormatSearchResponse renders a search answer as markdown for the text
// content of a tool result.
func FormatSearchResponse(out *SearchRequirementsOutput) string {
	var sb strings.Builder

	if len(out.Results) == 0 {
		fmt.Fprintf(&sb, "No requirement evidence found for \"%s\".\n", out.Query)
	} else {
		fmt.Fprintf(&sb, "## Requirement evidence for \"%s\"\n\n", out.Query)
		fmt.Fprintf(&sb, "Found %d passage", len(out.Results))
		if len(out.Results) != 1 {
			sb.WriteString("s")
		}
		if out.Generation != "" {
			fmt.Fprintf(&sb, " (snapshot %s)", out.Generation)
		}
		sb.WriteString("\n\n")
	}

	for _, r := range out.Results {
		title := r.CreditID
		if r.CreditName != "" {
			title = fmt.Sprintf("%s %s", r.CreditID, r.CreditName)
		}
		fmt.Fprintf(&sb, "### %d. %s (%s)\n\n", r.Rank, strings.TrimSpace(title), r.Section)
		fmt.Fprintf(&sb, "**Source:** %s, %s | **Score:** %.3f | **Method:** %s\n\n",
			r.SourceDocument, pageRange(r.PageStart, r.PageEnd), r.FusedScore, r.RetrievalMethod)
		sb.WriteString(excerpt(r.Text))
		sb.WriteString("\n\n")
	}

	if len(out.Degraded) > 0 {
		sb.WriteString("> Partial results: ")
		notes := make([]string, 0, len(out.Degraded))
		for _, d := range out.Degraded {
			notes = append(notes, fmt.Sprintf("%s backend %s", d.Backend, d.Reason))
		}
		sb.WriteString(strings.Join(notes, "; "))
		sb.WriteString("\n")
	}
	return sb.String()
}

// FormatCredits renders the credit catalog as a markdown table.
func FormatCredits(credits []store.Credit) string {
	if len(credits) == 0 {
		return "No credits in the loaded snapshot.\n"
	}
	var sb strings.Builder
	sb.WriteString("| Credit | Name | Category | Points |\n|---|---|---|---|\n")
	for _, c := range credits {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n", c.CreditID, c.Name, c.Category, points(c))
	}
	return sb.String()
}

func pageRange(start, end int) string {
	switch {
	case start <= 0:
		return "pages n/a"
	case end <= start:
		return fmt.Sprintf("p. %d", start)
	default:
		return fmt.Sprintf("pp. %d-%d", start, end)
	}
}

func points(c store.Credit) string {
	switch {
	case c.PointsMax == 0:
		return "required"
	case c.PointsMin == c.PointsMax:
		return fmt.Sprintf("%d", c.PointsMax)
	default:
		return fmt.Sprintf("%d-%d", c.PointsMin, c.PointsMax)
	}
}

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	r := []rune(text)
	if len(r) <= maxExcerpt {
		return text
	}
	return strings.TrimSpace(string(r[:maxExcerpt])) + "…"
}
