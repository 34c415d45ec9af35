package output

import (
	"fmt"
	"strings"
	"time"

	"github.com/Aman-CERP/leedrag/internal/search"
	"github.com/Aman-CERP/leedrag/internal/store"
)

// RenderOptions controls how much of a response is shown.
type RenderOptions struct {
	// Verbose adds sub-queries, component scores and RRF contributions.
	Verbose bool
	// MaxText truncates passage text. Zero means 400 runes; negative disables.
	MaxText int
}

// Response prints a search response.
func (w *Writer) Response(resp *search.Response, opts RenderOptions) {
	s := w.styles
	if resp == nil {
		return
	}

	header := fmt.Sprintf("%d result", len(resp.Results))
	if len(resp.Results) != 1 {
		header += "s"
	}
	header += fmt.Sprintf(" for %q", resp.Query)
	_, _ = fmt.Fprintln(w.out, s.Header.Render(header))

	meta := []string{"took " + resp.Took.Round(time.Millisecond).String()}
	if resp.Generation != "" {
		meta = append(meta, "snapshot "+resp.Generation)
	}
	if resp.RequestID != "" {
		meta = append(meta, "request "+resp.RequestID)
	}
	_, _ = fmt.Fprintln(w.out, s.Dim.Render(strings.Join(meta, " · ")))

	if opts.Verbose && len(resp.Subqueries) > 0 {
		_, _ = fmt.Fprintln(w.out, s.Label.Render("sub-queries:"))
		for i, q := range resp.Subqueries {
			_, _ = fmt.Fprintf(w.out, "  %d. %s\n", i+1, q)
		}
	}

	for _, d := range resp.Degraded {
		msg := fmt.Sprintf("%s backend degraded (%s): %s", d.Backend, d.Code, d.Reason)
		if d.Subquery != "" {
			msg += fmt.Sprintf(" [%s]", d.Subquery)
		}
		w.Warning(msg)
	}

	if len(resp.Results) == 0 {
		_, _ = fmt.Fprintln(w.out)
		w.Status("", "No requirement evidence found.")
		return
	}

	for _, r := range resp.Results {
		_, _ = fmt.Fprintln(w.out)
		w.result(r, opts)
	}
}

func (w *Writer) result(r search.Result, opts RenderOptions) {
	s := w.styles

	title := r.CreditID
	if title == "" {
		title = "(no credit)"
	}
	if r.CreditName != "" {
		title += " " + r.CreditName
	}
	_, _ = fmt.Fprintf(w.out, "%2d. %s  %s  %s\n",
		r.Rank,
		s.Credit.Render(title),
		s.Section.Render(string(r.Section)),
		s.Score.Render(fmt.Sprintf("%.4f", r.FusedScore)))

	_, _ = fmt.Fprintf(w.out, "    %s %s  %s %s  %s %s\n",
		s.Label.Render("source:"), sourceLine(r),
		s.Label.Render("type:"), r.DocType,
		s.Label.Render("via:"), r.RetrievalMethod)

	if opts.Verbose {
		c := r.Components
		parts := []string{}
		if c.HasDense {
			parts = append(parts, fmt.Sprintf("dense=%.4f (norm %.3f)", c.DenseRaw, c.DenseNorm))
		}
		if c.HasLexical {
			parts = append(parts, fmt.Sprintf("lexical=%.4f (norm %.3f)", c.LexicalRaw, c.LexicalNorm))
		}
		if c.Hybrid != 0 {
			parts = append(parts, fmt.Sprintf("hybrid=%.4f", c.Hybrid))
		}
		if len(parts) > 0 {
			_, _ = fmt.Fprintf(w.out, "    %s %s\n", s.Label.Render("scores:"), strings.Join(parts, ", "))
		}
		for _, ct := range c.Contributions {
			_, _ = fmt.Fprintf(w.out, "    %s\n", s.Dim.Render(fmt.Sprintf("rrf  q%d/%s rank %d → %.5f",
				ct.Origin.SubqueryIndex, ct.Origin.Backend, ct.Rank, ct.Score)))
		}
	}

	if text := truncate(r.Text, opts.MaxText); text != "" {
		for _, line := range strings.Split(text, "\n") {
			_, _ = fmt.Fprintf(w.out, "    %s\n", line)
		}
	}
}

func sourceLine(r search.Result) string {
	src := r.SourceDocument
	if src == "" {
		src = "unknown"
	}
	switch {
	case r.PageStart <= 0:
		return src
	case r.PageEnd <= r.PageStart:
		return fmt.Sprintf("%s p.%d", src, r.PageStart)
	default:
		return fmt.Sprintf("%s pp.%d-%d", src, r.PageStart, r.PageEnd)
	}
}

func truncate(text string, limit int) string {
	text = strings.TrimSpace(text)
	if limit == 0 {
		limit = 400
	}
	if limit < 0 {
		return text
	}
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return strings.TrimSpace(string(r[:limit])) + "…"
}

// Credits prints the credit catalog.
func (w *Writer) Credits(credits []store.Credit) {
	s := w.styles
	if len(credits) == 0 {
		w.Status("", "No credits in the loaded snapshot.")
		return
	}

	idWidth := len("CREDIT")
	for _, c := range credits {
		idWidth = max(idWidth, len(c.CreditID))
	}

	_, _ = fmt.Fprintln(w.out, s.Header.Render(fmt.Sprintf("%-*s  %-7s  %s", idWidth, "CREDIT", "POINTS", "NAME")))
	for _, c := range credits {
		name := c.Name
		if c.Category != "" {
			name += " " + s.Dim.Render("("+c.Category+")")
		}
		_, _ = fmt.Fprintf(w.out, "%s  %-7s  %s\n",
			s.Credit.Render(fmt.Sprintf("%-*s", idWidth, c.CreditID)), pointsLabel(c), name)
	}
}

func pointsLabel(c store.Credit) string {
	switch {
	case c.PointsMax == 0:
		return "req"
	case c.PointsMin == c.PointsMax:
		return fmt.Sprintf("%d", c.PointsMax)
	default:
		return fmt.Sprintf("%d-%d", c.PointsMin, c.PointsMax)
	}
}

// SnapshotStatus prints the engine status block.
func (w *Writer) SnapshotStatus(st search.Status, dir string) {
	s := w.styles
	row := func(label, value string) {
		_, _ = fmt.Fprintf(w.out, "  %s %s\n", s.Label.Render(fmt.Sprintf("%-16s", label)), value)
	}

	_, _ = fmt.Fprintln(w.out, s.Header.Render("Snapshot"))
	if dir != "" {
		row("directory", dir)
	}
	if st.Generation == "" {
		row("generation", s.Warning.Render("not loaded"))
		return
	}
	row("generation", st.Generation)
	row("loaded at", st.LoadedAt.Local().Format(time.DateTime))
	row("chunks", fmt.Sprintf("%d", st.Chunks))
	row("credits", fmt.Sprintf("%d", st.Credits))

	types := make([]string, len(st.DocTypes))
	for i, d := range st.DocTypes {
		types[i] = string(d)
	}
	row("doc types", strings.Join(types, ", "))
	row("dense", readiness(s, st.DenseBackend, st.DenseReady))
	row("lexical", readiness(s, st.LexicalBackend, st.LexicalReady))
	if st.EmbeddingModel != "" {
		row("embedding model", st.EmbeddingModel)
	}
}

func readiness(s Styles, backend string, ready bool) string {
	if backend == "" {
		backend = "none"
	}
	if ready {
		return backend + " " + s.Success.Render("ready")
	}
	return backend + " " + s.Warning.Render("unavailable")
}
