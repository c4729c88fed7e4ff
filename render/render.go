// Package render produces human-readable output from score reports.
package render

import (
	"fmt"
	"strings"

	"github.com/cgs-engine/backend/analyzer"
	"github.com/cgs-engine/backend/engine"
)

// Markdown renders a report as a Markdown document
func Markdown(r *analyzer.Report) string {
	var b strings.Builder

	b.WriteString("# Citation Guarantee Score\n\n")
	fmt.Fprintf(&b, "**Score:** %d / 100\n", r.CompositeScore)
	fmt.Fprintf(&b, "**Risk:** %s (%s)\n", r.RiskBand.Label, r.RiskBand.Level)
	if r.Source != "" {
		fmt.Fprintf(&b, "**Source:** %s\n", r.Source)
	}
	if r.Language != "" {
		fmt.Fprintf(&b, "**Language:** %s\n", r.Language)
	}
	fmt.Fprintf(&b, "**Words:** %d\n\n", r.WordCount)

	b.WriteString("## Breakdown\n\n")
	b.WriteString("| Category | Score | Weight |\n|---|---|---|\n")
	for _, c := range engine.Categories {
		fmt.Fprintf(&b, "| %s | %d | %.0f%% |\n", c.Label(), r.Breakdown.Get(c), engine.Weight(c)*100)
	}
	b.WriteString("\n")

	b.WriteString("## Recommendations\n\n")
	if len(r.Recommendations) == 0 {
		b.WriteString("No recommendations. Every category scores 70 or more.\n\n")
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "- **[%s] %s:** %s (%s)\n", strings.ToUpper(string(rec.Priority)), rec.Label, rec.Action, rec.ImpactEstimate)
	}
	if len(r.Recommendations) > 0 {
		b.WriteString("\n")
	}

	if len(r.Explanation) > 0 {
		b.WriteString("## Checks\n\n")
		for _, exp := range r.Explanation {
			fmt.Fprintf(&b, "### %s (%d)\n\n", exp.Label, exp.Score)
			for _, chk := range exp.Checks {
				fmt.Fprintf(&b, "- %s %s: %d/%d\n", mark(chk.Points), chk.Name, chk.Points, chk.MaxPoints)
			}
			b.WriteString("\n")
		}
	}

	if r.ResultID != 0 {
		fmt.Fprintf(&b, "_Saved as result #%d._\n", r.ResultID)
	}
	return b.String()
}

// Text renders a compact plain-text summary
func Text(r *analyzer.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "CGS %d/100  %s\n", r.CompositeScore, r.RiskBand.Label)
	for _, c := range engine.Categories {
		fmt.Fprintf(&b, "  %-22s %3d\n", c.Label(), r.Breakdown.Get(c))
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(&b, "  [%s] %s: %s (%s)\n", rec.Priority, rec.Label, rec.Action, rec.ImpactEstimate)
	}
	for _, exp := range r.Explanation {
		fmt.Fprintf(&b, "  %s\n", exp.Label)
		for _, chk := range exp.Checks {
			fmt.Fprintf(&b, "    %s %-40s %2d/%d\n", mark(chk.Points), chk.Name, chk.Points, chk.MaxPoints)
		}
	}
	if r.ResultID != 0 {
		fmt.Fprintf(&b, "  saved as #%d\n", r.ResultID)
	}
	return b.String()
}

func mark(points int) string {
	if points > 0 {
		return "+"
	}
	return "-"
}
