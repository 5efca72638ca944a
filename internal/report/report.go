// Package report renders annotation result sets as Markdown and HTML for
// inclusion in lab notebooks and pipelines.
package report

import (
	"fmt"
	"strings"

	"behaviorkit/domain/stats"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Markdown renders a result set as a Markdown document: a header echoing
// the request, the comparison table, and a skip summary when any
// comparison was skipped.
func Markdown(rs *stats.ResultSet) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Annotation results\n\n")
	fmt.Fprintf(&b, "- Run: `%s`\n", rs.RunID)
	fmt.Fprintf(&b, "- Dataset: `%s`\n", rs.Fingerprint)
	fmt.Fprintf(&b, "- Test: %s (%s mode)\n", rs.Test, rs.Mode)
	if rs.Corrected() {
		fmt.Fprintf(&b, "- Correction: %s\n", rs.Correction)
	} else {
		fmt.Fprintf(&b, "- Correction: none\n")
	}
	fmt.Fprintf(&b, "- Alpha: %g\n", rs.Alpha)
	fmt.Fprintf(&b, "- Created: %s\n\n", rs.CreatedAt)

	writeComparisonTable(&b, rs)

	skips := rs.SkipCounts()
	if len(skips) > 0 {
		fmt.Fprintf(&b, "\n## Skipped comparisons\n\n")
		for _, code := range []stats.WarningCode{stats.WarningInsufficientData, stats.WarningHighMissing, stats.WarningLowVariance} {
			if n := skips[code]; n > 0 {
				fmt.Fprintf(&b, "- %s: %d\n", code, n)
			}
		}
	}

	return b.String()
}

func writeComparisonTable(b *strings.Builder, rs *stats.ResultSet) {
	corrected := rs.Corrected()
	if corrected {
		fmt.Fprintf(b, "| A | B | statistic | p | q | effect | n | label |\n")
		fmt.Fprintf(b, "|---|---|-----------|---|---|--------|---|-------|\n")
	} else {
		fmt.Fprintf(b, "| A | B | statistic | p | effect | n | label |\n")
		fmt.Fprintf(b, "|---|---|-----------|---|--------|---|-------|\n")
	}

	for _, cmp := range rs.Comparisons {
		if cmp.Skipped {
			// Label column carries the skip reason, the rest stay empty
			blanks := strings.Repeat("|  ", 4)
			if corrected {
				blanks = strings.Repeat("|  ", 5)
			}
			fmt.Fprintf(b, "| %s | %s %s| skipped (%s) |\n",
				cmp.GroupA, cmp.GroupB, blanks, cmp.SkipReason)
			continue
		}
		effect := fmt.Sprintf("%s = %.3f", cmp.EffectUnit, cmp.EffectSize)
		n := fmt.Sprintf("%d/%d", cmp.NA, cmp.NB)
		if corrected {
			fmt.Fprintf(b, "| %s | %s | %.4f | %.4g | %.4g | %s | %s | %s |\n",
				cmp.GroupA, cmp.GroupB, cmp.Statistic, cmp.PValue, cmp.QValue, effect, n, cmp.Label)
		} else {
			fmt.Fprintf(b, "| %s | %s | %.4f | %.4g | %s | %s | %s |\n",
				cmp.GroupA, cmp.GroupB, cmp.Statistic, cmp.PValue, effect, n, cmp.Label)
		}
	}
}

// HTML renders the Markdown report as a standalone HTML fragment
func HTML(rs *stats.ResultSet) []byte {
	md := Markdown(rs)

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.Render(doc, renderer)
}
