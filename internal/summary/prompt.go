// Package summary turns a statement table into an analysis prompt and asks
// a language model to answer it.
package summary

import (
	"fmt"
	"strings"

	"github.com/seenimoa/aifinanalyst/internal/statement"
)

const preamble = "You are an AI trained to provide financial analysis based on financial statements.\n\n" +
	"Please analyze the following data and provide insights for the %s of a company over the reported time periods.\n\n" +
	"Summarize each period’s data and then provide a concluding section that discusses trends, anomalies, and insights over time:\n\n"

// Paragraph renders one period of t as a labeled digest. Fields the row
// does not carry render as statement.NotAvailable.
func Paragraph(row statement.Row, typ statement.Type) string {
	kind := statement.MustKind(typ)

	var b strings.Builder
	fmt.Fprintf(&b, "For the period ending %s, the company reported the following key %s metrics:",
		row.Text(statement.DateField), typ.Lower())
	for _, f := range kind.Digest {
		fmt.Fprintf(&b, "\n- %s: %s", f.Label, row.Text(f.Key))
	}
	return b.String()
}

// Digest returns one paragraph per row of t, in row order.
func Digest(t *statement.Table, typ statement.Type) []string {
	out := make([]string, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		out = append(out, Paragraph(t.Rows[i], typ))
	}
	return out
}

// BuildPrompt assembles the full instruction: the fixed preamble naming the
// statement type, then the per-period paragraphs separated by blank lines.
// An empty table leaves the data section empty.
func BuildPrompt(t *statement.Table, typ statement.Type) string {
	return fmt.Sprintf(preamble, typ.Lower()) + strings.Join(Digest(t, typ), "\n\n")
}
