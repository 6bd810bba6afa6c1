package decision

import (
	"fmt"
	"strings"
)

// RenderMarkdown renders a Verdict as a Markdown section.
func RenderMarkdown(v *Verdict) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("## Verdict: %s\n\n", v.Status))

	sb.WriteString("| # | Check | Requirement | Actual | Result |\n")
	sb.WriteString("|---|-------|-------------|--------|--------|\n")
	passed := 0
	for i, c := range v.Checks {
		result := "PASS"
		if c.Pass {
			passed++
		} else {
			result = "FAIL"
		}
		sb.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, c.Name, c.Threshold, c.Actual, result))
	}
	sb.WriteString(fmt.Sprintf("\nChecks: %d/%d passed\n\n", passed, len(v.Checks)))

	if len(v.Warnings) > 0 {
		sb.WriteString("### Warnings\n\n")
		for _, w := range v.Warnings {
			sb.WriteString("- " + w + "\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
