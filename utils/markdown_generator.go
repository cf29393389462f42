package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"

	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
	"github.com/meysamhadeli/repoaudit/constants/lipgloss"
	"github.com/meysamhadeli/repoaudit/report"
)

// ReportMarkdown renders a report as markdown.
func ReportMarkdown(r *report.AnalysisReport) string {
	var b strings.Builder

	b.WriteString("# Repository health\n\n")
	if r.Scored() {
		fmt.Fprintf(&b, "**Score:** %d/%d\n\n", r.HealthScore, report.MaxHealthScore)
	} else {
		b.WriteString("**Score:** unscored\n\n")
	}
	if !r.Complete {
		b.WriteString("> Partial report: the reply did not match the expected shape exactly.\n\n")
	}

	b.WriteString("## Summary\n\n")
	b.WriteString(r.Summary)
	b.WriteString("\n\n")

	if len(r.Roadmap) > 0 {
		b.WriteString("## Roadmap\n\n")
		for i, step := range r.Roadmap {
			fmt.Fprintf(&b, "%d. %s\n", i+1, step)
		}
		b.WriteString("\n")
	}

	if len(r.Findings) > 0 {
		b.WriteString("## Findings\n\n")
		for _, category := range slices.Sorted(maps.Keys(r.Findings)) {
			fmt.Fprintf(&b, "### %s\n\n", category)
			for _, finding := range r.Findings[category] {
				fmt.Fprintf(&b, "- %s\n", finding)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// RenderAndPrintMarkdown highlights markdown for the terminal.
func RenderAndPrintMarkdown(w io.Writer, content string, theme string) error {
	return quick.Highlight(w, content, "markdown", "terminal256", theme)
}

// RenderReport prints the highlighted report followed by its score line.
func RenderReport(w io.Writer, r *report.AnalysisReport, theme string) error {
	var buf bytes.Buffer
	if err := RenderAndPrintMarkdown(&buf, ReportMarkdown(r), theme); err != nil {
		return err
	}
	if _, err := io.Copy(w, &buf); err != nil {
		return err
	}

	score := "unscored"
	if r.Scored() {
		score = fmt.Sprintf("%d/%d", r.HealthScore, report.MaxHealthScore)
	}
	_, err := fmt.Fprintln(w, lipgloss.ScoreStyle(r.HealthScore).Render("Health score: "+score))
	return err
}

// RenderJSON writes v as indented, highlighted JSON. An empty theme writes
// plain JSON.
func RenderJSON(w io.Writer, v any, theme string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	if theme == "" {
		_, err = fmt.Fprintln(w, string(data))
		return err
	}
	return quick.Highlight(w, string(data)+"\n", "json", "terminal256", theme)
}

// CoverageBox summarises a manifest inside a bordered box.
func CoverageBox(m models.Manifest, estimatedTokens int) string {
	lines := []string{
		lipgloss.Info.Render("Coverage"),
		fmt.Sprintf("Included files:  %d", len(m.Included)),
		fmt.Sprintf("Truncated files: %d", len(m.Truncated)),
		fmt.Sprintf("Omitted files:   %d", len(m.Omitted)),
		fmt.Sprintf("Skipped paths:   %d", len(m.Skipped)),
		fmt.Sprintf("File warnings:   %d", len(m.Warnings)),
		fmt.Sprintf("Budget:          %d / %d chars (~%d prompt tokens)", m.Consumed, m.Budget, estimatedTokens),
	}
	if m.BudgetExhausted {
		lines = append(lines, lipgloss.Yellow.Render("Budget exhausted: later files were not sent"))
	}
	if m.FileLimitReached {
		lines = append(lines, lipgloss.Yellow.Render("File limit reached: later files were not sent"))
	}
	return lipgloss.BoxStyle.Render(strings.Join(lines, "\n"))
}
