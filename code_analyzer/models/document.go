package models

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

// Record is one file's contribution to an aggregated document. Content is the
// full file, or a strict prefix of it when Truncated is set. Units counts the
// content's code points, Overhead the delimiter and separator code points the
// record adds to the serialized document.
type Record struct {
	RelativePath  string
	Content       string
	Truncated     bool
	Units         int
	Overhead      int
	OriginalUnits int
}

// Manifest describes how much of the repository made it into the document.
type Manifest struct {
	Budget           int       `json:"budget"`
	Consumed         int       `json:"consumed"`
	Included         []string  `json:"included"`
	Truncated        []string  `json:"truncated"`
	Omitted          []string  `json:"omitted"`
	Skipped          []Warning `json:"skipped"`
	Warnings         []Warning `json:"warnings"`
	BudgetExhausted  bool      `json:"budget_exhausted"`
	FileLimitReached bool      `json:"file_limit_reached"`
}

// Complete reports whether every selected file was included in full.
func (m Manifest) Complete() bool {
	return len(m.Truncated) == 0 && len(m.Omitted) == 0
}

// AggregatedDocument is the ordered, budget-bounded set of file records.
type AggregatedDocument struct {
	Records  []Record
	Manifest Manifest
}

// NewAggregatedDocument creates an empty document for the given budget.
func NewAggregatedDocument(budget int) *AggregatedDocument {
	return &AggregatedDocument{
		Manifest: Manifest{
			Budget:    budget,
			Included:  []string{},
			Truncated: []string{},
			Omitted:   []string{},
			Skipped:   []Warning{},
			Warnings:  []Warning{},
		},
	}
}

// Remaining returns the unused budget.
func (d *AggregatedDocument) Remaining() int {
	if d.Manifest.BudgetExhausted {
		return 0
	}
	if rest := d.Manifest.Budget - d.Manifest.Consumed; rest > 0 {
		return rest
	}
	return 0
}

// Add appends a file. Budget is charged for the serialized record, delimiters
// included, so Consumed always equals the length of Serialize in code points.
// A file that does not fit contributes its longest leading slice that does and
// exhausts the budget. When not even the delimiters and one character fit, the
// file is omitted and the budget is exhausted. Add returns false whenever the
// file was omitted.
func (d *AggregatedDocument) Add(relativePath, content string) bool {
	remaining := d.Remaining()
	if remaining == 0 {
		d.Omit(relativePath)
		return false
	}

	first := len(d.Records) == 0
	units := utf8.RuneCountInString(content)
	record := Record{
		RelativePath:  relativePath,
		Content:       content,
		Units:         units,
		OriginalUnits: units,
		Overhead:      FrameUnits(relativePath, false, first) + closingNewline(content),
	}

	if units+record.Overhead > remaining {
		slice, ok := fittingPrefix(content, units, remaining-FrameUnits(relativePath, true, first))
		if !ok {
			d.Omit(relativePath)
			d.Manifest.BudgetExhausted = true
			return false
		}
		record.Content = slice
		record.Units = utf8.RuneCountInString(slice)
		record.Overhead = FrameUnits(relativePath, true, first) + closingNewline(slice)
		record.Truncated = true
		d.Manifest.Truncated = append(d.Manifest.Truncated, relativePath)
	}

	d.Records = append(d.Records, record)
	d.Manifest.Included = append(d.Manifest.Included, relativePath)
	d.Manifest.Consumed += record.Units + record.Overhead
	if d.Manifest.Budget-d.Manifest.Consumed <= 0 || record.Truncated {
		d.Manifest.BudgetExhausted = true
	}
	return true
}

// fittingPrefix returns the longest non-empty strict prefix of content whose
// code points plus its closing newline fit in room.
func fittingPrefix(content string, units, room int) (string, bool) {
	for k := min(room, units-1); k >= 1; k-- {
		slice := TruncateRunes(content, k)
		if k+closingNewline(slice) <= room {
			return slice, true
		}
	}
	return "", false
}

func closingNewline(content string) int {
	if strings.HasSuffix(content, "\n") {
		return 0
	}
	return 1
}

// FrameUnits is the number of code points the delimiters of one record take,
// including the blank line separating it from the previous record. The
// newline closing unterminated content is not included.
func FrameUnits(relativePath string, truncated, first bool) int {
	header, footer := frame(relativePath, truncated)
	n := utf8.RuneCountInString(header) + utf8.RuneCountInString(footer)
	if !first {
		n++
	}
	return n
}

func frame(relativePath string, truncated bool) (string, string) {
	path := strconv.Quote(relativePath)
	header := "<<<FILE path=" + path + " truncated=" + strconv.FormatBool(truncated) + ">>>\n"
	footer := "<<<END FILE path=" + path + ">>>\n"
	return header, footer
}

// Omit records a selected file that was left out entirely.
func (d *AggregatedDocument) Omit(relativePath string) {
	d.Manifest.Omitted = append(d.Manifest.Omitted, relativePath)
}

// Skip records a selection warning.
func (d *AggregatedDocument) Skip(w Warning) {
	d.Manifest.Skipped = append(d.Manifest.Skipped, w)
}

// Warn records a problem with a file that was still included.
func (d *AggregatedDocument) Warn(w Warning) {
	d.Manifest.Warnings = append(d.Manifest.Warnings, w)
}

// Serialize renders the records with path-carrying delimiters, in order.
func (d *AggregatedDocument) Serialize() string {
	var b strings.Builder
	for i, record := range d.Records {
		if i > 0 {
			b.WriteString("\n")
		}
		header, footer := frame(record.RelativePath, record.Truncated)
		b.WriteString(header)
		b.WriteString(record.Content)
		if closingNewline(record.Content) == 1 {
			b.WriteString("\n")
		}
		b.WriteString(footer)
	}
	return b.String()
}

// TruncateRunes returns the first n code points of s. It never splits a
// multi-byte sequence.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
