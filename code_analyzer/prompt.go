package code_analyzer

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/meysamhadeli/repoaudit/code_analyzer/models"
	"github.com/meysamhadeli/repoaudit/embed_data"
	"github.com/meysamhadeli/repoaudit/report"
)

// TemplateVersion is the current instruction template.
const TemplateVersion = "audit-v1"

var promptTemplates = map[string][]byte{
	"audit-v1": embed_data.AuditPromptV1,
}

// PromptAssembler renders an aggregated document into a prompt payload. It
// holds no mutable state and is safe for concurrent use.
type PromptAssembler struct {
	version string
	tmpl    *template.Template
	system  string
	schema  string
}

type promptData struct {
	Version   string
	MinScore  int
	MaxScore  int
	Included  int
	Truncated int
	Omitted   int
	Consumed  int
	Budget    int
	Schema    string
	Document  string
}

// NewPromptAssembler loads a versioned instruction template.
func NewPromptAssembler(version string) (*PromptAssembler, error) {
	if version == "" {
		version = TemplateVersion
	}
	source, ok := promptTemplates[version]
	if !ok {
		return nil, fmt.Errorf("unknown prompt template version %q", version)
	}

	tmpl, err := template.New(version).Option("missingkey=error").Parse(string(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt template %s: %w", version, err)
	}

	schema, err := report.ReplyJSONSchemaText()
	if err != nil {
		return nil, err
	}

	return &PromptAssembler{
		version: version,
		tmpl:    tmpl,
		system:  strings.TrimSpace(string(embed_data.SystemPrompt)),
		schema:  schema,
	}, nil
}

// Version returns the template version the assembler renders.
func (p *PromptAssembler) Version() string {
	return p.version
}

// Assemble is a pure function of the document and the template version.
func (p *PromptAssembler) Assemble(doc *models.AggregatedDocument) (models.PromptPayload, error) {
	if doc == nil {
		doc = models.NewAggregatedDocument(0)
	}

	data := promptData{
		Version:   p.version,
		MinScore:  report.MinHealthScore,
		MaxScore:  report.MaxHealthScore,
		Included:  len(doc.Manifest.Included),
		Truncated: len(doc.Manifest.Truncated),
		Omitted:   len(doc.Manifest.Omitted),
		Consumed:  doc.Manifest.Consumed,
		Budget:    doc.Manifest.Budget,
		Schema:    p.schema,
		Document:  doc.Serialize(),
	}

	var buffer bytes.Buffer
	if err := p.tmpl.Execute(&buffer, data); err != nil {
		return models.PromptPayload{}, fmt.Errorf("failed to render prompt template %s: %w", p.version, err)
	}

	return models.PromptPayload{
		Version: p.version,
		System:  p.system,
		User:    buffer.String(),
	}, nil
}
