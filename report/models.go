package report

const (
	MinHealthScore = 0
	MaxHealthScore = 100

	// Unscored marks a report whose health score could not be recovered.
	Unscored = -1

	MaxRoadmapItems = 5

	// GeneralCategory collects findings that arrive without a category.
	GeneralCategory = "general"
)

// AnalysisReport is the normalised audit result returned to callers.
type AnalysisReport struct {
	HealthScore int                 `json:"health_score"`
	Summary     string              `json:"summary"`
	Roadmap     []string            `json:"roadmap"`
	Findings    map[string][]string `json:"findings"`
	Complete    bool                `json:"complete"`

	// Notes lists what normalisation changed. Empty for complete reports.
	Notes []string `json:"-"`
}

// Scored reports whether the health score is a real value.
func (r *AnalysisReport) Scored() bool {
	return r.HealthScore != Unscored
}

// ReplySchema is the exact reply shape requested from the model.
type ReplySchema struct {
	HealthScore int                 `json:"health_score" jsonschema:"minimum=0,maximum=100" jsonschema_description:"Overall repository health from 0 (critical) to 100 (excellent)"`
	Summary     string              `json:"summary" jsonschema:"minLength=1" jsonschema_description:"Three sentence executive summary"`
	Roadmap     []string            `json:"roadmap" jsonschema:"minItems=3,maxItems=5" jsonschema_description:"Prioritised improvement steps"`
	Findings    map[string][]string `json:"findings" jsonschema_description:"Findings per audit dimension: code_quality and security and maintainability"`
}
