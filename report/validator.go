package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var leadingNumber = regexp.MustCompile(`[-+]?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?`)

// Validate turns raw model output into a report. A strict parse is tried
// first; on failure the first balanced JSON object is extracted and parsed
// once more. Schema problems are normalised and mark the report partial;
// only a missing, empty or non-scalar summary rejects it. Validate is pure: the same
// input always yields the same result.
func Validate(raw string) (*AnalysisReport, error) {
	fields, err := parseObject(strings.TrimSpace(raw))
	if err != nil {
		candidate, ok := ExtractFirstObject(raw)
		if !ok {
			return nil, &ReportError{Kind: ErrUnparseable, Raw: raw, Err: err}
		}
		if fields, err = parseObject(candidate); err != nil {
			return nil, &ReportError{Kind: ErrUnparseable, Raw: raw, Err: err}
		}
	}
	return normalize(fields, raw)
}

func parseObject(text string) (map[string]json.RawMessage, error) {
	decoder := json.NewDecoder(strings.NewReader(text))
	decoder.UseNumber()

	var fields map[string]json.RawMessage
	if err := decoder.Decode(&fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("reply is not a JSON object")
	}
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	return fields, nil
}

type normalizer struct {
	notes []string
}

func (n *normalizer) note(format string, args ...any) {
	n.notes = append(n.notes, fmt.Sprintf(format, args...))
}

func normalize(fields map[string]json.RawMessage, raw string) (*AnalysisReport, error) {
	var n normalizer

	summary, err := n.summary(fields)
	if err != nil {
		return nil, &ReportError{Kind: ErrInvalidSchema, Raw: raw, Err: err}
	}

	report := &AnalysisReport{
		HealthScore: n.healthScore(fields),
		Summary:     summary,
		Roadmap:     n.roadmap(fields),
		Findings:    n.findings(fields),
	}
	report.Notes = n.notes
	report.Complete = len(n.notes) == 0
	return report, nil
}

func (n *normalizer) summary(fields map[string]json.RawMessage) (string, error) {
	value, ok := fields["summary"]
	if !ok || isNull(value) {
		return "", errors.New("summary is missing")
	}

	var summary string
	if err := json.Unmarshal(value, &summary); err != nil {
		var number json.Number
		var flag bool
		switch {
		case unmarshalNumber(value, &number) == nil:
			summary = number.String()
		case json.Unmarshal(value, &flag) == nil:
			summary = strconv.FormatBool(flag)
		default:
			return "", errors.New("summary is not a string")
		}
		n.note("summary coerced from %s", bytes.TrimSpace(value))
	}

	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.New("summary is empty")
	}
	return summary, nil
}

func (n *normalizer) healthScore(fields map[string]json.RawMessage) int {
	value, ok := fields["health_score"]
	if !ok {
		if value, ok = fields["score"]; ok {
			n.note("health score read from alias field score")
		}
	}
	if !ok || isNull(value) {
		n.note("health_score is missing")
		return Unscored
	}

	var number json.Number
	if err := unmarshalNumber(value, &number); err == nil {
		f, err := number.Float64()
		if err != nil {
			n.note("health_score %s is not a finite number", number)
			return Unscored
		}
		if f != math.Trunc(f) {
			n.note("health_score %s rounded", number)
		}
		return n.clamp(f)
	}

	var text string
	if err := json.Unmarshal(value, &text); err == nil {
		match := leadingNumber.FindString(text)
		if match == "" {
			n.note("health_score %q is not numeric", text)
			return Unscored
		}
		f, err := strconv.ParseFloat(match, 64)
		if err != nil {
			n.note("health_score %q is not numeric", text)
			return Unscored
		}
		n.note("health_score coerced from string %q", text)
		return n.clamp(f)
	}

	n.note("health_score has unsupported type")
	return Unscored
}

func (n *normalizer) clamp(f float64) int {
	score := int(math.Round(f))
	switch {
	case f < MinHealthScore:
		n.note("health_score %v clamped to %d", f, MinHealthScore)
		return MinHealthScore
	case f > MaxHealthScore:
		n.note("health_score %v clamped to %d", f, MaxHealthScore)
		return MaxHealthScore
	}
	return score
}

func (n *normalizer) roadmap(fields map[string]json.RawMessage) []string {
	value, ok := fields["roadmap"]
	if !ok || isNull(value) {
		n.note("roadmap is missing")
		return []string{}
	}

	items := n.stringList("roadmap", value)
	if len(items) > MaxRoadmapItems {
		n.note("roadmap cut from %d to %d items", len(items), MaxRoadmapItems)
		items = items[:MaxRoadmapItems]
	}
	return items
}

func (n *normalizer) findings(fields map[string]json.RawMessage) map[string][]string {
	result := map[string][]string{}

	value, hasFindings := fields["findings"]
	details, hasDetails := fields["details"]
	if !hasFindings && !hasDetails {
		n.note("findings is missing")
		return result
	}

	if hasFindings && !isNull(value) {
		var categories map[string]json.RawMessage
		if err := json.Unmarshal(value, &categories); err != nil || categories == nil {
			n.note("findings is not an object")
		} else {
			keys := make([]string, 0, len(categories))
			for key := range categories {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				category := strings.TrimSpace(key)
				if category == "" {
					n.note("findings with empty category moved to %s", GeneralCategory)
					category = GeneralCategory
				}
				items := n.stringList("findings."+key, categories[key])
				result[category] = append(result[category], items...)
			}
		}
	} else if hasFindings {
		n.note("findings is null")
	}

	if hasDetails && !isNull(details) {
		n.note("details alias merged into findings.%s", GeneralCategory)
		result[GeneralCategory] = append(result[GeneralCategory], n.stringList("details", details)...)
	}

	return result
}

// stringList coerces a JSON value into a list of non-empty strings.
func (n *normalizer) stringList(field string, value json.RawMessage) []string {
	items := []string{}

	var list []json.RawMessage
	if err := json.Unmarshal(value, &list); err != nil {
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			n.note("%s is a string, not a list", field)
			if single = strings.TrimSpace(single); single != "" {
				items = append(items, single)
			}
			return items
		}
		n.note("%s is not a list", field)
		return items
	}

	for i, element := range list {
		var text string
		if err := json.Unmarshal(element, &text); err == nil {
			if text = strings.TrimSpace(text); text != "" {
				items = append(items, text)
			} else {
				n.note("%s[%d] is empty", field, i)
			}
			continue
		}

		var number json.Number
		if err := unmarshalNumber(element, &number); err == nil {
			n.note("%s[%d] is a number", field, i)
			items = append(items, number.String())
			continue
		}

		n.note("%s[%d] dropped: not a string", field, i)
	}
	return items
}

func unmarshalNumber(value json.RawMessage, number *json.Number) error {
	decoder := json.NewDecoder(bytes.NewReader(value))
	decoder.UseNumber()
	var v any
	if err := decoder.Decode(&v); err != nil {
		return err
	}
	n, ok := v.(json.Number)
	if !ok {
		return errors.New("not a number")
	}
	*number = n
	return nil
}

func isNull(value json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(value), []byte("null"))
}
