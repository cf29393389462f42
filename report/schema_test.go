package report

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplyJSONSchema(t *testing.T) {
	text, err := ReplyJSONSchemaText()
	require.NoError(t, err)

	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(text), &schema))

	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.NotContains(t, schema, "$id")
	assert.ElementsMatch(t, []any{"health_score", "summary", "roadmap", "findings"}, schema["required"])

	properties := schema["properties"].(map[string]any)
	score := properties["health_score"].(map[string]any)
	assert.Equal(t, "integer", score["type"])
	assert.EqualValues(t, MinHealthScore, score["minimum"])
	assert.EqualValues(t, MaxHealthScore, score["maximum"])

	roadmap := properties["roadmap"].(map[string]any)
	assert.Equal(t, "array", roadmap["type"])
	assert.EqualValues(t, MaxRoadmapItems, roadmap["maxItems"])
}

func TestReplyJSONSchemaIsStable(t *testing.T) {
	first, err := ReplyJSONSchemaText()
	require.NoError(t, err)
	second, err := ReplyJSONSchemaText()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
