package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractFirstObject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		ok    bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"surrounded by prose", `Sure! {"a":{"b":2}} Thanks`, `{"a":{"b":2}}`, true},
		{"brace inside string", `x {"a":"}{"} y`, `{"a":"}{"}`, true},
		{"escaped quote", `{"a":"say \"}\""}`, `{"a":"say \"}\""}`, true},
		{"first of two", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"unbalanced then balanced", `{ broken {"a":1}`, `{"a":1}`, true},
		{"prose braces before object", `Here is {the result}: {"health_score": 80, "summary": "x"}`, `{"health_score": 80, "summary": "x"}`, true},
		{"object nested in prose group", `{see {"a":1} above}`, `{"a":1}`, true},
		{"only prose braces", `use {curly} braces`, ``, false},
		{"no braces", `nothing here`, ``, false},
		{"never closed", `{"a": 1`, ``, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractFirstObject(tc.input)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}
