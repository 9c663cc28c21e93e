package querygraql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codexkg/codex/internal/queryir"
)

func TestPlural(t *testing.T) {
	testCases := []struct {
		noun string
		want string
	}{
		{"Company", "Companies"},
		{"Product", "Products"},
		{"Boss", "Bosses"},
		{"Box", "Boxes"},
		{"Match", "Matches"},
		{"Day", "Days"},
		{"", ""},
	}
	for _, tc := range testCases {
		assert.Equal(t, tc.want, plural(tc.noun), "plural(%q)", tc.noun)
	}
}

func TestGenerateRuleStrings(t *testing.T) {
	rule := queryir.Rule{
		Name: "big_producer",
		Cond1: queryir.ConceptQuery{
			Concept: "Company",
			AttrConditions: []queryir.ConditionSpec{
				{Attribute: "employees", Operator: queryir.OpGreaterThan, Value: int64(1000)},
			},
		},
		Cond2: queryir.ConceptQuery{
			Concept: "Product",
			AttrConditions: []queryir.ConditionSpec{
				{Attribute: "name", Operator: queryir.OpContains, Value: "Pro"},
			},
		},
	}

	strs := GenerateRuleStrings(rule)

	assert.Equal(t,
		"Big Producer: if Companies that have a employees that greater than 1000"+
			" and Products that have a name that contains Pro, then they are big_producer related.",
		strs.Readable)
	assert.Contains(t, strs.Template, "REPLACE_Company_employees")
	assert.Contains(t, strs.Template, "REPLACE_Product_name")
	assert.NotContains(t, strs.Template, "1000")
}

func TestGenerateRuleStrings_Congruent(t *testing.T) {
	congruent := []queryir.ConditionSpec{
		{Attribute: "name", Operator: queryir.OpCongruent, Value: "true"},
	}
	rule := queryir.Rule{
		Name:  "same_name",
		Cond1: queryir.ConceptQuery{Concept: "Company", AttrConditions: congruent},
		Cond2: queryir.ConceptQuery{Concept: "Company", AttrConditions: congruent},
	}

	strs := GenerateRuleStrings(rule)
	assert.Contains(t, strs.Readable, "that have the same name")
	// Congruent conditions carry no literal, so no token either
	assert.NotContains(t, strs.Template, "REPLACE_")
}

func TestSubstituteExplanation(t *testing.T) {
	rule := queryir.Rule{
		Name: "big_producer",
		Cond1: queryir.ConceptQuery{
			Concept: "Company",
			AttrConditions: []queryir.ConditionSpec{
				{Attribute: "name", Operator: queryir.OpEquals, Value: "?"},
			},
		},
		Cond2: queryir.ConceptQuery{
			Concept: "Product",
			AttrConditions: []queryir.ConditionSpec{
				{Attribute: "name", Operator: queryir.OpEquals, Value: "?"},
			},
		},
	}
	strs := GenerateRuleStrings(rule)

	filled := SubstituteExplanation(strs.Template, map[string]map[string]any{
		"Company": {"name": "Google"},
		"Product": {"name": "Pixel"},
	})
	assert.Contains(t, filled, "Google")
	assert.Contains(t, filled, "Pixel")
	assert.NotContains(t, filled, "REPLACE_")
}
