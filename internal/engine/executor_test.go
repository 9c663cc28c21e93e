package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codexkg/codex/internal/engine"
	"github.com/codexkg/codex/internal/engine/enginetest"
	"github.com/codexkg/codex/internal/querygraql"
	"github.com/codexkg/codex/internal/queryir"
	"github.com/codexkg/codex/internal/results"
	"github.com/codexkg/codex/internal/schema"
)

func techRegistry(t *testing.T) *schema.Registry {
	t.Helper()
	reg := schema.NewRegistry("tech_example")
	require.NoError(t, reg.DefineEntity("Company", "name", map[string]schema.AttrType{
		"name":      schema.TypeString,
		"employees": schema.TypeLong,
	}))
	require.NoError(t, reg.DefineEntity("Product", "name", map[string]schema.AttrType{
		"name": schema.TypeString,
	}))
	require.NoError(t, reg.DefineRelationship("Productize",
		"produces", "Company", "produced", "Product", nil))
	return reg
}

func TestRun_Find(t *testing.T) {
	reg := techRegistry(t)
	fake := enginetest.New()
	fake.Answers[`match $Company isa Company, has name "Google"; get;`] = []results.Answer{
		{"Company": results.Concept{TypeLabel: "Company", Attributes: map[string]any{"name": "Google"}}},
	}

	exec := engine.NewExecutor(fake, zap.NewNop())
	result, err := exec.Run(reg, queryir.Find{Concepts: []queryir.ConceptQuery{{
		Concept: "Company",
		Kind:    queryir.KindEntity,
		AttrConditions: []queryir.ConditionSpec{
			{Attribute: "name", Operator: queryir.OpEquals, Value: "Google"},
		},
	}}})
	require.NoError(t, err)
	require.False(t, result.Failed())

	require.Len(t, result.Find["Company"], 1)
	assert.Equal(t, "Google", result.Find["Company"][0]["name"])
	assert.Contains(t, result.QueryStrings["Company"], "Find Companies")
}

func TestRun_Compute(t *testing.T) {
	reg := techRegistry(t)
	fake := enginetest.New()
	fake.ComputeValues["compute count in Company;"] = 42

	exec := engine.NewExecutor(fake, nil)
	result, err := exec.Run(reg, queryir.Compute{Targets: []queryir.ComputeTarget{
		{Action: queryir.ActionCount, Concept: "Company"},
	}})
	require.NoError(t, err)
	require.False(t, result.Failed())

	require.Len(t, result.Computes, 1)
	assert.Equal(t, 42.0, result.Computes[0].Value)
	// The originating query text rides along for traceability
	assert.Equal(t, "compute count in Company;", result.Computes[0].Query)
}

func TestRun_Cluster(t *testing.T) {
	reg := techRegistry(t)
	fake := enginetest.New()
	text := "compute cluster in [Company, Product], using connected-component;"
	fake.ClusterAnswers[text] = []results.ClusterAnswer{
		{ID: 0, Concept: results.Concept{TypeLabel: "Company", Attributes: map[string]any{"name": "Google"}}},
	}

	exec := engine.NewExecutor(fake, nil)
	result, err := exec.Run(reg, queryir.Cluster{
		Kind:     queryir.ClusterConnected,
		Concepts: []string{"Company", "Product"},
	})
	require.NoError(t, err)
	require.Len(t, result.Clusters[0]["Company"], 1)
}

func TestRun_RuleDefinesAndRecords(t *testing.T) {
	reg := techRegistry(t)
	fake := enginetest.New()

	exec := engine.NewExecutor(fake, nil)
	congruent := []queryir.ConditionSpec{
		{Attribute: "name", Operator: queryir.OpCongruent, Value: "true"},
	}
	result, err := exec.Run(reg, queryir.Rule{
		Name:  "same_name",
		Cond1: queryir.ConceptQuery{Concept: "Company", Kind: queryir.KindEntity, AttrConditions: congruent},
		Cond2: queryir.ConceptQuery{Concept: "Company", Kind: queryir.KindEntity, AttrConditions: congruent},
	})
	require.NoError(t, err)
	require.False(t, result.Failed())

	require.NotNil(t, result.Rule)
	assert.Equal(t, "same_name", result.Rule.Name)
	assert.Equal(t, 1, fake.Committed)

	// The compiled rule is recorded on the registry for persistence
	record, err := reg.Rule("same_name")
	require.NoError(t, err)
	assert.Contains(t, record.Text, "when {")
	assert.NotEmpty(t, record.Readable)
}

func TestRun_CompileErrorsPropagateTyped(t *testing.T) {
	reg := techRegistry(t)
	exec := engine.NewExecutor(enginetest.New(), nil)

	_, err := exec.Run(reg, queryir.Find{Concepts: []queryir.ConceptQuery{{
		Concept: "Ghost",
		AttrConditions: []queryir.ConditionSpec{
			{Attribute: "name", Operator: queryir.OpEquals, Value: "x"},
		},
	}}})
	assert.True(t, schema.IsUnknownConcept(err))

	_, err = exec.Run(reg, queryir.Cluster{Kind: queryir.ClusterKCore, Concepts: []string{"Company"}, K: 1})
	assert.True(t, querygraql.IsInvalidParameter(err))
}

func TestRun_EngineFailureIsResultNotError(t *testing.T) {
	reg := techRegistry(t)
	fake := enginetest.New()
	fake.FailWith = errors.New("connection refused")

	exec := engine.NewExecutor(fake, zap.NewNop())
	result, err := exec.Run(reg, queryir.Find{Concepts: []queryir.ConceptQuery{{
		Concept: "Company", Kind: queryir.KindEntity,
	}}})
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Contains(t, result.Failure, "connection refused")
}
