package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codexkg/codex/internal/engine/enginetest"
	"github.com/codexkg/codex/internal/schema"
)

const companyCSV = `name,budget,employees,active,founded
Google,100.5,1000,true,1998-09-04
Amazon,99.5,2000,false,1994-07-05
`

func companyTable(t *testing.T) *Table {
	t.Helper()
	table, err := ReadCSV(strings.NewReader(companyCSV))
	require.NoError(t, err)
	return table
}

func TestReadCSV(t *testing.T) {
	table := companyTable(t)
	assert.Equal(t, []string{"name", "budget", "employees", "active", "founded"}, table.Columns)
	require.Len(t, table.Rows, 2)

	col, err := table.Column("name")
	require.NoError(t, err)
	assert.Equal(t, []string{"Google", "Amazon"}, col)

	_, err = table.Column("missing")
	assert.True(t, IsMissingColumn(err))
}

func TestInferTypes(t *testing.T) {
	table := companyTable(t)
	assert.Equal(t, map[string]schema.AttrType{
		"name":      schema.TypeString,
		"budget":    schema.TypeDouble,
		"employees": schema.TypeLong,
		"active":    schema.TypeBool,
		"founded":   schema.TypeDate,
	}, table.InferTypes())
}

func TestInferTypes_IntegerColumnIsLongNotDouble(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("n\n1\n2\n"))
	require.NoError(t, err)
	assert.Equal(t, schema.TypeLong, table.InferTypes()["n"])
}

func TestInferTypes_EmptyColumnIsString(t *testing.T) {
	table, err := ReadCSV(strings.NewReader("a,b\n,1\n,2\n"))
	require.NoError(t, err)
	assert.Equal(t, schema.TypeString, table.InferTypes()["a"])
}

func TestIngestEntity(t *testing.T) {
	reg := schema.NewRegistry("tech_example")
	fake := enginetest.New()
	in := New(reg, nil)

	report, err := in.Entity(fake, "Company", "name", companyTable(t))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, schema.TypeDouble, report.Types["budget"])

	// Registry learned the entity.
	ent, err := reg.ResolveEntity("Company")
	require.NoError(t, err)
	assert.Equal(t, "name", ent.Key)

	// Attribute declarations, entity definition, then one insert per row.
	require.Len(t, fake.Queries, 4)
	assert.Equal(t,
		"define active sub attribute, value boolean; budget sub attribute, value double; employees sub attribute, value long; founded sub attribute, value datetime; name sub attribute, value string;",
		fake.Queries[0])
	assert.Equal(t,
		"define Company sub entity, has active, has budget, has employees, has founded, key name;",
		fake.Queries[1])
	assert.Equal(t,
		`insert $x isa Company, has name "Google", has budget 100.5, has employees 1000, has active "true", has founded 1998-09-04T00:00:00.000;`,
		fake.Queries[2])
	assert.Equal(t, 1, fake.Committed)
}

func TestIngestEntity_KeyMustBeAColumn(t *testing.T) {
	reg := schema.NewRegistry("tech_example")
	in := New(reg, nil)

	_, err := in.Entity(enginetest.New(), "Company", "ticker", companyTable(t))
	assert.True(t, IsMissingColumn(err))
}

func TestIngestRelationship(t *testing.T) {
	reg := schema.NewRegistry("tech_example")
	require.NoError(t, reg.DefineEntity("Company", "name", map[string]schema.AttrType{
		"name": schema.TypeString,
	}))
	require.NoError(t, reg.DefineEntity("Product", "name", map[string]schema.AttrType{
		"name": schema.TypeString,
	}))

	table, err := ReadCSV(strings.NewReader("company,product,note\nGoogle,Pixel,flagship\n"))
	require.NoError(t, err)

	fake := enginetest.New()
	in := New(reg, nil)
	report, err := in.Relationship(fake, "Productize", "produces", "Company", "produced", "Product", table)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Inserted)
	assert.NotEmpty(t, report.Batch)

	rel, err := reg.ResolveRelationship("Productize")
	require.NoError(t, err)
	assert.Equal(t, "produces", rel.Side1.Role)
	assert.Equal(t, schema.TypeString, rel.Attributes[schema.DetailsAttr])

	require.Len(t, fake.Queries, 3)
	assert.Equal(t,
		"define Productize sub relation, relates produces, relates produced, has codex_details, has note; Company sub entity, plays produces; Product sub entity, plays produced;",
		fake.Queries[1])

	insert := fake.Queries[2]
	assert.Contains(t, insert, `match $a isa Company, has name "Google"; $b isa Product, has name "Pixel";`)
	assert.Contains(t, insert, "insert $r (produces: $a, produced: $b) isa Productize, has codex_details ")
	assert.Contains(t, insert, `has note "flagship";`)
	// Provenance carries the batch id and both joined keys.
	assert.Contains(t, insert, report.Batch)
	assert.Contains(t, insert, `\"Company\":\"Google\"`)
	assert.Equal(t, 1, fake.Committed)
}

func TestIngestRelationship_NeedsKeyColumns(t *testing.T) {
	reg := schema.NewRegistry("tech_example")
	table, err := ReadCSV(strings.NewReader("only\nx\n"))
	require.NoError(t, err)

	in := New(reg, nil)
	_, err = in.Relationship(enginetest.New(), "R", "a", "E1", "b", "E2", table)
	assert.True(t, IsMissingColumn(err))
}

func TestCellLiteral_BadCell(t *testing.T) {
	_, err := cellLiteral(schema.TypeLong, "employees", "many", 3)
	assert.True(t, IsBadCell(err))

	_, err = cellLiteral(schema.TypeDate, "founded", "yesterday", 0)
	assert.True(t, IsBadCell(err))
}
