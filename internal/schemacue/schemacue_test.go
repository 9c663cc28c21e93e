package schemacue

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codexkg/codex/internal/schema"
)

const techDecl = `
keyspace: "tech_example"

entity: {
	Company: {
		key: "name"
		attributes: {
			name:   "string"
			budget: "double"
		}
	}
	Product: {
		key: "name"
		attributes: {
			name:     "string"
			released: "date"
		}
	}
}

relationship: {
	Productize: {
		rel1: {role: "produces", entity: "Company"}
		rel2: {role: "produced", entity: "Product"}
		attributes: note: "string"
	}
}
`

func decodeString(t *testing.T, src string) (*Declaration, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return Decode(v)
}

func TestDecode(t *testing.T) {
	decl, err := decodeString(t, techDecl)
	require.NoError(t, err)

	assert.Equal(t, "tech_example", decl.Keyspace)
	require.Len(t, decl.Entities, 2)
	assert.Equal(t, "Company", decl.Entities[0].Name)
	assert.Equal(t, "name", decl.Entities[0].Key)
	assert.Equal(t, schema.TypeDouble, decl.Entities[0].Attributes["budget"])

	require.Len(t, decl.Relationships, 1)
	rel := decl.Relationships[0]
	assert.Equal(t, "Productize", rel.Name)
	assert.Equal(t, "produces", rel.Role1)
	assert.Equal(t, "Product", rel.Entity2)
	assert.Equal(t, schema.TypeString, rel.Attributes["note"])
}

func TestDecode_KeyspaceRequired(t *testing.T) {
	_, err := decodeString(t, `entity: Company: attributes: name: "string"`)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeNoKeyspace, le.Code)
}

func TestDecode_UnknownAttrType(t *testing.T) {
	_, err := decodeString(t, `
keyspace: "k"
entity: Company: attributes: budget: "decimal"
`)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeBadAttrType, le.Code)
}

func TestDecode_KeyMustBeAttribute(t *testing.T) {
	_, err := decodeString(t, `
keyspace: "k"
entity: Company: {
	key: "ticker"
	attributes: name: "string"
}
`)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeBadEntity, le.Code)
}

func TestDecode_RelationshipNeedsBothSides(t *testing.T) {
	_, err := decodeString(t, `
keyspace: "k"
relationship: R: rel1: {role: "a", entity: "E"}
`)
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeBadRel, le.Code)
}

func TestApply(t *testing.T) {
	decl, err := decodeString(t, techDecl)
	require.NoError(t, err)

	reg, err := decl.Apply()
	require.NoError(t, err)
	assert.Equal(t, "tech_example", reg.Name())

	ent, err := reg.ResolveEntity("Company")
	require.NoError(t, err)
	assert.Equal(t, "produces", ent.Relations["Productize"].PlaysRole)

	rel, err := reg.ResolveRelationship("Productize")
	require.NoError(t, err)
	// Reserved details attribute is added on definition.
	assert.Equal(t, schema.TypeString, rel.Attributes[schema.DetailsAttr])
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.cue"), []byte(techDecl), 0o644))

	decl, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "tech_example", decl.Keyspace)
	assert.Len(t, decl.Entities, 2)
}

func TestLoad_MissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent"))
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, ErrCodeLoadFailed, le.Code)
}
