package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// techRegistry builds the Company/Product catalog used across the compiler
// tests: Company -produces-> Productize <-produced- Product.
func techRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry("tech_example")

	require.NoError(t, reg.DefineEntity("Company", "name", map[string]AttrType{
		"name":      TypeString,
		"budget":    TypeDouble,
		"employees": TypeLong,
	}))
	require.NoError(t, reg.DefineEntity("Product", "name", map[string]AttrType{
		"name":     TypeString,
		"released": TypeDate,
		"active":   TypeBool,
	}))
	require.NoError(t, reg.DefineRelationship("Productize",
		"produces", "Company", "produced", "Product",
		map[string]AttrType{"note": TypeString},
	))
	return reg
}

func TestResolveEntity(t *testing.T) {
	reg := techRegistry(t)

	ent, err := reg.ResolveEntity("Company")
	require.NoError(t, err)
	assert.Equal(t, "name", ent.Key)
	assert.Equal(t, TypeDouble, ent.Attributes["budget"])

	_, err = reg.ResolveEntity("Ghost")
	assert.True(t, IsUnknownConcept(err))
}

func TestDefineRelationship_PopulatesRelations(t *testing.T) {
	reg := techRegistry(t)

	company, err := reg.ResolveEntity("Company")
	require.NoError(t, err)
	link, ok := company.Relations["Productize"]
	require.True(t, ok)
	assert.Equal(t, "produces", link.PlaysRole)
	assert.Equal(t, "Product", link.CounterpartEntity)

	product, err := reg.ResolveEntity("Product")
	require.NoError(t, err)
	link, ok = product.Relations["Productize"]
	require.True(t, ok)
	assert.Equal(t, "produced", link.PlaysRole)
	assert.Equal(t, "Company", link.CounterpartEntity)
}

func TestDefineRelationship_ReservedDetailsAttr(t *testing.T) {
	reg := techRegistry(t)

	rel, err := reg.ResolveRelationship("Productize")
	require.NoError(t, err)
	assert.Equal(t, TypeString, rel.Attributes[DetailsAttr])
	assert.Equal(t, "name", rel.Side1.KeyAttr)
	assert.Equal(t, TypeString, rel.Side1.KeyType)
}

func TestDefineRelationship_UnknownEntity(t *testing.T) {
	reg := techRegistry(t)
	err := reg.DefineRelationship("Owns", "owner", "Company", "owned", "Ghost", nil)
	assert.True(t, IsUnknownConcept(err))
}

func TestDefineEntity_Duplicate(t *testing.T) {
	reg := techRegistry(t)
	err := reg.DefineEntity("Company", "", map[string]AttrType{"x": TypeString})
	require.Error(t, err)

	var se *Error
	require.ErrorAs(t, err, &se)
	assert.Equal(t, ErrCodeDuplicateConcept, se.Code)
}

func TestDefineEntity_KeyMustBeAttribute(t *testing.T) {
	reg := NewRegistry("t")
	err := reg.DefineEntity("Thing", "id", map[string]AttrType{"name": TypeString})
	assert.True(t, IsUnknownAttribute(err))
}

func TestRelationshipBetween(t *testing.T) {
	reg := techRegistry(t)

	name, err := reg.RelationshipBetween("Company", "Product")
	require.NoError(t, err)
	assert.Equal(t, "Productize", name)

	// Unordered pair: reversed arguments find the same relationship
	name, err = reg.RelationshipBetween("Product", "Company")
	require.NoError(t, err)
	assert.Equal(t, "Productize", name)

	// Unconnected pair is empty, not an error
	require.NoError(t, reg.DefineEntity("Person", "", map[string]AttrType{"name": TypeString}))
	name, err = reg.RelationshipBetween("Company", "Person")
	require.NoError(t, err)
	assert.Empty(t, name)
}

func TestRelationshipBetween_Ambiguous(t *testing.T) {
	reg := techRegistry(t)
	require.NoError(t, reg.DefineRelationship("Discontinue",
		"discontinues", "Company", "discontinued", "Product", nil))

	_, err := reg.RelationshipBetween("Company", "Product")
	require.Error(t, err)
	assert.True(t, IsAmbiguousRelationship(err))
	assert.Contains(t, err.Error(), "Discontinue")
	assert.Contains(t, err.Error(), "Productize")
}

func TestAttributeType(t *testing.T) {
	reg := techRegistry(t)

	typ, err := reg.AttributeType("Company", "employees")
	require.NoError(t, err)
	assert.Equal(t, TypeLong, typ)

	// Relationships resolve too, including the reserved attribute
	typ, err = reg.AttributeType("Productize", DetailsAttr)
	require.NoError(t, err)
	assert.Equal(t, TypeString, typ)

	_, err = reg.AttributeType("Company", "missing")
	assert.True(t, IsUnknownAttribute(err))

	_, err = reg.AttributeType("Ghost", "name")
	assert.True(t, IsUnknownConcept(err))
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	reg := techRegistry(t)
	snap := reg.Snapshot()
	snap.EntityMap["Company"].Attributes["name"] = TypeLong

	typ, err := reg.AttributeType("Company", "name")
	require.NoError(t, err)
	assert.Equal(t, TypeString, typ)
}
