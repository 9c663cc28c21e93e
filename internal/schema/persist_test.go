package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codexkg/codex/internal/kv"
)

func TestLoad_FirstUseWritesEmptyDocument(t *testing.T) {
	store := kv.NewMemory()
	defer store.Close()

	_, err := Load(store, "fresh")
	require.NoError(t, err)

	raw, err := store.Get(CacheKey("fresh"))
	require.NoError(t, err)

	var doc Document
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.NotNil(t, doc.EntityMap)
	assert.NotNil(t, doc.RelMap)
	assert.NotNil(t, doc.RulesMap)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	store := kv.NewMemory()
	defer store.Close()

	reg, err := Load(store, "tech")
	require.NoError(t, err)
	require.NoError(t, reg.DefineEntity("Company", "name", map[string]AttrType{"name": TypeString}))
	require.NoError(t, reg.DefineEntity("Product", "name", map[string]AttrType{"name": TypeString}))
	require.NoError(t, reg.DefineRelationship("Productize", "produces", "Company", "produced", "Product", nil))
	require.NoError(t, reg.AddRule(RuleRecord{Name: "same_name", Text: "define ..."}))
	require.NoError(t, reg.Save(store))

	loaded, err := Load(store, "tech")
	require.NoError(t, err)

	rel, err := loaded.ResolveRelationship("Productize")
	require.NoError(t, err)
	assert.Equal(t, "produces", rel.Side1.Role)
	assert.Equal(t, TypeString, rel.Attributes[DetailsAttr])

	ent, err := loaded.ResolveEntity("Company")
	require.NoError(t, err)
	assert.Equal(t, "Product", ent.Relations["Productize"].CounterpartEntity)

	rule, err := loaded.Rule("same_name")
	require.NoError(t, err)
	assert.Equal(t, "define ...", rule.Text)
}

func TestSave_VersionConflict(t *testing.T) {
	store := kv.NewMemory()
	defer store.Close()

	first, err := Load(store, "tech")
	require.NoError(t, err)
	second, err := Load(store, "tech")
	require.NoError(t, err)

	require.NoError(t, first.DefineEntity("A", "", map[string]AttrType{"x": TypeString}))
	require.NoError(t, first.Save(store))

	require.NoError(t, second.DefineEntity("B", "", map[string]AttrType{"y": TypeString}))
	err = second.Save(store)
	require.Error(t, err)
	assert.True(t, IsVersionConflict(err))

	// The winner's update is intact
	reloaded, err := Load(store, "tech")
	require.NoError(t, err)
	_, err = reloaded.ResolveEntity("A")
	assert.NoError(t, err)
}

func TestSave_SequentialWritersBothLand(t *testing.T) {
	store := kv.NewMemory()
	defer store.Close()

	reg, err := Load(store, "tech")
	require.NoError(t, err)
	require.NoError(t, reg.DefineEntity("A", "", map[string]AttrType{"x": TypeString}))
	require.NoError(t, reg.Save(store))

	// Reload-then-mutate succeeds after a prior save
	reg, err = Load(store, "tech")
	require.NoError(t, err)
	require.NoError(t, reg.DefineEntity("B", "", map[string]AttrType{"y": TypeString}))
	require.NoError(t, reg.Save(store))

	final, err := Load(store, "tech")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"A", "B"}, final.Entities())
}

func TestDelete(t *testing.T) {
	store := kv.NewMemory()
	defer store.Close()

	_, err := Load(store, "gone")
	require.NoError(t, err)
	require.NoError(t, Delete(store, "gone"))

	ok, err := store.Exists(CacheKey("gone"))
	require.NoError(t, err)
	assert.False(t, ok)
}
