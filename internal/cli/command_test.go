package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const techCue = `
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
		attributes: name: "string"
	}
}

relationship: Productize: {
	rel1: {role: "produces", entity: "Company"}
	rel2: {role: "produced", entity: "Product"}
}
`

// testWorkspace writes a config pointing the cache at a per-test sqlite
// file plus a CUE schema dir, and returns their paths.
func testWorkspace(t *testing.T) (configPath, cueDir string) {
	t.Helper()
	dir := t.TempDir()

	configPath = filepath.Join(dir, "codex.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"cache:\n  backend: sqlite\n  path: "+filepath.Join(dir, "cache.db")+"\n"), 0o644))

	cueDir = filepath.Join(dir, "schema")
	require.NoError(t, os.Mkdir(cueDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cueDir, "schema.cue"), []byte(techCue), 0o644))
	return configPath, cueDir
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSchemaLoadShowDelete(t *testing.T) {
	configPath, cueDir := testWorkspace(t)

	out, err := runCommand(t, "--config", configPath, "schema", "load", cueDir)
	require.NoError(t, err)
	assert.Contains(t, out, "keyspace tech_example: 2 entities, 1 relationships")

	out, err = runCommand(t, "--config", configPath, "schema", "show", "tech_example")
	require.NoError(t, err)
	assert.Contains(t, out, "entity Company (key name)")
	assert.Contains(t, out, "budget double")
	assert.Contains(t, out, "relationship Productize (produces: Company, produced: Product)")
	assert.Contains(t, out, "codex_details string")

	_, err = runCommand(t, "--config", configPath, "schema", "delete", "tech_example")
	require.NoError(t, err)

	out, err = runCommand(t, "--config", configPath, "schema", "show", "tech_example")
	require.Error(t, err)
	assert.Contains(t, out, "not in cache")
}

func TestSchemaShow_JSON(t *testing.T) {
	configPath, cueDir := testWorkspace(t)

	_, err := runCommand(t, "--config", configPath, "schema", "load", cueDir)
	require.NoError(t, err)

	out, err := runCommand(t, "--config", configPath, "--format", "json", "schema", "show", "tech_example")
	require.NoError(t, err)
	assert.Contains(t, out, `"status":"ok"`)
	assert.Contains(t, out, `"entity_map"`)
}

func TestCompileCommand(t *testing.T) {
	configPath, cueDir := testWorkspace(t)

	_, err := runCommand(t, "--config", configPath, "schema", "load", cueDir)
	require.NoError(t, err)

	intentPath := filepath.Join(t.TempDir(), "intent.json")
	require.NoError(t, os.WriteFile(intentPath, []byte(`{
		"find": {"concepts": [{
			"concept": "Company",
			"conditions": [{"attribute": "name", "operator": "equals", "value": "Google"}]
		}]}
	}`), 0o644))

	out, err := runCommand(t, "--config", configPath, "compile", "--keyspace", "tech_example", intentPath)
	require.NoError(t, err)
	assert.Contains(t, out, `match $Company isa Company, has name "Google"; get;`)
}

func TestCompileCommand_UnknownKeyspace(t *testing.T) {
	configPath, _ := testWorkspace(t)

	intentPath := filepath.Join(t.TempDir(), "intent.json")
	require.NoError(t, os.WriteFile(intentPath, []byte(`{"compute": {"targets": [{"action": "Count", "concept": "All Concepts"}]}}`), 0o644))

	out, err := runCommand(t, "--config", configPath, "compile", "--keyspace", "ghost", intentPath)
	require.Error(t, err)
	assert.Contains(t, out, "not in cache")
}

func TestIngestEntityCommand(t *testing.T) {
	configPath, _ := testWorkspace(t)

	csvPath := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name,budget\nGoogle,100.5\n"), 0o644))

	out, err := runCommand(t, "--config", configPath,
		"ingest", "--keyspace", "tech_example", "--name", "Company",
		"entity", "--key", "name", csvPath)
	require.NoError(t, err)
	assert.Contains(t, out, "define Company sub entity, has budget, key name;")
	assert.Contains(t, out, `insert $x isa Company, has name "Google", has budget 100.5;`)

	// The registry was persisted: a compile against it resolves.
	intentPath := filepath.Join(t.TempDir(), "intent.json")
	require.NoError(t, os.WriteFile(intentPath, []byte(`{
		"compute": {"targets": [{"action": "Mean", "concept": "Company", "attribute": "budget"}]}
	}`), 0o644))
	out, err = runCommand(t, "--config", configPath, "compile", "--keyspace", "tech_example", intentPath)
	require.NoError(t, err)
	assert.Contains(t, out, "compute mean of budget, in Company;")
}

func TestIngestEntityCommand_RequiresFlags(t *testing.T) {
	configPath, _ := testWorkspace(t)

	csvPath := filepath.Join(t.TempDir(), "companies.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("name\nGoogle\n"), 0o644))

	out, err := runCommand(t, "--config", configPath, "ingest", "entity", csvPath)
	require.Error(t, err)
	assert.Contains(t, out, "--keyspace and --name are required")
}
