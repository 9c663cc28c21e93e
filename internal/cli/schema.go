package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codexkg/codex/internal/config"
	"github.com/codexkg/codex/internal/kv"
	"github.com/codexkg/codex/internal/schema"
	"github.com/codexkg/codex/internal/schemacue"
)

// SchemaOptions holds flags for the schema command group.
type SchemaOptions struct {
	*RootOptions
}

// NewSchemaCommand creates the schema command group.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SchemaOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Manage cached keyspace schemas",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "load <cue-dir>",
		Short:         "Load a CUE schema declaration into the cache",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaLoad(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "show <keyspace>",
		Short:         "Show the cached schema for a keyspace",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaShow(opts, args[0], cmd)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:           "delete <keyspace>",
		Short:         "Delete a keyspace's cached schema",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSchemaDelete(opts, args[0], cmd)
		},
	})

	return cmd
}

// openCache loads the config and opens the schema cache store.
func openCache(opts *RootOptions, f *Formatter) (kv.Store, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, f.Error(ErrCodeConfig, err.Error())
	}
	store, err := cfg.OpenCache()
	if err != nil {
		return nil, f.Error(ErrCodeCache, err.Error())
	}
	return store, nil
}

func runSchemaLoad(opts *SchemaOptions, dir string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	decl, err := schemacue.Load(dir)
	if err != nil {
		return f.Error(ErrCodeSchema, err.Error())
	}
	f.VerboseLog("loaded %d entities, %d relationships for keyspace %s",
		len(decl.Entities), len(decl.Relationships), decl.Keyspace)

	store, err := openCache(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer store.Close()

	reg, err := schema.Load(store, decl.Keyspace)
	if err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}
	if err := decl.ApplyTo(reg); err != nil {
		return f.Error(ErrCodeSchema, err.Error())
	}
	if err := reg.Save(store); err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}

	return f.Success(fmt.Sprintf("keyspace %s: %d entities, %d relationships",
		decl.Keyspace, len(decl.Entities), len(decl.Relationships)))
}

func runSchemaShow(opts *SchemaOptions, keyspace string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	store, err := openCache(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer store.Close()

	exists, err := store.Exists(schema.CacheKey(keyspace))
	if err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}
	if !exists {
		return f.Error(ErrCodeNotFound, fmt.Sprintf("keyspace %s not in cache", keyspace))
	}

	reg, err := schema.Load(store, keyspace)
	if err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}

	if f.Format == "json" {
		return f.Success(reg.Snapshot())
	}
	return f.Success(describeRegistry(reg))
}

func runSchemaDelete(opts *SchemaOptions, keyspace string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	store, err := openCache(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := schema.Delete(store, keyspace); err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}
	return f.Success("deleted keyspace " + keyspace)
}

// describeRegistry renders the schema as indented text.
func describeRegistry(reg *schema.Registry) string {
	var sb strings.Builder
	doc := reg.Snapshot()

	fmt.Fprintf(&sb, "keyspace %s (version %d)\n", reg.Name(), doc.Version)
	for _, name := range reg.Entities() {
		ent := doc.EntityMap[name]
		fmt.Fprintf(&sb, "entity %s", name)
		if ent.Key != "" {
			fmt.Fprintf(&sb, " (key %s)", ent.Key)
		}
		sb.WriteString("\n")
		for _, attr := range sortedAttrs(ent.Attributes) {
			fmt.Fprintf(&sb, "  %s %s\n", attr, ent.Attributes[attr])
		}
	}
	for _, name := range reg.Relationships() {
		rel := doc.RelMap[name]
		fmt.Fprintf(&sb, "relationship %s (%s: %s, %s: %s)\n",
			name, rel.Side1.Role, rel.Side1.Entity, rel.Side2.Role, rel.Side2.Entity)
		for _, attr := range sortedAttrs(rel.Attributes) {
			fmt.Fprintf(&sb, "  %s %s\n", attr, rel.Attributes[attr])
		}
	}
	ruleNames := make([]string, 0, len(doc.RulesMap))
	for name := range doc.RulesMap {
		ruleNames = append(ruleNames, name)
	}
	sort.Strings(ruleNames)
	for _, name := range ruleNames {
		fmt.Fprintf(&sb, "rule %s: %s\n", name, doc.RulesMap[name].Readable)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func sortedAttrs[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
