package cli

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codexkg/codex/internal/ingest"
	"github.com/codexkg/codex/internal/schema"
)

// IngestOptions holds flags shared by the ingest subcommands.
type IngestOptions struct {
	*RootOptions
	Keyspace string
	Name     string
}

// EntityIngestOptions adds the entity-specific flags.
type EntityIngestOptions struct {
	*IngestOptions
	Key string
}

// RelIngestOptions adds the relationship-specific flags.
type RelIngestOptions struct {
	*IngestOptions
	Role1   string
	Entity1 string
	Role2   string
	Entity2 string
}

// NewIngestCommand creates the ingest command group. Both subcommands
// infer column types, register the concept in the cached schema, and
// print the definition and insert queries for the load.
func NewIngestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &IngestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Plan CSV loads into a keyspace",
	}
	cmd.PersistentFlags().StringVar(&opts.Keyspace, "keyspace", "", "target keyspace")
	cmd.PersistentFlags().StringVar(&opts.Name, "name", "", "concept name to define")

	entOpts := &EntityIngestOptions{IngestOptions: opts}
	entCmd := &cobra.Command{
		Use:           "entity <csv-file>",
		Short:         "Plan an entity load from a CSV file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestEntity(entOpts, args[0], cmd)
		},
	}
	entCmd.Flags().StringVar(&entOpts.Key, "key", "", "key attribute column")
	cmd.AddCommand(entCmd)

	relOpts := &RelIngestOptions{IngestOptions: opts}
	relCmd := &cobra.Command{
		Use:           "relationship <csv-file>",
		Short:         "Plan a relationship load from a CSV file",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngestRelationship(relOpts, args[0], cmd)
		},
	}
	relCmd.Flags().StringVar(&relOpts.Role1, "role1", "", "role played toward the first entity")
	relCmd.Flags().StringVar(&relOpts.Entity1, "entity1", "", "first entity (keys in column 1)")
	relCmd.Flags().StringVar(&relOpts.Role2, "role2", "", "role played toward the second entity")
	relCmd.Flags().StringVar(&relOpts.Entity2, "entity2", "", "second entity (keys in column 2)")
	cmd.AddCommand(relCmd)

	return cmd
}

// loadTable opens the CSV and the cached registry for the keyspace.
func loadTable(opts *IngestOptions, f *Formatter, csvPath string) (*ingest.Table, *schema.Registry, func() error, error) {
	if opts.Keyspace == "" || opts.Name == "" {
		return nil, nil, nil, f.Error(ErrCodeGeneric, "--keyspace and --name are required")
	}

	file, err := os.Open(csvPath)
	if err != nil {
		return nil, nil, nil, f.Error(ErrCodeCSV, err.Error())
	}
	defer file.Close()

	table, err := ingest.ReadCSV(file)
	if err != nil {
		return nil, nil, nil, f.Error(ErrCodeCSV, err.Error())
	}

	store, err := openCache(opts.RootOptions, f)
	if err != nil {
		return nil, nil, nil, err
	}
	reg, err := schema.Load(store, opts.Keyspace)
	if err != nil {
		store.Close()
		return nil, nil, nil, f.Error(ErrCodeCache, err.Error())
	}

	save := func() error {
		defer store.Close()
		return reg.Save(store)
	}
	return table, reg, save, nil
}

func runIngestEntity(opts *EntityIngestOptions, csvPath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	table, reg, save, err := loadTable(opts.IngestOptions, f, csvPath)
	if err != nil {
		return err
	}

	in := ingest.New(reg, nil)
	report, err := in.PlanEntity(opts.Name, opts.Key, table)
	if err != nil {
		return f.Error(ErrCodeCSV, err.Error())
	}
	if err := save(); err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}

	f.VerboseLog("defined entity %s with %d attributes", report.Entity, len(report.Types))
	if f.Format == "json" {
		return f.Success(report)
	}
	return f.Success(strings.Join(report.Queries, "\n"))
}

func runIngestRelationship(opts *RelIngestOptions, csvPath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	table, reg, save, err := loadTable(opts.IngestOptions, f, csvPath)
	if err != nil {
		return err
	}

	in := ingest.New(reg, nil)
	report, err := in.PlanRelationship(opts.Name, opts.Role1, opts.Entity1, opts.Role2, opts.Entity2, table)
	if err != nil {
		return f.Error(ErrCodeCSV, err.Error())
	}
	if err := save(); err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}

	f.VerboseLog("defined relationship %s, batch %s", report.Relationship, report.Batch)
	if f.Format == "json" {
		return f.Success(report)
	}
	return f.Success(strings.Join(report.Queries, "\n"))
}
