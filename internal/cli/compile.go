package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codexkg/codex/internal/querygraql"
	"github.com/codexkg/codex/internal/schema"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Keyspace string
}

// CompileResult is the JSON payload for a successful compilation.
type CompileResult struct {
	Statements []querygraql.Statement   `json:"statements"`
	Rule       *querygraql.RuleStrings  `json:"rule,omitempty"`
}

// NewCompileCommand creates the compile command. It reads an intent JSON
// document, resolves it against the keyspace's cached schema, and prints
// the compiled query text.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "compile <intent-file>",
		Short:         "Compile a query intent to graph query text",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}
	cmd.Flags().StringVar(&opts.Keyspace, "keyspace", "", "keyspace whose schema resolves the intent")

	return cmd
}

func runCompile(opts *CompileOptions, intentPath string, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	if opts.Keyspace == "" {
		return f.Error(ErrCodeGeneric, "--keyspace is required")
	}

	data, err := os.ReadFile(intentPath)
	if err != nil {
		return f.Error(ErrCodeIntent, err.Error())
	}

	store, err := openCache(opts.RootOptions, f)
	if err != nil {
		return err
	}
	defer store.Close()

	exists, err := store.Exists(schema.CacheKey(opts.Keyspace))
	if err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}
	if !exists {
		return f.Error(ErrCodeNotFound, fmt.Sprintf("keyspace %s not in cache", opts.Keyspace))
	}

	reg, err := schema.Load(store, opts.Keyspace)
	if err != nil {
		return f.Error(ErrCodeCache, err.Error())
	}

	intent, err := DecodeIntent(reg, data)
	if err != nil {
		return f.Error(ErrCodeIntent, err.Error())
	}

	compiled, err := querygraql.New(reg).Compile(intent)
	if err != nil {
		return f.Error(ErrCodeCompile, err.Error())
	}

	for _, stmt := range compiled.Statements {
		f.VerboseLog("compiled %s statement for %s", stmt.Kind, stmt.Concept)
	}

	if f.Format == "json" {
		return f.Success(CompileResult{Statements: compiled.Statements, Rule: compiled.Rule})
	}

	lines := make([]string, 0, len(compiled.Statements)+1)
	for _, stmt := range compiled.Statements {
		lines = append(lines, stmt.Text)
	}
	if compiled.Rule != nil {
		lines = append(lines, compiled.Rule.Readable)
	}
	return f.Success(strings.Join(lines, "\n"))
}
