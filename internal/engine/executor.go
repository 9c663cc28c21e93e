package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/codexkg/codex/internal/querygraql"
	"github.com/codexkg/codex/internal/queryir"
	"github.com/codexkg/codex/internal/results"
	"github.com/codexkg/codex/internal/schema"
)

// Executor compiles intents and runs the resulting statements against the
// engine, normalizing raw answers on the way back.
//
// Error handling is split along the "bad request"/"backend unavailable"
// line: compile and schema validation failures return typed errors;
// engine/transport failures after a successful compile are logged and
// reported through Result.Failure instead of an error.
type Executor struct {
	client Client
	logger *zap.Logger
}

// NewExecutor returns an executor over the given client. A nil logger
// disables logging.
func NewExecutor(client Client, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{client: client, logger: logger}
}

// RuleOutcome reports a successfully defined inference rule.
type RuleOutcome struct {
	Name     string
	Readable string
	Template string
}

// Result is the normalized outcome of one intent.
type Result struct {
	// Find maps concept name to matched records. QueryStrings carries
	// the natural-language rendering per concept.
	Find         map[string][]results.Record
	QueryStrings map[string]string

	// Computes holds one entry per compute target.
	Computes []results.ComputeResult

	// Clusters groups instances by cluster index and concept.
	Clusters map[int]map[string][]results.Record

	// Rule is set after a rule intent is defined.
	Rule *RuleOutcome

	// Failure is the engine failure message when the backend failed
	// after compilation succeeded. Empty on success.
	Failure string
}

// Failed reports whether the engine failed to execute the compiled text.
func (r *Result) Failed() bool { return r.Failure != "" }

// Run compiles the intent against reg and executes it on the registry's
// keyspace.
func (e *Executor) Run(reg *schema.Registry, intent queryir.Intent) (*Result, error) {
	compiled, err := querygraql.New(reg).Compile(intent)
	if err != nil {
		return nil, err
	}

	session, err := e.client.Session(reg.Name())
	if err != nil {
		return e.failure(reg, "open session", err), nil
	}
	defer session.Close()

	switch it := intent.(type) {
	case queryir.Find:
		return e.runFind(reg, session, it, compiled)
	case queryir.Compute:
		return e.runCompute(reg, session, compiled)
	case queryir.Cluster:
		return e.runCluster(reg, session, compiled)
	case queryir.Rule:
		return e.runRule(reg, session, it, compiled)
	default:
		return nil, &querygraql.CompileError{
			Code:    querygraql.ErrCodeInvalidParameter,
			Message: fmt.Sprintf("unsupported intent type: %T", intent),
		}
	}
}

func (e *Executor) runFind(reg *schema.Registry, session Session, find queryir.Find, compiled *querygraql.Compiled) (*Result, error) {
	txn, err := session.Transaction(TxRead)
	if err != nil {
		return e.failure(reg, "open transaction", err), nil
	}
	defer txn.Close()

	concepts := make([]string, 0, len(find.Concepts))
	queryStrings := make(map[string]string, len(find.Concepts))
	var answers []results.Answer

	for _, stmt := range compiled.Statements {
		concepts = append(concepts, stmt.Concept)
		queryStrings[stmt.Concept] = stmt.QueryString

		e.logger.Info("executing find query",
			zap.String("keyspace", reg.Name()),
			zap.String("concept", stmt.Concept),
			zap.String("query", stmt.Text))

		iter, err := txn.Match(stmt.Text)
		if err != nil {
			return e.failure(reg, "match query", err), nil
		}
		for {
			answer, ok := iter.Next()
			if !ok {
				break
			}
			answers = append(answers, answer)
		}
		if err := iter.Err(); err != nil {
			return e.failure(reg, "answer stream", err), nil
		}
	}

	return &Result{
		Find:         results.NormalizeFind(answers, concepts),
		QueryStrings: queryStrings,
	}, nil
}

func (e *Executor) runCompute(reg *schema.Registry, session Session, compiled *querygraql.Compiled) (*Result, error) {
	txn, err := session.Transaction(TxRead)
	if err != nil {
		return e.failure(reg, "open transaction", err), nil
	}
	defer txn.Close()

	out := &Result{}
	for _, stmt := range compiled.Statements {
		e.logger.Info("executing compute query",
			zap.String("keyspace", reg.Name()),
			zap.String("query", stmt.Text))

		value, err := txn.Compute(stmt.Text)
		if err != nil {
			return e.failure(reg, "compute query", err), nil
		}
		out.Computes = append(out.Computes, results.ComputeResult{
			Action:    stmt.Action,
			Concept:   stmt.Concept,
			Attribute: stmt.Attribute,
			Value:     value,
			Query:     stmt.Text,
		})
	}
	return out, nil
}

func (e *Executor) runCluster(reg *schema.Registry, session Session, compiled *querygraql.Compiled) (*Result, error) {
	txn, err := session.Transaction(TxRead)
	if err != nil {
		return e.failure(reg, "open transaction", err), nil
	}
	defer txn.Close()

	stmt := compiled.Statements[0]
	e.logger.Info("executing cluster query",
		zap.String("keyspace", reg.Name()),
		zap.String("query", stmt.Text))

	answers, err := txn.ComputeCluster(stmt.Text)
	if err != nil {
		return e.failure(reg, "cluster query", err), nil
	}
	return &Result{Clusters: results.NormalizeCluster(answers)}, nil
}

func (e *Executor) runRule(reg *schema.Registry, session Session, rule queryir.Rule, compiled *querygraql.Compiled) (*Result, error) {
	txn, err := session.Transaction(TxWrite)
	if err != nil {
		return e.failure(reg, "open transaction", err), nil
	}
	defer txn.Close()

	stmt := compiled.Statements[0]
	e.logger.Info("defining rule",
		zap.String("keyspace", reg.Name()),
		zap.String("rule", rule.Name),
		zap.String("query", stmt.Text))

	if err := txn.Execute(stmt.Text); err != nil {
		return e.failure(reg, "define rule", err), nil
	}
	if err := txn.Commit(); err != nil {
		return e.failure(reg, "commit", err), nil
	}

	record := schema.RuleRecord{
		Name:     rule.Name,
		Text:     stmt.Text,
		Readable: compiled.Rule.Readable,
		Template: compiled.Rule.Template,
	}
	if err := reg.AddRule(record); err != nil {
		return nil, err
	}

	return &Result{Rule: &RuleOutcome{
		Name:     rule.Name,
		Readable: compiled.Rule.Readable,
		Template: compiled.Rule.Template,
	}}, nil
}

// failure logs an engine failure and wraps it as a failure result.
// Compilation already succeeded at this point, so the caller gets a
// result, not an error.
func (e *Executor) failure(reg *schema.Registry, stage string, err error) *Result {
	e.logger.Error("engine failure",
		zap.String("keyspace", reg.Name()),
		zap.String("stage", stage),
		zap.Error(err))
	return &Result{Failure: fmt.Sprintf("%s: %v", stage, err)}
}
