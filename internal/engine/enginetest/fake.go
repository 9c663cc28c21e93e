// Package enginetest provides an in-memory fake of the engine contracts
// for tests: scripted answers keyed by query text, recorded statements,
// and injectable failures.
package enginetest

import (
	"github.com/codexkg/codex/internal/engine"
	"github.com/codexkg/codex/internal/results"
)

// Fake implements engine.Client, Session, and Transaction on a single
// value. Script it by filling the maps; inspect Queries and Committed
// afterwards.
type Fake struct {
	// Answers scripts match answers by query text.
	Answers map[string][]results.Answer

	// ComputeValues scripts scalar answers by query text.
	ComputeValues map[string]float64

	// ClusterAnswers scripts cluster answers by query text.
	ClusterAnswers map[string][]results.ClusterAnswer

	// FailWith, when set, makes every operation fail.
	FailWith error

	// Queries records every statement executed, in order.
	Queries []string

	// Committed counts commits.
	Committed int
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{
		Answers:        make(map[string][]results.Answer),
		ComputeValues:  make(map[string]float64),
		ClusterAnswers: make(map[string][]results.ClusterAnswer),
	}
}

// Session implements engine.Client.
func (f *Fake) Session(keyspace string) (engine.Session, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	return f, nil
}

// DeleteKeyspace implements engine.Client.
func (f *Fake) DeleteKeyspace(name string) error { return f.FailWith }

// Close implements engine.Client and engine.Session.
func (f *Fake) Close() error { return nil }

// Transaction implements engine.Session.
func (f *Fake) Transaction(mode engine.TxMode) (engine.Transaction, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	return f, nil
}

// Match implements engine.Transaction.
func (f *Fake) Match(text string) (engine.AnswerIterator, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	f.Queries = append(f.Queries, text)
	return &iterator{answers: f.Answers[text]}, nil
}

// Compute implements engine.Transaction.
func (f *Fake) Compute(text string) (float64, error) {
	if f.FailWith != nil {
		return 0, f.FailWith
	}
	f.Queries = append(f.Queries, text)
	return f.ComputeValues[text], nil
}

// ComputeCluster implements engine.Transaction.
func (f *Fake) ComputeCluster(text string) ([]results.ClusterAnswer, error) {
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	f.Queries = append(f.Queries, text)
	return f.ClusterAnswers[text], nil
}

// Execute implements engine.Transaction.
func (f *Fake) Execute(text string) error {
	if f.FailWith != nil {
		return f.FailWith
	}
	f.Queries = append(f.Queries, text)
	return nil
}

// Commit implements engine.Transaction.
func (f *Fake) Commit() error {
	if f.FailWith != nil {
		return f.FailWith
	}
	f.Committed++
	return nil
}

type iterator struct {
	answers []results.Answer
	pos     int
}

func (it *iterator) Next() (results.Answer, bool) {
	if it.pos >= len(it.answers) {
		return nil, false
	}
	answer := it.answers[it.pos]
	it.pos++
	return answer, true
}

func (it *iterator) Err() error { return nil }
