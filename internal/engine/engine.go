// Package engine is the boundary to the external graph database: session
// and transaction contracts, plus an executor that runs compiled intents
// end to end.
//
// The compiler's only contract with this layer is "here is query text;
// give me back answers". Submitting text and iterating the answer stream
// are synchronous, one-request-at-a-time calls; cancellation and timeouts
// are the engine client's responsibility.
package engine

import "github.com/codexkg/codex/internal/results"

// TxMode selects a read or write transaction.
type TxMode int

const (
	TxRead TxMode = iota
	TxWrite
)

// Client connects to the graph engine and opens sessions per keyspace.
type Client interface {
	// Session opens a session against the named keyspace, creating it
	// if needed.
	Session(keyspace string) (Session, error)

	// DeleteKeyspace removes a keyspace and all its data.
	DeleteKeyspace(name string) error

	// Close releases the connection.
	Close() error
}

// Session scopes transactions to one keyspace.
type Session interface {
	Transaction(mode TxMode) (Transaction, error)
	Close() error
}

// Transaction executes query text. Write transactions must be committed;
// closing without commit discards changes.
type Transaction interface {
	// Match runs a match query and returns its answer stream.
	Match(text string) (AnswerIterator, error)

	// Compute runs a scalar aggregation query.
	Compute(text string) (float64, error)

	// ComputeCluster runs a cluster/centrality query and returns the
	// tagged instances.
	ComputeCluster(text string) ([]results.ClusterAnswer, error)

	// Execute runs a define or insert statement.
	Execute(text string) error

	Commit() error
	Close() error
}

// AnswerIterator streams raw answers for one match query.
type AnswerIterator interface {
	// Next returns the next answer, or ok=false when the stream ends.
	Next() (answer results.Answer, ok bool)

	// Err reports any failure that ended the stream early.
	Err() error
}
