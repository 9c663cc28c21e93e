// Package queryir defines the intent tree handed to the query compiler:
// concept queries, attribute conditions, relationship traversals, and the
// four query intents (Find, Compute, Cluster, Rule).
//
// Intent values are transient: constructed fresh per request by the
// caller, immutable once passed to the compiler, discarded after the
// compiled text is returned. The schema registry, not the intent, is the
// source of truth for attribute types and role names.
package queryir
