// Package results reshapes raw engine answers into structured per-concept
// data. It depends only on the answer shape contract: each answer exposes,
// per matched query variable, the concept's type label and its attribute
// label/value pairs.
package results

import "sort"

// Concept is one matched instance in a raw answer: its type label and
// attribute label/value pairs.
type Concept struct {
	TypeLabel  string
	Attributes map[string]any
}

// Answer is one raw answer row, keyed by query variable name.
type Answer map[string]Concept

// Record is one normalized instance: attribute name to value.
type Record = map[string]any

// NormalizeFind groups raw rows by which top-level concept variable they
// bind, extracting each matched instance's attributes into a record.
//
// Every requested concept appears in the result; concepts with no matches
// map to nil so callers can distinguish "no matches" from "not asked".
func NormalizeFind(answers []Answer, concepts []string) map[string][]Record {
	out := make(map[string][]Record, len(concepts))
	for _, concept := range concepts {
		out[concept] = nil
	}
	for _, answer := range answers {
		for _, concept := range concepts {
			matched, ok := answer[concept]
			if !ok {
				continue
			}
			record := make(Record, len(matched.Attributes))
			for label, value := range matched.Attributes {
				record[label] = value
			}
			out[concept] = append(out[concept], record)
		}
	}
	return out
}

// Tabulate reshapes a record list into a column-oriented table. Columns
// are the union of attribute names in sorted order; missing values are
// nil so every column has one entry per record.
func Tabulate(records []Record) map[string][]any {
	columnSet := make(map[string]struct{})
	for _, record := range records {
		for label := range record {
			columnSet[label] = struct{}{}
		}
	}
	columns := make([]string, 0, len(columnSet))
	for label := range columnSet {
		columns = append(columns, label)
	}
	sort.Strings(columns)

	table := make(map[string][]any, len(columns))
	for _, label := range columns {
		column := make([]any, len(records))
		for i, record := range records {
			column[i] = record[label]
		}
		table[label] = column
	}
	return table
}

// ComputeResult carries one aggregation answer along with the query text
// that produced it, for traceability.
type ComputeResult struct {
	Action    string
	Concept   string
	Attribute string
	Value     float64
	Query     string
}

// ClusterAnswer is one instance returned by a cluster or centrality
// computation, tagged with its cluster index or centrality measurement.
type ClusterAnswer struct {
	// ID is the cluster index (clustering) or measurement (centrality).
	ID int

	Concept Concept
}

// NormalizeCluster groups cluster answers by cluster index, then by
// concept type label. Each contributing instance's record carries its
// attributes plus the cluster id it was tagged with.
func NormalizeCluster(answers []ClusterAnswer) map[int]map[string][]Record {
	out := make(map[int]map[string][]Record)
	for _, answer := range answers {
		byConcept, ok := out[answer.ID]
		if !ok {
			byConcept = make(map[string][]Record)
			out[answer.ID] = byConcept
		}
		record := make(Record, len(answer.Concept.Attributes)+1)
		for label, value := range answer.Concept.Attributes {
			record[label] = value
		}
		record["cluster_id"] = answer.ID
		byConcept[answer.Concept.TypeLabel] = append(byConcept[answer.Concept.TypeLabel], record)
	}
	return out
}

// Explanation maps concept name to attribute values for one matched rule
// instance pair. It feeds token substitution in rule templates.
type Explanation = map[string]map[string]any

// BuildExplanation extracts the per-branch provenance mapping from one
// raw answer: each bound variable's concept type label to its attributes.
func BuildExplanation(answer Answer) Explanation {
	out := make(Explanation, len(answer))
	for _, matched := range answer {
		attrs := make(map[string]any, len(matched.Attributes))
		for label, value := range matched.Attributes {
			attrs[label] = value
		}
		out[matched.TypeLabel] = attrs
	}
	return out
}
