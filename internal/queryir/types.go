package queryir

import "time"

// Intent represents one compilable query request.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the compiler.
//
// Intent types:
//   - Find: match instances of one or more concepts under conditions
//   - Compute: count or a statistical aggregate over a concept attribute
//   - Cluster: graph analytics (centrality, connected-component, k-core)
//   - Rule: an inference rule joining two concept-query branches
type Intent interface {
	intentNode() // Marker method - seals interface to this package
}

// ConceptKind distinguishes entity queries from relationship queries.
type ConceptKind string

const (
	KindEntity       ConceptKind = "Entity"
	KindRelationship ConceptKind = "Relationship"
)

// Operator is a condition operator name as given by the caller.
// Which operators are legal depends on the attribute's declared type;
// that check happens during condition rendering, not here.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpContains    Operator = "contains"
	OpNotEquals   Operator = "not equals"
	OpNotContains Operator = "not contains"
	OpLessThan    Operator = "less than"
	OpGreaterThan Operator = "greater than"
	OpTrue        Operator = "true"
	OpFalse       Operator = "false"
	OpOn          Operator = "on"
	OpAfter       Operator = "after"
	OpBefore      Operator = "before"
	OpBetween     Operator = "between"
	OpNotOn       Operator = "not on"
	OpNotBetween  Operator = "not between"
	OpCongruent   Operator = "congruent"
)

// DateRange is the value for between / not between conditions.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ConditionSpec is one requested condition on an attribute.
//
// Value holds the literal: string for string attributes, int64/float64 for
// numeric ones, time.Time for date operators, DateRange for the between
// forms. Bool conditions carry the operator as the literal and no value.
// A ConditionSpec is only valid relative to the attribute's resolved type;
// validation occurs before any query text is emitted.
type ConditionSpec struct {
	Attribute string
	Operator  Operator
	Value     any
}

// RelationTraversal names a second concept reached from the parent concept
// via a relationship.
//
// Relationship may be empty, in which case the compiler resolves it from
// the entity pair - which fails if the pair is connected by more than one
// relationship. AttrConditions apply to the target concept;
// RelConditions apply to the joining relationship's own attributes.
type RelationTraversal struct {
	Target        string
	Relationship  string
	AttrConditions []ConditionSpec
	RelConditions  []ConditionSpec
}

// ConceptQuery is the recursive query node: one concept, conditions on its
// attributes, and traversals to connected concepts.
type ConceptQuery struct {
	Concept        string
	Kind           ConceptKind
	AttrConditions []ConditionSpec
	Traversals     []RelationTraversal
}

// Find matches instances of each listed concept under its conditions.
// A concept with no conditions at all compiles to a plain
// "retrieve all instances" statement.
type Find struct {
	Concepts []ConceptQuery
}

func (Find) intentNode() {}

// ComputeAction names one aggregation to perform.
type ComputeAction string

const (
	ActionCount  ComputeAction = "Count"
	ActionSum    ComputeAction = "Sum"
	ActionMax    ComputeAction = "Maximum"
	ActionMin    ComputeAction = "Minimum"
	ActionMean   ComputeAction = "Mean"
	ActionMedian ComputeAction = "Median"
	ActionStd    ComputeAction = "Standard Deviation"
)

// AllConcepts is the Count scope covering the whole graph.
const AllConcepts = "All Concepts"

// ComputeTarget is one (action, concept, attribute) aggregation request.
// Attribute is empty for Count; Concept may be AllConcepts for a
// whole-graph count.
type ComputeTarget struct {
	Action    ComputeAction
	Concept   string
	Attribute string
}

// Compute performs one or more aggregations. One statement is emitted per
// target.
type Compute struct {
	Targets []ComputeTarget
}

func (Compute) intentNode() {}

// ClusterKind selects the graph-analytics algorithm.
type ClusterKind string

const (
	// ClusterCentrality computes degree centrality, whole-graph or over
	// a concept subset, optionally narrowed to a focus type.
	ClusterCentrality ClusterKind = "centrality"

	// ClusterConnected computes connected components over a concept
	// subset.
	ClusterConnected ClusterKind = "connected-component"

	// ClusterKCore computes k-core clusters over a concept subset.
	// Requires K >= 2.
	ClusterKCore ClusterKind = "k-core"
)

// Cluster runs a graph-analytics computation.
type Cluster struct {
	Kind     ClusterKind
	Concepts []string

	// GivenType narrows centrality to a focus type. Ignored by the
	// clustering kinds.
	GivenType string

	// K is the minimum degree for k-core. Ignored by other kinds.
	K int
}

func (Cluster) intentNode() {}

// Rule defines an inference rule: when both branch conditions hold, insert
// an instance of a new relationship linking the two branch concepts.
type Rule struct {
	Name  string
	Cond1 ConceptQuery
	Cond2 ConceptQuery
}

func (Rule) intentNode() {}
