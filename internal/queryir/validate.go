package queryir

import "fmt"

// ValidationResult contains structural analysis of an intent.
//
// Structural validation catches malformed trees (empty concept names,
// conditions without attributes) before the compiler consults the schema.
// Schema-dependent checks - operator legality, attribute existence,
// parameter ranges - are the compiler's job and produce typed errors.
type ValidationResult struct {
	// OK indicates the intent is structurally well-formed.
	OK bool

	// Problems lists structural defects found. Empty when OK is true.
	Problems []string
}

// Validate checks an intent tree for structural defects.
//
// Validate is a pure function with no side effects.
func Validate(intent Intent) ValidationResult {
	v := &validator{}
	switch it := intent.(type) {
	case Find:
		if len(it.Concepts) == 0 {
			v.addProblem("Find has no concepts")
		}
		for i, cq := range it.Concepts {
			v.validateConceptQuery(fmt.Sprintf("concepts[%d]", i), cq)
		}
	case Compute:
		if len(it.Targets) == 0 {
			v.addProblem("Compute has no targets")
		}
		for i, target := range it.Targets {
			if target.Concept == "" {
				v.addProblem("targets[%d]: concept is empty", i)
			}
			if target.Action != ActionCount && target.Attribute == "" {
				v.addProblem("targets[%d]: %s requires an attribute", i, target.Action)
			}
		}
	case Cluster:
		if it.Kind != ClusterCentrality && len(it.Concepts) == 0 {
			v.addProblem("%s requires a concept subset", it.Kind)
		}
	case Rule:
		if it.Name == "" {
			v.addProblem("Rule has no name")
		}
		v.validateConceptQuery("cond1", it.Cond1)
		v.validateConceptQuery("cond2", it.Cond2)
	case nil:
		v.addProblem("nil intent")
	default:
		v.addProblem("unknown intent type: %T", intent)
	}

	return ValidationResult{
		OK:       len(v.problems) == 0,
		Problems: v.problems,
	}
}

// validator accumulates problems during traversal.
type validator struct {
	problems []string
}

func (v *validator) addProblem(format string, args ...any) {
	v.problems = append(v.problems, fmt.Sprintf(format, args...))
}

func (v *validator) validateConceptQuery(path string, cq ConceptQuery) {
	if cq.Concept == "" {
		v.addProblem("%s: concept name is empty", path)
	}
	v.validateConditions(path, cq.AttrConditions)
	for i, tr := range cq.Traversals {
		tpath := fmt.Sprintf("%s.traversals[%d]", path, i)
		if tr.Target == "" {
			v.addProblem("%s: target concept is empty", tpath)
		}
		v.validateConditions(tpath, tr.AttrConditions)
		v.validateConditions(tpath+".rel", tr.RelConditions)
	}
}

func (v *validator) validateConditions(path string, conds []ConditionSpec) {
	for i, cond := range conds {
		if cond.Attribute == "" {
			v.addProblem("%s.conditions[%d]: attribute name is empty", path, i)
		}
		if cond.Operator == "" {
			v.addProblem("%s.conditions[%d]: operator is empty", path, i)
		}
	}
}
