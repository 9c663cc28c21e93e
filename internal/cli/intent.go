package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/codexkg/codex/internal/queryir"
	"github.com/codexkg/codex/internal/schema"
)

// intentEnvelope is the JSON wire form of a query intent. Exactly one of
// the fields must be set.
type intentEnvelope struct {
	Find    *findIntent    `json:"find,omitempty"`
	Compute *computeIntent `json:"compute,omitempty"`
	Cluster *clusterIntent `json:"cluster,omitempty"`
	Rule    *ruleIntent    `json:"rule,omitempty"`
}

type findIntent struct {
	Concepts []conceptQueryJSON `json:"concepts"`
}

type computeIntent struct {
	Targets []computeTargetJSON `json:"targets"`
}

type computeTargetJSON struct {
	Action    string `json:"action"`
	Concept   string `json:"concept"`
	Attribute string `json:"attribute,omitempty"`
}

type clusterIntent struct {
	Kind      string   `json:"kind"`
	Concepts  []string `json:"concepts,omitempty"`
	GivenType string   `json:"given_type,omitempty"`
	K         int      `json:"k,omitempty"`
}

type ruleIntent struct {
	Name  string           `json:"name"`
	Cond1 conceptQueryJSON `json:"cond1"`
	Cond2 conceptQueryJSON `json:"cond2"`
}

type conceptQueryJSON struct {
	Concept    string          `json:"concept"`
	Kind       string          `json:"kind,omitempty"`
	Conditions []conditionJSON `json:"conditions,omitempty"`
	Traversals []traversalJSON `json:"traversals,omitempty"`
}

type traversalJSON struct {
	Target        string          `json:"target"`
	Relationship  string          `json:"relationship,omitempty"`
	Conditions    []conditionJSON `json:"conditions,omitempty"`
	RelConditions []conditionJSON `json:"rel_conditions,omitempty"`
}

type conditionJSON struct {
	Attribute string          `json:"attribute"`
	Operator  string          `json:"operator"`
	Value     json.RawMessage `json:"value,omitempty"`
}

type dateRangeJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// dateValueLayouts are the date formats accepted in intent JSON.
var dateValueLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// DecodeIntent parses an intent JSON document, resolving condition value
// types against the registry so that literals reach the compiler in their
// declared form (int64 for long, time.Time / DateRange for date).
func DecodeIntent(reg *schema.Registry, data []byte) (queryir.Intent, error) {
	var env intentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing intent: %w", err)
	}

	set := 0
	for _, ok := range []bool{env.Find != nil, env.Compute != nil, env.Cluster != nil, env.Rule != nil} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, fmt.Errorf("intent must set exactly one of find, compute, cluster, rule")
	}

	switch {
	case env.Find != nil:
		concepts := make([]queryir.ConceptQuery, 0, len(env.Find.Concepts))
		for _, cq := range env.Find.Concepts {
			decoded, err := decodeConceptQuery(reg, cq)
			if err != nil {
				return nil, err
			}
			concepts = append(concepts, decoded)
		}
		return queryir.Find{Concepts: concepts}, nil

	case env.Compute != nil:
		targets := make([]queryir.ComputeTarget, 0, len(env.Compute.Targets))
		for _, t := range env.Compute.Targets {
			targets = append(targets, queryir.ComputeTarget{
				Action:    queryir.ComputeAction(t.Action),
				Concept:   t.Concept,
				Attribute: t.Attribute,
			})
		}
		return queryir.Compute{Targets: targets}, nil

	case env.Cluster != nil:
		return queryir.Cluster{
			Kind:      queryir.ClusterKind(env.Cluster.Kind),
			Concepts:  env.Cluster.Concepts,
			GivenType: env.Cluster.GivenType,
			K:         env.Cluster.K,
		}, nil

	default:
		cond1, err := decodeConceptQuery(reg, env.Rule.Cond1)
		if err != nil {
			return nil, err
		}
		cond2, err := decodeConceptQuery(reg, env.Rule.Cond2)
		if err != nil {
			return nil, err
		}
		return queryir.Rule{Name: env.Rule.Name, Cond1: cond1, Cond2: cond2}, nil
	}
}

func decodeConceptQuery(reg *schema.Registry, cq conceptQueryJSON) (queryir.ConceptQuery, error) {
	kind := queryir.ConceptKind(cq.Kind)
	if cq.Kind == "" {
		if reg.IsEntity(cq.Concept) {
			kind = queryir.KindEntity
		} else {
			kind = queryir.KindRelationship
		}
	}

	out := queryir.ConceptQuery{Concept: cq.Concept, Kind: kind}

	var err error
	out.AttrConditions, err = decodeConditions(reg, cq.Concept, cq.Conditions)
	if err != nil {
		return queryir.ConceptQuery{}, err
	}

	for _, tr := range cq.Traversals {
		attrConds, err := decodeConditions(reg, tr.Target, tr.Conditions)
		if err != nil {
			return queryir.ConceptQuery{}, err
		}

		relName := tr.Relationship
		relConds := []queryir.ConditionSpec(nil)
		if len(tr.RelConditions) > 0 {
			if relName == "" {
				relName, err = reg.RelationshipBetween(cq.Concept, tr.Target)
				if err != nil {
					return queryir.ConceptQuery{}, err
				}
			}
			relConds, err = decodeConditions(reg, relName, tr.RelConditions)
			if err != nil {
				return queryir.ConceptQuery{}, err
			}
		}

		out.Traversals = append(out.Traversals, queryir.RelationTraversal{
			Target:        tr.Target,
			Relationship:  tr.Relationship,
			AttrConditions: attrConds,
			RelConditions:  relConds,
		})
	}
	return out, nil
}

func decodeConditions(reg *schema.Registry, concept string, conds []conditionJSON) ([]queryir.ConditionSpec, error) {
	if len(conds) == 0 {
		return nil, nil
	}
	out := make([]queryir.ConditionSpec, 0, len(conds))
	for _, c := range conds {
		attrType, err := reg.AttributeType(concept, c.Attribute)
		if err != nil {
			return nil, err
		}
		value, err := decodeValue(attrType, concept, c)
		if err != nil {
			return nil, err
		}
		out = append(out, queryir.ConditionSpec{
			Attribute: c.Attribute,
			Operator:  queryir.Operator(c.Operator),
			Value:     value,
		})
	}
	return out, nil
}

// decodeValue converts a raw JSON value into the compiler's expected Go
// type for the attribute. Bool conditions carry no value; congruent
// conditions pass theirs through untouched.
func decodeValue(attrType schema.AttrType, concept string, c conditionJSON) (any, error) {
	if len(c.Value) == 0 {
		return nil, nil
	}
	if queryir.Operator(c.Operator) == queryir.OpCongruent {
		var v any
		if err := json.Unmarshal(c.Value, &v); err != nil {
			return nil, badValue(concept, c, err)
		}
		return v, nil
	}

	switch attrType {
	case schema.TypeString:
		var s string
		if err := json.Unmarshal(c.Value, &s); err != nil {
			return nil, badValue(concept, c, err)
		}
		return s, nil

	case schema.TypeLong:
		var n int64
		if err := json.Unmarshal(c.Value, &n); err != nil {
			return nil, badValue(concept, c, err)
		}
		return n, nil

	case schema.TypeDouble:
		var f float64
		if err := json.Unmarshal(c.Value, &f); err != nil {
			return nil, badValue(concept, c, err)
		}
		return f, nil

	case schema.TypeDate:
		op := queryir.Operator(c.Operator)
		if op == queryir.OpBetween || op == queryir.OpNotBetween {
			var r dateRangeJSON
			if err := json.Unmarshal(c.Value, &r); err != nil {
				return nil, badValue(concept, c, err)
			}
			start, err := parseDateValue(r.Start)
			if err != nil {
				return nil, badValue(concept, c, err)
			}
			end, err := parseDateValue(r.End)
			if err != nil {
				return nil, badValue(concept, c, err)
			}
			return queryir.DateRange{Start: start, End: end}, nil
		}
		var s string
		if err := json.Unmarshal(c.Value, &s); err != nil {
			return nil, badValue(concept, c, err)
		}
		d, err := parseDateValue(s)
		if err != nil {
			return nil, badValue(concept, c, err)
		}
		return d, nil

	default:
		// Bool operators carry the literal in the operator itself.
		return nil, nil
	}
}

func parseDateValue(s string) (time.Time, error) {
	for _, layout := range dateValueLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func badValue(concept string, c conditionJSON, err error) error {
	return fmt.Errorf("condition %s.%s: bad value: %w", concept, c.Attribute, err)
}
