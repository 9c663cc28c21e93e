// Package querygraql compiles query intents into Graql text against a
// schema registry.
//
// The compiler is pure and stateless: given identical registry state and
// intent, it is deterministic and side-effect-free, and safe to invoke
// concurrently. It emits query text only - execution belongs to the
// engine boundary.
package querygraql

import (
	"fmt"
	"strings"

	"github.com/codexkg/codex/internal/queryir"
	"github.com/codexkg/codex/internal/schema"
)

// Statement is one emitted query text, tagged with its origin so raw
// answers can be traced back to the request that produced them.
type Statement struct {
	// Kind is one of "find", "compute", "cluster", "rule".
	Kind string

	// Concept is the originating concept (find), compute target concept,
	// or rule name.
	Concept string

	// Action is the compute action name, when Kind is "compute".
	Action string

	// Attribute is the compute target attribute, when present.
	Attribute string

	// Text is the compiled query text.
	Text string

	// QueryString is the natural-language rendering of a find concept
	// query.
	QueryString string
}

// Compiled is the result of compiling one intent.
type Compiled struct {
	Statements []Statement

	// Rule carries the readable/template strings for rule intents.
	Rule *RuleStrings
}

// Compiler compiles intents against one schema registry snapshot.
// No mutable state is shared between compilations.
type Compiler struct {
	reg *schema.Registry
}

// New returns a compiler over the given registry.
func New(reg *schema.Registry) *Compiler {
	return &Compiler{reg: reg}
}

// Compile turns an intent into one or more query statements.
//
// Validation failures return typed errors: schema.Error for unknown
// concepts/attributes and ambiguous relationships, CompileError for
// illegal operators and parameters.
func (c *Compiler) Compile(intent queryir.Intent) (*Compiled, error) {
	if result := queryir.Validate(intent); !result.OK {
		return nil, &CompileError{
			Code:    ErrCodeInvalidParameter,
			Message: "malformed intent: " + strings.Join(result.Problems, "; "),
		}
	}

	switch it := intent.(type) {
	case queryir.Find:
		return c.compileFind(it)
	case queryir.Compute:
		return c.compileCompute(it)
	case queryir.Cluster:
		return c.compileCluster(it)
	case queryir.Rule:
		return c.compileRule(it)
	default:
		return nil, &CompileError{
			Code:    ErrCodeInvalidParameter,
			Message: fmt.Sprintf("unsupported intent type: %T", intent),
		}
	}
}

// body is a compiled concept-query body: binding clauses followed by
// deferred filter clauses.
type body struct {
	bindings []string
	filters  []string
}

// compileFind emits one match statement per concept query. A concept with
// no conditions compiles to a plain retrieve-all statement, so Find never
// emits an empty request.
func (c *Compiler) compileFind(find queryir.Find) (*Compiled, error) {
	out := &Compiled{}
	for _, cq := range find.Concepts {
		b, phrase, err := c.renderConceptQuery(cq, BranchNone)
		if err != nil {
			return nil, err
		}
		parts := append([]string{}, b.bindings...)
		parts = append(parts, dedupe(b.filters)...)
		out.Statements = append(out.Statements, Statement{
			Kind:        "find",
			Concept:     cq.Concept,
			Text:        "match " + strings.Join(parts, "; ") + "; get;",
			QueryString: phrase,
		})
	}
	return out, nil
}

// computeKeywords maps action names to their statement keywords.
var computeKeywords = map[queryir.ComputeAction]string{
	queryir.ActionSum:    "sum",
	queryir.ActionMax:    "max",
	queryir.ActionMin:    "min",
	queryir.ActionMean:   "mean",
	queryir.ActionMedian: "median",
	queryir.ActionStd:    "std",
}

func (c *Compiler) compileCompute(compute queryir.Compute) (*Compiled, error) {
	out := &Compiled{}
	for _, target := range compute.Targets {
		stmt := Statement{
			Kind:      "compute",
			Concept:   target.Concept,
			Action:    string(target.Action),
			Attribute: target.Attribute,
		}

		if target.Action == queryir.ActionCount {
			if target.Concept == queryir.AllConcepts {
				stmt.Text = "compute count;"
			} else {
				if err := c.requireConcept(target.Concept); err != nil {
					return nil, err
				}
				stmt.Text = fmt.Sprintf("compute count in %s;", target.Concept)
			}
			out.Statements = append(out.Statements, stmt)
			continue
		}

		keyword, ok := computeKeywords[target.Action]
		if !ok {
			return nil, &CompileError{
				Code:    ErrCodeInvalidParameter,
				Concept: target.Concept,
				Message: fmt.Sprintf("unsupported compute action %q (valid: Count, Sum, Maximum, Minimum, Mean, Median, Standard Deviation)", target.Action),
			}
		}

		attrType, err := c.reg.AttributeType(target.Concept, target.Attribute)
		if err != nil {
			return nil, err
		}
		if !attrType.Numeric() {
			return nil, &CompileError{
				Code:      ErrCodeTypeError,
				Concept:   target.Concept,
				Attribute: target.Attribute,
				Message:   fmt.Sprintf("%s requires a numeric attribute, %s is %s", target.Action, target.Attribute, attrType),
			}
		}

		stmt.Text = fmt.Sprintf("compute %s of %s, in %s;", keyword, target.Attribute, target.Concept)
		out.Statements = append(out.Statements, stmt)
	}
	return out, nil
}

func (c *Compiler) compileCluster(cluster queryir.Cluster) (*Compiled, error) {
	for _, concept := range cluster.Concepts {
		if err := c.requireConcept(concept); err != nil {
			return nil, err
		}
	}
	subset := strings.Join(cluster.Concepts, ", ")

	var text string
	switch cluster.Kind {
	case queryir.ClusterCentrality:
		switch {
		case len(cluster.Concepts) == 0:
			text = "compute centrality using degree;"
		case cluster.GivenType != "":
			if err := c.requireConcept(cluster.GivenType); err != nil {
				return nil, err
			}
			text = fmt.Sprintf("compute centrality of %s, in [%s], using degree;", cluster.GivenType, subset)
		default:
			text = fmt.Sprintf("compute centrality in [%s], using degree;", subset)
		}
	case queryir.ClusterConnected:
		text = fmt.Sprintf("compute cluster in [%s], using connected-component;", subset)
	case queryir.ClusterKCore:
		if cluster.K < 2 {
			return nil, &CompileError{
				Code:    ErrCodeInvalidParameter,
				Message: fmt.Sprintf("k-core requires k >= 2, got %d", cluster.K),
			}
		}
		text = fmt.Sprintf("compute cluster in [%s], using k-core, where k=%d;", subset, cluster.K)
	default:
		return nil, &CompileError{
			Code:    ErrCodeInvalidParameter,
			Message: fmt.Sprintf("unsupported cluster kind %q (valid: centrality, connected-component, k-core)", cluster.Kind),
		}
	}

	return &Compiled{Statements: []Statement{{
		Kind:    "cluster",
		Concept: subset,
		Action:  string(cluster.Kind),
		Text:    text,
	}}}, nil
}

// compileRule emits a four-part inference-rule definition: the inferred
// relationship with its two roles, plays declarations for both entities, a
// when clause conjoining the two branch bodies with an inequality between
// the branch variables, and a then clause inserting the new relationship.
//
// Branch bodies reuse the same concept-query renderer as Find,
// parameterized only by suffix, which keeps Find and Rule semantics
// consistent.
func (c *Compiler) compileRule(rule queryir.Rule) (*Compiled, error) {
	for _, concept := range []string{rule.Cond1.Concept, rule.Cond2.Concept} {
		if !c.reg.IsEntity(concept) {
			if err := c.requireConcept(concept); err != nil {
				return nil, err
			}
			return nil, &CompileError{
				Code:    ErrCodeInvalidParameter,
				Concept: concept,
				Message: "rule branches must be entities",
			}
		}
	}

	b1, _, err := c.renderConceptQuery(rule.Cond1, BranchOne)
	if err != nil {
		return nil, err
	}
	b2, _, err := c.renderConceptQuery(rule.Cond2, BranchTwo)
	if err != nil {
		return nil, err
	}

	role1 := rule.Name + "_rel1"
	role2 := rule.Name + "_rel2"
	var1 := conceptVar(rule.Cond1.Concept, suffix(BranchOne, Primary))
	var2 := conceptVar(rule.Cond2.Concept, suffix(BranchTwo, Primary))

	// A concept must not end up related to itself.
	inequality := fmt.Sprintf("$%s != $%s", var1, var2)

	when := append([]string{}, b1.bindings...)
	when = append(when, b2.bindings...)
	when = append(when, dedupe(append(append([]string{}, b1.filters...), b2.filters...))...)
	when = append(when, inequality)

	text := fmt.Sprintf(
		"define %s sub relation, relates %s, relates %s; %s sub entity, plays %s; %s sub entity, plays %s; %s-rule sub rule, when { %s; }, then { (%s: $%s, %s: $%s) isa %s; };",
		rule.Name, role1, role2,
		rule.Cond1.Concept, role1,
		rule.Cond2.Concept, role2,
		rule.Name, strings.Join(when, "; "),
		role1, var1, role2, var2, rule.Name,
	)

	strs := GenerateRuleStrings(rule)
	return &Compiled{
		Statements: []Statement{{Kind: "rule", Concept: rule.Name, Text: text}},
		Rule:       &strs,
	}, nil
}

// renderConceptQuery compiles one ConceptQuery into binding and filter
// clauses, plus its natural-language phrase. The branch selects the
// variable suffixes; BranchNone renders unsuffixed Find bindings.
func (c *Compiler) renderConceptQuery(cq queryir.ConceptQuery, branch Branch) (body, string, error) {
	sfx := suffix(branch, Primary)
	tsfx := suffix(branch, Traversal)

	var b body
	var phrase strings.Builder
	phrase.WriteString("Find " + plural(cq.Concept))

	binding, err := c.renderBindingClause(cq.Concept, conceptVar(cq.Concept, sfx), cq.AttrConditions, sfx, &b, &phrase)
	if err != nil {
		return body{}, "", err
	}
	b.bindings = append([]string{binding}, b.bindings...)

	for _, tr := range cq.Traversals {
		if cq.Kind == queryir.KindRelationship {
			return body{}, "", &CompileError{
				Code:    ErrCodeInvalidParameter,
				Concept: cq.Concept,
				Message: "relationship queries cannot traverse further",
			}
		}
		if err := c.renderTraversal(cq.Concept, tr, sfx, tsfx, &b, &phrase); err != nil {
			return body{}, "", err
		}
	}

	phrase.WriteString(". ")
	return b, phrase.String(), nil
}

// renderBindingClause renders "$var isa Concept" plus a has clause per
// attribute condition, appending deferred filters to b and condition
// phrases to the natural-language string.
func (c *Compiler) renderBindingClause(concept, variable string, conds []queryir.ConditionSpec, sfx string, b *body, phrase *strings.Builder) (string, error) {
	clause := "$" + variable + " isa " + concept
	for _, cond := range conds {
		attrType, err := c.reg.AttributeType(concept, cond.Attribute)
		if err != nil {
			return "", err
		}
		r, err := renderCondition(attrType, concept, cond, sfx)
		if err != nil {
			return "", err
		}
		clause += ", has " + cond.Attribute + r.inline
		b.filters = append(b.filters, r.filters...)
		phrase.WriteString(conditionPhrase(cond))
	}
	return clause, nil
}

// renderTraversal compiles one relationship step: the target concept's
// binding, then the role-pattern clause, carrying the relationship's own
// attribute conditions when present.
func (c *Compiler) renderTraversal(from string, tr queryir.RelationTraversal, sfx, tsfx string, b *body, phrase *strings.Builder) error {
	relName := tr.Relationship
	if relName == "" {
		var err error
		relName, err = c.reg.RelationshipBetween(from, tr.Target)
		if err != nil {
			return err
		}
		if relName == "" {
			return &CompileError{
				Code:    ErrCodeInvalidParameter,
				Concept: from,
				Message: fmt.Sprintf("no relationship connects %s and %s", from, tr.Target),
			}
		}
	}

	fromEnt, err := c.reg.ResolveEntity(from)
	if err != nil {
		return err
	}
	targetEnt, err := c.reg.ResolveEntity(tr.Target)
	if err != nil {
		return err
	}
	fromLink, ok := fromEnt.Relations[relName]
	if !ok {
		return &CompileError{
			Code:    ErrCodeInvalidParameter,
			Concept: from,
			Message: fmt.Sprintf("entity does not participate in relationship %s", relName),
		}
	}
	targetLink, ok := targetEnt.Relations[relName]
	if !ok {
		return &CompileError{
			Code:    ErrCodeInvalidParameter,
			Concept: tr.Target,
			Message: fmt.Sprintf("entity does not participate in relationship %s", relName),
		}
	}

	phrase.WriteString(" that " + fromLink.PlaysRole + " " + plural(tr.Target))

	targetClause, err := c.renderBindingClause(tr.Target, conceptVar(tr.Target, tsfx), tr.AttrConditions, tsfx, b, phrase)
	if err != nil {
		return err
	}
	b.bindings = append(b.bindings, targetClause)

	rolePattern := fmt.Sprintf("(%s: $%s, %s: $%s) isa %s",
		fromLink.PlaysRole, conceptVar(from, sfx),
		targetLink.PlaysRole, conceptVar(tr.Target, tsfx),
		relName)

	// Conditions on the joining relationship's own attributes bind the
	// relationship to a variable of its own, one level deep.
	if len(tr.RelConditions) > 0 {
		phrase.WriteString(" linked by " + plural(relName))
		relClause := "$" + conceptVar(relName, sfx) + " " + rolePattern
		for _, cond := range tr.RelConditions {
			attrType, err := c.reg.AttributeType(relName, cond.Attribute)
			if err != nil {
				return err
			}
			r, err := renderCondition(attrType, relName, cond, sfx)
			if err != nil {
				return err
			}
			relClause += ", has " + cond.Attribute + r.inline
			b.filters = append(b.filters, r.filters...)
			phrase.WriteString(conditionPhrase(cond))
		}
		b.bindings = append(b.bindings, relClause)
		return nil
	}

	b.bindings = append(b.bindings, rolePattern)
	return nil
}

// requireConcept fails with UNKNOWN_CONCEPT unless name is a defined
// entity or relationship.
func (c *Compiler) requireConcept(name string) error {
	if c.reg.IsEntity(name) {
		return nil
	}
	if _, err := c.reg.ResolveRelationship(name); err != nil {
		return err
	}
	return nil
}

// dedupe drops repeated filter clauses, preserving first-seen order.
// Congruent conditions render identically from both rule branches, so the
// duplicate collapses here.
func dedupe(clauses []string) []string {
	seen := make(map[string]struct{}, len(clauses))
	var out []string
	for _, clause := range clauses {
		if _, ok := seen[clause]; ok {
			continue
		}
		seen[clause] = struct{}{}
		out = append(out, clause)
	}
	return out
}
