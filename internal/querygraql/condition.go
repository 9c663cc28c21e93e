package querygraql

import (
	"fmt"
	"strconv"
	"time"

	"github.com/codexkg/codex/internal/queryir"
	"github.com/codexkg/codex/internal/schema"
)

// dateLayout is the canonical date-time literal format in emitted text.
const dateLayout = "2006-01-02T15:04:05.000"

// nanSentinel marks empty/NaN attribute values in ingested data. Congruent
// conditions with value "true" exclude it so null-ish values never count
// as matching each other.
const nanSentinel = `"nan"`

// legalOperators maps each attribute type to its legal operator set, in
// the order reported by error messages.
var legalOperators = map[schema.AttrType][]queryir.Operator{
	schema.TypeString: {queryir.OpEquals, queryir.OpContains, queryir.OpNotEquals, queryir.OpNotContains, queryir.OpCongruent},
	schema.TypeLong:   {queryir.OpEquals, queryir.OpLessThan, queryir.OpGreaterThan, queryir.OpNotEquals, queryir.OpCongruent},
	schema.TypeDouble: {queryir.OpEquals, queryir.OpLessThan, queryir.OpGreaterThan, queryir.OpNotEquals, queryir.OpCongruent},
	schema.TypeBool:   {queryir.OpTrue, queryir.OpFalse},
	schema.TypeDate:   {queryir.OpOn, queryir.OpAfter, queryir.OpBefore, queryir.OpBetween, queryir.OpNotOn, queryir.OpNotBetween, queryir.OpCongruent},
}

// rendered is the output of condition rendering: an inline fragment that
// completes the attribute-has clause, plus any deferred filter clauses.
//
// The two-phase emission exists because the query language cannot express
// contains, negation, or relational comparisons inline on a has clause:
// those conditions bind the attribute to a fresh variable (inline) and
// state the real condition as a boolean filter evaluated after all
// bindings are made (filters).
type rendered struct {
	inline  string
	filters []string
}

// renderCondition validates the operator against the attribute's declared
// type and renders the condition for the given variable suffix.
//
// concept is the concept owning the attribute; sfx is the branch/position
// variable suffix ("" outside rules).
func renderCondition(attrType schema.AttrType, concept string, cond queryir.ConditionSpec, sfx string) (rendered, error) {
	legal, ok := legalOperators[attrType]
	if !ok {
		return rendered{}, &CompileError{
			Code:      ErrCodeUnsupportedType,
			Concept:   concept,
			Attribute: cond.Attribute,
			Message:   fmt.Sprintf("unrecognized attribute type %q", attrType),
		}
	}
	if !operatorIn(cond.Operator, legal) {
		return rendered{}, &CompileError{
			Code:      ErrCodeUnsupportedOperator,
			Concept:   concept,
			Attribute: cond.Attribute,
			Message:   fmt.Sprintf("operator %q not legal for %s attributes (legal: %v)", cond.Operator, attrType, legal),
		}
	}

	if cond.Operator == queryir.OpCongruent {
		return renderCongruent(concept, cond, sfx)
	}

	variable := varName(concept, cond.Attribute, sfx)
	switch attrType {
	case schema.TypeString:
		return renderStringCondition(cond, variable)
	case schema.TypeLong, schema.TypeDouble:
		return renderNumberCondition(attrType, cond, variable)
	case schema.TypeBool:
		// The operator is the literal: true / false, emitted quoted.
		return rendered{inline: fmt.Sprintf(" %q", string(cond.Operator))}, nil
	case schema.TypeDate:
		return renderDateCondition(cond, variable)
	}
	// Unreachable: legalOperators covers every valid type.
	return rendered{}, &CompileError{Code: ErrCodeUnsupportedType, Message: string(attrType)}
}

func renderStringCondition(cond queryir.ConditionSpec, variable string) (rendered, error) {
	lit, err := stringLiteral(cond)
	if err != nil {
		return rendered{}, err
	}
	switch cond.Operator {
	case queryir.OpEquals:
		return rendered{inline: " " + lit}, nil
	case queryir.OpContains:
		return rendered{
			inline:  " $" + variable,
			filters: []string{fmt.Sprintf("$%s contains %s", variable, lit)},
		}, nil
	case queryir.OpNotEquals:
		return rendered{
			inline:  " $" + variable,
			filters: []string{fmt.Sprintf("$%s != %s", variable, lit)},
		}, nil
	case queryir.OpNotContains:
		return rendered{
			inline:  " $" + variable,
			filters: []string{fmt.Sprintf("not { $%s contains %s; }", variable, lit)},
		}, nil
	}
	return rendered{}, operatorBug(cond)
}

func renderNumberCondition(attrType schema.AttrType, cond queryir.ConditionSpec, variable string) (rendered, error) {
	lit, err := numberLiteral(attrType, cond)
	if err != nil {
		return rendered{}, err
	}
	switch cond.Operator {
	case queryir.OpEquals:
		return rendered{inline: " " + lit}, nil
	case queryir.OpLessThan:
		return rendered{
			inline:  " $" + variable,
			filters: []string{fmt.Sprintf("$%s < %s", variable, lit)},
		}, nil
	case queryir.OpGreaterThan:
		return rendered{
			inline:  " $" + variable,
			filters: []string{fmt.Sprintf("$%s > %s", variable, lit)},
		}, nil
	case queryir.OpNotEquals:
		return rendered{
			inline:  " $" + variable,
			filters: []string{fmt.Sprintf("$%s != %s", variable, lit)},
		}, nil
	}
	return rendered{}, operatorBug(cond)
}

func renderDateCondition(cond queryir.ConditionSpec, variable string) (rendered, error) {
	switch cond.Operator {
	case queryir.OpOn, queryir.OpAfter, queryir.OpBefore, queryir.OpNotOn:
		when, err := dateLiteral(cond)
		if err != nil {
			return rendered{}, err
		}
		switch cond.Operator {
		case queryir.OpOn:
			return rendered{inline: " " + when}, nil
		case queryir.OpAfter:
			return rendered{
				inline:  " $" + variable,
				filters: []string{fmt.Sprintf("$%s > %s", variable, when)},
			}, nil
		case queryir.OpBefore:
			return rendered{
				inline:  " $" + variable,
				filters: []string{fmt.Sprintf("$%s < %s", variable, when)},
			}, nil
		default: // not on
			return rendered{
				inline:  " $" + variable,
				filters: []string{fmt.Sprintf("$%s != %s", variable, when)},
			}, nil
		}
	case queryir.OpBetween, queryir.OpNotBetween:
		rng, ok := cond.Value.(queryir.DateRange)
		if !ok {
			return rendered{}, &CompileError{
				Code:      ErrCodeInvalidValue,
				Attribute: cond.Attribute,
				Message:   fmt.Sprintf("%s requires a DateRange value, got %T", cond.Operator, cond.Value),
			}
		}
		start := rng.Start.Format(dateLayout)
		end := rng.End.Format(dateLayout)
		if cond.Operator == queryir.OpBetween {
			return rendered{
				inline: " $" + variable,
				filters: []string{
					fmt.Sprintf("$%s > %s", variable, start),
					fmt.Sprintf("$%s < %s", variable, end),
				},
			}, nil
		}
		return rendered{
			inline:  " $" + variable,
			filters: []string{fmt.Sprintf("not { $%s > %s; $%s < %s; }", variable, start, variable, end)},
		}, nil
	}
	return rendered{}, operatorBug(cond)
}

// renderCongruent asserts equality between the same logical attribute on
// the two structurally paired instances identified by the suffix
// convention. The emitted filter equates the suffixed variables; a
// condition value of "true" additionally excludes the empty/NaN sentinel
// on this branch's variable.
func renderCongruent(concept string, cond queryir.ConditionSpec, sfx string) (rendered, error) {
	partner := pairedSuffix(sfx)
	if partner == "" {
		return rendered{}, &CompileError{
			Code:      ErrCodeInvalidParameter,
			Concept:   concept,
			Attribute: cond.Attribute,
			Message:   "congruent conditions only apply inside rule branches",
		}
	}

	mine := varName(concept, cond.Attribute, sfx)
	theirs := varName(concept, cond.Attribute, partner)

	// Both branches render the same congruent condition; ordering the
	// pair makes the equality filter identical from either side so
	// deduplication keeps exactly one.
	first, second := mine, theirs
	if second < first {
		first, second = second, first
	}

	out := rendered{
		inline:  " $" + mine,
		filters: []string{fmt.Sprintf("$%s == $%s", first, second)},
	}
	if excludeNaN(cond.Value) {
		out.filters = append(out.filters, fmt.Sprintf("$%s != %s", mine, nanSentinel))
	}
	return out, nil
}

func excludeNaN(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

func stringLiteral(cond queryir.ConditionSpec) (string, error) {
	s, ok := cond.Value.(string)
	if !ok {
		return "", &CompileError{
			Code:      ErrCodeInvalidValue,
			Attribute: cond.Attribute,
			Message:   fmt.Sprintf("string condition requires a string value, got %T", cond.Value),
		}
	}
	return strconv.Quote(s), nil
}

func numberLiteral(attrType schema.AttrType, cond queryir.ConditionSpec) (string, error) {
	switch v := cond.Value.(type) {
	case int:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		if attrType == schema.TypeLong && v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	default:
		return "", &CompileError{
			Code:      ErrCodeInvalidValue,
			Attribute: cond.Attribute,
			Message:   fmt.Sprintf("%s condition requires a numeric value, got %T", attrType, cond.Value),
		}
	}
}

func dateLiteral(cond queryir.ConditionSpec) (string, error) {
	t, ok := cond.Value.(time.Time)
	if !ok {
		return "", &CompileError{
			Code:      ErrCodeInvalidValue,
			Attribute: cond.Attribute,
			Message:   fmt.Sprintf("date condition requires a time.Time value, got %T", cond.Value),
		}
	}
	return t.Format(dateLayout), nil
}

func operatorIn(op queryir.Operator, set []queryir.Operator) bool {
	for _, legal := range set {
		if op == legal {
			return true
		}
	}
	return false
}

// operatorBug covers switch arms that the legality check should have made
// unreachable.
func operatorBug(cond queryir.ConditionSpec) error {
	return &CompileError{
		Code:      ErrCodeUnsupportedOperator,
		Attribute: cond.Attribute,
		Message:   fmt.Sprintf("operator %q passed legality check but has no rendering", cond.Operator),
	}
}
