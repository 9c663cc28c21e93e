package querygraql

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/codexkg/codex/internal/queryir"
)

// RuleStrings pairs the human-readable description of a compiled rule
// with a token-substitutable template. The template carries one
// REPLACE_<concept>_<attr> token per condition value; matched instances
// fill the tokens in via SubstituteExplanation.
type RuleStrings struct {
	Readable string
	Template string
}

var titleCaser = cases.Title(language.English)

// GenerateRuleStrings produces the readable and template strings for a
// rule intent. Both strings describe the same conjunction; they differ
// only in whether condition values appear literally or as tokens.
func GenerateRuleStrings(rule queryir.Rule) RuleStrings {
	head := titleCaser.String(strings.ReplaceAll(rule.Name, "_", " "))
	tail := fmt.Sprintf(", then they are %s related.", rule.Name)

	readable := head + ": if " + branchPhrase(rule.Cond1, false) +
		" and " + branchPhrase(rule.Cond2, false) + tail
	template := head + ": if " + branchPhrase(rule.Cond1, true) +
		" and " + branchPhrase(rule.Cond2, true) + tail

	return RuleStrings{Readable: readable, Template: template}
}

// ReplaceToken is the substitution token for one (concept, attribute)
// pair in a rule template.
func ReplaceToken(concept, attr string) string {
	return "REPLACE_" + concept + "_" + attr
}

// SubstituteExplanation fills a rule template's tokens with the concrete
// attribute values of one matched instance pair. Explanation maps concept
// name to attribute name to value.
func SubstituteExplanation(template string, explanation map[string]map[string]any) string {
	out := template
	for concept, attrs := range explanation {
		for attr, value := range attrs {
			out = strings.ReplaceAll(out, ReplaceToken(concept, attr), phraseValue(value))
		}
	}
	return out
}

func branchPhrase(cq queryir.ConceptQuery, tokens bool) string {
	var b strings.Builder
	b.WriteString(plural(cq.Concept))
	for _, cond := range cq.AttrConditions {
		b.WriteString(describeCondition(cq.Concept, cond, tokens))
	}
	for _, tr := range cq.Traversals {
		b.WriteString(" that relate to " + plural(tr.Target))
		for _, cond := range tr.AttrConditions {
			b.WriteString(describeCondition(tr.Target, cond, tokens))
		}
		if len(tr.RelConditions) > 0 {
			rel := tr.Relationship
			if rel == "" {
				rel = "their relationship"
			}
			b.WriteString(" where " + rel)
			for _, cond := range tr.RelConditions {
				b.WriteString(describeCondition(tr.Relationship, cond, tokens))
			}
		}
	}
	return b.String()
}

// conditionPhrase renders a condition for find query strings, with the
// literal value in place.
func conditionPhrase(cond queryir.ConditionSpec) string {
	return describeCondition("", cond, false)
}

func describeCondition(concept string, cond queryir.ConditionSpec, tokens bool) string {
	switch cond.Operator {
	case queryir.OpCongruent:
		return fmt.Sprintf(" that have the same %s", cond.Attribute)
	case queryir.OpTrue, queryir.OpFalse:
		return fmt.Sprintf(" that have a %s that is %s", cond.Attribute, cond.Operator)
	}

	value := phraseValue(cond.Value)
	if tokens {
		value = ReplaceToken(concept, cond.Attribute)
	}
	return fmt.Sprintf(" that have a %s that %s %s", cond.Attribute, cond.Operator, value)
}

func phraseValue(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.Format(dateLayout)
	case queryir.DateRange:
		return v.Start.Format(dateLayout) + " and " + v.End.Format(dateLayout)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// plural applies the original system's pluralization rules: es after
// sibilants and most h-endings, ies for consonant+y, s otherwise.
func plural(noun string) string {
	if noun == "" {
		return noun
	}
	lower := strings.ToLower(noun)
	last := lower[len(lower)-1]

	switch last {
	case 's', 'x', 'z':
		return noun + "es"
	case 'h':
		if len(lower) >= 2 && !strings.ContainsRune("aeioudgkprt", rune(lower[len(lower)-2])) {
			return noun + "es"
		}
	case 'y':
		if len(lower) >= 2 && !strings.ContainsRune("aeiou", rune(lower[len(lower)-2])) {
			return noun[:len(noun)-1] + "ies"
		}
	}
	return noun + "s"
}
