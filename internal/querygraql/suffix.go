package querygraql

// Branch identifies one of the two antecedent conditions of an inference
// rule. Find compilation uses BranchNone.
type Branch int

const (
	BranchNone Branch = iota
	BranchOne
	BranchTwo
)

// Position distinguishes a branch's primary concept from its
// relationship-traversal partner.
type Position int

const (
	Primary Position = iota
	Traversal
)

// suffix returns the variable-name suffix for a branch/position pair.
// Branch one binds its primary concept as _A and its traversal partner as
// _X; branch two binds _B and _Y. Find compilation uses no suffix.
//
// The pairing exists so a congruent condition can equate the same logical
// attribute across the two branches: _A pairs with _B, _X with _Y.
func suffix(b Branch, p Position) string {
	switch b {
	case BranchOne:
		if p == Traversal {
			return "_X"
		}
		return "_A"
	case BranchTwo:
		if p == Traversal {
			return "_Y"
		}
		return "_B"
	default:
		return ""
	}
}

// pairedSuffix returns the counterpart suffix for congruent conditions.
// Returns "" (no pair) outside a rule branch.
func pairedSuffix(s string) string {
	switch s {
	case "_A":
		return "_B"
	case "_B":
		return "_A"
	case "_X":
		return "_Y"
	case "_Y":
		return "_X"
	default:
		return ""
	}
}

// varName derives the query variable for an attribute binding. The name is
// a deterministic function of concept, attribute, and suffix - never of
// container iteration order.
func varName(concept, attr, sfx string) string {
	return concept + "_" + attr + sfx
}

// conceptVar derives the query variable for a concept binding.
func conceptVar(concept, sfx string) string {
	return concept + sfx
}
