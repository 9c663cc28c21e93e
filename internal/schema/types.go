// Package schema holds the entity/relationship catalog consulted during
// query compilation: attribute types, key attributes, role names, and the
// links between entities and the relationships they participate in.
//
// A Registry is the single source of truth for types and roles while a
// query is compiled. It is an explicit value passed into every compiler
// call; there is no ambient or global schema state.
package schema

// AttrType is the declared type of an attribute. It determines which
// condition operators are legal and how literal values are serialized
// into query text.
type AttrType string

const (
	TypeString AttrType = "string"
	TypeLong   AttrType = "long"
	TypeDouble AttrType = "double"
	TypeBool   AttrType = "bool"
	TypeDate   AttrType = "date"
)

// Valid reports whether t is one of the recognized attribute types.
func (t AttrType) Valid() bool {
	switch t {
	case TypeString, TypeLong, TypeDouble, TypeBool, TypeDate:
		return true
	}
	return false
}

// Numeric reports whether t supports statistical compute actions.
func (t AttrType) Numeric() bool {
	return t == TypeLong || t == TypeDouble
}

// DetailsAttr is the reserved provenance attribute present on every
// relationship. It holds a serialized description of which entity
// instances are joined, which the engine does not expose directly.
const DetailsAttr = "codex_details"

// RelationLink records, from an entity's point of view, its participation
// in one relationship: the role it plays and the entity on the other side.
type RelationLink struct {
	PlaysRole         string `json:"plays"`
	CounterpartEntity string `json:"with_ent"`
}

// Entity describes an entity type: its attributes, optional key attribute,
// and the relationships it participates in. Relations is populated
// incrementally as relationships referencing this entity are defined.
type Entity struct {
	Name       string                  `json:"name"`
	Key        string                  `json:"key,omitempty"`
	Attributes map[string]AttrType     `json:"attributes"`
	Relations  map[string]RelationLink `json:"relations"`
}

// RelSide describes one side of a relationship: the role name, the
// participating entity, and that entity's key attribute and its type.
type RelSide struct {
	Role    string   `json:"role"`
	Entity  string   `json:"entity"`
	KeyAttr string   `json:"key_attr"`
	KeyType AttrType `json:"key_type"`
}

// Relationship describes a relationship type between two entities.
// Roles are immutable after definition. Attributes always includes the
// reserved DetailsAttr provenance attribute.
type Relationship struct {
	Name       string              `json:"name"`
	Side1      RelSide             `json:"rel1"`
	Side2      RelSide             `json:"rel2"`
	Attributes map[string]AttrType `json:"attributes"`
}

// RuleRecord is a compiled inference rule retained in the schema document
// so matched instances can later be explained.
type RuleRecord struct {
	Name     string `json:"name"`
	Text     string `json:"text"`
	Readable string `json:"readable"`
	Template string `json:"template"`
}

// Document is the persisted form of a schema: the JSON blob written to the
// key-value cache. All three maps are always present, even when empty.
// Version supports the optimistic concurrency check on save.
type Document struct {
	EntityMap map[string]Entity       `json:"entity_map"`
	RelMap    map[string]Relationship `json:"rel_map"`
	RulesMap  map[string]RuleRecord   `json:"rules_map"`
	Version   int64                   `json:"version"`
}

// NewDocument returns an empty document with all maps allocated.
func NewDocument() Document {
	return Document{
		EntityMap: make(map[string]Entity),
		RelMap:    make(map[string]Relationship),
		RulesMap:  make(map[string]RuleRecord),
	}
}
