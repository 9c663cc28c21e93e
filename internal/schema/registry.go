package schema

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the in-memory catalog for one schema (keyspace).
//
// Reads during compilation are plain map lookups on an effectively
// immutable snapshot; mutations (defining entities, relationships, rules)
// are serialized by an internal mutex because relationship definitions
// read the entity catalog to resolve keys and types.
type Registry struct {
	mu   sync.Mutex
	name string
	doc  Document

	// version of the document this registry was loaded from; checked
	// on save to detect concurrent writers.
	loadedVersion int64
}

// NewRegistry returns an empty registry for the named schema.
func NewRegistry(name string) *Registry {
	return &Registry{name: name, doc: NewDocument()}
}

// Name returns the schema (keyspace) name.
func (r *Registry) Name() string { return r.name }

// ResolveEntity returns the entity definition for name.
func (r *Registry) ResolveEntity(name string) (Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ent, ok := r.doc.EntityMap[name]
	if !ok {
		return Entity{}, unknownConcept(name)
	}
	return ent, nil
}

// ResolveRelationship returns the relationship definition for name.
func (r *Registry) ResolveRelationship(name string) (Relationship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.doc.RelMap[name]
	if !ok {
		return Relationship{}, unknownConcept(name)
	}
	return rel, nil
}

// IsEntity reports whether name is a defined entity.
func (r *Registry) IsEntity(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.doc.EntityMap[name]
	return ok
}

// RelationshipBetween returns the name of the relationship connecting the
// unordered pair {entityA, entityB}. Returns "" when no relationship
// connects the pair.
//
// When the pair is multiply connected the lookup is ambiguous and fails
// with AMBIGUOUS_RELATIONSHIP: the caller must name the relationship
// explicitly rather than have one picked silently.
func (r *Registry) RelationshipBetween(entityA, entityB string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []string
	for _, relName := range sortedKeys(r.doc.RelMap) {
		rel := r.doc.RelMap[relName]
		e1, e2 := rel.Side1.Entity, rel.Side2.Entity
		if (entityA == e1 && entityB == e2) || (entityA == e2 && entityB == e1) {
			matches = append(matches, relName)
		}
	}

	switch len(matches) {
	case 0:
		return "", nil
	case 1:
		return matches[0], nil
	default:
		return "", &Error{
			Code:    ErrCodeAmbiguousRelationship,
			Message: fmt.Sprintf("entities %s and %s are connected by %v: name the relationship explicitly", entityA, entityB, matches),
		}
	}
}

// AttributeType returns the declared type of an attribute on a concept
// (entity or relationship).
func (r *Registry) AttributeType(concept, attr string) (AttrType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attributeTypeLocked(concept, attr)
}

func (r *Registry) attributeTypeLocked(concept, attr string) (AttrType, error) {
	if ent, ok := r.doc.EntityMap[concept]; ok {
		if t, ok := ent.Attributes[attr]; ok {
			return t, nil
		}
		return "", unknownAttribute(concept, attr)
	}
	if rel, ok := r.doc.RelMap[concept]; ok {
		if t, ok := rel.Attributes[attr]; ok {
			return t, nil
		}
		return "", unknownAttribute(concept, attr)
	}
	return "", unknownConcept(concept)
}

// DefineEntity registers a new entity type. Key names the attribute used
// as the external identifying key; it may be empty. Key, when given, must
// appear in attrs.
func (r *Registry) DefineEntity(name, key string, attrs map[string]AttrType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if name == "" {
		return &Error{Code: ErrCodeDuplicateConcept, Message: "entity name must not be empty"}
	}
	if _, exists := r.doc.EntityMap[name]; exists {
		return &Error{Code: ErrCodeDuplicateConcept, Concept: name, Message: "entity already defined"}
	}
	if _, exists := r.doc.RelMap[name]; exists {
		return &Error{Code: ErrCodeDuplicateConcept, Concept: name, Message: "name already used by a relationship"}
	}
	for attr, t := range attrs {
		if !t.Valid() {
			return fmt.Errorf("define entity %s: attribute %s has invalid type %q", name, attr, t)
		}
	}
	if key != "" {
		if _, ok := attrs[key]; !ok {
			return unknownAttribute(name, key)
		}
	}

	ent := Entity{
		Name:       name,
		Key:        key,
		Attributes: make(map[string]AttrType, len(attrs)),
		Relations:  make(map[string]RelationLink),
	}
	for attr, t := range attrs {
		ent.Attributes[attr] = t
	}
	r.doc.EntityMap[name] = ent
	return nil
}

// DefineRelationship registers a new relationship type between two
// entities. Each side names a role and a participating entity; the
// entity's key attribute and key type are resolved from the catalog.
// The reserved DetailsAttr provenance attribute is always added.
//
// Both entities' Relations maps are updated with their role and
// counterpart, so later traversal compilation can resolve role pairs
// from either direction.
func (r *Registry) DefineRelationship(name string, role1, entity1, role2, entity2 string, attrs map[string]AttrType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.doc.RelMap[name]; exists {
		return &Error{Code: ErrCodeDuplicateConcept, Concept: name, Message: "relationship already defined"}
	}
	if _, exists := r.doc.EntityMap[name]; exists {
		return &Error{Code: ErrCodeDuplicateConcept, Concept: name, Message: "name already used by an entity"}
	}

	ent1, ok := r.doc.EntityMap[entity1]
	if !ok {
		return unknownConcept(entity1)
	}
	ent2, ok := r.doc.EntityMap[entity2]
	if !ok {
		return unknownConcept(entity2)
	}

	rel := Relationship{
		Name:       name,
		Side1:      sideFor(role1, ent1),
		Side2:      sideFor(role2, ent2),
		Attributes: make(map[string]AttrType, len(attrs)+1),
	}
	for attr, t := range attrs {
		if !t.Valid() {
			return fmt.Errorf("define relationship %s: attribute %s has invalid type %q", name, attr, t)
		}
		rel.Attributes[attr] = t
	}
	rel.Attributes[DetailsAttr] = TypeString

	r.doc.RelMap[name] = rel
	ent1.Relations[name] = RelationLink{PlaysRole: role1, CounterpartEntity: entity2}
	ent2.Relations[name] = RelationLink{PlaysRole: role2, CounterpartEntity: entity1}
	r.doc.EntityMap[entity1] = ent1
	r.doc.EntityMap[entity2] = ent2
	return nil
}

func sideFor(role string, ent Entity) RelSide {
	side := RelSide{Role: role, Entity: ent.Name, KeyAttr: ent.Key}
	if ent.Key != "" {
		side.KeyType = ent.Attributes[ent.Key]
	}
	return side
}

// AddRule records a compiled inference rule in the schema document.
func (r *Registry) AddRule(rule RuleRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.Name == "" {
		return fmt.Errorf("rule name must not be empty")
	}
	r.doc.RulesMap[rule.Name] = rule
	return nil
}

// Rule returns a stored rule record by name.
func (r *Registry) Rule(name string) (RuleRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rule, ok := r.doc.RulesMap[name]
	if !ok {
		return RuleRecord{}, unknownConcept(name)
	}
	return rule, nil
}

// Entities returns all entity names in sorted order.
func (r *Registry) Entities() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.doc.EntityMap)
}

// Relationships returns all relationship names in sorted order.
func (r *Registry) Relationships() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.doc.RelMap)
}

// Snapshot returns a deep copy of the current document.
func (r *Registry) Snapshot() Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyDocument(r.doc)
}

func copyDocument(doc Document) Document {
	out := NewDocument()
	out.Version = doc.Version
	for name, ent := range doc.EntityMap {
		copied := Entity{
			Name:       ent.Name,
			Key:        ent.Key,
			Attributes: make(map[string]AttrType, len(ent.Attributes)),
			Relations:  make(map[string]RelationLink, len(ent.Relations)),
		}
		for k, v := range ent.Attributes {
			copied.Attributes[k] = v
		}
		for k, v := range ent.Relations {
			copied.Relations[k] = v
		}
		out.EntityMap[name] = copied
	}
	for name, rel := range doc.RelMap {
		copied := rel
		copied.Attributes = make(map[string]AttrType, len(rel.Attributes))
		for k, v := range rel.Attributes {
			copied.Attributes[k] = v
		}
		out.RelMap[name] = copied
	}
	for name, rule := range doc.RulesMap {
		out.RulesMap[name] = rule
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
