// Package schemacue loads schema-as-code declarations written in CUE and
// registers them into a schema registry. A declaration file names the
// keyspace and declares entities and relationships:
//
//	keyspace: "tech_example"
//
//	entity: Company: {
//		key: "name"
//		attributes: {
//			name:   "string"
//			budget: "double"
//		}
//	}
//
//	relationship: Productize: {
//		rel1: {role: "produces", entity: "Company"}
//		rel2: {role: "produced", entity: "Product"}
//		attributes: note: "string"
//	}
package schemacue

import (
	"fmt"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"

	"github.com/codexkg/codex/internal/schema"
)

// EntityDecl is one declared entity type.
type EntityDecl struct {
	Name       string
	Key        string
	Attributes map[string]schema.AttrType
}

// RelDecl is one declared relationship type.
type RelDecl struct {
	Name       string
	Role1      string
	Entity1    string
	Role2      string
	Entity2    string
	Attributes map[string]schema.AttrType
}

// Declaration is a fully decoded schema file.
type Declaration struct {
	Keyspace      string
	Entities      []EntityDecl
	Relationships []RelDecl
}

// LoadError is a declaration failure with its CUE position when known.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

const (
	ErrCodeLoadFailed  = "SC001" // CUE load or build failed
	ErrCodeNoKeyspace  = "SC002" // keyspace field missing
	ErrCodeBadEntity   = "SC003" // malformed entity declaration
	ErrCodeBadRel      = "SC004" // malformed relationship declaration
	ErrCodeBadAttrType = "SC005" // unrecognized attribute type
)

// Load builds the CUE package in dir and decodes it.
func Load(dir string) (*Declaration, error) {
	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: "no CUE instances loaded"}
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("loading CUE files: %v", inst.Err)}
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("building CUE value: %v", err)}
	}
	return Decode(value)
}

// Decode extracts a Declaration from an already-built CUE value.
func Decode(value cue.Value) (*Declaration, error) {
	if err := value.Err(); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error(), Pos: value.Pos()}
	}

	keyspaceVal := value.LookupPath(cue.ParsePath("keyspace"))
	if !keyspaceVal.Exists() {
		return nil, &LoadError{Code: ErrCodeNoKeyspace, Message: "keyspace is required", Pos: value.Pos()}
	}
	keyspace, err := keyspaceVal.String()
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNoKeyspace, Message: err.Error(), Pos: keyspaceVal.Pos()}
	}

	decl := &Declaration{Keyspace: keyspace}

	entityVal := value.LookupPath(cue.ParsePath("entity"))
	if entityVal.Exists() {
		iter, err := entityVal.Fields()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBadEntity, Message: err.Error(), Pos: entityVal.Pos()}
		}
		for iter.Next() {
			ent, err := decodeEntity(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			decl.Entities = append(decl.Entities, *ent)
		}
	}

	relVal := value.LookupPath(cue.ParsePath("relationship"))
	if relVal.Exists() {
		iter, err := relVal.Fields()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBadRel, Message: err.Error(), Pos: relVal.Pos()}
		}
		for iter.Next() {
			rel, err := decodeRelationship(iter.Label(), iter.Value())
			if err != nil {
				return nil, err
			}
			decl.Relationships = append(decl.Relationships, *rel)
		}
	}

	sort.Slice(decl.Entities, func(i, j int) bool { return decl.Entities[i].Name < decl.Entities[j].Name })
	sort.Slice(decl.Relationships, func(i, j int) bool { return decl.Relationships[i].Name < decl.Relationships[j].Name })
	return decl, nil
}

// Apply registers every declared entity, then every relationship, into a
// fresh registry named after the declared keyspace.
func (d *Declaration) Apply() (*schema.Registry, error) {
	reg := schema.NewRegistry(d.Keyspace)
	if err := d.ApplyTo(reg); err != nil {
		return nil, err
	}
	return reg, nil
}

// ApplyTo registers the declaration into an existing registry, for
// callers that loaded one from the cache first.
func (d *Declaration) ApplyTo(reg *schema.Registry) error {
	for _, ent := range d.Entities {
		if err := reg.DefineEntity(ent.Name, ent.Key, ent.Attributes); err != nil {
			return err
		}
	}
	for _, rel := range d.Relationships {
		if err := reg.DefineRelationship(rel.Name, rel.Role1, rel.Entity1, rel.Role2, rel.Entity2, rel.Attributes); err != nil {
			return err
		}
	}
	return nil
}

func decodeEntity(name string, v cue.Value) (*EntityDecl, error) {
	ent := &EntityDecl{Name: name}

	keyVal := v.LookupPath(cue.ParsePath("key"))
	if keyVal.Exists() {
		key, err := keyVal.String()
		if err != nil {
			return nil, &LoadError{Code: ErrCodeBadEntity, Message: err.Error(), Pos: keyVal.Pos()}
		}
		ent.Key = key
	}

	attrs, err := decodeAttributes(v, ErrCodeBadEntity)
	if err != nil {
		return nil, err
	}
	if len(attrs) == 0 {
		return nil, &LoadError{
			Code:    ErrCodeBadEntity,
			Message: fmt.Sprintf("entity %s declares no attributes", name),
			Pos:     v.Pos(),
		}
	}
	if ent.Key != "" {
		if _, ok := attrs[ent.Key]; !ok {
			return nil, &LoadError{
				Code:    ErrCodeBadEntity,
				Message: fmt.Sprintf("entity %s key %q is not a declared attribute", name, ent.Key),
				Pos:     v.Pos(),
			}
		}
	}
	ent.Attributes = attrs
	return ent, nil
}

func decodeRelationship(name string, v cue.Value) (*RelDecl, error) {
	rel := &RelDecl{Name: name}

	var err error
	rel.Role1, rel.Entity1, err = decodeSide(v, "rel1")
	if err != nil {
		return nil, err
	}
	rel.Role2, rel.Entity2, err = decodeSide(v, "rel2")
	if err != nil {
		return nil, err
	}

	rel.Attributes, err = decodeAttributes(v, ErrCodeBadRel)
	if err != nil {
		return nil, err
	}
	return rel, nil
}

func decodeSide(v cue.Value, field string) (role, entity string, err error) {
	side := v.LookupPath(cue.ParsePath(field))
	if !side.Exists() {
		return "", "", &LoadError{
			Code:    ErrCodeBadRel,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	role, err = side.LookupPath(cue.ParsePath("role")).String()
	if err != nil {
		return "", "", &LoadError{Code: ErrCodeBadRel, Message: field + ".role: " + err.Error(), Pos: side.Pos()}
	}
	entity, err = side.LookupPath(cue.ParsePath("entity")).String()
	if err != nil {
		return "", "", &LoadError{Code: ErrCodeBadRel, Message: field + ".entity: " + err.Error(), Pos: side.Pos()}
	}
	return role, entity, nil
}

func decodeAttributes(v cue.Value, code string) (map[string]schema.AttrType, error) {
	attrsVal := v.LookupPath(cue.ParsePath("attributes"))
	if !attrsVal.Exists() {
		return nil, nil
	}
	iter, err := attrsVal.Fields()
	if err != nil {
		return nil, &LoadError{Code: code, Message: err.Error(), Pos: attrsVal.Pos()}
	}

	attrs := make(map[string]schema.AttrType)
	for iter.Next() {
		typeName, err := iter.Value().String()
		if err != nil {
			return nil, &LoadError{Code: code, Message: err.Error(), Pos: iter.Value().Pos()}
		}
		t := schema.AttrType(typeName)
		if !t.Valid() {
			return nil, &LoadError{
				Code:    ErrCodeBadAttrType,
				Message: fmt.Sprintf("attribute %s has unknown type %q", iter.Label(), typeName),
				Pos:     iter.Value().Pos(),
			}
		}
		attrs[iter.Label()] = t
	}
	return attrs, nil
}
