package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/codexkg/codex/internal/kv"
)

// keyPrefix namespaces schema documents in the shared key-value cache.
const keyPrefix = "codex"

// CacheKey returns the cache key for a schema name.
func CacheKey(schemaName string) string {
	return keyPrefix + "_" + schemaName
}

// Load reads the persisted document for schemaName and returns a registry
// over it. On first use the empty document (all three maps present) is
// written before returning, so later mutations always read-modify-write a
// complete document.
func Load(store kv.Store, schemaName string) (*Registry, error) {
	key := CacheKey(schemaName)

	raw, err := store.Get(key)
	if errors.Is(err, kv.ErrNotFound) {
		reg := NewRegistry(schemaName)
		blob, err := json.Marshal(reg.doc)
		if err != nil {
			return nil, fmt.Errorf("marshal empty document: %w", err)
		}
		if err := store.Set(key, blob); err != nil {
			return nil, fmt.Errorf("initialize schema %s: %w", schemaName, err)
		}
		return reg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load schema %s: %w", schemaName, err)
	}

	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode schema %s: %w", schemaName, err)
	}
	if doc.EntityMap == nil {
		doc.EntityMap = make(map[string]Entity)
	}
	if doc.RelMap == nil {
		doc.RelMap = make(map[string]Relationship)
	}
	if doc.RulesMap == nil {
		doc.RulesMap = make(map[string]RuleRecord)
	}

	reg := NewRegistry(schemaName)
	reg.doc = doc
	reg.loadedVersion = doc.Version
	return reg, nil
}

// Save writes the registry's document back to the cache.
//
// The read-modify-write cycle is guarded by an optimistic version check:
// if the stored document's version differs from the one this registry was
// loaded at, a concurrent writer got there first and Save fails with
// VERSION_CONFLICT instead of losing their update. Callers should reload
// and retry.
func (r *Registry) Save(store kv.Store) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := CacheKey(r.name)

	raw, err := store.Get(key)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return fmt.Errorf("save schema %s: %w", r.name, err)
	}
	if err == nil {
		var stored Document
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("decode stored schema %s: %w", r.name, err)
		}
		if stored.Version != r.loadedVersion {
			return &Error{
				Code:    ErrCodeVersionConflict,
				Message: fmt.Sprintf("schema %s changed concurrently (loaded=%d, stored=%d)", r.name, r.loadedVersion, stored.Version),
			}
		}
	}

	r.doc.Version = r.loadedVersion + 1
	blob, err := json.Marshal(r.doc)
	if err != nil {
		return fmt.Errorf("marshal schema %s: %w", r.name, err)
	}
	if err := store.Set(key, blob); err != nil {
		return fmt.Errorf("save schema %s: %w", r.name, err)
	}
	r.loadedVersion = r.doc.Version
	return nil
}

// Delete removes the persisted document for schemaName.
func Delete(store kv.Store, schemaName string) error {
	return store.Delete(CacheKey(schemaName))
}
