// Package schema inspects relations and assigns semantic types to their columns.
package schema

import (
	"context"

	"github.com/jeffhb60/csv-pivot-app/internal/core/query/domain"
	"github.com/jeffhb60/csv-pivot-app/internal/debug"
)

// Inspector turns engine-reported columns into a typed Schema and caches the result.
type Inspector struct {
	cache *Cache
}

// NewInspector creates an inspector with its own cache.
func NewInspector(cache *Cache) *Inspector {
	if cache == nil {
		cache = NewCache(0)
	}
	return &Inspector{cache: cache}
}

// Inspect returns the schema of rel, served from the cache while the
// relation's fingerprint is unchanged.
func (i *Inspector) Inspect(ctx context.Context, rel domain.Relation) (*domain.Schema, error) {
	name, fp := rel.Name(), rel.Fingerprint()
	if s, ok := i.cache.Get(name, fp); ok {
		return s, nil
	}

	native, err := rel.Columns(ctx)
	if err != nil {
		return nil, &domain.SchemaError{Relation: name, Reason: "listing columns", Cause: err}
	}
	if len(native) == 0 {
		return nil, &domain.SchemaError{Relation: name, Reason: "relation exposes no columns"}
	}

	s := &domain.Schema{Relation: name, Columns: make([]domain.Column, len(native))}
	for idx, c := range native {
		s.Columns[idx] = domain.Column{Name: c.Name, Type: Classify(c.Type), NativeType: c.Type}
	}

	debug.Debug("Inspected relation", "relation", name, "columns", len(s.Columns), "fingerprint", fp)
	i.cache.Set(name, fp, s)
	return s, nil
}

// Invalidate drops the cached schema of one relation.
func (i *Inspector) Invalidate(relation string) {
	i.cache.Invalidate(relation)
}

// Clear drops every cached schema.
func (i *Inspector) Clear() {
	i.cache.Clear()
}

// Stats returns the cache statistics.
func (i *Inspector) Stats() Stats {
	return i.cache.GetStats()
}
