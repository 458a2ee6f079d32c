package bitable

import (
	"context"
	"fmt"
	"time"

	"github.com/caseflow/agentd/internal/ttlcache"
)

// SchemaCache caches table field metadata keyed by (app_token,
// table_id), refreshed on explicit Invalidate, on a search response
// that carries field metadata (ObserveFields), or lazily via Get when
// nothing is cached or the entry has expired.
type SchemaCache struct {
	client Client
	cache  *ttlcache.Cache
	ttl    time.Duration
}

// NewSchemaCache builds a SchemaCache backed by client for cache misses.
func NewSchemaCache(client Client, ttl time.Duration) *SchemaCache {
	if ttl <= 0 {
		ttl = 600 * time.Second
	}
	return &SchemaCache{
		client: client,
		cache:  ttlcache.New(ttlcache.Options{MaxSize: 256}),
		ttl:    ttl,
	}
}

func schemaKey(appToken, tableID string) string {
	return appToken + "|" + tableID
}

// Fields returns the cached field list for (appToken, tableID),
// fetching and populating the cache on a miss.
func (s *SchemaCache) Fields(ctx context.Context, appToken, tableID string) ([]FieldMeta, error) {
	key := schemaKey(appToken, tableID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.([]FieldMeta), nil
	}

	fields, err := s.client.ListFields(ctx, tableID)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, fields, s.ttl)
	return fields, nil
}

// FieldMetaByName looks up one field's metadata by name, consulting the
// cache first.
func (s *SchemaCache) FieldMetaByName(ctx context.Context, appToken, tableID, fieldName string) (FieldMeta, bool, error) {
	fields, err := s.Fields(ctx, appToken, tableID)
	if err != nil {
		return FieldMeta{}, false, err
	}
	for _, f := range fields {
		if f.Name == fieldName {
			return f, true, nil
		}
	}
	return FieldMeta{}, false, nil
}

// ObserveFields refreshes the cache from field metadata carried
// incidentally on another response (e.g. a search result that embeds
// schema), avoiding an extra round trip.
func (s *SchemaCache) ObserveFields(appToken, tableID string, fields []FieldMeta) {
	if len(fields) == 0 {
		return
	}
	s.cache.Set(schemaKey(appToken, tableID), fields, s.ttl)
}

// Invalidate drops the cached schema for (appToken, tableID), forcing
// the next Fields call to refetch. Called before a write whose fields
// aren't found in the cached schema, in case the table was edited
// since the last fetch.
func (s *SchemaCache) Invalidate(appToken, tableID string) {
	s.cache.Delete(schemaKey(appToken, tableID))
}

// RefreshBeforeWrite is a convenience wrapper for the mutation skills:
// it resolves every field name against the cache, invalidating and
// refetching once if any name is unresolved, then returns an error
// naming the first field still unresolved after the refresh.
func (s *SchemaCache) RefreshBeforeWrite(ctx context.Context, appToken, tableID string, fieldNames []string) (map[string]FieldMeta, error) {
	resolved, missing := s.resolveAll(ctx, appToken, tableID, fieldNames)
	if len(missing) == 0 {
		return resolved, nil
	}

	s.Invalidate(appToken, tableID)
	resolved, missing = s.resolveAll(ctx, appToken, tableID, fieldNames)
	if len(missing) > 0 {
		return nil, fmt.Errorf("field not found on table %s: %s", tableID, missing[0])
	}
	return resolved, nil
}

func (s *SchemaCache) resolveAll(ctx context.Context, appToken, tableID string, fieldNames []string) (map[string]FieldMeta, []string) {
	resolved := make(map[string]FieldMeta, len(fieldNames))
	var missing []string
	for _, name := range fieldNames {
		meta, ok, err := s.FieldMetaByName(ctx, appToken, tableID, name)
		if err != nil || !ok {
			missing = append(missing, name)
			continue
		}
		resolved[name] = meta
	}
	return resolved, missing
}
