package bitable

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeSchemaClient struct {
	Client
	listFieldsCalls int
	fields          []FieldMeta
	err             error
}

func (f *fakeSchemaClient) ListFields(ctx context.Context, tableID string) ([]FieldMeta, error) {
	f.listFieldsCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.fields, nil
}

func TestSchemaCacheFetchesOnceAndCaches(t *testing.T) {
	fake := &fakeSchemaClient{fields: []FieldMeta{{Name: "title", Type: "text"}}}
	cache := NewSchemaCache(fake, time.Minute)

	for i := 0; i < 3; i++ {
		fields, err := cache.Fields(context.Background(), "app1", "tbl1")
		if err != nil {
			t.Fatalf("Fields error: %v", err)
		}
		if len(fields) != 1 || fields[0].Name != "title" {
			t.Errorf("unexpected fields: %+v", fields)
		}
	}
	if fake.listFieldsCalls != 1 {
		t.Errorf("expected 1 backend call, got %d", fake.listFieldsCalls)
	}
}

func TestSchemaCacheInvalidateForcesRefetch(t *testing.T) {
	fake := &fakeSchemaClient{fields: []FieldMeta{{Name: "title", Type: "text"}}}
	cache := NewSchemaCache(fake, time.Minute)

	cache.Fields(context.Background(), "app1", "tbl1")
	cache.Invalidate("app1", "tbl1")
	cache.Fields(context.Background(), "app1", "tbl1")

	if fake.listFieldsCalls != 2 {
		t.Errorf("expected 2 backend calls after invalidate, got %d", fake.listFieldsCalls)
	}
}

func TestSchemaCacheFieldMetaByName(t *testing.T) {
	fake := &fakeSchemaClient{fields: []FieldMeta{
		{Name: "title", Type: "text"},
		{Name: "status", Type: "single_select"},
	}}
	cache := NewSchemaCache(fake, time.Minute)

	meta, ok, err := cache.FieldMetaByName(context.Background(), "app1", "tbl1", "status")
	if err != nil || !ok {
		t.Fatalf("expected status field found, err=%v ok=%v", err, ok)
	}
	if meta.Type != "single_select" {
		t.Errorf("expected single_select, got %q", meta.Type)
	}

	_, ok, err = cache.FieldMetaByName(context.Background(), "app1", "tbl1", "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected nonexistent field to not be found")
	}
}

func TestSchemaCacheObserveFieldsPopulatesWithoutFetch(t *testing.T) {
	fake := &fakeSchemaClient{fields: []FieldMeta{{Name: "should_not_be_used", Type: "text"}}}
	cache := NewSchemaCache(fake, time.Minute)

	cache.ObserveFields("app1", "tbl1", []FieldMeta{{Name: "title", Type: "text"}})

	fields, err := cache.Fields(context.Background(), "app1", "tbl1")
	if err != nil {
		t.Fatalf("Fields error: %v", err)
	}
	if len(fields) != 1 || fields[0].Name != "title" {
		t.Errorf("expected observed fields to be used, got %+v", fields)
	}
	if fake.listFieldsCalls != 0 {
		t.Errorf("expected no backend call when fields were observed, got %d calls", fake.listFieldsCalls)
	}
}

func TestRefreshBeforeWriteResolvesAllFields(t *testing.T) {
	fake := &fakeSchemaClient{fields: []FieldMeta{
		{Name: "title", Type: "text"},
		{Name: "status", Type: "single_select"},
	}}
	cache := NewSchemaCache(fake, time.Minute)

	resolved, err := cache.RefreshBeforeWrite(context.Background(), "app1", "tbl1", []string{"title", "status"})
	if err != nil {
		t.Fatalf("RefreshBeforeWrite error: %v", err)
	}
	if len(resolved) != 2 {
		t.Errorf("expected 2 resolved fields, got %d", len(resolved))
	}
}

func TestRefreshBeforeWriteRetriesOnceThenFails(t *testing.T) {
	fake := &fakeSchemaClient{fields: []FieldMeta{{Name: "title", Type: "text"}}}
	cache := NewSchemaCache(fake, time.Minute)

	// Prime the cache with a stale schema lacking "status".
	cache.Fields(context.Background(), "app1", "tbl1")

	_, err := cache.RefreshBeforeWrite(context.Background(), "app1", "tbl1", []string{"title", "status"})
	if err == nil {
		t.Fatal("expected error for field missing even after refresh")
	}
	if fake.listFieldsCalls != 2 {
		t.Errorf("expected exactly one retry (2 total calls), got %d", fake.listFieldsCalls)
	}
}

func TestSchemaCachePropagatesBackendError(t *testing.T) {
	fake := &fakeSchemaClient{err: errors.New("boom")}
	cache := NewSchemaCache(fake, time.Minute)

	_, err := cache.Fields(context.Background(), "app1", "tbl1")
	if err == nil {
		t.Fatal("expected error to propagate")
	}
}
