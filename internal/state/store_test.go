package state_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/mbra/nzbmonkey/internal/state"
	"github.com/mbra/nzbmonkey/internal/testsupport"
)

func TestGetReturnsDefaultForMissingRow(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	got, err := store.Get(context.Background(), "alt.binaries.test", "last_article", 42)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected default 42, got %d", got)
	}
}

func TestSetUpsertsAndPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.db")

	store, err := state.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath returned error: %v", err)
	}
	if err := store.Set(ctx, "alt.a", "last_article", 100); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Set(ctx, "alt.a", "last_article", 250); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	reopened, err := state.OpenPath(path)
	if err != nil {
		t.Fatalf("reopen returned error: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.Get(ctx, "alt.a", "last_article", 0)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != 250 {
		t.Fatalf("expected 250 after reopen, got %d", got)
	}
	entries, err := reopened.List(ctx, state.Filter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected upsert to keep a single row, got %d", len(entries))
	}
}

func TestListAndDeleteFilters(t *testing.T) {
	ctx := context.Background()
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	seed := []state.Entry{
		{Group: "alt.b", Field: "last_article", Value: 20},
		{Group: "alt.a", Field: "last_article", Value: 10},
		{Group: "alt.a", Field: "runs", Value: 3},
	}
	for _, e := range seed {
		if err := store.Set(ctx, e.Group, e.Field, e.Value); err != nil {
			t.Fatalf("Set returned error: %v", err)
		}
	}

	all, err := store.List(ctx, state.Filter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 3 || all[0].Group != "alt.a" || all[0].Field != "last_article" || all[2].Group != "alt.b" {
		t.Fatalf("unexpected ordering: %+v", all)
	}
	if all[0].UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be recorded")
	}

	onlyA, err := store.List(ctx, state.Filter{Group: "alt.a"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("expected 2 entries for alt.a, got %d", len(onlyA))
	}

	removed, err := store.Delete(ctx, state.Filter{Group: "alt.a", Field: "runs"})
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed row, got %d", removed)
	}
	removed, err = store.Delete(ctx, state.Filter{})
	if err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed rows, got %d", removed)
	}
}

func TestOpenRejectsSchemaMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := state.OpenPath(path)
	if err != nil {
		t.Fatalf("OpenPath returned error: %v", err)
	}
	_ = store.Close()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("UPDATE schema_version SET version = 99"); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	_ = db.Close()

	_, err = state.OpenPath(path)
	if !errors.Is(err, state.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
