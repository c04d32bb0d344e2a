package persist

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/kayz/slidefit/internal/generate"
	"github.com/kayz/slidefit/internal/synth"
	"github.com/kayz/slidefit/internal/variant"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "data", "history.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndGetGeneration(t *testing.T) {
	s := newTestStore(t)
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	rec := generate.Record{
		RequestID:    "req-1",
		VariantID:    "comparison-2col",
		TemplateID:   "comparison",
		HTML:         "<h1>Title</h1>",
		ElapsedMS:    1200,
		RetriedSlots: []string{"body"},
		Warnings:     []string{"slot body: 10 characters outside [100, 120] after 3 attempts"},
		CreatedAt:    created,
		Slots: []synth.GeneratedSlot{
			{SlotID: "title", Text: "Title", CharCount: 5, Attempts: 1, WithinBounds: true, Bounds: variant.CharBounds{Min: 4, Max: 6}},
			{SlotID: "body", Text: "short", CharCount: 5, Attempts: 3, Bounds: variant.CharBounds{Min: 100, Max: 120}},
		},
	}
	if err := s.RecordGeneration(context.Background(), rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	g, err := s.GetGeneration("req-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if g.VariantID != "comparison-2col" || g.HTML != "<h1>Title</h1>" || g.ElapsedMS != 1200 {
		t.Fatalf("unexpected generation: %#v", g)
	}
	if !g.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v, want %v", g.CreatedAt, created)
	}
	if len(g.Slots) != 2 || g.Slots[0].SlotID != "title" || g.Slots[1].WithinBounds || g.Slots[1].Min != 100 {
		t.Fatalf("unexpected slots: %#v", g.Slots)
	}
	if len(g.RetriedSlots) != 1 || len(g.Warnings) != 1 {
		t.Fatalf("unexpected metadata: %#v %#v", g.RetriedSlots, g.Warnings)
	}

	if _, err := s.GetGeneration("missing"); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListAndPrune(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		g := &Generation{
			ID:         id,
			VariantID:  "v",
			TemplateID: "t",
			HTML:       "<p/>",
			CreatedAt:  base.AddDate(0, 0, i*10),
			Slots: []GenerationSlot{
				{SlotID: "a", CharCount: 3, Attempts: 1, WithinBounds: true, Min: 2, Max: 4},
				{SlotID: "b", CharCount: 9, Attempts: 3, WithinBounds: false, Min: 2, Max: 4},
			},
		}
		if err := s.SaveGeneration(ctx, g); err != nil {
			t.Fatalf("save %s: %v", id, err)
		}
	}

	list, err := s.ListGenerations(2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID != "new" || list[1].ID != "mid" {
		t.Fatalf("unexpected listing: %#v", list)
	}
	if list[0].SlotCount != 2 || list[0].Violations != 1 {
		t.Fatalf("unexpected counts: %#v", list[0])
	}

	n, err := s.PruneBefore(base.AddDate(0, 0, 15))
	if err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 pruned, got %d", n)
	}
	list, err = s.ListGenerations(10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].ID != "new" {
		t.Fatalf("unexpected listing after prune: %#v", list)
	}
}
