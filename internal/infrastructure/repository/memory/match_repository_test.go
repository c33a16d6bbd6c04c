package memory

import (
	"context"
	"testing"
	"time"

	"github.com/riskibarqy/matchodds/internal/domain/match"
)

func TestMatchRepository_ListIDsSortedByFileName(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMatchRepository(
		match.Record{ID: "3", MatchTime: "2025-05-16 20:00"},
		match.Record{ID: "1", MatchTime: "2025-05-15 01:00"},
		match.Record{ID: "2", MatchTime: "2025-05-15 03:00"},
	)

	ids, err := repo.ListIDs(ctx)
	if err != nil {
		t.Fatalf("list ids: %v", err)
	}
	want := []string{"1", "2", "3"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("unexpected order: got=%v want=%v", ids, want)
		}
	}
}

func TestMatchRepository_SaveIsolatesCallerState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := NewMatchRepository()
	record := match.Record{ID: "1", Details: match.NewDetails(testNow)}
	if err := repo.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	record.Details.Progress = 50

	got, exists, err := repo.Get(ctx, "1")
	if err != nil || !exists {
		t.Fatalf("get: exists=%v err=%v", exists, err)
	}
	if got.Details.Progress != 0 {
		t.Fatalf("stored record must not alias caller details, got progress %d", got.Details.Progress)
	}

	if err := repo.Save(ctx, match.Record{}); err == nil {
		t.Fatalf("expected validation error for empty id")
	}

	deleted, err := repo.DeleteAll(ctx)
	if err != nil || deleted != 1 {
		t.Fatalf("delete all: deleted=%d err=%v", deleted, err)
	}
	if _, exists, _ := repo.Get(ctx, "1"); exists {
		t.Fatalf("record must be gone after delete all")
	}
}

var testNow = time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)
