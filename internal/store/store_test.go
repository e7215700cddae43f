package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("")
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordOverwrites(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.Record("data.txt", 3, "conn-1"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	s.now = func() time.Time { return base.Add(time.Minute) }
	if err := s.Record("data.txt", 5, "conn-2"); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	uploads, err := s.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(uploads) != 1 {
		t.Fatalf("expected 1 record, got %d", len(uploads))
	}
	up := uploads[0]
	if up.Name != "data.txt" || up.Size != 5 || up.ConnID != "conn-2" || up.Writes != 2 {
		t.Errorf("unexpected record: %+v", up)
	}
	if !up.StoredAt.Equal(base.Add(time.Minute)) {
		t.Errorf("unexpected stored_at %s", up.StoredAt)
	}
}

func TestListOrderAndLimit(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"a", "b", "c"} {
		at := base.Add(time.Duration(i) * time.Hour)
		s.now = func() time.Time { return at }
		if err := s.Record(name, i, ""); err != nil {
			t.Fatalf("Record %s failed: %v", name, err)
		}
	}

	all, err := s.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].Name != "c" || all[2].Name != "a" {
		t.Errorf("unexpected order: %v", names(all))
	}

	two, err := s.List(2)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(two) != 2 || two[0].Name != "c" || two[1].Name != "b" {
		t.Errorf("unexpected limited list: %v", names(two))
	}
}

func TestDelete(t *testing.T) {
	s := newTestStore(t)
	if err := s.Record("gone", 1, ""); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if err := s.Delete("gone"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if uploads, _ := s.List(0); len(uploads) != 0 {
		t.Errorf("expected no records after delete, got %v", names(uploads))
	}
	if err := s.Delete("gone"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	s := newTestStore(t)
	for _, name := range []string{"kept", "stale-1", "stale-2"} {
		if err := s.Record(name, 1, ""); err != nil {
			t.Fatalf("Record %s failed: %v", name, err)
		}
	}

	pruned, err := s.Prune(func(name string) bool { return name == "kept" })
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if pruned != 2 {
		t.Errorf("expected 2 pruned records, got %d", pruned)
	}

	uploads, err := s.List(0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(uploads) != 1 || uploads[0].Name != "kept" {
		t.Errorf("unexpected records after prune: %v", names(uploads))
	}
}

func TestRunGCStopsOnCancel(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunGC(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunGC did not return after cancel")
	}
}

func names(uploads []*Upload) []string {
	out := make([]string, len(uploads))
	for i, u := range uploads {
		out[i] = u.Name
	}
	return out
}
