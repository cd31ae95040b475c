package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/valpere/tradutor/internal"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var testKey = MemoryKey{SourceLang: "en", TargetLang: "pt", Backend: "api", Model: "local-model"}

func TestStore_New_CreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "data", "nested", "tradutor.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); err != nil {
		t.Errorf("expected database file to exist: %v", err)
	}
}

func TestStore_New_InvalidPath(t *testing.T) {
	// A regular file cannot be used as the parent directory.
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := New(filepath.Join(blocker, "test.db")); err == nil {
		t.Error("expected error for invalid path")
	}
}

// --- translation memory ---

func TestStore_GetCachedTranslation_Miss(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.GetCachedTranslation(context.Background(), testKey, "Hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected cache miss")
	}
}

func TestStore_SaveAndGetCachedTranslation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveToMemory(ctx, testKey, "  Hello world ", "Olá mundo"); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	got, ok, err := s.GetCachedTranslation(ctx, testKey, "Hello world")
	if err != nil || !ok {
		t.Fatalf("expected cache hit, got ok=%v err=%v", ok, err)
	}
	if got != "Olá mundo" {
		t.Errorf("expected 'Olá mundo', got %q", got)
	}

	// A different model is a different cache scope.
	other := testKey
	other.Model = "qwen2.5-7b"
	if _, ok, _ := s.GetCachedTranslation(ctx, other, "Hello world"); ok {
		t.Error("expected miss for a different model")
	}
}

func TestStore_CacheKeyIsNFCNormalized(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	decomposed := "Cafe\u0301"
	composed := "Caf\u00e9"

	if err := s.SaveToMemory(ctx, testKey, decomposed, "Café"); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}
	if _, ok, err := s.GetCachedTranslation(ctx, testKey, composed); err != nil || !ok {
		t.Errorf("expected NFC-equivalent hit, got ok=%v err=%v", ok, err)
	}
}

func TestStore_SaveToMemory_Replaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, testKey, "Hello", "Oi")
	if err := s.SaveToMemory(ctx, testKey, "Hello", "Olá"); err != nil {
		t.Fatalf("SaveToMemory failed: %v", err)
	}

	got, _, _ := s.GetCachedTranslation(ctx, testKey, "Hello")
	if got != "Olá" {
		t.Errorf("expected replaced translation, got %q", got)
	}
	entries, _ := s.ListMemory(ctx, MemoryFilter{})
	if len(entries) != 1 {
		t.Errorf("expected 1 entry after replace, got %d", len(entries))
	}
}

func TestStore_InvalidateAndDeleteMemory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, testKey, "Hello", "Olá")
	entries, err := s.ListMemory(ctx, MemoryFilter{})
	if err != nil || len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d (%v)", len(entries), err)
	}
	id := entries[0].ID

	if err := s.InvalidateMemory(ctx, id); err != nil {
		t.Fatalf("InvalidateMemory failed: %v", err)
	}
	if _, ok, _ := s.GetCachedTranslation(ctx, testKey, "Hello"); ok {
		t.Error("invalidated entry should not be served")
	}

	if err := s.DeleteMemory(ctx, id); err != nil {
		t.Fatalf("DeleteMemory failed: %v", err)
	}
	if err := s.DeleteMemory(ctx, id); err == nil {
		t.Error("expected error deleting a missing entry")
	}
}

func TestStore_ListAndClearMemory_Filters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	google := MemoryKey{SourceLang: "en", TargetLang: "pt", Backend: "google", Model: "nmt"}
	s.SaveToMemory(ctx, testKey, "one", "um")
	s.SaveToMemory(ctx, testKey, "two", "dois")
	s.SaveToMemory(ctx, google, "three", "três")

	apiOnly, err := s.ListMemory(ctx, MemoryFilter{Backend: "api"})
	if err != nil {
		t.Fatalf("ListMemory failed: %v", err)
	}
	if len(apiOnly) != 2 {
		t.Errorf("expected 2 api entries, got %d", len(apiOnly))
	}

	limited, _ := s.ListMemory(ctx, MemoryFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}

	n, err := s.ClearMemory(ctx, MemoryFilter{Backend: "google"})
	if err != nil || n != 1 {
		t.Errorf("expected 1 cleared entry, got %d (%v)", n, err)
	}
	n, _ = s.ClearMemory(ctx, MemoryFilter{})
	if n != 2 {
		t.Errorf("expected remaining 2 entries cleared, got %d", n)
	}
}

func TestStore_Stats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.SaveToMemory(ctx, testKey, "one", "um")
	s.SaveToMemory(ctx, testKey, "two", "dois")
	s.GetCachedTranslation(ctx, testKey, "one")
	s.GetCachedTranslation(ctx, testKey, "one")
	s.CreateRun(ctx, internal.Run{InputFile: "in.txt", OutputFile: "out.txt", Backend: "api"})

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalEntries != 2 || stats.ActiveEntries != 2 || stats.InvalidEntries != 0 {
		t.Errorf("unexpected entry counts: %+v", stats)
	}
	if stats.TotalUsage != 2 {
		t.Errorf("expected usage 2, got %d", stats.TotalUsage)
	}
	if stats.Runs != 1 {
		t.Errorf("expected 1 run, got %d", stats.Runs)
	}
}

func TestMemory_Adapter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	mem := s.MemoryFor(testKey)

	if err := mem.Remember(ctx, "Good night", "Boa noite"); err != nil {
		t.Fatalf("Remember failed: %v", err)
	}
	got, ok, err := mem.Lookup(ctx, "Good night")
	if err != nil || !ok || got != "Boa noite" {
		t.Errorf("unexpected lookup result %q ok=%v err=%v", got, ok, err)
	}
}

// --- runs ---

func TestStore_RunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, internal.Run{
		InputFile:  "texto.txt",
		OutputFile: "texto_traduzido.txt",
		InputHash:  "abc123",
		TotalLines: 10,
		Backend:    "api",
		Model:      "local-model",
		SourceLang: "en",
		TargetLang: "pt",
	})
	if err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}
	if run.ID == "" || run.Status != internal.RunRunning {
		t.Fatalf("unexpected run: %+v", run)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.InputHash != "abc123" || got.TotalLines != 10 {
		t.Errorf("unexpected stored run: %+v", got)
	}

	if err := s.SetRunStatus(ctx, run.ID, internal.RunCompleted); err != nil {
		t.Fatalf("SetRunStatus failed: %v", err)
	}
	got, _ = s.GetRun(ctx, run.ID)
	if got.Status != internal.RunCompleted {
		t.Errorf("expected completed, got %q", got.Status)
	}

	if err := s.DeleteRun(ctx, run.ID); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := s.GetRun(ctx, run.ID); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestStore_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, _ := s.CreateRun(ctx, internal.Run{InputFile: "a.txt"})
	second, _ := s.CreateRun(ctx, internal.Run{InputFile: "b.txt"})
	s.SetRunStatus(ctx, first.ID, internal.RunFailed)

	all, err := s.ListRuns(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(all) != 2 || all[0].ID != second.ID {
		t.Errorf("expected newest run first, got %+v", all)
	}

	failed, _ := s.ListRuns(ctx, internal.RunFailed, 10)
	if len(failed) != 1 || failed[0].ID != first.ID {
		t.Errorf("expected only the failed run, got %+v", failed)
	}
}

func TestCheckpoint_SaveAndResume(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, _ := s.CreateRun(ctx, internal.Run{InputFile: "in.txt"})
	cp := s.CheckpointFor(run.ID)

	if err := cp.Save(ctx, 0, "Olá"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	cp.Save(ctx, 3, "Mundo")
	cp.Save(ctx, 3, "Mundo!")

	done, err := cp.Completed(ctx)
	if err != nil {
		t.Fatalf("Completed failed: %v", err)
	}
	if len(done) != 2 || done[0] != "Olá" || done[3] != "Mundo!" {
		t.Errorf("unexpected checkpoint lines: %v", done)
	}

	other := s.CheckpointFor("some-other-run")
	if lines, _ := other.Completed(ctx); len(lines) != 0 {
		t.Errorf("expected no lines for unknown run, got %v", lines)
	}
}
