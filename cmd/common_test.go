/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/valpere/tradutor/internal"
	"github.com/valpere/tradutor/internal/config"
	"github.com/valpere/tradutor/internal/store"
)

func TestPositional(t *testing.T) {
	got := positional([]string{"in.txt", "out.txt", "extra"}, "input", "output")
	if len(got) != 2 || got["input"] != "in.txt" || got["output"] != "out.txt" {
		t.Errorf("unexpected overrides %v", got)
	}
}

func TestPositiveInt(t *testing.T) {
	if n, err := positiveInt("LINES_PER_BATCH", " 7 "); err != nil || n != 7 {
		t.Errorf("positiveInt(7) = %d, %v", n, err)
	}
	for _, bad := range []string{"0", "-2", "five", ""} {
		if _, err := positiveInt("LINES_PER_BATCH", bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func testStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.New(filepath.Join(t.TempDir(), "tradutor.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStartRun_Resume(t *testing.T) {
	ctx := context.Background()
	db := testStore(t)
	lines := []string{"one", "", "two"}
	cfg := &config.Config{Input: "texto.txt", Output: "out.txt", Source: "en", Target: "pt"}

	run, err := startRun(ctx, db, cfg, lines, "api", "local-model")
	if err != nil {
		t.Fatalf("startRun failed: %v", err)
	}
	if run.ID == "" || run.Status != internal.RunRunning {
		t.Fatalf("unexpected run %+v", run)
	}
	if err := db.SetRunStatus(ctx, run.ID, internal.RunFailed); err != nil {
		t.Fatal(err)
	}

	cfg.Resume = run.ID
	resumed, err := startRun(ctx, db, cfg, lines, "api", "local-model")
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if resumed.ID != run.ID {
		t.Errorf("expected the same run, got %s", resumed.ID)
	}
	got, err := db.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != internal.RunRunning {
		t.Errorf("resumed run should be running again, got %s", got.Status)
	}
}

func TestStartRun_ResumeRefused(t *testing.T) {
	ctx := context.Background()
	db := testStore(t)
	lines := []string{"one", "two"}
	cfg := &config.Config{Input: "texto.txt", Output: "out.txt", Source: "en", Target: "pt"}

	run, err := startRun(ctx, db, cfg, lines, "api", "local-model")
	if err != nil {
		t.Fatalf("startRun failed: %v", err)
	}
	cfg.Resume = run.ID

	tests := []struct {
		name    string
		lines   []string
		backend string
		model   string
		want    string
	}{
		{"changed input", []string{"one", "three"}, "api", "local-model", "different input"},
		{"extra line", []string{"one", "two", ""}, "api", "local-model", "different input"},
		{"other backend", lines, "local", "python3 translate_t5.py", "used backend"},
		{"other model", lines, "api", "gpt-4o", "used backend"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := startRun(ctx, db, cfg, tt.lines, tt.backend, tt.model)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}

	if err := db.SetRunStatus(ctx, run.ID, internal.RunCompleted); err != nil {
		t.Fatal(err)
	}
	if _, err := startRun(ctx, db, cfg, lines, "api", "local-model"); err == nil {
		t.Error("a completed run must not be resumed")
	}
}

func TestStartRun_UnknownID(t *testing.T) {
	cfg := &config.Config{Source: "en", Target: "pt", Resume: "does-not-exist"}
	if _, err := startRun(context.Background(), testStore(t), cfg, []string{"a"}, "api", "m"); err == nil {
		t.Error("expected error for unknown run")
	}
}
