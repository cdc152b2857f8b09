package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/alignpipe/internal/database"
	"github.com/nao1215/alignpipe/internal/model"
)

// seedHistory stores two runs in a fresh database and returns its directory.
func seedHistory(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	started := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	ok := &model.RunReport{
		ID:         "aaaa1111-0000-4000-8000-000000000001",
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Minute),
		Status:     model.RunStatusSucceeded,
	}
	ok.AddResult(model.StageResult{
		Stage:       model.StageDataPrep,
		Description: model.StageDataPrep.Description(),
		Status:      model.StageStatusSucceeded,
		Command:     "python src/data/prepare_data.py",
		Duration:    time.Minute,
	})

	failed := &model.RunReport{
		ID:          "bbbb2222-0000-4000-8000-000000000002",
		StartedAt:   started.Add(time.Hour),
		FinishedAt:  started.Add(time.Hour + time.Minute),
		Status:      model.RunStatusFailed,
		IncludeDPO:  true,
		FailedStage: model.StageDPOTrain,
	}
	failed.AddResult(model.StageResult{
		Stage:       model.StageDPOTrain,
		Description: model.StageDPOTrain.Description(),
		Status:      model.StageStatusFailed,
		ExitCode:    2,
	})

	for _, r := range []*model.RunReport{ok, failed} {
		if err := db.SaveRun(t.Context(), r); err != nil {
			t.Fatalf("failed to save run: %v", err)
		}
	}
	return dir
}

// runHistory executes the history command and returns its output.
func runHistory(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := NewHistoryCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// TestNewHistoryCmd tests the history command creation.
func TestNewHistoryCmd(t *testing.T) {
	t.Parallel()

	cmd := NewHistoryCmd()

	t.Run("has correct use", func(t *testing.T) {
		t.Parallel()
		if cmd.Use != "history" {
			t.Errorf("expected use 'history', got %q", cmd.Use)
		}
	})

	t.Run("has show flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("show")
		if flag == nil {
			t.Fatal("expected show flag")
		}
		if flag.Shorthand != "s" {
			t.Errorf("expected shorthand 's', got %q", flag.Shorthand)
		}
	})

	t.Run("has limit flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("limit")
		if flag == nil {
			t.Fatal("expected limit flag")
		}
		if flag.DefValue != "20" {
			t.Errorf("expected default '20', got %q", flag.DefValue)
		}
	})
}

func TestRunHistoryCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists runs newest first", func(t *testing.T) {
		t.Parallel()

		out, err := runHistory(t, "--db-dir", seedHistory(t))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !strings.Contains(out, "Pipeline runs (2)") {
			t.Errorf("expected run count, got:\n%s", out)
		}
		first := strings.Index(out, "bbbb2222")
		second := strings.Index(out, "aaaa1111")
		if first < 0 || second < 0 || first > second {
			t.Errorf("expected newest run first, got:\n%s", out)
		}
		if !strings.Contains(out, "dpo_train") {
			t.Errorf("expected failed stage column, got:\n%s", out)
		}
	})

	t.Run("applies the limit", func(t *testing.T) {
		t.Parallel()

		out, err := runHistory(t, "--db-dir", seedHistory(t), "-n", "1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.Contains(out, "aaaa1111") {
			t.Errorf("expected only the newest run, got:\n%s", out)
		}
	})

	t.Run("reports an empty history", func(t *testing.T) {
		t.Parallel()

		out, err := runHistory(t, "--db-dir", t.TempDir())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "No pipeline runs recorded yet.") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("shows a run by prefix", func(t *testing.T) {
		t.Parallel()

		out, err := runHistory(t, "--db-dir", seedHistory(t), "--show", "bbbb")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{
			"Run bbbb2222-0000-4000-8000-000000000002",
			"PIPELINE FAILED",
			"STEP 5: DPO Training (exit code 2)",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("shows a run as JSON", func(t *testing.T) {
		t.Parallel()

		out, err := runHistory(t, "--db-dir", seedHistory(t), "--show", "aaaa", "--json")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var decoded model.RunReport
		if err := json.Unmarshal([]byte(out), &decoded); err != nil {
			t.Fatalf("expected JSON output: %v\n%s", err, out)
		}
		if decoded.ID != "aaaa1111-0000-4000-8000-000000000001" {
			t.Errorf("unexpected run: %+v", decoded)
		}
	})

	t.Run("shows a run as Markdown", func(t *testing.T) {
		t.Parallel()

		out, err := runHistory(t, "--db-dir", seedHistory(t), "--show", "aaaa", "--markdown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "# Alignment Pipeline Run") {
			t.Errorf("expected Markdown output, got:\n%s", out)
		}
	})

	t.Run("fails for unknown run", func(t *testing.T) {
		t.Parallel()

		_, err := runHistory(t, "--db-dir", seedHistory(t), "--show", "cccc")
		if err == nil || !strings.Contains(err.Error(), "not found") {
			t.Errorf("expected not found error, got %v", err)
		}
	})

	t.Run("rejects format flags without --show", func(t *testing.T) {
		t.Parallel()

		if _, err := runHistory(t, "--db-dir", t.TempDir(), "--json"); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("prunes old runs", func(t *testing.T) {
		t.Parallel()

		dir := seedHistory(t)
		out, err := runHistory(t, "--db-dir", dir, "--prune", "1h")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "Deleted 2 run(s)") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})
}

func TestShortID(t *testing.T) {
	t.Parallel()

	if got := shortID("0b6a8f3e-1111"); got != "0b6a8f3e" {
		t.Errorf("shortID() = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID() = %q", got)
	}
}
