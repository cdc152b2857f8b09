package runner

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/alignpipe/internal/model"
)

// skipIfNoShell skips the test if /bin/sh is not available.
func skipIfNoShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("skipping process test: sh not found")
	}
}

// TestExecExecutorRun tests real process execution.
func TestExecExecutorRun(t *testing.T) {
	t.Parallel()
	skipIfNoShell(t)

	t.Run("zero exit code", func(t *testing.T) {
		t.Parallel()

		e := NewExecExecutor(WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
		code, err := e.Run(context.Background(), model.NewCommand("sh", "-c", "exit 0"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if code != 0 {
			t.Errorf("expected 0, got %d", code)
		}
	})

	t.Run("non-zero exit code is returned without error", func(t *testing.T) {
		t.Parallel()

		e := NewExecExecutor(WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
		code, err := e.Run(context.Background(), model.NewCommand("sh", "-c", "exit 7"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if code != 7 {
			t.Errorf("expected 7, got %d", code)
		}
	})

	t.Run("missing program returns error and -1", func(t *testing.T) {
		t.Parallel()

		e := NewExecExecutor()
		code, err := e.Run(context.Background(), model.NewCommand("alignpipe-no-such-program-xyz"))
		if err == nil {
			t.Fatal("expected error for missing program")
		}
		if code != -1 {
			t.Errorf("expected -1, got %d", code)
		}
	})

	t.Run("output streams are forwarded", func(t *testing.T) {
		t.Parallel()

		var stdout, stderr bytes.Buffer
		e := NewExecExecutor(WithOutput(&stdout, &stderr))
		if _, err := e.Run(context.Background(), model.NewCommand("sh", "-c", "echo out; echo err >&2")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if strings.TrimSpace(stdout.String()) != "out" {
			t.Errorf("expected stdout 'out', got %q", stdout.String())
		}
		if strings.TrimSpace(stderr.String()) != "err" {
			t.Errorf("expected stderr 'err', got %q", stderr.String())
		}
	})

	t.Run("arguments are not interpreted by a shell", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		e := NewExecExecutor(WithOutput(&stdout, &bytes.Buffer{}))
		arg := "a b; echo injected"
		if _, err := e.Run(context.Background(), model.NewCommand("sh", "-c", `printf '%s' "$1"`, "sh", arg)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout.String() != arg {
			t.Errorf("expected %q, got %q", arg, stdout.String())
		}
	})

	t.Run("runs in configured directory", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		e := NewExecExecutor(WithDir(dir), WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
		if _, err := e.Run(context.Background(), model.NewCommand("sh", "-c", "touch marker")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := os.Stat(filepath.Join(dir, "marker")); err != nil {
			t.Errorf("expected marker in workdir: %v", err)
		}
	})

	t.Run("extra env is visible to the child", func(t *testing.T) {
		t.Parallel()

		var stdout bytes.Buffer
		e := NewExecExecutor(
			WithEnv(map[string]string{"ALIGNPIPE_TEST_VALUE": "from-env-file"}),
			WithOutput(&stdout, &bytes.Buffer{}),
		)
		if _, err := e.Run(context.Background(), model.NewCommand("sh", "-c", `printf '%s' "$ALIGNPIPE_TEST_VALUE"`)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout.String() != "from-env-file" {
			t.Errorf("expected env value, got %q", stdout.String())
		}
	})

	t.Run("cancelled context reports context error", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		e := NewExecExecutor(WithOutput(&bytes.Buffer{}, &bytes.Buffer{}))
		_, err := e.Run(ctx, model.NewCommand("sh", "-c", "sleep 5"))
		if err == nil {
			t.Error("expected error for cancelled context")
		}
	})
}
