// Copyright 2025 Certen Protocol

package tracerunner

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// fakeBinary writes a tiny shell script that, given "--input X --output Y",
// copies X to Y so CLIRunner has a real subprocess to exercise.
func fakeBinary(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-cairo-run.sh")
	script := "#!/bin/sh\nwhile [ \"$#\" -gt 0 ]; do\n  case \"$1\" in\n    --input) INPUT=\"$2\"; shift 2;;\n    --output) OUTPUT=\"$2\"; shift 2;;\n    *) shift;;\n  esac\ndone\ncp \"$INPUT\" \"$OUTPUT\"\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake binary: %v", err)
	}
	return path
}

func TestCLIRunnerProducesPIE(t *testing.T) {
	workDir := t.TempDir()
	runner := NewCLIRunner(fakeBinary(t), workDir, 5*time.Second)

	pie, err := runner.Run(context.Background(), "job-123", map[string]int{"slot": 128})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if pie.Size == 0 {
		t.Error("expected non-empty PIE output")
	}
	if _, err := os.Stat(pie.Path); err != nil {
		t.Errorf("expected output file to exist at %s: %v", pie.Path, err)
	}
}

func TestCLIRunnerMissingBinaryFails(t *testing.T) {
	workDir := t.TempDir()
	runner := NewCLIRunner(filepath.Join(workDir, "does-not-exist"), workDir, 5*time.Second)

	_, err := runner.Run(context.Background(), "job-456", map[string]int{"slot": 1})
	if err == nil {
		t.Fatal("expected an error when the configured binary does not exist")
	}
}
