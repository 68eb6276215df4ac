// Copyright 2025 Certen Protocol
//
// Package tracerunner invokes the external cryptographic trace-generation
// program that turns assembled proof inputs into a PIE artifact, via a CLI
// subprocess using the exec.CommandContext/timeout/JSON-output idiom.

package tracerunner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/certen/beacon-relay/pkg/relayerr"
)

// Runner is the interface the Dispatcher depends on, so a CLI-invoking
// implementation and a mock/test implementation are interchangeable.
type Runner interface {
	Run(ctx context.Context, jobID string, input interface{}) (*PIE, error)
}

// PIE is the opaque execution-trace artifact handed to the Prover.
type PIE struct {
	Path string
	Size int64
}

// CLIRunner invokes a configured binary once per job, writing its inputs
// to a JSON file under workDir/<jobID>/input.json and expecting the binary
// to produce workDir/<jobID>/output.pie.
type CLIRunner struct {
	binaryPath string
	workDir    string
	timeout    time.Duration
	logger     *log.Logger
}

// NewCLIRunner constructs a CLIRunner. timeout of 0 defaults to 10 minutes,
// matching the scale of PIE generation relative to the governance-proof
// CLI's much shorter default.
func NewCLIRunner(binaryPath, workDir string, timeout time.Duration) *CLIRunner {
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	return &CLIRunner{
		binaryPath: binaryPath,
		workDir:    workDir,
		timeout:    timeout,
		logger:     log.New(log.Writer(), "[TraceRunner] ", log.LstdFlags),
	}
}

// Run executes the configured binary against input, producing a PIE.
func (r *CLIRunner) Run(ctx context.Context, jobID string, input interface{}) (*PIE, error) {
	jobDir := filepath.Join(r.workDir, jobID)
	if err := ensureDir(jobDir); err != nil {
		return nil, relayerr.Wrap(relayerr.KindIOError, err)
	}

	inputPath := filepath.Join(jobDir, "input.json")
	outputPath := filepath.Join(jobDir, "output.pie")

	inputBytes, err := json.Marshal(input)
	if err != nil {
		return nil, relayerr.WrapMsg(relayerr.KindDeserializeError, "marshal trace input", err)
	}
	if err := writeFile(inputPath, inputBytes); err != nil {
		return nil, relayerr.Wrap(relayerr.KindIOError, err)
	}

	cmdCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	args := []string{"--input", inputPath, "--output", outputPath}
	r.logger.Printf("executing: %s %v", r.binaryPath, args)

	cmd := exec.CommandContext(cmdCtx, r.binaryPath, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			r.logger.Printf("trace runner failed for job %s: %s", jobID, string(output))
			return nil, relayerr.WrapMsg(relayerr.KindCairoRunError, string(exitErr.Stderr), err)
		}
		return nil, relayerr.WrapMsg(relayerr.KindCairoRunError, fmt.Sprintf("job %s", jobID), err)
	}

	size, err := fileSize(outputPath)
	if err != nil {
		return nil, relayerr.WrapMsg(relayerr.KindCairoRunError, "missing output PIE", err)
	}

	return &PIE{Path: outputPath, Size: size}, nil
}
