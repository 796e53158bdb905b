package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/ports"
)

// ExecVerifier reviews a permission prompt by running a configured
// command. The visible screen text goes to the command's stdin; the
// command answers with a JSON verdict on stdout:
//
//	{"needs_permission": true, "reason": "wants to run rm -rf"}
//
// A non-zero exit, unparseable output or a cancelled context all count
// as needing permission on the caller's side.
type ExecVerifier struct {
	argv []string
}

// Verify interface compliance at compile time
var _ ports.Verifier = (*ExecVerifier)(nil)

// NewExecVerifier creates an ExecVerifier for the command argv.
func NewExecVerifier(argv []string) (*ExecVerifier, error) {
	if len(argv) == 0 {
		return nil, fmt.Errorf("review command is empty")
	}
	return &ExecVerifier{argv: argv}, nil
}

// Verify implements ports.Verifier.Verify
func (v *ExecVerifier) Verify(ctx context.Context, screenText string) (ports.VerifyResult, error) {
	cmd := exec.CommandContext(ctx, v.argv[0], v.argv[1:]...)
	cmd.Stdin = strings.NewReader(screenText)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ports.VerifyResult{}, fmt.Errorf("review command aborted: %w", ctx.Err())
		}
		logging.Logger.Warn("review command failed",
			"command", v.argv[0],
			"error", err,
			"stderr", stderr.String())
		return ports.VerifyResult{}, fmt.Errorf("review command failed: %w", err)
	}

	verdict, err := parseVerdict(stdout.Bytes())
	if err != nil {
		logging.Logger.Warn("review command output unparseable",
			"command", v.argv[0],
			"output", stdout.String())
		return ports.VerifyResult{}, err
	}

	logging.Logger.Debug("review verdict",
		"needs_permission", verdict.NeedsPermission,
		"reason", verdict.Reason)
	return verdict, nil
}

// parseVerdict accepts either a bare JSON document or a verdict on the
// last line of chattier output.
func parseVerdict(output []byte) (ports.VerifyResult, error) {
	var verdict ports.VerifyResult
	if err := json.Unmarshal(bytes.TrimSpace(output), &verdict); err == nil {
		return verdict, nil
	}

	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		if err := json.Unmarshal([]byte(line), &verdict); err == nil {
			return verdict, nil
		}
	}
	return ports.VerifyResult{}, fmt.Errorf("no verdict found in review output")
}

// NullVerifier is used when no review command is configured. It reports
// every prompt as needing permission, so auto-approval fails safe.
type NullVerifier struct{}

var _ ports.Verifier = (*NullVerifier)(nil)

// Verify implements ports.Verifier.Verify
func (NullVerifier) Verify(ctx context.Context, screenText string) (ports.VerifyResult, error) {
	return ports.VerifyResult{
		NeedsPermission: true,
		Reason:          "no review command configured",
	}, nil
}
