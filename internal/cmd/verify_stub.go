package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/renato0307/farol/internal/logging"
	"github.com/renato0307/farol/internal/ports"
)

// VerifyStubCmd is a development review command. It consumes the prompt
// screen from stdin and answers with a fixed JSON verdict, so the
// auto-approval path can be exercised end to end without a real
// reviewer. Configure it via settings.json:
//
//	"review_command": ["farol", "verify-stub"]
type VerifyStubCmd struct {
	Deny   bool   `help:"Answer needs_permission=true instead of approving"`
	Reason string `help:"Reason included in the verdict" default:"approved by stub"`
}

// Run executes the verify-stub command
func (v *VerifyStubCmd) Run(cli *CLI) error {
	// Drain stdin so the engine's write never hits a closed pipe.
	screen, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read screen from stdin: %w", err)
	}

	verdict := ports.VerifyResult{
		NeedsPermission: v.Deny,
		Reason:          v.Reason,
	}
	logging.Logger.Debug("verify-stub verdict",
		"screen_bytes", len(screen),
		"needs_permission", verdict.NeedsPermission)

	data, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
