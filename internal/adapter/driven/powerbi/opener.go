// Package powerbi hands exported files off to the platform's default
// application, which on an analyst workstation is typically PowerBI or Excel.
package powerbi

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/intunetools/intune-export/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.DashboardOpener = (*Opener)(nil)

// Opener opens an exported file with the operating system's default handler
// for its extension.
type Opener struct {
	// goos is overridable in tests.
	goos string
}

// NewOpener creates an Opener for the current platform.
func NewOpener() *Opener {
	return &Opener{goos: runtime.GOOS}
}

// Open launches the platform opener for path. It returns once the command has
// been started; the handed-off application runs independently.
func (o *Opener) Open(ctx context.Context, path string) error {
	var cmd *exec.Cmd
	switch o.goos {
	case "windows":
		cmd = exec.CommandContext(ctx, "rundll32", "url.dll,FileProtocolHandler", path)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", path)
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", path)
	default:
		return fmt.Errorf("no file opener for platform %s", o.goos)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	return nil
}
