// Package launcher opens URIs through the operating system's external-app
// handler.
package launcher

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/parkview-app/walletcore/ports"
)

// ExecLauncher shells out to the platform opener (xdg-open on Linux, open on
// macOS).
type ExecLauncher struct{}

// NewExecLauncher creates a new OS launcher.
func NewExecLauncher() *ExecLauncher {
	return &ExecLauncher{}
}

var _ ports.LinkLauncher = (*ExecLauncher)(nil)

// CanOpen reports whether the OS has a handler registered for the URI's
// scheme. https links always have one (the browser); custom schemes are
// probed through the desktop environment's handler registry.
func (l *ExecLauncher) CanOpen(ctx context.Context, uri string) bool {
	parsed, err := url.Parse(uri)
	if err != nil || parsed.Scheme == "" {
		return false
	}
	if parsed.Scheme == "http" || parsed.Scheme == "https" {
		return true
	}

	switch runtime.GOOS {
	case "linux":
		out, err := exec.CommandContext(ctx, "xdg-mime", "query", "default",
			"x-scheme-handler/"+parsed.Scheme).Output()
		return err == nil && strings.TrimSpace(string(out)) != ""
	case "darwin":
		// No cheap probe on macOS; open reports failure itself.
		return true
	default:
		return false
	}
}

// Open launches the external application for the URI.
func (l *ExecLauncher) Open(ctx context.Context, uri string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "linux":
		cmd = exec.CommandContext(ctx, "xdg-open", uri)
	case "darwin":
		cmd = exec.CommandContext(ctx, "open", uri)
	default:
		return fmt.Errorf("no uri opener for %s", runtime.GOOS)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open %s: %w", uri, err)
	}
	return nil
}
