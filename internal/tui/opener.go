package tui

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
)

// Opener launches files and URLs in the platform's default viewer.
// A custom viewer command can be configured, falling back to the
// system handler when it is missing from PATH.
type Opener struct {
	command string
	logger  *slog.Logger
}

// NewOpener creates an Opener. command may be empty to always use the
// system default handler.
func NewOpener(command string, logger *slog.Logger) *Opener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Opener{
		command: command,
		logger:  logger,
	}
}

// Open launches the target (a local path or URL) without waiting for
// the viewer to exit.
func (o *Opener) Open(target string) error {
	if target == "" {
		return fmt.Errorf("nothing to open")
	}

	if o.command != "" {
		if _, err := exec.LookPath(o.command); err == nil {
			o.logger.Info("opening with configured viewer", "command", o.command, "target", target)
			return exec.Command(o.command, target).Start()
		}
		o.logger.Warn("configured viewer not found, using system default", "command", o.command)
	}

	return o.openDefault(target)
}

// openDefault opens the target using the system default handler
func (o *Opener) openDefault(target string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}

	o.logger.Info("opening with system default", "os", runtime.GOOS, "target", target)

	return cmd.Start()
}
