//go:build !windows

package exec

import (
	stdctx "context"
	stdexec "os/exec"
	"strings"
	"syscall"
)

// shellCommand builds the process that runs a rendered command line
// through the platform shell.
func shellCommand(body string) *stdexec.Cmd {
	return stdexec.Command("sh", "-c", body)
}

// shellCommandContext is shellCommand bound to ctx, for callers (the
// <run('...')> capture path) that don't need process-group teardown
// and are happy with exec.CommandContext's plain kill-on-cancel.
func shellCommandContext(ctx stdctx.Context, body string) *stdexec.Cmd {
	return stdexec.CommandContext(ctx, "sh", "-c", body)
}

// setupProcessGroup puts cmd in its own process group so a cancellation
// can kill the whole subtree it spawns, not just the shell itself.
func setupProcessGroup(cmd *stdexec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// killProcessGroup terminates cmd's entire process group.
func killProcessGroup(cmd *stdexec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	pid := cmd.Process.Pid
	if pgid, err := syscall.Getpgid(pid); err == nil && pgid > 0 {
		if err := syscall.Kill(-pgid, syscall.SIGKILL); err != nil {
			syscall.Kill(-pgid, syscall.SIGTERM)
		}
	}
	if err := cmd.Process.Kill(); err != nil && !strings.Contains(err.Error(), "process already finished") {
		return err
	}
	return nil
}
