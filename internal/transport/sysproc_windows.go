//go:build windows

package transport

import (
	"os"
	"os/exec"
	"syscall"
)

func applySysProcAttr(cmd *exec.Cmd, cfg Config) {
	if cfg.WindowsHide {
		cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	}
}

func shellCommand(commandLine string) *exec.Cmd {
	return exec.Command("cmd", "/C", commandLine)
}

// probeProcess approximates a liveness check; Windows has no zero-signal probe.
func probeProcess(p *os.Process) error {
	_, err := os.FindProcess(p.Pid)
	return err
}

// terminateProcess requests shutdown; Windows has no SIGTERM equivalent.
func terminateProcess(p *os.Process) error {
	return p.Kill()
}

func exitSignal(_ *os.ProcessState) string {
	return ""
}
