//go:build !windows

package transport

import (
	"os"
	"os/exec"
	"syscall"
)

func applySysProcAttr(_ *exec.Cmd, _ Config) {
	// WindowsHide has no effect on this platform.
}

func shellCommand(commandLine string) *exec.Cmd {
	return exec.Command("/bin/sh", "-c", commandLine)
}

// probeProcess performs a zero-signal liveness check.
func probeProcess(p *os.Process) error {
	return p.Signal(syscall.Signal(0))
}

// terminateProcess requests a graceful shutdown.
func terminateProcess(p *os.Process) error {
	return p.Signal(syscall.SIGTERM)
}

// exitSignal returns the terminating signal name when the process was signaled.
func exitSignal(state *os.ProcessState) string {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ws.Signal().String()
	}
	return ""
}
