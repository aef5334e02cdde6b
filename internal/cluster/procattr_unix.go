//go:build unix

package cluster

import (
	"os/exec"
	"syscall"
)

// detach puts the worker in its own process group so a terminal Ctrl-C
// reaches only the supervisor, which then stops workers with SIGTERM
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
