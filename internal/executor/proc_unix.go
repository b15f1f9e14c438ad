//go:build unix

package executor

import (
	"os/exec"
	"syscall"
)

// isolateProcessGroup starts the program in its own process group and makes
// cancellation kill the whole group, so programs started by an interpreter
// or a build driver die with it.
func isolateProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		return syscall.Kill(-c.Process.Pid, syscall.SIGKILL)
	}
	c.WaitDelay = killWaitDelay
}
