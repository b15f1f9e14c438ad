//go:build !unix

package executor

import "os/exec"

func isolateProcessGroup(c *exec.Cmd) {
	c.WaitDelay = killWaitDelay
}
