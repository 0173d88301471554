//go:build !linux

package sandbox

import "os/exec"

// configureSysProcAttr is a no-op outside Linux: Pdeathsig has no portable
// equivalent, and this project's toolchain targets Linux hosts.
func configureSysProcAttr(cmd *exec.Cmd) {}
