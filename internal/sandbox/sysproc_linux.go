//go:build linux

package sandbox

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureSysProcAttr puts the mutant child in its own process group and
// asks the kernel to deliver SIGKILL to it if this driver process dies
// first, so a killed driver can't leave an orphaned mutant subprocess
// running past its intended lifetime — the os/exec equivalent of
// ForkProcessSandbox.cpp's child living under the parent's explicit
// waitpid supervision.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: unix.SIGKILL,
	}
}
