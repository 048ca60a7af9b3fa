//go:build !unix

package voice

import "os/exec"

// killProcessGroup is a no-op where process groups are unavailable; only the
// direct child is killed on cancellation.
func killProcessGroup(*exec.Cmd) {}
