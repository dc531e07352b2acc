// Package process locates running readmectl agents via the host process
// table.
package process

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/google/gops/goprocess"
)

// Info describes one matched process.
type Info struct {
	PID  int
	Exec string
	Path string
}

// FindByName returns all processes whose executable name contains name.
func FindByName(name string) []Info {
	name = strings.ToLower(name)

	var out []Info

	for _, proc := range goprocess.FindAll() {
		if strings.Contains(strings.ToLower(proc.Exec), name) ||
			strings.Contains(strings.ToLower(proc.Path), name) {
			out = append(out, Info{PID: proc.PID, Exec: proc.Exec, Path: proc.Path})
		}
	}

	return out
}

// IsRunning reports whether pid is still in the process table.
func IsRunning(pid int) bool {
	for _, proc := range goprocess.FindAll() {
		if proc.PID == pid {
			return true
		}
	}

	return false
}

// Terminate asks the process to exit.
func Terminate(pid int) error {
	if runtime.GOOS == "windows" {
		return exec.Command("taskkill", "/PID", fmt.Sprintf("%d", pid), "/F").Run()
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process: %w", err)
	}

	return proc.Signal(syscall.SIGTERM)
}

// WaitForExit polls until the process leaves the table or the timeout
// elapses.
func WaitForExit(pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		if !IsRunning(pid) {
			return nil
		}

		time.Sleep(100 * time.Millisecond)
	}

	return fmt.Errorf("process %d still running after %v", pid, timeout)
}
