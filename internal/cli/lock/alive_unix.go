//go:build !windows

package lock

import (
	"errors"
	"os"
	"syscall"
)

func pidAlive(pid int) (alive, checked bool) {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false, true
	}
	err = p.Signal(syscall.Signal(0))
	switch {
	case err == nil, errors.Is(err, syscall.EPERM):
		return true, true
	case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
		return false, true
	default:
		return false, false
	}
}
