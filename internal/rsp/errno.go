package rsp

import (
	"errors"
	"syscall"
)

// errnoOf extracts the underlying errno from an os/io error for the vFile
// "F-1,<errno>" reply convention. Unwraps *os.PathError / *fs.PathError
// the way the stdlib filesystem calls wrap syscall failures.
func errnoOf(err error) int {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return int(syscall.EIO)
}
