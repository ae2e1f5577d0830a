//go:build darwin

package storage

import "golang.org/x/sys/unix"

const haveFdFlush = true

// fsync on macOS does not flush the drive cache; F_FULLFSYNC does, but not
// every filesystem supports it.
func flushFd(fd uintptr) error {
	if _, err := unix.FcntlInt(fd, unix.F_FULLFSYNC, 0); err == nil {
		return nil
	}
	return unix.Fsync(int(fd))
}
