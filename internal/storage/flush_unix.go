//go:build unix && !darwin

package storage

import "golang.org/x/sys/unix"

const haveFdFlush = true

func flushFd(fd uintptr) error {
	return unix.Fsync(int(fd))
}
