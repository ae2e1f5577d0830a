//go:build windows

package storage

import "golang.org/x/sys/windows"

const haveFdFlush = true

func flushFd(fd uintptr) error {
	return windows.FlushFileBuffers(windows.Handle(fd))
}
