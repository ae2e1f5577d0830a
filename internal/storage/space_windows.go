//go:build windows

package storage

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/windows"
)

func freeBytes(dir string) (uint64, bool, error) {
	p, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, false, err
	}
	var avail, total, free uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &total, &free); err != nil {
		return 0, false, err
	}
	return avail, true, nil
}

func isNoSpaceErrno(err error) bool {
	return errors.Is(err, windows.ERROR_DISK_FULL) || errors.Is(err, windows.ERROR_HANDLE_DISK_FULL)
}
