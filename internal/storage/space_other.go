//go:build !linux && !darwin && !windows

package storage

func freeBytes(string) (uint64, bool, error) { return 0, false, nil }

func isNoSpaceErrno(error) bool { return false }
