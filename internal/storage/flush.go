package storage

type fder interface {
	Fd() uintptr
}

// Flush forces everything written to f down to the medium. Files backed by a
// descriptor use the strongest platform primitive available; others fall back
// to Sync.
func Flush(f WriteFile) error {
	if d, ok := f.(fder); ok && haveFdFlush {
		return flushFd(d.Fd())
	}
	return f.Sync()
}
