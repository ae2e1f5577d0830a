package wipe

import "sync"

// BufferPool hands out byte slices by power-of-two size class. Returned
// buffers are zeroed before they go back in the pool, since they may have
// held file content or ciphertext.
type BufferPool struct {
	pools map[int]*sync.Pool
	mu    sync.RWMutex
}

var globalBufferPool = &BufferPool{
	pools: make(map[int]*sync.Pool),
}

// GetBuffer returns a buffer of exactly size bytes.
func GetBuffer(size int) []byte {
	if size <= 0 {
		return nil
	}
	return globalBufferPool.get(size)
}

// PutBuffer zeroes buf and returns it to the pool.
func PutBuffer(buf []byte) {
	if cap(buf) == 0 {
		return
	}
	globalBufferPool.put(buf)
}

func (bp *BufferPool) get(size int) []byte {
	class := sizeClass(size)

	bp.mu.RLock()
	pool, ok := bp.pools[class]
	bp.mu.RUnlock()

	if !ok {
		bp.mu.Lock()
		pool, ok = bp.pools[class]
		if !ok {
			pool = &sync.Pool{
				New: func() interface{} {
					b := make([]byte, class)
					return &b
				},
			}
			bp.pools[class] = pool
		}
		bp.mu.Unlock()
	}

	bufp := pool.Get().(*[]byte)
	return (*bufp)[:size]
}

func (bp *BufferPool) put(buf []byte) {
	full := buf[:cap(buf)]
	Zero(full)

	bp.mu.RLock()
	pool, ok := bp.pools[cap(buf)]
	bp.mu.RUnlock()
	if ok {
		pool.Put(&full)
	}
}

var sizeClasses = []int{4 << 10, 16 << 10, 64 << 10, 256 << 10, 1 << 20, 4 << 20, 16 << 20}

func sizeClass(size int) int {
	for _, c := range sizeClasses {
		if size <= c {
			return c
		}
	}
	return size
}
