package util

import "sync"

// ChunkSize is the read-scratch and line-buffer quantum (4 KiB).  Every
// socket read is bounded to one chunk, and the line decoder grows its
// buffer by exactly this much per overflow.
const ChunkSize = 4 * 1024

// BufPool provides reusable scratch buffers for the per-connection read
// loops, so a burst of clients does not churn the allocator on the hot
// path.
var BufPool = sync.Pool{
	New: func() interface{} {
		buf := make([]byte, ChunkSize)
		return &buf
	},
}

// GetBuf retrieves a buffer from the pool.  Callers must return it
// with [PutBuf] when finished.
func GetBuf() *[]byte {
	return BufPool.Get().(*[]byte)
}

// PutBuf returns a buffer to the pool for reuse.
func PutBuf(buf *[]byte) {
	if buf == nil {
		return
	}
	BufPool.Put(buf)
}
