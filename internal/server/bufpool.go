package server

import "sync"

// Buffer size classes for the reply pool. Most replies are small
// (attributes, status codes); READDIRPLUS and READ replies up to 1 MiB
// land in the medium or large tier. A larger reply, such as a READ of a
// full 1 MiB rtmax plus its headers, is allocated directly.
const (
	smallBufSize  = 4 << 10
	mediumBufSize = 64 << 10
	largeBufSize  = 1 << 20
)

var (
	smallPool = sync.Pool{New: func() any { b := make([]byte, smallBufSize); return &b }}
	medPool   = sync.Pool{New: func() any { b := make([]byte, mediumBufSize); return &b }}
	largePool = sync.Pool{New: func() any { b := make([]byte, largeBufSize); return &b }}
)

// getReplyBuf returns a byte slice of at least size, pooled where the
// size fits one of the three tiers, allocated directly otherwise.
func getReplyBuf(size int) []byte {
	switch {
	case size <= smallBufSize:
		p := smallPool.Get().(*[]byte)
		return (*p)[:size]
	case size <= mediumBufSize:
		p := medPool.Get().(*[]byte)
		return (*p)[:size]
	case size <= largeBufSize:
		p := largePool.Get().(*[]byte)
		return (*p)[:size]
	default:
		return make([]byte, size)
	}
}

// putReplyBuf returns buf to the pool matching its capacity. Buffers
// outside the three tiers are left for the garbage collector.
func putReplyBuf(buf []byte) {
	if buf == nil {
		return
	}
	switch cap(buf) {
	case smallBufSize:
		full := buf[:cap(buf)]
		smallPool.Put(&full)
	case mediumBufSize:
		full := buf[:cap(buf)]
		medPool.Put(&full)
	case largeBufSize:
		full := buf[:cap(buf)]
		largePool.Put(&full)
	}
}
