package internal

import (
	"bytes"
	"sync"
)

// maxPooledBuffer is the capacity above which buffers are left to the garbage collector instead of
// being pooled, so that a single large frame does not pin its memory for the rest of the run.
const maxPooledBuffer = 1 << 16

var buffers = sync.Pool{
	New: func() any {
		return new(bytes.Buffer)
	},
}

// Buffer returns an empty buffer. It should be handed back with ReleaseBuffer once the bytes written
// to it are no longer referenced.
func Buffer() *bytes.Buffer {
	buf := buffers.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// ReleaseBuffer returns a buffer obtained through Buffer to the pool.
func ReleaseBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buffers.Put(buf)
}
