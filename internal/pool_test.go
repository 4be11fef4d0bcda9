package internal

import "testing"

func TestBufferIsEmpty(t *testing.T) {
	buf := Buffer()
	buf.WriteString("frame")
	ReleaseBuffer(buf)

	if n := Buffer().Len(); n != 0 {
		t.Fatalf("expected an empty buffer, got %d bytes", n)
	}
}

func TestReleaseBufferDropsLargeBuffers(t *testing.T) {
	buf := Buffer()
	buf.Grow(maxPooledBuffer * 2)
	ReleaseBuffer(buf)

	// Pools may drop entries at any time, so only a pooled large buffer is an error.
	for range 8 {
		if b := Buffer(); b.Cap() > maxPooledBuffer {
			t.Fatalf("buffer with capacity %d was pooled", b.Cap())
		}
	}
}
