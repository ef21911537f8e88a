package core

// streaming.go holds the io.Reader wrappers applied to every domain list
// before it is split into lines:
//
//   - bomReader drops a leading UTF-8 byte order mark
//   - CountingReader tracks bytes read for progress logging
//
// Bytes pass through unchanged otherwise. Invalid UTF-8 is rejected per line
// by LineReader, never rewritten.

import (
	"bytes"
	"io"
	"sync/atomic"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader strips a UTF-8 BOM from the start of the stream.
type bomReader struct {
	r       io.Reader
	checked bool
	head    []byte // bytes read during the BOM check that are not a BOM
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true
		buf := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, buf)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		if !bytes.Equal(buf[:n], utf8BOM) {
			b.head = buf[:n]
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// CountingReader counts bytes read through it. BytesRead is safe to call
// from another goroutine while reads are in progress.
type CountingReader struct {
	r     io.Reader
	n     atomic.Int64
	Total int64 // Size of the input if known, else 0
}

// NewCountingReader wraps r. total may be 0 when the size is unknown (stdin).
func NewCountingReader(r io.Reader, total int64) *CountingReader {
	return &CountingReader{r: r, Total: total}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// BytesRead returns the number of bytes read so far.
func (c *CountingReader) BytesRead() int64 {
	return c.n.Load()
}

// Progress returns the read progress as a percentage (0-100), or 0 when
// the total is unknown.
func (c *CountingReader) Progress() int {
	if c.Total <= 0 {
		return 0
	}
	pct := int(c.BytesRead() * 100 / c.Total)
	return min(pct, 100)
}

// WrapForStreaming applies BOM removal, then byte counting.
func WrapForStreaming(r io.Reader, totalSize int64) *CountingReader {
	return NewCountingReader(newBOMReader(r), totalSize)
}
