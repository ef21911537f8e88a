package core

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

const (
	// MinReadBufferSize is the smallest read buffer OpenInput will use.
	MinReadBufferSize = 512 * 1024

	// DefaultReadBufferSize is used when no size is configured.
	DefaultReadBufferSize = 1024 * 1024

	// MaxLineLength is the longest input line accepted. Longer lines abort
	// the read with bufio.ErrTooLong.
	MaxLineLength = 1024 * 1024
)

// LineReader yields trimmed, non-empty lines from a file or stdin. A line
// that is not valid UTF-8 stops the read with ErrInvalidUTF8.
//
// Usage:
//
//	lr, err := core.OpenInput(path, cfg.ReadBufferSize)
//	if err != nil { ... }
//	defer lr.Close()
//	for lr.Next() {
//	    use(lr.Text())
//	}
//	if err := lr.Err(); err != nil { ... }
type LineReader struct {
	name    string
	closer  io.Closer
	counter *CountingReader
	scanner *bufio.Scanner
	text    string
	lines   int
	scanned int
	err     error
}

// OpenInput opens path for line reading. An empty path or "-" reads stdin.
// bufSize below MinReadBufferSize is raised to it.
func OpenInput(path string, bufSize int) (*LineReader, error) {
	if path == "" || path == "-" {
		return NewLineReader("stdin", os.Stdin, 0, bufSize), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	lr := NewLineReader(path, f, size, bufSize)
	lr.closer = f
	return lr, nil
}

// NewLineReader wraps r. size is the input length if known, used for
// progress reporting.
func NewLineReader(name string, r io.Reader, size int64, bufSize int) *LineReader {
	if bufSize <= 0 {
		bufSize = DefaultReadBufferSize
	}
	bufSize = max(bufSize, MinReadBufferSize)

	counter := WrapForStreaming(r, size)
	scanner := bufio.NewScanner(bufio.NewReaderSize(counter, bufSize))
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)

	return &LineReader{
		name:    name,
		counter: counter,
		scanner: scanner,
	}
}

// Next advances to the next non-empty line. It returns false at end of
// input or on error; check Err afterwards.
func (lr *LineReader) Next() bool {
	if lr.err != nil {
		return false
	}
	for lr.scanner.Scan() {
		lr.scanned++
		raw := lr.scanner.Bytes()
		if !utf8.Valid(raw) {
			lr.err = fmt.Errorf("read %s at line %d: %w", lr.name, lr.scanned, ErrInvalidUTF8)
			break
		}
		line := strings.TrimSpace(string(raw))
		if line == "" {
			continue
		}
		lr.text = line
		lr.lines++
		return true
	}
	lr.text = ""
	return false
}

// Text returns the current line.
func (lr *LineReader) Text() string {
	return lr.text
}

// Err returns the first read error, if any. End of input is not an error.
// Line numbers count every physical line, blank ones included.
func (lr *LineReader) Err() error {
	if lr.err != nil {
		return lr.err
	}
	if err := lr.scanner.Err(); err != nil {
		return fmt.Errorf("read %s at line %d: %w", lr.name, lr.scanned+1, err)
	}
	return nil
}

// Lines returns the number of non-empty lines yielded so far.
func (lr *LineReader) Lines() int {
	return lr.lines
}

// Name returns the input name used in logs and errors.
func (lr *LineReader) Name() string {
	return lr.name
}

// Progress returns the percentage of the input consumed, or 0 for stdin.
func (lr *LineReader) Progress() int {
	return lr.counter.Progress()
}

// Close closes the underlying file. Stdin is left open.
func (lr *LineReader) Close() error {
	if lr.closer == nil {
		return nil
	}
	return lr.closer.Close()
}

// ReadAll drains lr into a slice.
func (lr *LineReader) ReadAll() ([]string, error) {
	var lines []string
	for lr.Next() {
		lines = append(lines, lr.Text())
	}
	if err := lr.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
