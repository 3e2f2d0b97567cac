package spool

import (
	"fmt"
	"io"
	"os"
)

// Buffer accumulates written bytes in memory until a threshold, then spills
// to an unnamed temp file. After writing, call Rewind before reading.
// Close releases the temp file on every exit path.
type Buffer struct {
	threshold int
	mem       []byte
	off       int64
	file      *os.File
	size      int64
}

// New creates a buffer that spills to disk once more than threshold bytes
// have been written.
func New(threshold int) *Buffer {
	if threshold <= 0 {
		threshold = 5 * 1024 * 1024
	}
	return &Buffer{threshold: threshold}
}

// Write appends p, switching to a temp file when the threshold is crossed.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.file == nil && len(b.mem)+len(p) > b.threshold {
		f, err := os.CreateTemp("", "spool-*")
		if err != nil {
			return 0, fmt.Errorf("create spill file: %w", err)
		}
		if _, err := f.Write(b.mem); err != nil {
			f.Close()
			os.Remove(f.Name())
			return 0, fmt.Errorf("spill to file: %w", err)
		}
		b.file = f
		b.mem = nil
	}
	if b.file != nil {
		n, err := b.file.Write(p)
		b.size += int64(n)
		return n, err
	}
	b.mem = append(b.mem, p...)
	b.size += int64(len(p))
	return len(p), nil
}

// Read reads from the current position.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.file != nil {
		return b.file.Read(p)
	}
	if b.off >= int64(len(b.mem)) {
		return 0, io.EOF
	}
	n := copy(p, b.mem[b.off:])
	b.off += int64(n)
	return n, nil
}

// Seek implements io.Seeker over the written bytes.
func (b *Buffer) Seek(offset int64, whence int) (int64, error) {
	if b.file != nil {
		return b.file.Seek(offset, whence)
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.off + offset
	case io.SeekEnd:
		abs = int64(len(b.mem)) + offset
	default:
		return 0, fmt.Errorf("spool: invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, fmt.Errorf("spool: negative position")
	}
	b.off = abs
	return abs, nil
}

// Rewind resets the read position to the start.
func (b *Buffer) Rewind() error {
	_, err := b.Seek(0, io.SeekStart)
	return err
}

// Size returns the total number of bytes written.
func (b *Buffer) Size() int64 {
	return b.size
}

// Spilled reports whether the buffer has switched to a temp file.
func (b *Buffer) Spilled() bool {
	return b.file != nil
}

// Close removes the spill file if one was created.
func (b *Buffer) Close() error {
	if b.file == nil {
		b.mem = nil
		return nil
	}
	name := b.file.Name()
	err := b.file.Close()
	if rmErr := os.Remove(name); err == nil {
		err = rmErr
	}
	b.file = nil
	return err
}
