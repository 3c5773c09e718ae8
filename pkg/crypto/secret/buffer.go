package secret

import (
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by operations on a closed Buffer.
var ErrClosed = errors.New("secret: buffer is closed")

// Buffer holds sensitive bytes that are zeroed on Close.
//
// A Buffer must not be copied after creation. After Close, Bytes panics.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	length int
	locked bool
	closed bool
}

// New allocates a zero-filled buffer of the given size.
func New(size int) (*Buffer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("secret: buffer size must be positive, got %d", size)
	}

	data, locked, err := allocate(size)
	if err != nil {
		return nil, err
	}

	return &Buffer{
		data:   data,
		length: size,
		locked: locked,
	}, nil
}

// FromBytes copies source into a new buffer. The caller keeps ownership
// of source and is responsible for wiping its own copy.
func FromBytes(source []byte) (*Buffer, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: cannot create buffer from empty source")
	}

	b, err := New(len(source))
	if err != nil {
		return nil, err
	}
	copy(b.data, source)
	return b, nil
}

// Bytes returns the secret data. The slice points into the protected
// region; do not retain it beyond the lifetime of the Buffer.
// Panics if the buffer has been closed.
func (b *Buffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("secret: read from closed buffer")
	}
	return b.data[:b.length]
}

// Len returns the size of the secret data.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

// Locked reports whether the memory is pinned in RAM.
func (b *Buffer) Locked() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.locked
}

// Closed reports whether Close has been called.
func (b *Buffer) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Close zeros the contents and releases the memory. Close is idempotent.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	Zero(b.data)
	err := release(b.data, b.locked)
	b.data = nil
	return err
}

// Zero overwrites data with zeros.
func Zero(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
