//go:build !unix

package secret

// Without mmap the buffer lives on the heap; Close still zeroes it.
func allocate(size int) ([]byte, bool, error) {
	return make([]byte, size), false, nil
}

func release([]byte, bool) error { return nil }
