package secret

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func excludeFromDump(data []byte) error {
	if err := unix.Madvise(data, unix.MADV_DONTDUMP); err != nil {
		return fmt.Errorf("secret: madvise(MADV_DONTDUMP) failed: %w", err)
	}
	return nil
}
