//go:build unix

package utils

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// tryLock takes and releases a non-blocking exclusive flock on f.
func tryLock(f *os.File) error {
	fd := int(f.Fd())
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		if errors.Is(err, unix.EWOULDBLOCK) {
			return fmt.Errorf("%w: %v", ErrLocked, err)
		}
		return err
	}
	return unix.Flock(fd, unix.LOCK_UN)
}

// openError passes open errors through; on unix a held file can still be
// opened, so any failure here is a permission or I/O problem.
func openError(err error) error {
	return err
}
