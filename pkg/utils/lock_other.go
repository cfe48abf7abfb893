//go:build !unix

package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// tryLock is a no-op: on Windows the exclusive open in CheckExclusiveAccess
// already fails while another program holds the file.
func tryLock(*os.File) error {
	return nil
}

// openError treats an open failure that is neither a missing file nor a
// permission problem as a sharing violation.
func openError(err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrLocked, err)
}
