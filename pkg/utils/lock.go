package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// CheckExclusiveAccess verifies that path exists and that no other process
// appears to hold it. It opens the file for writing and tries a
// non-blocking exclusive lock, then looks for the owner files Excel
// ("~$name") and LibreOffice (".~lock.name#") leave next to an open
// workbook. Nothing is modified and every handle is released before it
// returns.
//
// RETURNS:
//   - nil when the file is free.
//   - An AppError with code FILE_LOCKED, PERMISSION_DENIED, SOURCE_MISSING
//     or IO otherwise.
func CheckExclusiveAccess(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return ClassifyFileError(path, err)
	}
	if info.IsDir() {
		return ClassifyFileError(path, fmt.Errorf("%s is a directory", path))
	}

	if owner := ownerLockFile(path); owner != "" {
		return ClassifyFileError(path, fmt.Errorf("%w: lock file %s present", ErrLocked, filepath.Base(owner)))
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return ClassifyFileError(path, openError(err))
	}
	defer f.Close()

	if err := tryLock(f); err != nil {
		return ClassifyFileError(path, err)
	}
	return nil
}

// ownerLockFile returns the path of an office-suite owner file for path, or
// "" when there is none.
func ownerLockFile(path string) string {
	dir, base := filepath.Split(path)
	candidates := []string{
		filepath.Join(dir, ".~lock."+base+"#"),
		filepath.Join(dir, "~$"+base),
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c
		}
	}
	return ""
}
