// =============================================================================
// RFFA Reconciler - File Manager Utility
// =============================================================================
//
// This module provides the file-level plumbing around the workbooks:
//   - Backup copies of the input rosters before they are modified
//   - Atomic replacement of a report (write temp file, delete, move)
//   - Classification of OS errors into operator-facing error codes
//   - File name sanitising for generated reports
//
// BACKUP STRATEGY:
//   - A backup is a sibling copy named <prefix><original name>
//   - An older backup with the same name is overwritten
//   - Backups are best effort; the caller decides whether a failure matters
//
// =============================================================================

package utils

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/ginjaninja78/rffa-reconciler/internal/apperrors"
	"github.com/google/uuid"
)

// ErrLocked reports that another process holds a file.
var ErrLocked = errors.New("file is locked by another process")

// =============================================================================
// BACKUPS
// =============================================================================

// BackupFile copies path to a sibling file named prefix + base name,
// overwriting any earlier backup of the same name.
//
// PARAMETERS:
//   - path: The file to back up.
//   - prefix: Prepended to the base name, e.g. "BACKUP_".
//
// RETURNS:
//   - The path of the backup copy.
//   - An error if the copy fails.
func BackupFile(path, prefix string) (string, error) {
	backupPath := filepath.Join(filepath.Dir(path), prefix+filepath.Base(path))
	if err := copyFile(path, backupPath); err != nil {
		return "", fmt.Errorf("failed to back up %s: %w", filepath.Base(path), err)
	}
	return backupPath, nil
}

// =============================================================================
// ATOMIC REPLACEMENT
// =============================================================================

// AtomicReplace produces dst through a temporary file in dst's directory.
// write is handed the temporary path and must create the file there. Only
// after write succeeds is dst deleted and the temporary file moved into its
// place, so a failure mid-write never leaves a truncated dst behind.
//
// RETURNS:
//   - An AppError classified by ClassifyFileError on failure.
func AtomicReplace(dst string, write func(tmp string) error) (err error) {
	dir := filepath.Dir(dst)
	tmp := filepath.Join(dir, fmt.Sprintf("temp_%s%s", uuid.New().String(), filepath.Ext(dst)))

	defer func() {
		if err != nil {
			_ = os.Remove(tmp)
		}
	}()

	if err = write(tmp); err != nil {
		return ClassifyFileError(tmp, err)
	}

	if FileExists(dst) {
		if err = os.Remove(dst); err != nil {
			return ClassifyFileError(dst, err)
		}
	}

	if err = os.Rename(tmp, dst); err != nil {
		// Rename can fail on some network shares; fall back to copy.
		if copyErr := copyFile(tmp, dst); copyErr != nil {
			return ClassifyFileError(dst, copyErr)
		}
		err = nil
		_ = os.Remove(tmp)
	}

	return nil
}

// =============================================================================
// ERROR CLASSIFICATION
// =============================================================================

// ClassifyFileError maps an error from a file operation on path to an
// AppError the operator can act on. An error that already is an AppError is
// returned unchanged.
func ClassifyFileError(path string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperrors.As(err); ok {
		return err
	}

	name := filepath.Base(path)
	switch {
	case errors.Is(err, ErrLocked), isSharingViolation(err):
		return apperrors.Wrap(err, apperrors.CodeFileLocked,
			fmt.Sprintf("%s is being used by another process", name)).WithDetail("path", path)
	case errors.Is(err, fs.ErrPermission):
		return apperrors.Wrap(err, apperrors.CodePermissionDenied,
			fmt.Sprintf("access to %s was denied", name)).WithDetail("path", path)
	case errors.Is(err, fs.ErrNotExist):
		return apperrors.Wrap(err, apperrors.CodeSourceMissing,
			fmt.Sprintf("%s does not exist", name)).WithDetail("path", path)
	default:
		return apperrors.Wrap(err, apperrors.CodeIO,
			fmt.Sprintf("an I/O error occurred on %s", name)).WithDetail("path", path)
	}
}

func isSharingViolation(err error) bool {
	return errors.Is(err, syscall.EWOULDBLOCK) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.ETXTBSY)
}

// =============================================================================
// FILE NAMING
// =============================================================================

// SanitizeFileName replaces characters that are invalid in file names on
// common filesystems with '_'.
func SanitizeFileName(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 {
			return '_'
		}
		switch r {
		case '<', '>', ':', '"', '/', '\\', '|', '?', '*':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	_, err = io.Copy(destFile, sourceFile)
	if err != nil {
		return err
	}

	return destFile.Sync()
}

// FileExists reports whether path names a regular file that can be
// stat'ed. Permission and other stat errors count as absent.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
