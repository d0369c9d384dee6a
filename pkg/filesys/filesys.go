// Package filesys wraps the handful of filesystem primitives the block
// store needs — creating the fan-out directory for a fingerprint, writing
// a new block, reading one back — so every failure already carries the
// path and an rfserrors code instead of a bare *os.PathError. It is not a
// general-purpose filesystem layer; callers outside internal/blockstore
// have no use for it.
package filesys

import (
	"os"

	"github.com/canmi21/rfs/pkg/rfserrors"
)

// CreateDir ensures dirPath exists as a directory with the given
// permissions.
//
// If the directory already exists:
//   - If 'force' is true, it proceeds without error.
//   - If 'force' is false, it returns an *rfserrors.StoreError.
//
// It also returns an *rfserrors.StoreError if the existing path is a file,
// not a directory.
func CreateDir(dirPath string, permission os.FileMode, force bool) error {
	stat, err := os.Stat(dirPath)
	if !force && !os.IsNotExist(err) {
		return rfserrors.ClassifyIOError(err, dirPath)
	}

	if stat != nil && !stat.IsDir() {
		return rfserrors.NewStoreError(nil, rfserrors.ErrorCodeIO, "path exists and is not a directory").
			WithPath(dirPath)
	}

	if err := os.MkdirAll(dirPath, permission); err != nil {
		return rfserrors.ClassifyIOError(err, dirPath)
	}

	if err := os.Chmod(dirPath, permission); err != nil {
		return rfserrors.ClassifyIOError(err, dirPath)
	}
	return nil
}

// WriteFile writes contents to filePath with the given permission,
// creating the file if it doesn't exist and truncating it if it does.
func WriteFile(filePath string, permission os.FileMode, contents []byte) error {
	if err := os.WriteFile(filePath, contents, permission); err != nil {
		return rfserrors.ClassifyIOError(err, filePath)
	}
	return nil
}

// ReadFile reads the entire content of filePath into a byte slice.
func ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, rfserrors.ClassifyIOError(err, filePath)
	}
	return data, nil
}
