// Package apputil provides small file and directory helpers shared by the
// config loader and the storage layer.
package apputil

import (
	"os"
	"path/filepath"

	"meshrelay.dev/pkg/utils/chk"
)

// EnsureDir creates the parent directory of fileName if it does not already
// exist.
func EnsureDir(fileName string) (err error) {
	dirName := filepath.Dir(fileName)
	if _, err = os.Stat(dirName); err != nil {
		if err = os.MkdirAll(dirName, 0o755); chk.E(err) {
			return
		}
		return nil
	}
	return nil
}

// FileExists reports whether the named file or directory exists.
func FileExists(filePath string) bool {
	_, e := os.Stat(filePath)
	return e == nil
}
