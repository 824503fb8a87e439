package testenv

import (
	"path/filepath"
	"testing"
)

// TempName returns a filename in a per-test temporary directory.
// The directory is deleted during test cleanup.
func TempName(t testing.TB, name string) string {
	return filepath.Join(t.TempDir(), name)
}
