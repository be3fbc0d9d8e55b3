package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold file (e.g. the local
// SQLite database) if it does not exist yet, and returns it.
// In-memory DSNs need no directory; an empty dir is returned for them.
func EnsureParentDir(file string) (string, error) {
	if IsMemoryDSN(file) {
		return "", nil
	}

	abs, err := filepath.Abs(file)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", file, err)
	}

	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return dir, nil
}

// IsMemoryDSN reports whether dsn points at an in-memory SQLite database.
func IsMemoryDSN(dsn string) bool {
	return dsn == ":memory:" || strings.Contains(dsn, "mode=memory")
}
