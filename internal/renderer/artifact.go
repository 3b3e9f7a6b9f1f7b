package renderer

import (
	"fmt"
	"os"
	"path/filepath"
)

// FindNewest returns the most recently modified file under dir that matches
// pattern, or "" when nothing matches.
func FindNewest(dir string, pattern string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return "", fmt.Errorf("invalid artifact pattern: %w", err)
	}

	newest := ""
	var newestMod int64
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || info.IsDir() {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest, newestMod = m, mod
		}
	}
	return newest, nil
}
