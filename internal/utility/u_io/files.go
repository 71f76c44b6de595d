package u_io

import (
	"strings"
)

// CleanFilename removes potentially dangerous characters from filenames
func CleanFilename(filename string) string {
	// Replace any path separators
	filename = strings.ReplaceAll(filename, "/", "_")
	filename = strings.ReplaceAll(filename, "\\", "_")

	// Remove any other potentially dangerous characters
	filename = strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '.' || r == '-' || r == '_' || r == ' ' {
			return r
		}
		return '_'
	}, filename)

	filename = strings.TrimSpace(filename)

	// Leading dots would hide the file or walk up a directory
	filename = strings.TrimLeft(filename, ".")
	if filename == "" {
		return "_"
	}

	return filename
}
