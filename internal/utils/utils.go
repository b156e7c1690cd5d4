// utils.go

package utils

import (
	"regexp"
	"strings"
)

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*]`)
	underscoreRuns = regexp.MustCompile(`_+`)
)

// Windows reserved device names, checked case-insensitively
var reservedNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// SanitizeFilename makes a title safe to use as a file or directory name
// on Windows and Unix. Spaces are preserved; invalid characters become
// underscores and runs of underscores collapse to one.
func SanitizeFilename(name string, maxLength int) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, " .")
	name = underscoreRuns.ReplaceAllString(name, "_")

	if reservedNames[strings.ToUpper(name)] {
		name = "_" + name
	}

	if runes := []rune(name); len(runes) > maxLength {
		name = strings.TrimRight(string(runes[:maxLength]), "_")
	}

	if name == "" {
		return "untitled"
	}

	return name
}
