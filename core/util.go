package core

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// TruncateString returns the first `max` runes of `s`. The cut never splits a multi-byte character.
func TruncateString(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max { // fast path: byte length bounds rune count
		return s
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	var n int
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Getwd tries to find the project root (the directory holding go.mod).
// go-test changes the working directory to the test package being run, so we walk up from there.
// Deployed binaries have no go.mod around them: the current working directory is used instead.
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	currDir := wd
	for {
		if fi, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil && !fi.IsDir() {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == currDir {
			return wd
		}
		currDir = newDir
	}
}
