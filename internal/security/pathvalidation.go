// Package security guards the file paths handed to the analyser: model
// tables named in a configuration file and report files written by the CLI.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidatePathWithinDirectory reports an error when filePath, once cleaned
// and with symlinks resolved, lies outside baseDir.
func ValidatePathWithinDirectory(filePath, baseDir string) error {
	absPath, err := filepath.Abs(filepath.Clean(filePath))
	if err != nil {
		return fmt.Errorf("failed to resolve absolute path: %w", err)
	}

	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory path: %w", err)
	}

	canonicalBase, err := filepath.EvalSymlinks(absBase)
	if err != nil {
		return fmt.Errorf("failed to resolve base directory symlinks: %w", err)
	}

	canonicalPath := canonicalise(absPath)

	rel, err := filepath.Rel(canonicalBase, canonicalPath)
	if err != nil {
		return fmt.Errorf("path is outside base directory: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", filePath, baseDir)
	}
	return nil
}

// canonicalise resolves symlinks in absPath. For a path that does not exist
// yet, the nearest existing parent is resolved and the rest re-attached, so
// a symlinked parent cannot smuggle a new file outside the base.
func canonicalise(absPath string) string {
	if resolved, err := filepath.EvalSymlinks(absPath); err == nil {
		return resolved
	}
	check := absPath
	for {
		parent := filepath.Dir(check)
		if parent == check {
			return absPath
		}
		if resolved, err := filepath.EvalSymlinks(parent); err == nil {
			rel, _ := filepath.Rel(parent, absPath)
			return filepath.Join(resolved, rel)
		}
		check = parent
	}
}

// ResolveWithinDirectory turns a model-table reference into a usable path.
// Relative names are joined onto baseDir; the result must stay inside it.
// An empty name resolves to the empty string, which callers treat as
// "model not configured".
func ResolveWithinDirectory(name, baseDir string) (string, error) {
	if name == "" {
		return "", nil
	}
	if baseDir == "" {
		return filepath.Clean(name), nil
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	if err := ValidatePathWithinDirectory(path, baseDir); err != nil {
		return "", err
	}
	return filepath.Clean(path), nil
}

// SanitizeFilename makes a safe filename from an arbitrary string. Anything
// other than ASCII letters, digits, dot, underscore or dash becomes a single
// underscore, and the result is capped at 128 bytes.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
