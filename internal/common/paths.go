package common

import (
	"fmt"
	"path/filepath"
	"strings"
)

// CleanPath returns path cleaned and made absolute.
func CleanPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("invalid path: empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	return abs, nil
}

// ValidatePath cleans path and rejects it unless it lies inside baseDir.
func ValidatePath(path, baseDir string) (string, error) {
	cleanedPath, err := CleanPath(path)
	if err != nil {
		return "", err
	}
	cleanedBase, err := CleanPath(baseDir)
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(cleanedBase, cleanedPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside %s", path, baseDir)
	}
	return cleanedPath, nil
}

// JoinPath joins slash-separated elements onto base. The result must stay
// inside base.
func JoinPath(base string, elements ...string) (string, error) {
	parts := []string{base}
	for _, e := range elements {
		parts = append(parts, filepath.FromSlash(e))
	}
	return ValidatePath(filepath.Join(parts...), base)
}
