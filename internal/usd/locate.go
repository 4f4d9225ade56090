package usd

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// ErrModelNotFound is returned when an extracted archive contains no file with
// the expected parametric-model name. Callers treat it as a permanent failure.
var ErrModelNotFound = errors.New("parametric model not found in archive")

// FindFileNamed walks root recursively and returns the first file whose base
// name equals name exactly.
func FindFileNamed(root string, name string) (string, error) {
	var found string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walk %s: %w", root, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s under %s", ErrModelNotFound, name, root)
	}
	return found, nil
}
