package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// sourceFile is the on-disk layout of one source:
//
//	source: apps
//	items:
//	  - id: apps:chrome
//	    name: Google Chrome
type sourceFile struct {
	Source string `yaml:"source"`
	Items  []Item `yaml:"items"`
}

// IsSourceFile reports whether path names a YAML source file.
func IsSourceFile(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// SourceIDFromPath is the source id used when a file does not declare one:
// its base name without extension.
func SourceIDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile reads and validates one source file.
func LoadFile(path string) (SourceUpdate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SourceUpdate{}, fmt.Errorf("reading source file %s: %w", path, err)
	}
	var f sourceFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return SourceUpdate{}, fmt.Errorf("parsing source file %s: %w", path, err)
	}
	if f.Source == "" {
		f.Source = SourceIDFromPath(path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return SourceUpdate{}, fmt.Errorf("stat source file %s: %w", path, err)
	}
	update := SourceUpdate{Source: f.Source, Items: f.Items, UpdatedAt: info.ModTime().UTC()}
	if err := Validate(&update); err != nil {
		return SourceUpdate{}, fmt.Errorf("source file %s: %w", path, err)
	}
	return update, nil
}

// LoadedFile pairs a source update with the file it came from.
type LoadedFile struct {
	Path   string
	Update SourceUpdate
}

// LoadDir loads every source file in dir in file name order. Files that fail
// to load are skipped and their errors joined into the returned error, so a
// single broken file does not hide the rest of the catalog.
func LoadDir(dir string) ([]LoadedFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir %s: %w", dir, err)
	}
	var (
		loaded []LoadedFile
		errs   []error
	)
	for _, e := range entries {
		if e.IsDir() || !IsSourceFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		update, err := LoadFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		loaded = append(loaded, LoadedFile{Path: path, Update: update})
	}
	return loaded, errors.Join(errs...)
}
