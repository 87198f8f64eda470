// Package fsutil locates simulation definition files on disk.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefinitionExt is the extension searched for when a definition name has none.
const DefinitionExt = ".hcl"

// FindFilesByExtension recursively searches rootPath for all files ending
// with extension, in lexical order.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

// ResolveDefinition finds the definition file name inside the package
// directory pkgDir. name is tried as given (relative to pkgDir unless
// absolute), then with DefinitionExt appended, and finally searched for by
// base name anywhere below pkgDir. An empty pkgDir means the working
// directory.
func ResolveDefinition(pkgDir, name string) (string, error) {
	if name == "" {
		return "", errors.New("no simulation definition file given")
	}
	if pkgDir == "" {
		pkgDir = "."
	}

	candidates := []string{name}
	if !filepath.IsAbs(name) {
		candidates = []string{filepath.Join(pkgDir, name)}
	}
	if filepath.Ext(name) == "" {
		candidates = append(candidates, candidates[0]+DefinitionExt)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}

	ext := filepath.Ext(name)
	base := filepath.Base(name)
	if ext == "" {
		ext = DefinitionExt
		base += DefinitionExt
	}
	files, err := FindFilesByExtension(pkgDir, ext)
	if err != nil {
		return "", fmt.Errorf("searching package %s: %w", pkgDir, err)
	}
	for _, f := range files {
		if filepath.Base(f) == base {
			return f, nil
		}
	}
	return "", fmt.Errorf("simulation definition %q not found in package %s", name, pkgDir)
}
