// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package lister enumerates the image files of a source directory, producing
// the sorted ordering every later pipeline stage builds on.
//
// The sort is lexicographic on the full path, so for a fixed directory content
// the listing is deterministic. Corresponding image and label files are
// expected to share the same base name (minus extension) so that the two
// sorted listings line up index by index -- see shuffle.ValidatePaired.
package lister

import (
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

const (
	// DefaultPattern matches every file name.
	DefaultPattern = "*"

	// DefaultExt is the file extension assumed when none is given.
	DefaultExt = "png"
)

// List returns the paths of the files in folder whose base name matches the
// glob pattern and whose extension is ext, sorted lexicographically.
//
// An empty pattern defaults to DefaultPattern and an empty ext to DefaultExt.
// Extension matching is case-insensitive and accepts ext with or without a
// leading dot. Sub-directories are skipped, not descended into.
func List(folder, pattern, ext string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if ext == "" {
		ext = DefaultExt
	}
	ext = strings.TrimPrefix(ext, ".")

	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list images in directory %q", folder)
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.EqualFold(strings.TrimPrefix(path.Ext(name), "."), ext) {
			continue
		}
		matched, err := path.Match(pattern, name)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid file pattern %q", pattern)
		}
		if !matched {
			continue
		}
		paths = append(paths, path.Join(folder, name))
	}
	sort.Strings(paths)
	return paths, nil
}

// Stem returns the base name of p without its extension: the part shared by an
// image file and its corresponding label file.
func Stem(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}
