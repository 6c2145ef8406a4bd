// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package lister

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, p string) {
	t.Helper()
	require.NoError(t, os.WriteFile(p, []byte("x"), 0644))
}

func TestList(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "c.png", "a.PNG", "d.jpg", "notes.txt"} {
		touch(t, path.Join(dir, name))
	}
	require.NoError(t, os.Mkdir(path.Join(dir, "sub.png"), 0755))

	paths, err := List(dir, "", "")
	require.NoError(t, err)
	require.Equal(t, []string{
		path.Join(dir, "a.PNG"),
		path.Join(dir, "b.png"),
		path.Join(dir, "c.png"),
	}, paths, "expected sorted PNG files only, matched case-insensitively, directories skipped")

	paths, err = List(dir, "", ".jpg")
	require.NoError(t, err)
	require.Equal(t, []string{path.Join(dir, "d.jpg")}, paths)

	paths, err = List(dir, "[bc]*", "png")
	require.NoError(t, err)
	require.Equal(t, []string{path.Join(dir, "b.png"), path.Join(dir, "c.png")}, paths)
}

func TestListErrors(t *testing.T) {
	_, err := List(path.Join(t.TempDir(), "missing"), "", "")
	require.Error(t, err, "listing a non-existing directory must surface the filesystem error")

	dir := t.TempDir()
	touch(t, path.Join(dir, "a.png"))
	_, err = List(dir, "[", "png")
	require.Error(t, err, "an invalid glob pattern must be reported")
}

func TestStem(t *testing.T) {
	require.Equal(t, "0001", Stem("/data/train/0001.png"))
	require.Equal(t, "sample", Stem("sample"))
	require.Equal(t, "a.b", Stem("dir/a.b.png"))
}
