// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package shuffle

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func numberedPaths(prefix string, n int) []string {
	paths := make([]string, n)
	for i := range paths {
		paths[i] = fmt.Sprintf("%s/%04d.png", prefix, i)
	}
	return paths
}

func TestSameSeedSamePermutation(t *testing.T) {
	const n = 100
	images := numberedPaths("images", n)
	labels := numberedPaths("labels", n)

	New(42).Strings(images)
	New(42).Strings(labels)
	for i := range images {
		require.Equal(t, labels[i][len("labels/"):], images[i][len("images/"):],
			"index %d: equal seeds must permute equally-sorted listings identically", i)
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	const n = 100
	a := numberedPaths("x", n)
	b := numberedPaths("x", n)
	New(1).Strings(a)
	New(2).Strings(b)
	require.NotEqual(t, a, b)
}

func TestShuffleIsAPermutation(t *testing.T) {
	paths := numberedPaths("x", 50)
	shuffled := append([]string(nil), paths...)
	New(7).Strings(shuffled)
	require.ElementsMatch(t, paths, shuffled)
	require.NotEqual(t, paths, shuffled, "a 50-element shuffle staying in place would be astronomically unlikely")
}

func TestValidatePaired(t *testing.T) {
	images := []string{"img/a.png", "img/b.png", "img/c.png"}
	labels := []string{"ann/a.png", "ann/b.png", "ann/c.png"}
	require.NoError(t, ValidatePaired(images, labels))

	require.ErrorContains(t, ValidatePaired(images, labels[:2]), "differ in length")

	labels[1] = "ann/x.png"
	err := ValidatePaired(images, labels)
	require.ErrorContains(t, err, "diverge at index 1")
}
