// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package shuffle implements the deterministic permutation applied to the
// training split.
//
// The image and the label databases of the training split are written by two
// independent pipeline runs, so they stay aligned only if both runs permute
// their (equal-length, equally sorted) listings identically. That is
// guaranteed by seeding: two Shufflers built from the same Seed produce the
// same permutation for inputs of the same length. The seed is an explicit
// value carried in the conversion configuration; no global RNG state is
// involved.
package shuffle

import (
	"math/rand"

	"github.com/gomlx/imageset/pkg/lister"
	"github.com/pkg/errors"
)

// Seed determines the permutation applied to a training listing. The same
// Seed must be used for the images and the labels of one training split.
type Seed int64

// Shuffler applies the pseudo-random permutation determined by its seed.
// It owns a private rand.Rand, so concurrent pipelines (or the global RNG)
// cannot disturb the sequence. A Shuffler is single-use per listing: build a
// fresh one from the same Seed for each shuffle that must repeat the
// permutation.
type Shuffler struct {
	rng *rand.Rand
}

// New returns a Shuffler positioned at the start of the pseudo-random
// sequence for seed.
func New(seed Seed) *Shuffler {
	return &Shuffler{rng: rand.New(rand.NewSource(int64(seed)))}
}

// Strings permutes paths in place.
func (s *Shuffler) Strings(paths []string) {
	s.rng.Shuffle(len(paths), func(i, j int) {
		paths[i], paths[j] = paths[j], paths[i]
	})
}

// ValidatePaired checks that the sorted image and label listings correspond
// sample by sample: same length, and pairwise matching file-name stems.
//
// Equal-seed shuffling keeps two listings aligned only under this
// precondition, so conversion fails fast on the first violation instead of
// silently writing misaligned databases.
func ValidatePaired(images, labels []string) error {
	if len(images) != len(labels) {
		return errors.Errorf("image/label listings differ in length: %d images vs %d labels",
			len(images), len(labels))
	}
	for i := range images {
		imgStem, labelStem := lister.Stem(images[i]), lister.Stem(labels[i])
		if imgStem != labelStem {
			return errors.Errorf(
				"image/label listings diverge at index %d: image %q vs label %q (stems %q vs %q)",
				i, images[i], labels[i], imgStem, labelStem)
		}
	}
	return nil
}
