// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package convert orchestrates the batch conversion of image directories into
// sample databases: list, optionally shuffle, encode and write, one job pair
// at a time.
package convert

import (
	stderrors "errors"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"

	"github.com/gomlx/imageset/pkg/kvstore"
	"github.com/gomlx/imageset/pkg/lister"
	"github.com/gomlx/imageset/pkg/record"
	"github.com/gomlx/imageset/pkg/shuffle"
)

// DefaultCapacity is the default pre-allocation ceiling handed to the
// database writer. It only reserves address space, so it is sized generously
// above any expected dataset volume.
const DefaultCapacity = int64(1) << 34

// Job is one (source directory, target database path) configuration entry.
type Job struct {
	SourceDir  string
	TargetPath string
}

// IsZero reports whether the job entry was left unconfigured.
func (j Job) IsZero() bool { return j.SourceDir == "" && j.TargetPath == "" }

// PairedJobs are the image and label jobs of one split. Either may be zero to
// skip it, but a configured pair is validated for sample correspondence
// before any database is written.
type PairedJobs struct {
	Images, Labels Job
}

// Config carries the settings shared by every job pair of one conversion run.
type Config struct {
	// Pattern and Ext select the source files, see lister.List.
	Pattern, Ext string

	// BGR reverses the channel order of image records; Normalize rescales
	// them to [0,1] elements of DType (Float32 or Float16). Neither applies
	// to label records.
	BGR, Normalize bool
	DType          dtypes.DType

	// ResizeWidth and ResizeHeight rescale images before encoding; zero
	// disables.
	ResizeWidth, ResizeHeight int

	// Seed fixes the training-split permutation. Runs with equal seeds and
	// equal listings produce identical databases.
	Seed shuffle.Seed

	// Capacity is the database pre-allocation ceiling in bytes.
	Capacity int64

	// Verbose enables a progress bar per job pair.
	Verbose bool
}

// DefaultConfig returns the conversion defaults: PNG sources, RGB channel
// order, raw 8-bit samples, seed 1.
func DefaultConfig() *Config {
	return &Config{
		Pattern:  lister.DefaultPattern,
		Ext:      lister.DefaultExt,
		DType:    dtypes.Float32,
		Seed:     1,
		Capacity: DefaultCapacity,
	}
}

func (cfg *Config) imageEncoder() *record.ImageEncoder {
	enc := record.NewImageEncoder().
		BGR(cfg.BGR).
		Normalize(cfg.Normalize).
		Resize(cfg.ResizeWidth, cfg.ResizeHeight)
	// DType only matters for normalized records; a zero Config keeps the
	// encoder's Float32 default instead of tripping the dtype check.
	if cfg.Normalize && cfg.DType != dtypes.InvalidDType {
		enc.DType(cfg.DType)
	}
	return enc
}

// ConvertImages converts the photographs of one job pair. With shuffled set
// the listing is permuted by cfg.Seed before writing; otherwise records keep
// the sorted listing order.
func ConvertImages(cfg *Config, job Job, shuffled bool) error {
	enc := cfg.imageEncoder()
	return convertPair(cfg, job, shuffled, enc.Encode)
}

// ConvertLabels converts the dense label maps of one job pair. The same
// shuffled flag and cfg.Seed as the corresponding ConvertImages call keep the
// two databases aligned.
func ConvertLabels(cfg *Config, job Job, shuffled bool) error {
	return convertPair(cfg, job, shuffled, record.EncodeLabel)
}

func convertPair(cfg *Config, job Job, shuffled bool, encode func(path string) (*record.Record, error)) error {
	paths, err := lister.List(job.SourceDir, cfg.Pattern, cfg.Ext)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.Errorf("no %q files matching %q found in %q", cfg.Ext, cfg.Pattern, job.SourceDir)
	}
	if shuffled {
		shuffle.New(cfg.Seed).Strings(paths)
	}

	db, err := kvstore.Create(job.TargetPath, cfg.Capacity)
	if err != nil {
		return err
	}
	var bar *progressbar.ProgressBar
	if cfg.Verbose {
		bar = progressbar.NewOptions(len(paths),
			progressbar.OptionSetDescription(job.SourceDir),
			progressbar.OptionUseANSICodes(true),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionSetTheme(progressbar.ThemeUnicode),
		)
	}
	start := time.Now()
	written, err := db.WriteAll(len(paths), func(i int) ([]byte, error) {
		rec, err := encode(paths[i])
		if err != nil {
			return nil, err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
		return rec.Serialize(), nil
	})
	if bar != nil {
		_ = bar.Close()
	}
	if err != nil {
		// All-or-nothing: nothing was committed, and the target file is
		// removed so the job pair can be rerun after the problem is fixed.
		if discardErr := db.Discard(); discardErr != nil {
			klog.Errorf("Failed to remove aborted database: %+v", discardErr)
		}
		return err
	}
	if err = db.Close(); err != nil {
		return err
	}
	klog.Infof("Wrote %d records (%s) from %q to %q in %s",
		len(paths), humanize.IBytes(uint64(written)), job.SourceDir, job.TargetPath,
		time.Since(start).Round(time.Millisecond))
	return nil
}

// validatePair fails fast if the image and label listings of a split don't
// correspond sample by sample. Nothing has been written at this point.
func validatePair(cfg *Config, pair PairedJobs, split string) error {
	if pair.Images.IsZero() || pair.Labels.IsZero() {
		return nil
	}
	images, err := lister.List(pair.Images.SourceDir, cfg.Pattern, cfg.Ext)
	if err != nil {
		return err
	}
	labels, err := lister.List(pair.Labels.SourceDir, cfg.Pattern, cfg.Ext)
	if err != nil {
		return err
	}
	if err = shuffle.ValidatePaired(images, labels); err != nil {
		return errors.WithMessagef(err, "%s split images (%q) and labels (%q) are not aligned",
			split, pair.Images.SourceDir, pair.Labels.SourceDir)
	}
	return nil
}

// ConvertAll runs the full conversion: training images, training labels, test
// images, test labels, sequentially and independently. The training pair is
// shuffled (both jobs under cfg.Seed, hence identically); the test pair keeps
// listing order. Zero jobs are skipped.
//
// A failing job aborts only its own database; the remaining jobs are still
// attempted, and all errors are returned joined.
func ConvertAll(cfg *Config, train, test PairedJobs) error {
	var errs []error
	runSplit := func(split string, pair PairedJobs, shuffled bool) {
		if err := validatePair(cfg, pair, split); err != nil {
			// Misaligned listings would corrupt both databases of the split.
			errs = append(errs, err)
			return
		}
		if !pair.Images.IsZero() {
			if err := ConvertImages(cfg, pair.Images, shuffled); err != nil {
				errs = append(errs, errors.WithMessagef(err, "%s images", split))
			}
		}
		if !pair.Labels.IsZero() {
			if err := ConvertLabels(cfg, pair.Labels, shuffled); err != nil {
				errs = append(errs, errors.WithMessagef(err, "%s labels", split))
			}
		}
	}
	runSplit("training", train, true)
	runSplit("test", test, false)
	return stderrors.Join(errs...)
}
