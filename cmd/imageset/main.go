// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// imageset converts directories of image files into embedded key-value
// sample databases used as a training-data source.
//
// It runs up to four job pairs per invocation -- training images, training
// labels, test images and test labels -- each given as a source_dir:target_db
// pair relative to --base. The two training databases are written under the
// identical permutation (fixed by --seed); the test databases keep the sorted
// listing order.
//
// Example:
//
//	imageset --base ~/data/camvid \
//	    --train_images train:train_images.db --train_labels trainannot:train_labels.db \
//	    --test_images test:test_images.db --test_labels testannot:test_labels.db \
//	    --bgr --normalize
package main

import (
	"flag"
	"fmt"
	"path"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/janpfeifer/must"
	"k8s.io/klog/v2"

	"github.com/gomlx/imageset/pkg/convert"
	"github.com/gomlx/imageset/pkg/lister"
	"github.com/gomlx/imageset/pkg/shuffle"
	"github.com/gomlx/imageset/pkg/support/fsutil"
)

var (
	flagBase = flag.String("base", ".", "Base directory: source and target paths of the job pairs are taken relative to it.")

	flagTrainImages = flag.String("train_images", "", "Training images job pair, as source_dir:target_db.")
	flagTrainLabels = flag.String("train_labels", "", "Training labels job pair, as source_dir:target_db.")
	flagTestImages  = flag.String("test_images", "", "Test images job pair, as source_dir:target_db.")
	flagTestLabels  = flag.String("test_labels", "", "Test labels job pair, as source_dir:target_db.")

	flagPattern = flag.String("pattern", lister.DefaultPattern, "Glob pattern selecting source file names.")
	flagExt     = flag.String("ext", lister.DefaultExt, "Extension of the source image files.")

	flagBGR       = flag.Bool("bgr", false, "Write image channels in BGR order instead of RGB.")
	flagNormalize = flag.Bool("normalize", false, "Rescale image pixel intensities to floats in [0,1].")
	flagDType     = flag.String("dtype", "Float32", "Element type of normalized image records: Float32 or Float16.")
	flagResize    = flag.String("resize", "", "Resize images to WxH (e.g. 480x360) before encoding. Empty disables.")

	flagSeed     = flag.Int64("seed", 1, "Seed of the training-split permutation. Reuse the same seed to reproduce a dataset.")
	flagCapacity = flag.Int64("capacity", convert.DefaultCapacity, "Pre-allocation ceiling per database, in bytes.")
	flagVerbose  = flag.Bool("verbose", false, "Show a progress bar per job pair.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()

	baseDir := fsutil.MustReplaceTildeInDir(*flagBase)
	cfg := convert.DefaultConfig()
	cfg.Pattern = *flagPattern
	cfg.Ext = *flagExt
	cfg.BGR = *flagBGR
	cfg.Normalize = *flagNormalize
	cfg.DType = must.M1(dtypes.DTypeString(*flagDType))
	cfg.ResizeWidth, cfg.ResizeHeight = parseResize(*flagResize)
	cfg.Seed = shuffle.Seed(*flagSeed)
	cfg.Capacity = *flagCapacity
	cfg.Verbose = *flagVerbose

	train := convert.PairedJobs{
		Images: parseJob(baseDir, "train_images", *flagTrainImages),
		Labels: parseJob(baseDir, "train_labels", *flagTrainLabels),
	}
	test := convert.PairedJobs{
		Images: parseJob(baseDir, "test_images", *flagTestImages),
		Labels: parseJob(baseDir, "test_labels", *flagTestLabels),
	}
	if train.Images.IsZero() && train.Labels.IsZero() && test.Images.IsZero() && test.Labels.IsZero() {
		exceptions.Panicf("no job pairs configured: set at least one of --train_images, --train_labels, --test_images, --test_labels")
	}

	if err := convert.ConvertAll(cfg, train, test); err != nil {
		klog.Exitf("Conversion failed:\n%+v", err)
	}
	fmt.Println("Done.")
}

// parseJob splits a "source_dir:target_db" flag value, anchoring relative
// paths at baseDir. An empty value means the pair is skipped.
func parseJob(baseDir, flagName, value string) convert.Job {
	if value == "" {
		return convert.Job{}
	}
	source, target, found := strings.Cut(value, ":")
	if !found || source == "" || target == "" {
		exceptions.Panicf("--%s must be formatted as source_dir:target_db, got %q", flagName, value)
	}
	if !path.IsAbs(source) {
		source = path.Join(baseDir, source)
	}
	if !path.IsAbs(target) {
		target = path.Join(baseDir, target)
	}
	return convert.Job{SourceDir: source, TargetPath: target}
}

func parseResize(value string) (width, height int) {
	if value == "" {
		return 0, 0
	}
	if _, err := fmt.Sscanf(value, "%dx%d", &width, &height); err != nil || width <= 0 || height <= 0 {
		exceptions.Panicf("--resize must be formatted as WxH with positive sizes, got %q", value)
	}
	return
}
