// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/binary"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"

	"github.com/disintegration/imaging"
	"github.com/gomlx/exceptions"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/x448/float16"
)

// ImageEncoder encodes photographs into 3-channel records.
//
// It is configured with chained method calls, e.g.:
//
//	enc := record.NewImageEncoder().BGR(true).Normalize(true).DType(dtypes.Float16)
//	rec, err := enc.Encode("images/0001.png")
type ImageEncoder struct {
	bgr, normalize            bool
	dtype                     dtypes.DType
	resizeWidth, resizeHeight int
}

// NewImageEncoder returns an encoder with the defaults: raw Uint8 records
// (Float32 once Normalize is enabled), RGB channel order, no resizing.
func NewImageEncoder() *ImageEncoder {
	return &ImageEncoder{dtype: dtypes.Float32}
}

// BGR configures whether the channel axis is reversed, so records come out in
// BGR order instead of RGB.
//
// It returns the ImageEncoder object, so configuration calls can be cascaded.
func (e *ImageEncoder) BGR(enabled bool) *ImageEncoder {
	e.bgr = enabled
	return e
}

// Normalize configures whether pixel intensities are rescaled from the 8-bit
// source range to floats in [0.0, 1.0]. Without it records carry the raw
// Uint8 values.
//
// It returns the ImageEncoder object, so configuration calls can be cascaded.
func (e *ImageEncoder) Normalize(enabled bool) *ImageEncoder {
	e.normalize = enabled
	return e
}

// DType sets the element type of normalized records: Float32 (default) or
// Float16. It has no effect when Normalize is off. It panics on any other
// dtype.
//
// It returns the ImageEncoder object, so configuration calls can be cascaded.
func (e *ImageEncoder) DType(dtype dtypes.DType) *ImageEncoder {
	if dtype != dtypes.Float32 && dtype != dtypes.Float16 {
		exceptions.Panicf("record.ImageEncoder.DType(%s): only Float32 and Float16 are supported for normalized records", dtype)
	}
	e.dtype = dtype
	return e
}

// Resize configures rescaling of every image to width x height (Lanczos)
// before encoding. Zero values disable resizing, the default.
//
// It returns the ImageEncoder object, so configuration calls can be cascaded.
func (e *ImageEncoder) Resize(width, height int) *ImageEncoder {
	e.resizeWidth, e.resizeHeight = width, height
	return e
}

// Encode reads the image at imagePath and converts it to a (3, height, width)
// record, applying the configured resize, normalization and channel-order
// transforms. A file that cannot be read or decoded is a fatal error for the
// whole job pair, returned wrapped.
func (e *ImageEncoder) Encode(imagePath string) (*Record, error) {
	img, err := decodeFile(imagePath)
	if err != nil {
		return nil, err
	}
	if e.resizeWidth > 0 && e.resizeHeight > 0 {
		img = imaging.Resize(img, e.resizeWidth, e.resizeHeight, imaging.Lanczos)
	}
	size := img.Bounds().Size()
	width, height := size.X, size.Y

	const channels = 3
	dtype := dtypes.Uint8
	if e.normalize {
		dtype = e.dtype
	}
	rec := &Record{
		Channels: channels,
		Height:   height,
		Width:    width,
		DType:    dtype,
	}
	rec.Data = make([]byte, rec.NumElements()*int(dtype.Memory()))

	plane := height * width
	bounds := img.Bounds()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// color.Color.RGBA returns 16-bit values packaged in uint32.
			for c, value := range [channels]uint32{r, g, b} {
				if e.bgr {
					c = channels - 1 - c
				}
				idx := c*plane + y*width + x
				switch dtype {
				case dtypes.Uint8:
					rec.Data[idx] = uint8(value >> 8)
				case dtypes.Float32:
					binary.LittleEndian.PutUint32(rec.Data[idx*4:],
						math.Float32bits(float32(value)/float32(0xFFFF)))
				case dtypes.Float16:
					binary.LittleEndian.PutUint16(rec.Data[idx*2:],
						float16.Fromfloat32(float32(value)/float32(0xFFFF)).Bits())
				}
			}
		}
	}
	return rec, nil
}

// EncodeLabel reads the dense label map at imagePath and converts it to a
// (1, height, width) record of Uint8 class indices. Labels are discrete class
// IDs, not color intensities, so there is no normalization and no channel
// reordering.
//
// Paletted images carry the class index in the palette index; anything else
// is read as an 8-bit grayscale intensity.
func EncodeLabel(imagePath string) (*Record, error) {
	img, err := decodeFile(imagePath)
	if err != nil {
		return nil, err
	}
	size := img.Bounds().Size()
	width, height := size.X, size.Y
	return &Record{
		Channels: 1,
		Height:   height,
		Width:    width,
		DType:    dtypes.Uint8,
		Data:     labelData(img),
	}, nil
}

// labelData extracts the class index of each pixel, row-major.
func labelData(img image.Image) []byte {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	data := make([]byte, height*width)
	switch typed := img.(type) {
	case *image.Paletted:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[y*width+x] = typed.ColorIndexAt(bounds.Min.X+x, bounds.Min.Y+y)
			}
		}
	case *image.Gray:
		for y := 0; y < height; y++ {
			rowStart := typed.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(data[y*width:(y+1)*width], typed.Pix[rowStart:rowStart+width])
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, _, _, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				data[y*width+x] = uint8(r >> 8)
			}
		}
	}
	return data
}

func decodeFile(imagePath string) (image.Image, error) {
	f, err := os.Open(imagePath)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open image %q", imagePath)
	}
	defer func() { _ = f.Close() }()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %q", imagePath)
	}
	return img, nil
}
