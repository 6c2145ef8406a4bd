// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package record

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path"
	"testing"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"
)

// writeTestPNG writes a width x height RGB image with a deterministic pixel
// pattern: R=10x, G=10y, B=x+y.
func writeTestPNG(t *testing.T, filePath string, width, height int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(10 * x), G: uint8(10 * y), B: uint8(x + y), A: 255})
		}
	}
	f, err := os.Create(filePath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())
}

func TestEncodeShapeAndLayout(t *testing.T) {
	imgPath := path.Join(t.TempDir(), "img.png")
	writeTestPNG(t, imgPath, 2, 2)

	rec, err := NewImageEncoder().Encode(imgPath)
	require.NoError(t, err)
	require.Equal(t, 3, rec.Channels)
	require.Equal(t, 2, rec.Height)
	require.Equal(t, 2, rec.Width)
	require.Equal(t, dtypes.Uint8, rec.DType)
	require.Len(t, rec.Data, 3*2*2)

	// Channel-major layout: R plane, then G, then B; row-major within a plane.
	plane := 2 * 2
	at := func(c, y, x int) uint8 { return rec.Data[c*plane+y*2+x] }
	require.Equal(t, uint8(10), at(0, 0, 1), "R of pixel (x=1, y=0)")
	require.Equal(t, uint8(0), at(1, 0, 1), "G of pixel (x=1, y=0)")
	require.Equal(t, uint8(1), at(2, 0, 1), "B of pixel (x=1, y=0)")
	require.Equal(t, uint8(10), at(1, 1, 0), "G of pixel (x=0, y=1)")
	require.Equal(t, uint8(2), at(2, 1, 1), "B of pixel (x=1, y=1)")
}

func TestEncodeBGR(t *testing.T) {
	imgPath := path.Join(t.TempDir(), "img.png")
	writeTestPNG(t, imgPath, 2, 2)

	rec, err := NewImageEncoder().BGR(true).Encode(imgPath)
	require.NoError(t, err)
	plane := 2 * 2
	require.Equal(t, uint8(1), rec.Data[0*plane+1], "B comes first for pixel (x=1, y=0)")
	require.Equal(t, uint8(0), rec.Data[1*plane+1], "G stays in the middle")
	require.Equal(t, uint8(10), rec.Data[2*plane+1], "R comes last")
}

func TestEncodeNormalized(t *testing.T) {
	imgPath := path.Join(t.TempDir(), "img.png")
	writeTestPNG(t, imgPath, 2, 2)

	rec, err := NewImageEncoder().Normalize(true).Encode(imgPath)
	require.NoError(t, err)
	require.Equal(t, dtypes.Float32, rec.DType)
	require.Len(t, rec.Data, 3*2*2*4)

	// R of pixel (x=1, y=0) is the 8-bit value 10, i.e. 10*257 in the 16-bit
	// range color.Color.RGBA reports.
	got := math.Float32frombits(binary.LittleEndian.Uint32(rec.Data[1*4:]))
	require.Equal(t, float32(10*257)/float32(0xFFFF), got)
	require.InDelta(t, 10.0/255.0, float64(got), 1e-6)

	rec, err = NewImageEncoder().Normalize(true).DType(dtypes.Float16).Encode(imgPath)
	require.NoError(t, err)
	require.Equal(t, dtypes.Float16, rec.DType)
	require.Len(t, rec.Data, 3*2*2*2)
	got16 := float16.Frombits(binary.LittleEndian.Uint16(rec.Data[1*2:])).Float32()
	require.InDelta(t, 10.0/255.0, float64(got16), 1e-3)
}

func TestEncodeResize(t *testing.T) {
	imgPath := path.Join(t.TempDir(), "img.png")
	writeTestPNG(t, imgPath, 8, 4)

	rec, err := NewImageEncoder().Resize(4, 2).Encode(imgPath)
	require.NoError(t, err)
	require.Equal(t, 2, rec.Height)
	require.Equal(t, 4, rec.Width)
	require.Len(t, rec.Data, 3*2*4)
}

func TestEncodeDecodeError(t *testing.T) {
	dir := t.TempDir()
	badPath := path.Join(dir, "broken.png")
	require.NoError(t, os.WriteFile(badPath, []byte("this is not a PNG"), 0644))
	_, err := NewImageEncoder().Encode(badPath)
	require.ErrorContains(t, err, "failed to decode")

	_, err = NewImageEncoder().Encode(path.Join(dir, "absent.png"))
	require.ErrorContains(t, err, "failed to open")
}

func TestDTypePanicsOnUnsupported(t *testing.T) {
	require.Panics(t, func() { NewImageEncoder().DType(dtypes.Int64) })
}

func TestEncodeLabelGray(t *testing.T) {
	dir := t.TempDir()
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(y*3 + x)})
		}
	}
	labelPath := path.Join(dir, "label.png")
	f, err := os.Create(labelPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	rec, err := EncodeLabel(labelPath)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Channels)
	require.Equal(t, 2, rec.Height)
	require.Equal(t, 3, rec.Width)
	require.Equal(t, dtypes.Uint8, rec.DType)
	require.Equal(t, []byte{0, 1, 2, 3, 4, 5}, rec.Data)
}

func TestEncodeLabelPaletted(t *testing.T) {
	dir := t.TempDir()
	palette := color.Palette{
		color.NRGBA{R: 128, G: 64, B: 128, A: 255}, // e.g. road
		color.NRGBA{R: 244, G: 35, B: 232, A: 255}, // e.g. sidewalk
		color.NRGBA{R: 70, G: 70, B: 70, A: 255},   // e.g. building
	}
	img := image.NewPaletted(image.Rect(0, 0, 2, 2), palette)
	img.SetColorIndex(0, 0, 2)
	img.SetColorIndex(1, 0, 0)
	img.SetColorIndex(0, 1, 1)
	img.SetColorIndex(1, 1, 2)
	labelPath := path.Join(dir, "label.png")
	f, err := os.Create(labelPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	rec, err := EncodeLabel(labelPath)
	require.NoError(t, err)
	require.Equal(t, 1, rec.Channels)
	require.Equal(t, []byte{2, 0, 1, 2}, rec.Data, "palette indices are the class IDs")
}

func TestLabelDataSubImage(t *testing.T) {
	// A grayscale sub-image has a non-zero Rect.Min; pixel extraction must
	// honor the offset instead of reading from the parent's origin.
	parent := image.NewGray(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			parent.SetGray(x, y, color.Gray{Y: uint8(y*4 + x)})
		}
	}
	sub := parent.SubImage(image.Rect(1, 2, 3, 4)).(*image.Gray)
	require.Equal(t, []byte{9, 10, 13, 14}, labelData(sub))
}

func TestSerializeRoundTrip(t *testing.T) {
	imgPath := path.Join(t.TempDir(), "img.png")
	writeTestPNG(t, imgPath, 3, 2)

	for _, build := range []func() (*Record, error){
		func() (*Record, error) { return NewImageEncoder().Encode(imgPath) },
		func() (*Record, error) { return NewImageEncoder().Normalize(true).Encode(imgPath) },
		func() (*Record, error) { return EncodeLabel(imgPath) },
	} {
		rec, err := build()
		require.NoError(t, err)
		parsed, err := Deserialize(rec.Serialize())
		require.NoError(t, err)
		require.Equal(t, rec.Channels, parsed.Channels)
		require.Equal(t, rec.Height, parsed.Height)
		require.Equal(t, rec.Width, parsed.Width)
		require.Equal(t, rec.DType, parsed.DType)
		require.Equal(t, rec.Data, parsed.Data)
	}
}

func TestDeserializeErrors(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3})
	require.ErrorContains(t, err, "too short")

	rec := &Record{Channels: 3, Height: 2, Width: 2, DType: dtypes.Uint8, Data: make([]byte, 12)}
	wire := rec.Serialize()

	truncated := wire[:len(wire)-1]
	_, err = Deserialize(truncated)
	require.ErrorContains(t, err, "require")

	badDType := append([]byte(nil), wire...)
	binary.LittleEndian.PutUint32(badDType[12:], uint32(int32(dtypes.Complex64)))
	_, err = Deserialize(badDType)
	require.ErrorContains(t, err, "unsupported dtype")
}
