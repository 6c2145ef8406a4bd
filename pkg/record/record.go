// Copyright 2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package record encodes on-disk images into the binary record format stored
// in the training databases.
//
// A record is a channel-major (channels, height, width) array of pixel
// values. Photographs encode to 3 channels (RGB, or BGR when configured);
// dense label maps encode to a single channel of class indices.
//
// The serialized layout is consumed by the downstream training reader, so it
// is fixed: a 16-byte little-endian header with the three dimension sizes
// (uint32 each) and the element dtype tag (int32, the gopjrt dtypes enum),
// followed by the raw element bytes in channel-major order.
package record

import (
	"encoding/binary"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
)

// headerSize is 3 dimension sizes plus the dtype tag, 4 bytes each.
const headerSize = 16

// SupportedDTypes are the element types a record may carry: Uint8 for raw
// 8-bit samples and label maps, Float32/Float16 for normalized images.
var SupportedDTypes = []dtypes.DType{dtypes.Uint8, dtypes.Float32, dtypes.Float16}

// Record is the encoded form of one sample, before or after serialization.
// Data holds NumElements elements in channel-major order, each DType.Memory()
// bytes, little-endian.
type Record struct {
	Channels, Height, Width int
	DType                   dtypes.DType
	Data                    []byte
}

// NumElements is Channels*Height*Width.
func (r *Record) NumElements() int {
	return r.Channels * r.Height * r.Width
}

// Serialize returns the wire form of the record: header followed by Data.
func (r *Record) Serialize() []byte {
	buf := make([]byte, headerSize+len(r.Data))
	binary.LittleEndian.PutUint32(buf[0:], uint32(r.Channels))
	binary.LittleEndian.PutUint32(buf[4:], uint32(r.Height))
	binary.LittleEndian.PutUint32(buf[8:], uint32(r.Width))
	binary.LittleEndian.PutUint32(buf[12:], uint32(int32(r.DType)))
	copy(buf[headerSize:], r.Data)
	return buf
}

// Deserialize parses the wire form produced by Serialize. It is the entry
// point for readers verifying a written database, and it validates that the
// payload length matches the declared dimensions and dtype.
func Deserialize(data []byte) (*Record, error) {
	if len(data) < headerSize {
		return nil, errors.Errorf("record too short: %d bytes, need at least the %d-byte header",
			len(data), headerSize)
	}
	r := &Record{
		Channels: int(binary.LittleEndian.Uint32(data[0:])),
		Height:   int(binary.LittleEndian.Uint32(data[4:])),
		Width:    int(binary.LittleEndian.Uint32(data[8:])),
		DType:    dtypes.DType(int32(binary.LittleEndian.Uint32(data[12:]))),
		Data:     data[headerSize:],
	}
	if !dtypeSupported(r.DType) {
		return nil, errors.Errorf("record carries unsupported dtype tag %d", int32(r.DType))
	}
	want := r.NumElements() * int(r.DType.Memory())
	if len(r.Data) != want {
		return nil, errors.Errorf(
			"record payload has %d bytes, but dimensions (%d, %d, %d) of %s require %d",
			len(r.Data), r.Channels, r.Height, r.Width, r.DType, want)
	}
	return r, nil
}

func dtypeSupported(dtype dtypes.DType) bool {
	for _, supported := range SupportedDTypes {
		if dtype == supported {
			return true
		}
	}
	return false
}
