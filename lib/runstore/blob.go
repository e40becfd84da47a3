// Copyright 2026 The Crucible Authors
// SPDX-License-Identifier: Apache-2.0

package runstore

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// blobVersion is the on-disk blob format version.
const blobVersion byte = 0x01

// CompressionTag identifies how a blob's payload is compressed. Tags
// are format constants; changing them breaks existing stores.
type CompressionTag uint8

const (
	// CompressionNone stores the payload as-is, for payloads the probe
	// finds incompressible.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is the fast fallback for mildly compressible
	// payloads.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is the default for kernel artifacts, which are
	// text-heavy CBOR and compress well.
	CompressionZstd CompressionTag = 2
)

func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// blobHeaderSize is version (1) + tag (1) + uncompressed size (8).
const blobHeaderSize = 1 + 1 + 8

// zstdEncoder and zstdDecoder are shared across calls; both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("runstore: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("runstore: zstd decoder initialization failed: " + err.Error())
	}
}

// selectCompression probes the payload with zstd: a ratio of 1.5x or
// better selects zstd, 1.1x selects lz4, anything lower stores raw.
func selectCompression(data []byte) CompressionTag {
	if len(data) == 0 {
		return CompressionNone
	}
	compressed := zstdEncoder.EncodeAll(data, nil)
	ratio := float64(len(data)) / float64(len(compressed))
	switch {
	case ratio >= 1.5:
		return CompressionZstd
	case ratio >= 1.1:
		return CompressionLZ4
	default:
		return CompressionNone
	}
}

// encodeBlob frames and compresses an encoded record:
//
//	[version: 1] [tag: 1] [uncompressed size: 8 big-endian] [payload]
func encodeBlob(encoded []byte) ([]byte, error) {
	tag := selectCompression(encoded)
	payload, err := compress(encoded, tag)
	if err != nil {
		return nil, err
	}

	blob := make([]byte, blobHeaderSize, blobHeaderSize+len(payload))
	blob[0] = blobVersion
	blob[1] = byte(tag)
	binary.BigEndian.PutUint64(blob[2:], uint64(len(encoded)))
	return append(blob, payload...), nil
}

// decodeBlob reverses encodeBlob, verifying the header and the
// decompressed length.
func decodeBlob(blob []byte) ([]byte, error) {
	if len(blob) < blobHeaderSize {
		return nil, fmt.Errorf("blob is %d bytes, minimum is %d", len(blob), blobHeaderSize)
	}
	if blob[0] != blobVersion {
		return nil, fmt.Errorf("blob format version %d not supported (want %d)", blob[0], blobVersion)
	}
	tag := CompressionTag(blob[1])
	size := binary.BigEndian.Uint64(blob[2:blobHeaderSize])
	return decompress(blob[blobHeaderSize:], tag, int(size))
}

func compress(data []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		bound := lz4.CompressBlockBound(len(data))
		destination := make([]byte, bound)
		written, err := lz4.CompressBlock(data, destination, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compress: %w", err)
		}
		if written == 0 || written >= len(data) {
			// The probe was optimistic; store raw rather than inflate.
			return data, nil
		}
		return destination[:written], nil
	case CompressionZstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", tag)
	}
}

func decompress(payload []byte, tag CompressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(payload) != uncompressedSize {
			return nil, fmt.Errorf("raw payload is %d bytes, header says %d", len(payload), uncompressedSize)
		}
		return payload, nil
	case CompressionLZ4:
		// An lz4-tagged payload that matches the uncompressed size was
		// stored raw by the incompressible fallback.
		if len(payload) == uncompressedSize {
			return payload, nil
		}
		destination := make([]byte, uncompressedSize)
		read, err := lz4.UncompressBlock(payload, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != uncompressedSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(payload, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != uncompressedSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression tag %d", tag)
	}
}
