// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm applied to a frame payload. The
// values are written to disk; changing them breaks existing journals.
type Compression uint8

const (
	// CompressionNone stores the encoded record as-is.
	CompressionNone Compression = 0

	// CompressionLZ4 uses LZ4 block compression.
	CompressionLZ4 Compression = 1

	// CompressionZstd uses zstd at the default level. Records are
	// small and repetitive (bot names, state names), which zstd
	// handles better than LZ4.
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// ParseCompression parses a compression name. The empty string means
// [CompressionNone].
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown journal compression %q (expected none, lz4, or zstd)", name)
	}
}

// errIncompressible is returned when compressed output would not be
// smaller than its input. Callers store the frame uncompressed.
var errIncompressible = errors.New("data is incompressible")

// compress returns the payload to store and the tag describing it.
// Incompressible data falls back to CompressionNone.
func compress(data []byte, algorithm Compression) ([]byte, Compression, error) {
	var (
		compressed []byte
		err        error
	)
	switch algorithm {
	case CompressionNone:
		return data, CompressionNone, nil
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZstd:
		compressed, err = compressZstd(data)
	default:
		return nil, 0, fmt.Errorf("unsupported compression %v", algorithm)
	}
	if errors.Is(err, errIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compressed, algorithm, nil
}

// decompress reverses compress. rawSize must match the original length
// exactly.
func decompress(stored []byte, algorithm Compression, rawSize int) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		if len(stored) != rawSize {
			return nil, fmt.Errorf("uncompressed frame: size %d does not match expected %d", len(stored), rawSize)
		}
		return stored, nil
	case CompressionLZ4:
		destination := make([]byte, rawSize)
		read, err := lz4.UncompressBlock(stored, destination)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		if read != rawSize {
			return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, rawSize)
		}
		return destination, nil
	case CompressionZstd:
		result, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, rawSize))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if len(result) != rawSize {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), rawSize)
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unsupported compression %v", algorithm)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock returns 0 for data it cannot compress.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}
	return destination[:written], nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use and
// expensive to construct.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("journal: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("journal: zstd decoder initialization failed: " + err.Error())
	}
}
