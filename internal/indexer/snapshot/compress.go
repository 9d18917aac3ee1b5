package snapshot

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Compression selects how a snapshot blob is stored on disk.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// zstdMagic prefixes every zstd frame. Readers use it to detect compressed
// snapshots, so the setting only matters when writing.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// ParseCompression maps a configuration value to a Compression.
func ParseCompression(name string) (Compression, error) {
	switch name {
	case "", string(CompressionNone):
		return CompressionNone, nil
	case string(CompressionZstd):
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown snapshot compression %q", name)
	}
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use and costly to
// build, so one of each is shared.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("snapshot: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("snapshot: zstd decoder initialization failed: " + err.Error())
	}
}

func compress(c Compression, data []byte) []byte {
	if c == CompressionZstd {
		return zstdEncoder.EncodeAll(data, make([]byte, 0, len(data)/4))
	}
	return data
}

func decompress(data []byte) ([]byte, Compression, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, CompressionNone, nil
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, CompressionZstd, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, CompressionZstd, nil
}
