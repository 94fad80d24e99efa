// Package compressor wraps the block codecs used by the progress store.
// Every codec is stateless from the caller's point of view and safe for concurrent use.
package compressor

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
)

// Type identifies a codec. The numeric value is persisted in file headers, never renumber.
type Type uint8

const (
	None   Type = 0
	Snappy Type = 1
	LZ4    Type = 2
	Zstd   Type = 3
)

// Compressor compresses and decompresses whole blocks.
type Compressor interface {
	Compress(data []byte) ([]byte, error)
	Decompress(data []byte) ([]byte, error)
	Type() Type
}

// New returns the codec for t. Unknown types fall back to Snappy.
func New(t Type) Compressor {
	switch t {
	case None:
		return noneCompressor{}
	case LZ4:
		return lz4Compressor{}
	case Zstd:
		return &zstdCompressor{}
	default:
		return snappyCompressor{}
	}
}

// ParseType maps a configuration string to a codec type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "snappy":
		return Snappy, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return Zstd, nil
	case "none":
		return None, nil
	default:
		return Snappy, fmt.Errorf("unknown compression type %q", s)
	}
}

func (t Type) String() string {
	switch t {
	case None:
		return "none"
	case Snappy:
		return "snappy"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(t))
	}
}

type noneCompressor struct{}

func (noneCompressor) Compress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (noneCompressor) Decompress(data []byte) ([]byte, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (noneCompressor) Type() Type { return None }

type snappyCompressor struct{}

func (snappyCompressor) Compress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func (snappyCompressor) Decompress(data []byte) ([]byte, error) {
	out, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("snappy decode: %w", err)
	}
	return out, nil
}

func (snappyCompressor) Type() Type { return Snappy }

type lz4Compressor struct{}

func (lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("lz4 write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("lz4 close: %w", err)
	}
	return buf.Bytes(), nil
}

func (lz4Compressor) Decompress(data []byte) ([]byte, error) {
	out, err := io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("lz4 read: %w", err)
	}
	return out, nil
}

func (lz4Compressor) Type() Type { return LZ4 }

// zstdCompressor lazily builds one encoder and one decoder and reuses them;
// EncodeAll and DecodeAll are safe for concurrent use.
type zstdCompressor struct {
	once    sync.Once
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	initErr error
}

func (z *zstdCompressor) init() {
	z.once.Do(func() {
		z.encoder, z.initErr = zstd.NewWriter(nil)
		if z.initErr != nil {
			return
		}
		z.decoder, z.initErr = zstd.NewReader(nil)
	})
}

func (z *zstdCompressor) Compress(data []byte) ([]byte, error) {
	z.init()
	if z.initErr != nil {
		return nil, fmt.Errorf("zstd init: %w", z.initErr)
	}
	return z.encoder.EncodeAll(data, nil), nil
}

func (z *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	z.init()
	if z.initErr != nil {
		return nil, fmt.Errorf("zstd init: %w", z.initErr)
	}
	out, err := z.decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decode: %w", err)
	}
	return out, nil
}

func (z *zstdCompressor) Type() Type { return Zstd }
