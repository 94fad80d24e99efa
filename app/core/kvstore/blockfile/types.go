// Package blockfile implements the append-only block format behind the progress store.
//
// File format:
//   - one .ptkv file per store
//   - append-only writes, every write becomes an entry in a compressed block
//   - blocks are capped at 16KB uncompressed
//   - the codec is chosen when the file is created and recorded in the header
//   - every block payload is protected by an xxhash64 checksum
//   - compaction rewrites live entries into a fresh file and swaps it in atomically
package blockfile

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/pandatales/pandatales/app/core/compressor"
)

// File format constants
const (
	// MagicBytes identifies a progress store file
	MagicBytes = "PTKV"

	// CurrentVersion is the current file format version
	CurrentVersion uint16 = 1

	// DefaultMaxBlockSize is the maximum uncompressed block size
	DefaultMaxBlockSize = 16 * 1024

	// FileHeaderSize is the fixed size of the file header
	FileHeaderSize = 64

	// BlockHeaderSize is the fixed size of each block header
	BlockHeaderSize = 20

	// FileExtension is appended to store names on disk
	FileExtension = ".ptkv"
)

// Operation types for entries
const (
	OpSet    uint8 = 1
	OpDelete uint8 = 2
)

// Errors
var (
	ErrInvalidMagic   = errors.New("invalid magic bytes: not a progress store file")
	ErrUnsupportedVer = errors.New("unsupported file version")
	ErrCorruptedBlock = errors.New("block checksum mismatch")
	ErrCorruptedEntry = errors.New("entry data corrupted")
	ErrEmptyKey       = errors.New("entry key cannot be empty")
	ErrKeyTooLong     = errors.New("entry key exceeds 65535 bytes")
	ErrFileClosed     = errors.New("file is closed")
)

// FileHeader sits at the beginning of every store file.
// Total size: 64 bytes (fixed)
type FileHeader struct {
	Magic      [4]byte // "PTKV"
	Version    uint16
	Codec      compressor.Type // codec used for every block in the file
	Flags      uint8
	CreatedAt  int64 // unix nano
	ModifiedAt int64 // unix nano
	BlockSize  uint32
	EntryCount uint64 // entries written, including superseded ones
	BlockCount uint64
	Reserved   [20]byte
}

// Serialize converts the header to bytes
func (h *FileHeader) Serialize() []byte {
	buf := make([]byte, FileHeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(buf[4:6], h.Version)
	buf[6] = byte(h.Codec)
	buf[7] = h.Flags
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.CreatedAt))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.ModifiedAt))
	binary.LittleEndian.PutUint32(buf[24:28], h.BlockSize)
	binary.LittleEndian.PutUint64(buf[28:36], h.EntryCount)
	binary.LittleEndian.PutUint64(buf[36:44], h.BlockCount)
	copy(buf[44:64], h.Reserved[:])
	return buf
}

// Deserialize parses bytes into the header
func (h *FileHeader) Deserialize(buf []byte) error {
	if len(buf) < FileHeaderSize {
		return errors.New("buffer too small for file header")
	}

	copy(h.Magic[:], buf[0:4])
	if string(h.Magic[:]) != MagicBytes {
		return ErrInvalidMagic
	}

	h.Version = binary.LittleEndian.Uint16(buf[4:6])
	if h.Version != CurrentVersion {
		return ErrUnsupportedVer
	}

	h.Codec = compressor.Type(buf[6])
	h.Flags = buf[7]
	h.CreatedAt = int64(binary.LittleEndian.Uint64(buf[8:16]))
	h.ModifiedAt = int64(binary.LittleEndian.Uint64(buf[16:24]))
	h.BlockSize = binary.LittleEndian.Uint32(buf[24:28])
	h.EntryCount = binary.LittleEndian.Uint64(buf[28:36])
	h.BlockCount = binary.LittleEndian.Uint64(buf[36:44])
	copy(h.Reserved[:], buf[44:64])

	return nil
}

// NewFileHeader creates a header for a fresh file using the given codec
func NewFileHeader(codec compressor.Type, blockSize int) *FileHeader {
	now := time.Now().UnixNano()
	return &FileHeader{
		Magic:      [4]byte{'P', 'T', 'K', 'V'},
		Version:    CurrentVersion,
		Codec:      codec,
		CreatedAt:  now,
		ModifiedAt: now,
		BlockSize:  uint32(blockSize),
	}
}

// BlockHeader precedes every compressed block.
// Total size: 20 bytes (fixed)
type BlockHeader struct {
	CompressedSize   uint32
	UncompressedSize uint32
	EntryCount       uint16
	Checksum         uint64 // xxhash64 of the compressed payload
	Flags            uint16
}

// Serialize converts the block header to bytes
func (b *BlockHeader) Serialize() []byte {
	buf := make([]byte, BlockHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], b.CompressedSize)
	binary.LittleEndian.PutUint32(buf[4:8], b.UncompressedSize)
	binary.LittleEndian.PutUint16(buf[8:10], b.EntryCount)
	binary.LittleEndian.PutUint64(buf[10:18], b.Checksum)
	binary.LittleEndian.PutUint16(buf[18:20], b.Flags)
	return buf
}

// Deserialize parses bytes into the block header
func (b *BlockHeader) Deserialize(buf []byte) error {
	if len(buf) < BlockHeaderSize {
		return errors.New("buffer too small for block header")
	}

	b.CompressedSize = binary.LittleEndian.Uint32(buf[0:4])
	b.UncompressedSize = binary.LittleEndian.Uint32(buf[4:8])
	b.EntryCount = binary.LittleEndian.Uint16(buf[8:10])
	b.Checksum = binary.LittleEndian.Uint64(buf[10:18])
	b.Flags = binary.LittleEndian.Uint16(buf[18:20])

	return nil
}

// Entry is a single key-value mutation inside a block.
// Variable size: 1 + 2 + keyLen + 4 + valueLen bytes
type Entry struct {
	Operation uint8 // OpSet or OpDelete
	Key       string
	Value     []byte // empty for delete
}

// Serialize converts the entry to bytes
func (e *Entry) Serialize() []byte {
	keyLen := len(e.Key)
	valueLen := len(e.Value)

	buf := make([]byte, e.Size())
	offset := 0

	buf[offset] = e.Operation
	offset++

	binary.LittleEndian.PutUint16(buf[offset:offset+2], uint16(keyLen))
	offset += 2

	copy(buf[offset:offset+keyLen], e.Key)
	offset += keyLen

	binary.LittleEndian.PutUint32(buf[offset:offset+4], uint32(valueLen))
	offset += 4

	if valueLen > 0 {
		copy(buf[offset:], e.Value)
	}

	return buf
}

// Deserialize parses bytes into the entry and returns the number of bytes consumed
func (e *Entry) Deserialize(buf []byte) (int, error) {
	if len(buf) < 7 { // op(1) + keyLen(2) + valueLen(4)
		return 0, ErrCorruptedEntry
	}

	offset := 0

	e.Operation = buf[offset]
	offset++
	if e.Operation != OpSet && e.Operation != OpDelete {
		return 0, ErrCorruptedEntry
	}

	keyLen := int(binary.LittleEndian.Uint16(buf[offset : offset+2]))
	offset += 2

	if len(buf) < offset+keyLen+4 {
		return 0, ErrCorruptedEntry
	}

	e.Key = string(buf[offset : offset+keyLen])
	offset += keyLen

	if e.Key == "" {
		return 0, ErrEmptyKey
	}

	valueLen := int(binary.LittleEndian.Uint32(buf[offset : offset+4]))
	offset += 4

	if len(buf) < offset+valueLen {
		return 0, ErrCorruptedEntry
	}

	if valueLen > 0 {
		e.Value = make([]byte, valueLen)
		copy(e.Value, buf[offset:offset+valueLen])
	} else {
		e.Value = nil
	}
	offset += valueLen

	return offset, nil
}

// Validate checks that the entry can be encoded
func (e *Entry) Validate() error {
	if e.Key == "" {
		return ErrEmptyKey
	}
	if len(e.Key) > 0xFFFF {
		return ErrKeyTooLong
	}
	return nil
}

// Size returns the serialized size of the entry
func (e *Entry) Size() int {
	return 1 + 2 + len(e.Key) + 4 + len(e.Value)
}

// CalculateChecksum computes the block checksum
func CalculateChecksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// ValidateChecksum verifies that the checksum matches
func ValidateChecksum(data []byte, expected uint64) bool {
	return CalculateChecksum(data) == expected
}
