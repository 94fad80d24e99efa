package blockfile

import (
	"bytes"
	"sync"

	"github.com/pandatales/pandatales/app/core/compressor"
)

// WriteBuffer collects entries before they are flushed as one compressed block.
type WriteBuffer struct {
	mu          sync.Mutex
	entries     []Entry
	currentSize int
	maxSize     int
	codec       compressor.Compressor
}

// NewWriteBuffer creates a buffer that flushes at maxSize bytes using codec
func NewWriteBuffer(maxSize int, codec compressor.Compressor) *WriteBuffer {
	if maxSize <= 0 {
		maxSize = DefaultMaxBlockSize
	}
	return &WriteBuffer{
		entries: make([]Entry, 0, 16),
		maxSize: maxSize,
		codec:   codec,
	}
}

// Add appends an entry and reports whether the buffer should be flushed
func (wb *WriteBuffer) Add(entry Entry) bool {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	wb.entries = append(wb.entries, entry)
	wb.currentSize += entry.Size()

	return wb.currentSize >= wb.maxSize || len(wb.entries) == 0xFFFF
}

// Flush compresses every buffered entry into a block and clears the buffer.
// Returns nil header when there was nothing to flush.
func (wb *WriteBuffer) Flush() (*BlockHeader, []byte, error) {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	if len(wb.entries) == 0 {
		return nil, nil, nil
	}

	header, compressed, err := compressEntries(wb.entries, wb.codec)
	if err != nil {
		return nil, nil, err
	}

	wb.entries = wb.entries[:0]
	wb.currentSize = 0

	return header, compressed, nil
}

// Block is a decompressed block with its entries
type Block struct {
	Header  BlockHeader
	Entries []Entry
	Offset  int64 // position of the block header in the file
}

// ParseBlock verifies, decompresses and parses a block payload
func ParseBlock(header *BlockHeader, compressedData []byte, codec compressor.Compressor) (*Block, error) {
	if !ValidateChecksum(compressedData, header.Checksum) {
		return nil, ErrCorruptedBlock
	}

	uncompressed, err := codec.Decompress(compressedData)
	if err != nil {
		return nil, err
	}

	if uint32(len(uncompressed)) != header.UncompressedSize {
		return nil, ErrCorruptedBlock
	}

	entries := make([]Entry, 0, header.EntryCount)
	offset := 0

	for i := uint16(0); i < header.EntryCount; i++ {
		entry := Entry{}
		consumed, err := entry.Deserialize(uncompressed[offset:])
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
		offset += consumed
	}

	return &Block{
		Header:  *header,
		Entries: entries,
	}, nil
}

// compressEntries serializes and compresses entries into a block payload
func compressEntries(entries []Entry, codec compressor.Compressor) (*BlockHeader, []byte, error) {
	var buf bytes.Buffer
	for _, entry := range entries {
		buf.Write(entry.Serialize())
	}
	uncompressed := buf.Bytes()

	compressed, err := codec.Compress(uncompressed)
	if err != nil {
		return nil, nil, err
	}

	header := &BlockHeader{
		CompressedSize:   uint32(len(compressed)),
		UncompressedSize: uint32(len(uncompressed)),
		EntryCount:       uint16(len(entries)),
		Checksum:         CalculateChecksum(compressed),
	}

	return header, compressed, nil
}
