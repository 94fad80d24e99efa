package blockfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pandatales/pandatales/app/core/compressor"
)

// FileReader reads a store file block by block.
type FileReader struct {
	file      *os.File
	filePath  string
	header    *FileHeader
	codec     compressor.Compressor
	size      int64
	validEnd  int64
	truncated bool
}

// NewFileReader opens a store file for reading
func NewFileReader(filePath string) (*FileReader, error) {
	if filePath == "" {
		return nil, errors.New("file path cannot be empty")
	}
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	headerBuf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(file, headerBuf); err != nil {
		file.Close()
		return nil, fmt.Errorf("read file header: %w", err)
	}
	header := &FileHeader{}
	if err := header.Deserialize(headerBuf); err != nil {
		file.Close()
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &FileReader{
		file:     file,
		filePath: filePath,
		header:   header,
		codec:    compressor.New(header.Codec),
		size:     info.Size(),
		validEnd: FileHeaderSize,
	}, nil
}

// GetHeader returns the file header
func (fr *FileReader) GetHeader() *FileHeader {
	return fr.header
}

// Truncated reports whether the last read stopped at a torn or unreadable
// trailing block. ValidSize is the offset right after the last good block.
func (fr *FileReader) Truncated() bool {
	return fr.truncated
}

// ValidSize returns the byte length of the intact prefix seen by the last full read
func (fr *FileReader) ValidSize() int64 {
	return fr.validEnd
}

// ReadAllEntries calls callback for every entry in file order.
// Returning false from the callback stops the scan.
func (fr *FileReader) ReadAllEntries(callback func(entry Entry) bool) (int, error) {
	if _, err := fr.file.Seek(FileHeaderSize, io.SeekStart); err != nil {
		return 0, err
	}
	fr.validEnd = FileHeaderSize
	fr.truncated = false

	totalEntries := 0
	for {
		block, err := fr.readNextBlock()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return totalEntries, err
		}
		for _, entry := range block.Entries {
			totalEntries++
			if !callback(entry) {
				return totalEntries, nil
			}
		}
	}
	return totalEntries, nil
}

// readNextBlock reads the block at the current position. A tail that cannot be
// a complete block is reported as io.EOF and flags the reader as truncated:
//   - a short block header or payload
//   - an all-zero block header
//   - a payload size running past the end of the file
//   - a last block failing its checksum or decoding
//
// A bad block followed by more data is corruption and returned as an error.
func (fr *FileReader) readNextBlock() (*Block, error) {
	offset, err := fr.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, err
	}

	headerBuf := make([]byte, BlockHeaderSize)
	if _, err := io.ReadFull(fr.file, headerBuf); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fr.tornTail()
		}
		return nil, err
	}
	if isZeroed(headerBuf) {
		return nil, fr.tornTail()
	}

	blockHeader := &BlockHeader{}
	if err := blockHeader.Deserialize(headerBuf); err != nil {
		return nil, err
	}

	end := offset + BlockHeaderSize + int64(blockHeader.CompressedSize)
	if end > fr.size {
		return nil, fr.tornTail()
	}

	compressedData := make([]byte, blockHeader.CompressedSize)
	if _, err := io.ReadFull(fr.file, compressedData); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fr.tornTail()
		}
		return nil, err
	}

	block, err := ParseBlock(blockHeader, compressedData, fr.codec)
	if err != nil {
		if end == fr.size {
			return nil, fr.tornTail()
		}
		return nil, fmt.Errorf("block at offset %d: %w", offset, err)
	}
	block.Offset = offset
	fr.validEnd = end
	return block, nil
}

// tornTail marks the rest of the file from validEnd on as unusable
func (fr *FileReader) tornTail() error {
	fr.truncated = true
	return io.EOF
}

func isZeroed(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}

// Close closes the file
func (fr *FileReader) Close() error {
	if fr.file != nil {
		return fr.file.Close()
	}
	return nil
}

// LoadIndex replays the file into a key -> latest value map.
// Delete entries remove keys from the index.
func (fr *FileReader) LoadIndex() (map[string][]byte, int, error) {
	index := make(map[string][]byte)
	totalEntries, err := fr.ReadAllEntries(func(entry Entry) bool {
		switch entry.Operation {
		case OpDelete:
			delete(index, entry.Key)
		case OpSet:
			index[entry.Key] = entry.Value
		}
		return true
	})
	if err != nil {
		return nil, totalEntries, err
	}
	return index, totalEntries, nil
}

// CalculateFragmentation returns the share of superseded entries in the file.
// Fragmentation = (total entries - live entries) / total entries
func (fr *FileReader) CalculateFragmentation() (float64, int, int, error) {
	liveKeys := make(map[string]struct{})
	totalEntries := 0
	_, err := fr.ReadAllEntries(func(entry Entry) bool {
		totalEntries++
		switch entry.Operation {
		case OpDelete:
			delete(liveKeys, entry.Key)
		case OpSet:
			liveKeys[entry.Key] = struct{}{}
		}
		return true
	})
	if err != nil {
		return 0, 0, 0, err
	}
	if totalEntries == 0 {
		return 0, 0, 0, nil
	}
	liveCount := len(liveKeys)
	fragmentation := float64(totalEntries-liveCount) / float64(totalEntries)
	return fragmentation, liveCount, totalEntries, nil
}
