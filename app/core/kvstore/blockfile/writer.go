package blockfile

import (
	"errors"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pandatales/pandatales/app/core/compressor"
)

// Options configure a new file. Codec is ignored when an existing file is opened,
// the codec recorded in its header always wins.
type Options struct {
	MaxBlockSize int
	Codec        compressor.Type
}

// FileWriter handles append-only writes to a store file.
type FileWriter struct {
	mu         sync.Mutex
	file       *os.File
	filePath   string
	header     *FileHeader
	buffer     *WriteBuffer
	blockCount uint64
	entryCount uint64
	closed     bool
}

// NewFileWriter opens filePath for appending, creating it with opts when missing.
func NewFileWriter(filePath string, opts Options) (*FileWriter, error) {
	if filePath == "" {
		return nil, errors.New("file path cannot be empty")
	}
	if opts.MaxBlockSize <= 0 {
		opts.MaxBlockSize = DefaultMaxBlockSize
	}

	fw := &FileWriter{
		filePath: filePath,
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := fw.createNewFile(opts); err != nil {
			return nil, err
		}
	} else {
		if err := fw.openExistingFile(); err != nil {
			return nil, err
		}
	}

	fw.buffer = NewWriteBuffer(opts.MaxBlockSize, compressor.New(fw.header.Codec))

	return fw, nil
}

func (fw *FileWriter) createNewFile(opts Options) error {
	file, err := os.OpenFile(fw.filePath, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	fw.file = file
	fw.header = NewFileHeader(opts.Codec, opts.MaxBlockSize)

	if _, err := file.Write(fw.header.Serialize()); err != nil {
		file.Close()
		return err
	}

	return nil
}

func (fw *FileWriter) openExistingFile() error {
	file, err := os.OpenFile(fw.filePath, os.O_RDWR, 0o644)
	if err != nil {
		return err
	}

	headerBuf := make([]byte, FileHeaderSize)
	if _, err := io.ReadFull(file, headerBuf); err != nil {
		file.Close()
		return err
	}

	fw.header = &FileHeader{}
	if err := fw.header.Deserialize(headerBuf); err != nil {
		file.Close()
		return err
	}

	fw.file = file
	fw.blockCount = fw.header.BlockCount
	fw.entryCount = fw.header.EntryCount

	if _, err := file.Seek(0, io.SeekEnd); err != nil {
		file.Close()
		return err
	}

	return nil
}

// WriteEntry buffers an entry and flushes when the block is full
func (fw *FileWriter) WriteEntry(entry Entry) error {
	return fw.WriteEntries([]Entry{entry})
}

// WriteEntries buffers several entries, flushing whenever a block fills up
func (fw *FileWriter) WriteEntries(entries []Entry) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return ErrFileClosed
	}

	for _, entry := range entries {
		if err := entry.Validate(); err != nil {
			return err
		}
		if fw.buffer.Add(entry) {
			if err := fw.flushLocked(); err != nil {
				return err
			}
		}
	}

	return nil
}

// Flush forces the buffer to disk without fsync
func (fw *FileWriter) Flush() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return ErrFileClosed
	}

	return fw.flushLocked()
}

// flushLocked must be called with fw.mu held
func (fw *FileWriter) flushLocked() error {
	header, compressed, err := fw.buffer.Flush()
	if err != nil {
		return err
	}

	if header == nil {
		return nil
	}

	// one write per block keeps a torn write confined to the tail
	block := make([]byte, 0, BlockHeaderSize+len(compressed))
	block = append(block, header.Serialize()...)
	block = append(block, compressed...)
	if _, err := fw.file.Write(block); err != nil {
		return err
	}

	fw.blockCount++
	fw.entryCount += uint64(header.EntryCount)

	return nil
}

// Sync flushes the buffer, rewrites the header counters and fsyncs the file
func (fw *FileWriter) Sync() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return ErrFileClosed
	}

	if err := fw.flushLocked(); err != nil {
		return err
	}

	if err := fw.writeHeaderLocked(); err != nil {
		return err
	}

	return fw.file.Sync()
}

func (fw *FileWriter) writeHeaderLocked() error {
	fw.header.BlockCount = fw.blockCount
	fw.header.EntryCount = fw.entryCount
	fw.header.ModifiedAt = time.Now().UnixNano()

	if _, err := fw.file.WriteAt(fw.header.Serialize(), 0); err != nil {
		return err
	}

	_, err := fw.file.Seek(0, io.SeekEnd)
	return err
}

// Close flushes, updates the header and closes the file
func (fw *FileWriter) Close() error {
	fw.mu.Lock()
	defer fw.mu.Unlock()

	if fw.closed {
		return nil
	}
	fw.closed = true

	if err := fw.flushLocked(); err != nil {
		fw.file.Close()
		return err
	}

	if err := fw.writeHeaderLocked(); err != nil {
		fw.file.Close()
		return err
	}

	if err := fw.file.Sync(); err != nil {
		fw.file.Close()
		return err
	}

	return fw.file.Close()
}

// GetStats returns the block and entry counters
func (fw *FileWriter) GetStats() (blockCount, entryCount uint64) {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	return fw.blockCount, fw.entryCount
}
