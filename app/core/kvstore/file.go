package kvstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/pandatales/pandatales/app/core/compressor"
	"github.com/pandatales/pandatales/app/core/kvstore/blockfile"
)

// Options configure the file-backed store.
type Options struct {
	// Codec is used when the file is created. Existing files keep their codec.
	Codec compressor.Type
	// MaxBlockSize caps the uncompressed size of a block. Defaults to 16KB.
	MaxBlockSize int
	// CompactThreshold is the fragmentation ratio that triggers compaction on open.
	// Zero means the default of 0.5.
	CompactThreshold float64
	// SkipCompaction disables compaction on open.
	SkipCompaction bool
}

// DefaultOptions returns snappy blocks with compaction at 50% fragmentation
func DefaultOptions() Options {
	return Options{
		Codec:            compressor.Snappy,
		MaxBlockSize:     blockfile.DefaultMaxBlockSize,
		CompactThreshold: 0.5,
	}
}

// File is a Store persisted in a single block file. The whole key space is
// held in memory; every mutation is appended and synced before it returns.
type File struct {
	mu     sync.RWMutex
	path   string
	opts   Options
	data   map[string]string
	writer *blockfile.FileWriter
	lock   *fileLock
	closed bool
}

// Open opens or creates the store at path. Another process holding the same
// store open makes Open fail.
func Open(path string, opts Options) (*File, error) {
	if opts.MaxBlockSize <= 0 {
		opts.MaxBlockSize = blockfile.DefaultMaxBlockSize
	}
	if opts.CompactThreshold <= 0 || opts.CompactThreshold > 1 {
		opts.CompactThreshold = 0.5
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	lock, err := acquireLock(path + ".lock")
	if err != nil {
		return nil, err
	}

	f := &File{
		path: path,
		opts: opts,
		data: make(map[string]string),
		lock: lock,
	}

	if err := f.load(); err != nil {
		_ = lock.release()
		return nil, err
	}

	return f, nil
}

func (f *File) load() error {
	if err := blockfile.CleanupCompactionTemp(f.path); err != nil {
		slog.Warn("failed to remove leftover compaction file", "path", f.path, "error", err)
	}

	if _, err := os.Stat(f.path); err == nil {
		if err := f.recoverTail(); err != nil {
			return err
		}
		if !f.opts.SkipCompaction {
			f.compactOnOpen()
		}
		if err := f.replay(); err != nil {
			return err
		}
	}

	writer, err := blockfile.NewFileWriter(f.path, blockfile.Options{
		MaxBlockSize: f.opts.MaxBlockSize,
		Codec:        f.opts.Codec,
	})
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	f.writer = writer

	return nil
}

// recoverTail cuts a torn or unreadable trailing block so new appends stay readable
func (f *File) recoverTail() error {
	reader, err := blockfile.NewFileReader(f.path)
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	if _, err := reader.ReadAllEntries(func(blockfile.Entry) bool { return true }); err != nil {
		reader.Close()
		return fmt.Errorf("scan store file: %w", err)
	}
	truncated, validSize := reader.Truncated(), reader.ValidSize()
	reader.Close()

	if !truncated {
		return nil
	}

	slog.Warn("store file ends with an unreadable block, dropping it", "path", f.path, "validSize", validSize)
	if err := os.Truncate(f.path, validSize); err != nil {
		return fmt.Errorf("truncate torn tail: %w", err)
	}
	return nil
}

func (f *File) compactOnOpen() {
	result, err := blockfile.NewCompactor(f.path, f.opts.MaxBlockSize, f.opts.CompactThreshold).Compact()
	if err != nil {
		slog.Warn("compaction on open failed", "path", f.path, "error", err)
		return
	}
	if result.Compacted {
		slog.Debug("store compacted", "path", f.path, "result", result.String())
	}
}

func (f *File) replay() error {
	reader, err := blockfile.NewFileReader(f.path)
	if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer reader.Close()

	index, total, err := reader.LoadIndex()
	if err != nil {
		return fmt.Errorf("replay store file: %w", err)
	}
	for k, v := range index {
		f.data[k] = string(v)
	}
	slog.Debug("store loaded", "path", f.path, "keys", len(f.data), "entries", total)
	return nil
}

// Path returns the location of the store file
func (f *File) Path() string {
	return f.path
}

func (f *File) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return "", false, ErrClosed
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *File) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return ErrEmptyKey
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	if err := f.appendLocked([]blockfile.Entry{{Operation: blockfile.OpSet, Key: key, Value: []byte(value)}}); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	f.data[key] = value
	return nil
}

func (f *File) MultiGet(ctx context.Context, keys []string) ([]Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrClosed
	}
	return collect(f.data, keys), nil
}

func (f *File) MultiRemove(ctx context.Context, keys []string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	entries := make([]blockfile.Entry, 0, len(keys))
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			entries = append(entries, blockfile.Entry{Operation: blockfile.OpDelete, Key: k})
		}
	}
	if len(entries) == 0 {
		return nil
	}

	if err := f.appendLocked(entries); err != nil {
		return fmt.Errorf("remove %d keys: %w", len(entries), err)
	}
	for _, e := range entries {
		delete(f.data, e.Key)
	}
	return nil
}

func (f *File) AllKeys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return nil, ErrClosed
	}
	return sortedKeys(f.data), nil
}

func (f *File) appendLocked(entries []blockfile.Entry) error {
	if err := f.writer.WriteEntries(entries); err != nil {
		return err
	}
	return f.writer.Sync()
}

// Compact rewrites the file with only live keys, regardless of fragmentation.
func (f *File) Compact() (*blockfile.CompactionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil, ErrClosed
	}

	if err := f.writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer before compaction: %w", err)
	}

	result, compactErr := blockfile.NewCompactor(f.path, f.opts.MaxBlockSize, f.opts.CompactThreshold).ForceCompact()

	writer, err := blockfile.NewFileWriter(f.path, blockfile.Options{
		MaxBlockSize: f.opts.MaxBlockSize,
		Codec:        f.opts.Codec,
	})
	if err != nil {
		f.closed = true
		_ = f.lock.release()
		return nil, fmt.Errorf("reopen store after compaction: %w", err)
	}
	f.writer = writer

	if compactErr != nil {
		return nil, fmt.Errorf("compact store: %w", compactErr)
	}
	return result, nil
}

// Fragmentation reports the share of superseded entries currently in the file
func (f *File) Fragmentation() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, ErrClosed
	}
	if err := f.writer.Flush(); err != nil {
		return 0, err
	}

	reader, err := blockfile.NewFileReader(f.path)
	if err != nil {
		return 0, err
	}
	defer reader.Close()
	fragmentation, _, _, err := reader.CalculateFragmentation()
	return fragmentation, err
}

// Stats returns the number of blocks and entries written to the file
func (f *File) Stats() (blocks, entries uint64, err error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return 0, 0, ErrClosed
	}
	blocks, entries = f.writer.GetStats()
	return blocks, entries, nil
}

func (f *File) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true

	err := f.writer.Close()
	if lerr := f.lock.release(); lerr != nil && err == nil {
		err = lerr
	}
	return err
}
