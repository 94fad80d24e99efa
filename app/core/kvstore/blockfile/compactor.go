package blockfile

import (
	"fmt"
	"os"
	"sort"
)

// Compactor rewrites a store file keeping only live entries. The caller owns
// the file for the duration of a run.
type Compactor struct {
	filePath     string
	maxBlockSize int
	threshold    float64 // fragmentation ratio (0.0-1.0) that triggers a rewrite
}

// CompactionResult describes one compaction run
type CompactionResult struct {
	OldFileSize    int64
	NewFileSize    int64
	TotalEntries   int
	LiveEntries    int
	RemovedEntries int
	Fragmentation  float64
	Compacted      bool
}

// NewCompactor creates a compactor for filePath. Out of range thresholds fall back to 0.5.
func NewCompactor(filePath string, maxBlockSize int, threshold float64) *Compactor {
	if threshold < 0 || threshold > 1 {
		threshold = 0.5
	}
	if maxBlockSize <= 0 {
		maxBlockSize = DefaultMaxBlockSize
	}
	return &Compactor{
		filePath:     filePath,
		maxBlockSize: maxBlockSize,
		threshold:    threshold,
	}
}

// Compact rewrites the file when fragmentation is at or above the threshold.
// Live entries go to a temp file that atomically replaces the original.
func (c *Compactor) Compact() (*CompactionResult, error) {
	return c.compact(c.threshold)
}

// ForceCompact rewrites the file regardless of fragmentation
func (c *Compactor) ForceCompact() (*CompactionResult, error) {
	return c.compact(0)
}

func (c *Compactor) compact(threshold float64) (*CompactionResult, error) {
	result := &CompactionResult{}

	oldInfo, err := os.Stat(c.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return result, err
	}
	result.OldFileSize = oldInfo.Size()

	reader, err := NewFileReader(c.filePath)
	if err != nil {
		return result, err
	}

	fragmentation, liveCount, totalCount, err := reader.CalculateFragmentation()
	if err != nil {
		reader.Close()
		return result, err
	}

	result.Fragmentation = fragmentation
	result.TotalEntries = totalCount
	result.LiveEntries = liveCount
	result.RemovedEntries = totalCount - liveCount

	if fragmentation < threshold || (threshold > 0 && totalCount == 0) {
		reader.Close()
		return result, nil
	}

	index, _, err := reader.LoadIndex()
	codec := reader.GetHeader().Codec
	reader.Close()
	if err != nil {
		return result, err
	}

	tempPath := GetCompactionTempPath(c.filePath)
	_ = os.Remove(tempPath)

	writer, err := NewFileWriter(tempPath, Options{MaxBlockSize: c.maxBlockSize, Codec: codec})
	if err != nil {
		return result, err
	}

	keys := make([]string, 0, len(index))
	for key := range index {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if err := writer.WriteEntry(Entry{Operation: OpSet, Key: key, Value: index[key]}); err != nil {
			writer.Close()
			os.Remove(tempPath)
			return result, err
		}
	}

	if err := writer.Close(); err != nil {
		os.Remove(tempPath)
		return result, err
	}

	if err := os.Rename(tempPath, c.filePath); err != nil {
		os.Remove(tempPath)
		return result, err
	}

	newInfo, err := os.Stat(c.filePath)
	if err != nil {
		return result, err
	}
	result.NewFileSize = newInfo.Size()
	result.Compacted = true

	return result, nil
}

// String returns a human-readable summary of the compaction result
func (r *CompactionResult) String() string {
	if !r.Compacted {
		return fmt.Sprintf("Compaction skipped (fragmentation: %.1f%%)", r.Fragmentation*100)
	}
	savedBytes := r.OldFileSize - r.NewFileSize
	savedPercent := 0.0
	if r.OldFileSize > 0 {
		savedPercent = float64(savedBytes) / float64(r.OldFileSize) * 100
	}
	return fmt.Sprintf("Compaction complete: %d entries (%d removed), %d -> %d bytes (%.1f%% saved)",
		r.LiveEntries, r.RemovedEntries, r.OldFileSize, r.NewFileSize, savedPercent)
}

// GetCompactionTempPath returns the path of the temporary compaction file
func GetCompactionTempPath(filePath string) string {
	return filePath + ".compact"
}

// CleanupCompactionTemp removes a leftover compaction temp file
func CleanupCompactionTemp(filePath string) error {
	tempPath := GetCompactionTempPath(filePath)
	if _, err := os.Stat(tempPath); err == nil {
		return os.Remove(tempPath)
	}
	return nil
}
