// Package paniclogger appends recovered panics to <root>/logs/panic.log.
package paniclogger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	panicLogFile = "panic.log"
	maxFileSize  = 5 * 1024 * 1024
)

var (
	logFile  *os.File
	fileLock sync.Mutex
	logDir   string
	initOnce sync.Once
	initErr  error
)

// Init opens the panic log under rootPath/logs. Later calls are no-ops.
func Init(rootPath string) error {
	initOnce.Do(func() {
		if rootPath == "" {
			initErr = fmt.Errorf("panic log root path is empty")
			return
		}

		logDir = filepath.Join(rootPath, "logs")
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			initErr = fmt.Errorf("failed to create logs directory: %w", err)
			return
		}

		var err error
		logFile, err = os.OpenFile(filepath.Join(logDir, panicLogFile), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			initErr = fmt.Errorf("failed to open panic log file: %w", err)
			return
		}
	})
	return initErr
}

// LogPanic appends a panic record. Without Init the record goes to stderr.
func LogPanic(context string, panicError any, stackTrace string) {
	fileLock.Lock()
	defer fileLock.Unlock()

	timestamp := time.Now().Format("2006-01-02T15:04:05.000Z07:00")
	entry := fmt.Sprintf(
		"\n==== PANIC %s ====\nContext: %s\nError:   %v\n\nStack Trace:\n%s\n",
		timestamp, context, panicError, stackTrace,
	)

	if logFile == nil {
		_, _ = fmt.Fprint(os.Stderr, entry)
		return
	}

	if err := rotateIfNeeded(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to rotate panic log: %v\n", err)
	}

	if _, err := logFile.WriteString(entry); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to write panic log: %v\n", err)
	}
	_ = logFile.Sync()
}

// rotateIfNeeded moves panic.log to panic.log.old once it outgrows maxFileSize
func rotateIfNeeded() error {
	stat, err := logFile.Stat()
	if err != nil {
		return err
	}
	if stat.Size() < maxFileSize {
		return nil
	}

	_ = logFile.Close()

	logPath := filepath.Join(logDir, panicLogFile)
	backupPath := logPath + ".old"
	_ = os.Remove(backupPath)
	if err := os.Rename(logPath, backupPath); err != nil {
		return err
	}

	logFile, err = os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	return err
}

// Close closes the panic log
func Close() error {
	fileLock.Lock()
	defer fileLock.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Reset clears the logger state. Tests only.
func Reset() {
	fileLock.Lock()
	defer fileLock.Unlock()

	if logFile != nil {
		_ = logFile.Close()
	}
	logFile = nil
	logDir = ""
	initOnce = sync.Once{}
	initErr = nil
}
