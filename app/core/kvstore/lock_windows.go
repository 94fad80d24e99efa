//go:build windows

package kvstore

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows"
)

// ErrLocked is returned by Open when another process holds the store
var ErrLocked = errors.New("store is locked by another process")

// fileLock holds a LockFileEx lock on one byte of the lock file
type fileLock struct {
	handle windows.Handle
}

func acquireLock(path string) (*fileLock, error) {
	h, err := windows.CreateFile(
		windows.StringToUTF16Ptr(path),
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil,
		windows.OPEN_ALWAYS,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	ol := new(windows.Overlapped)
	err = windows.LockFileEx(h, windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY, 0, 1, 0, ol)
	if err != nil {
		_ = windows.CloseHandle(h)
		if errors.Is(err, windows.ERROR_LOCK_VIOLATION) {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to acquire file lock: %w", err)
	}
	return &fileLock{handle: h}, nil
}

func (l *fileLock) release() error {
	ol := new(windows.Overlapped)
	if err := windows.UnlockFileEx(l.handle, 0, 1, 0, ol); err != nil {
		_ = windows.CloseHandle(l.handle)
		return fmt.Errorf("failed to release file lock: %w", err)
	}
	return windows.CloseHandle(l.handle)
}
