package common

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	defaultMaxFileSize = 5 * 1024 * 1024 // 5MB
	defaultMaxBackups  = 5

	backupTimeFormat = "20060102-150405.000"
)

// rotatingFile is an append-only log file that compresses itself into a
// timestamped .gz backup once it grows past maxSize.
type rotatingFile struct {
	mu         sync.Mutex
	path       string
	maxSize    int64
	maxBackups int
	file       *os.File
	size       int64
}

// openRotatingFile opens path for appending, rotating first when the
// existing file is already over the limit. Symlinks are refused for both
// the directory and the file.
func openRotatingFile(path string, maxSize int64, maxBackups int) (*rotatingFile, error) {
	dir := filepath.Dir(path)
	if isSymlink(dir) {
		return nil, fmt.Errorf("security error: log directory %s is a symlink", dir)
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	if isSymlink(path) {
		return nil, fmt.Errorf("security error: log file %s is a symlink", path)
	}

	rf := &rotatingFile{path: path, maxSize: maxSize, maxBackups: maxBackups}
	if info, err := os.Stat(path); err == nil && info.Size() >= maxSize {
		if err := rf.archive(); err != nil {
			return nil, err
		}
	}
	if err := rf.open(); err != nil {
		return nil, err
	}
	return rf, nil
}

func (rf *rotatingFile) open() error {
	file, err := os.OpenFile(rf.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return err
	}
	rf.file = file
	rf.size = info.Size()
	return nil
}

// Write appends p, rotating beforehand when p would push the file over
// the size limit. A single oversized write still lands in one file.
func (rf *rotatingFile) Write(p []byte) (int, error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()

	if rf.file == nil {
		return 0, os.ErrClosed
	}
	if rf.size > 0 && rf.size+int64(len(p)) > rf.maxSize {
		if err := rf.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := rf.file.Write(p)
	rf.size += int64(n)
	return n, err
}

func (rf *rotatingFile) rotateLocked() error {
	if err := rf.file.Close(); err != nil {
		return err
	}
	rf.file = nil
	if err := rf.archive(); err != nil {
		return err
	}
	return rf.open()
}

// archive moves the current file into a compressed backup and prunes
// backups beyond maxBackups. The live file must be closed.
func (rf *rotatingFile) archive() error {
	backup := fmt.Sprintf("%s.%s", rf.path, time.Now().Format(backupTimeFormat))

	if err := gzipFile(rf.path, backup+".gz"); err != nil {
		// Keep the data uncompressed rather than lose it.
		if err := os.Rename(rf.path, backup); err != nil {
			return err
		}
	} else if err := os.Remove(rf.path); err != nil {
		return err
	}

	rf.pruneBackups()
	return nil
}

// pruneBackups removes the oldest backups. Timestamps sort lexically, so
// the names alone give the age order.
func (rf *rotatingFile) pruneBackups() {
	backups, err := filepath.Glob(rf.path + ".*")
	if err != nil || len(backups) <= rf.maxBackups {
		return
	}
	sort.Strings(backups)
	for _, old := range backups[:len(backups)-rf.maxBackups] {
		os.Remove(old)
	}
}

func (rf *rotatingFile) Close() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.file == nil {
		return nil
	}
	err := rf.file.Close()
	rf.file = nil
	return err
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		zw.Close()
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := zw.Close(); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// isSymlink reports whether path is a symbolic link.
// A missing path is not a symlink.
func isSymlink(path string) bool {
	info, err := os.Lstat(path)
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeSymlink != 0
}
