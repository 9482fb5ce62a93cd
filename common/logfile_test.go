package common

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRotatingFile_RotatesOnOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	if err := os.WriteFile(path, []byte(strings.Repeat("x", 2048)), 0600); err != nil {
		t.Fatal(err)
	}

	rf, err := openRotatingFile(path, 1024, 2)
	if err != nil {
		t.Fatalf("openRotatingFile() error = %v", err)
	}
	defer rf.Close()

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("live file missing after rotation: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("live file size = %d, want 0", info.Size())
	}

	backups, _ := filepath.Glob(path + ".*.gz")
	if len(backups) != 1 {
		t.Fatalf("got %d compressed backups, want 1", len(backups))
	}

	f, err := os.Open(backups[0])
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zr, err := gzip.NewReader(f)
	if err != nil {
		t.Fatalf("backup is not gzip: %v", err)
	}
	data, err := io.ReadAll(zr)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 2048 {
		t.Errorf("backup holds %d bytes, want 2048", len(data))
	}
}

func TestRotatingFile_RotatesOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	rf, err := openRotatingFile(path, 100, 5)
	if err != nil {
		t.Fatalf("openRotatingFile() error = %v", err)
	}
	defer rf.Close()

	line := []byte(strings.Repeat("a", 60) + "\n")
	for i := 0; i < 2; i++ {
		if _, err := rf.Write(line); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != len(line) {
		t.Errorf("live file holds %d bytes, want %d", len(data), len(line))
	}

	backups, _ := filepath.Glob(path + ".*")
	if len(backups) != 1 {
		t.Errorf("got %d backups, want 1", len(backups))
	}
}

func TestRotatingFile_OversizedWriteKept(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	rf, err := openRotatingFile(path, 10, 1)
	if err != nil {
		t.Fatal(err)
	}
	defer rf.Close()

	big := []byte(strings.Repeat("b", 50))
	if n, err := rf.Write(big); err != nil || n != len(big) {
		t.Fatalf("Write() = %d, %v", n, err)
	}

	backups, _ := filepath.Glob(path + ".*")
	if len(backups) != 0 {
		t.Errorf("first write into an empty file should not rotate, got %d backups", len(backups))
	}
}

func TestRotatingFile_PrunesBackups(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	for _, stamp := range []string{"20240101-000000.000", "20240102-000000.000", "20240103-000000.000"} {
		if err := os.WriteFile(path+"."+stamp+".gz", []byte("old"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	rf := &rotatingFile{path: path, maxBackups: 2}
	rf.pruneBackups()

	backups, _ := filepath.Glob(path + ".*")
	if len(backups) != 2 {
		t.Fatalf("got %d backups, want 2", len(backups))
	}
	if FileExists(path + ".20240101-000000.000.gz") {
		t.Error("oldest backup should have been removed")
	}
}

func TestRotatingFile_WriteAfterClose(t *testing.T) {
	rf, err := openRotatingFile(filepath.Join(t.TempDir(), "test.log"), 1024, 1)
	if err != nil {
		t.Fatal(err)
	}
	if err := rf.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := rf.Write([]byte("late")); err == nil {
		t.Error("Write after Close should fail")
	}
}

func TestDefaultRotationLimits(t *testing.T) {
	if defaultMaxFileSize != 5*1024*1024 {
		t.Errorf("defaultMaxFileSize = %v, want 5MB", defaultMaxFileSize)
	}
	if defaultMaxBackups != 5 {
		t.Errorf("defaultMaxBackups = %v, want 5", defaultMaxBackups)
	}
}
