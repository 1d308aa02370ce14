// Package filesystem stores exported backup documents under the data directory.
package filesystem

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cartracker/cartracker/internal/config"
)

var ensureOnce sync.Once

// ensureBackupsDir initialises the backups directory the first time it is needed.
func ensureBackupsDir() error {
	var setupErr error
	ensureOnce.Do(func() {
		setupErr = os.MkdirAll(config.GetBackupsDir(), 0o750)
	})
	return setupErr
}

// BackupFile describes a stored backup.
type BackupFile struct {
	Name    string
	Path    string
	Size    int64
	ModTime time.Time
}

// BackupPath returns where a backup with the given file name is stored.
func BackupPath(name string) string {
	return filepath.Join(config.GetBackupsDir(), filepath.Base(name))
}

// SaveBackup writes content into the backups directory and returns the file
// path and its SHA-256 hash. An existing file with the same name is replaced.
func SaveBackup(name string, content []byte) (string, string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) {
		return "", "", fmt.Errorf("invalid backup name %q", name)
	}
	if err := ensureBackupsDir(); err != nil {
		return "", "", err
	}

	path := BackupPath(name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return "", "", err
	}
	return path, calculateHash(content), nil
}

// ReadFile reads a file from disk.
func ReadFile(path string) ([]byte, error) {
	//nolint:gosec // G304: path is chosen by the local user
	return os.ReadFile(path)
}

// DeleteFile removes a file if it exists.
func DeleteFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return os.Remove(path)
}

// FileExists reports whether the given path exists.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// VerifyFile ensures the file exists and its SHA-256 hash matches the expected hash.
func VerifyFile(path, expectedHash string) (bool, error) {
	if !FileExists(path) {
		return false, nil
	}

	content, err := ReadFile(path)
	if err != nil {
		return false, err
	}
	return calculateHash(content) == expectedHash, nil
}

// ListBackups returns the stored backups, newest name first.
func ListBackups() ([]BackupFile, error) {
	dir := config.GetBackupsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []BackupFile{}, nil
		}
		return nil, err
	}

	files := make([]BackupFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, BackupFile{
			Name:    entry.Name(),
			Path:    filepath.Join(dir, entry.Name()),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name > files[j].Name })
	return files, nil
}

func calculateHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
