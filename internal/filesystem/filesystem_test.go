package filesystem

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func setupEnv(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("CARTRACKER_DIR", tmp)
	t.Setenv("XDG_DATA_HOME", "")
	ensureOnce = sync.Once{}
	return tmp
}

func TestSaveBackupReadAndVerify(t *testing.T) {
	tmp := setupEnv(t)

	path, hash, err := SaveBackup("car-tracker-backup-2024-06-01.json", []byte(`{"vehicles":[]}`))
	if err != nil {
		t.Fatalf("SaveBackup returned error: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected file to exist at %s: %v", path, err)
	}
	if !strings.HasPrefix(path, filepath.Join(tmp, "backups")) {
		t.Fatalf("backup %s should be under the backups directory", path)
	}

	content, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if string(content) != `{"vehicles":[]}` {
		t.Fatalf("unexpected content %q", content)
	}

	ok, err := VerifyFile(path, hash)
	if err != nil {
		t.Fatalf("VerifyFile error: %v", err)
	}
	if !ok {
		t.Fatalf("VerifyFile expected true")
	}

	if err := os.WriteFile(path, []byte("tampered"), 0o600); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	ok, err = VerifyFile(path, hash)
	if err != nil {
		t.Fatalf("VerifyFile error: %v", err)
	}
	if ok {
		t.Fatalf("VerifyFile expected false for modified content")
	}
}

func TestSaveBackupRejectsPaths(t *testing.T) {
	setupEnv(t)

	for _, name := range []string{"", "../escape.json", "dir/file.json"} {
		if _, _, err := SaveBackup(name, []byte("{}")); err == nil {
			t.Fatalf("expected error for name %q", name)
		}
	}
}

func TestListAndDeleteBackups(t *testing.T) {
	setupEnv(t)

	files, err := ListBackups()
	if err != nil {
		t.Fatalf("ListBackups on missing dir: %v", err)
	}
	if len(files) != 0 {
		t.Fatalf("expected no backups, got %d", len(files))
	}

	for _, name := range []string{"car-tracker-backup-2024-01-01.json", "car-tracker-backup-2024-06-01.json", "notes.txt"} {
		if _, _, err := SaveBackup(name, []byte("{}")); err != nil {
			t.Fatalf("SaveBackup %s: %v", name, err)
		}
	}

	files, err = ListBackups()
	if err != nil {
		t.Fatalf("ListBackups error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(files))
	}
	if files[0].Name != "car-tracker-backup-2024-06-01.json" {
		t.Fatalf("expected newest first, got %s", files[0].Name)
	}

	if err := DeleteFile(files[0].Path); err != nil {
		t.Fatalf("DeleteFile error: %v", err)
	}
	if FileExists(files[0].Path) {
		t.Fatalf("expected %s to be removed", files[0].Path)
	}
	if err := DeleteFile(files[0].Path); err != nil {
		t.Fatalf("DeleteFile on missing file should succeed: %v", err)
	}
}
