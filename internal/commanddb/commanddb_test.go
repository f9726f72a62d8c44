package commanddb

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadAndQuery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cmddb.yaml")
	content := "less:\n  intaction: end_of_file\n  termmode: raw\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	db, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := db.IntAction("less"); got != ActionEndOfFile {
		t.Errorf("IntAction(less) = %q, want %q", got, ActionEndOfFile)
	}
	if got := db.TermMode("less"); got != TermModeRaw {
		t.Errorf("TermMode(less) = %q, want %q", got, TermModeRaw)
	}
	if got := db.TermMode("unknown-cmd"); got != TermModeLine {
		t.Errorf("TermMode(unknown) = %q, want default %q", got, TermModeLine)
	}
}

func TestLoadMissingFileIsNonFatal(t *testing.T) {
	db, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err == nil {
		t.Fatal("Load() of missing file returned nil error, want non-nil (still non-fatal)")
	}
	if db == nil {
		t.Fatal("Load() returned nil DB, want empty DB even on error")
	}
	if got := db.TermMode("anything"); got != TermModeLine {
		t.Errorf("TermMode() on empty DB = %q, want default", got)
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cmddb.yaml")
	if err := os.WriteFile(path, []byte("less:\n  termmode: line\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	db, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	stop, err := db.Watch(path)
	if err != nil {
		t.Skipf("fsnotify unavailable in this environment: %v", err)
	}
	defer stop()

	if err := os.WriteFile(path, []byte("less:\n  termmode: raw\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if db.TermMode("less") == TermModeRaw {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("command database was not hot-reloaded within 2s")
}
