package vfs

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_FSNotify(t *testing.T) {
	fw, err := NewFSWatcher()
	if err != nil {
		t.Skip("fsnotify not supported: ", err)
	}
	defer fw.Close()

	dir := t.TempDir()
	if err := fw.Add(dir); err != nil {
		t.Fatal(err)
	}

	go func() {
		f := filepath.Join(dir, "f.txt")
		_ = os.WriteFile(f, []byte("x"), 0o644)
	}()

	select {
	case ev := <-fw.Events():
		if ev.Path == "" {
			t.Fatal("empty path")
		}
		if ev.Op&(OpWrite|OpCreate) == 0 {
			t.Fatalf("event op = %v, want OpWrite or OpCreate", ev.Op)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for fsnotify event")
	}
}
