package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func makeVolume(t *testing.T, root, id string) string {
	t.Helper()
	dir := filepath.Join(root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("make volume: %v", err)
	}
	return dir
}

func TestListVolumes(t *testing.T) {
	root := t.TempDir()
	makeVolume(t, root, "USB_A")
	makeVolume(t, root, "USB_B")
	// Stray files at the mount root are not volumes.
	if err := os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	store := NewDirStore(root)
	volumes, err := store.ListVolumes()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(volumes) != 2 {
		t.Fatalf("expected 2 volumes, got %d", len(volumes))
	}
}

func TestListVolumesMissingRoot(t *testing.T) {
	store := NewDirStore(filepath.Join(t.TempDir(), "gone"))
	_, err := store.ListVolumes()
	if !errors.Is(err, ErrMediumUnavailable) {
		t.Fatalf("expected ErrMediumUnavailable, got %v", err)
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	root := t.TempDir()
	makeVolume(t, root, "USB_A")
	store := NewDirStore(root)

	data := []byte("sealed envelope bytes")
	if err := store.WriteFile("USB_A", "private_key.enc", data); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := store.ReadFile("USB_A", "private_key.enc")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("read data differs from written data")
	}
}

func TestWriteLeavesNoTempFile(t *testing.T) {
	root := t.TempDir()
	dir := makeVolume(t, root, "USB_A")
	store := NewDirStore(root)

	if err := store.WriteFile("USB_A", "key.enc", []byte("data")); err != nil {
		t.Fatalf("write: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}

func TestReadMissingFile(t *testing.T) {
	root := t.TempDir()
	makeVolume(t, root, "USB_A")
	store := NewDirStore(root)

	_, err := store.ReadFile("USB_A", "private_key.enc")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReadDetachedVolume(t *testing.T) {
	root := t.TempDir()
	makeVolume(t, root, "USB_A")
	store := NewDirStore(root)

	if err := os.RemoveAll(filepath.Join(root, "USB_A")); err != nil {
		t.Fatalf("remove volume: %v", err)
	}

	_, err := store.ReadFile("USB_A", "private_key.enc")
	if !errors.Is(err, ErrMediumUnavailable) {
		t.Fatalf("expected ErrMediumUnavailable, got %v", err)
	}
}

func TestWriteDetachedVolume(t *testing.T) {
	root := t.TempDir()
	store := NewDirStore(root)

	err := store.WriteFile("USB_A", "private_key.enc", []byte("data"))
	if !errors.Is(err, ErrMediumUnavailable) {
		t.Fatalf("expected ErrMediumUnavailable, got %v", err)
	}
}

func TestVolumeIDTraversalRejected(t *testing.T) {
	root := t.TempDir()
	store := NewDirStore(root)

	if _, err := store.ReadFile("../outside", "f"); err == nil {
		t.Fatal("path traversal volume id accepted")
	}
}

func TestWatcherAttachDetach(t *testing.T) {
	root := t.TempDir()
	store := NewDirStore(root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(store, 10*time.Millisecond)
	go w.Run(ctx)

	makeVolume(t, root, "USB_A")
	ev := waitEvent(t, w)
	if ev.Type != VolumeAttached || ev.Volume.ID != "USB_A" {
		t.Fatalf("expected attach of USB_A, got %+v", ev)
	}

	if err := os.RemoveAll(filepath.Join(root, "USB_A")); err != nil {
		t.Fatalf("remove volume: %v", err)
	}
	ev = waitEvent(t, w)
	if ev.Type != VolumeDetached || ev.Volume.ID != "USB_A" {
		t.Fatalf("expected detach of USB_A, got %+v", ev)
	}
}

func TestWatcherReportsInitialVolumes(t *testing.T) {
	root := t.TempDir()
	makeVolume(t, root, "USB_A")
	store := NewDirStore(root)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := NewWatcher(store, 10*time.Millisecond)
	go w.Run(ctx)

	ev := waitEvent(t, w)
	if ev.Type != VolumeAttached || ev.Volume.ID != "USB_A" {
		t.Fatalf("expected initial attach of USB_A, got %+v", ev)
	}
}

func TestWatcherStopsOnCancel(t *testing.T) {
	store := NewDirStore(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())

	w := NewWatcher(store, 10*time.Millisecond)
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop after cancel")
	}

	if _, open := <-w.Events(); open {
		// Drain until close; a buffered event before shutdown is fine.
		for range w.Events() {
		}
	}
}

func waitEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for volume event")
		return Event{}
	}
}
