package storage

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestDisk(t *testing.T) *Disk {
	t.Helper()
	d, err := NewDisk(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	d.now = func() time.Time { return time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC) }
	return d
}

func TestDiskSaveAndOpenRoundTrip(t *testing.T) {
	d := newTestDisk(t)
	content := []byte("fake webm payload")

	relPath, err := d.Save(bytes.NewReader(content), "rec-1", "clip.webm")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if want := "2026/03/07/rec-1.webm"; relPath != want {
		t.Fatalf("relPath = %q, want %q", relPath, want)
	}

	f, size, err := d.Open(relPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	if size != int64(len(content)) {
		t.Fatalf("size = %d, want %d", size, len(content))
	}
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("round-trip mismatch: got %q, want %q", got, content)
	}

	n, err := d.Size(relPath)
	if err != nil {
		t.Fatalf("Size: %v", err)
	}
	if n != int64(len(content)) {
		t.Fatalf("Size = %d, want %d", n, len(content))
	}
}

func TestDiskSaveOverwritesExisting(t *testing.T) {
	d := newTestDisk(t)

	if _, err := d.Save(strings.NewReader("first"), "rec-1", "clip.webm"); err != nil {
		t.Fatalf("first Save: %v", err)
	}
	relPath, err := d.Save(strings.NewReader("second"), "rec-1", "clip.webm")
	if err != nil {
		t.Fatalf("second Save: %v", err)
	}

	f, _, err := d.Open(relPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	got, _ := io.ReadAll(f)
	if string(got) != "second" {
		t.Fatalf("content = %q, want %q", got, "second")
	}
}

func TestDiskOpenHandleSurvivesReplace(t *testing.T) {
	d := newTestDisk(t)
	original := "original artifact content"

	relPath, err := d.Save(strings.NewReader(original), "rec-1", "clip.webm")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	f, size, err := d.Open(relPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	// Replace the artifact while the handle is open, as the re-encode does.
	if _, err := d.Save(strings.NewReader("replacement with a different length"), "rec-1", "clip.webm"); err != nil {
		t.Fatalf("replacing Save: %v", err)
	}

	// The open handle keeps the pre-replace inode: the bytes served must
	// match the size reported at Open time, never a mixture.
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if int64(len(got)) != size {
		t.Fatalf("served %d bytes, Open reported %d", len(got), size)
	}
	if string(got) != original {
		t.Fatalf("content = %q, want pre-replace content", got)
	}

	// A fresh Open observes the replacement in full.
	f2, size2, err := d.Open(relPath)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	defer f2.Close()
	got2, _ := io.ReadAll(f2)
	if int64(len(got2)) != size2 || string(got2) != "replacement with a different length" {
		t.Fatalf("post-replace content = %q (size %d)", got2, size2)
	}
}

func TestDiskSaveWriteFailure(t *testing.T) {
	d := newTestDisk(t)

	// Block the partition path with a plain file so the directory cannot be
	// created.
	if err := os.WriteFile(filepath.Join(d.root, "2026"), []byte("in the way"), 0o600); err != nil {
		t.Fatalf("plant blocker: %v", err)
	}
	if _, err := d.Save(strings.NewReader("payload"), "rec-1", "clip.webm"); !errors.Is(err, ErrWrite) {
		t.Fatalf("Save err = %v, want ErrWrite", err)
	}
}

func TestDiskSaveLeavesNoTempFiles(t *testing.T) {
	d := newTestDisk(t)
	relPath, err := d.Save(strings.NewReader("payload"), "rec-1", "clip.webm")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, err := os.ReadDir(filepath.Dir(d.AbsolutePath(relPath)))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Fatalf("partition dir has %d entries, want 1: %v", len(entries), names)
	}
}

func TestDiskOpenMissing(t *testing.T) {
	d := newTestDisk(t)
	if _, _, err := d.Open("2026/03/07/nope.webm"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Open missing: err = %v, want ErrNotFound", err)
	}
	if _, err := d.Size("2026/03/07/nope.webm"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Size missing: err = %v, want ErrNotFound", err)
	}
}

func TestDiskAbsolutePath(t *testing.T) {
	d := newTestDisk(t)
	abs := d.AbsolutePath("2026/03/07/rec-1.webm")
	if !filepath.IsAbs(abs) && !strings.HasPrefix(abs, d.root) {
		t.Fatalf("AbsolutePath = %q, not under root %q", abs, d.root)
	}
	if !strings.HasSuffix(abs, filepath.FromSlash("2026/03/07/rec-1.webm")) {
		t.Fatalf("AbsolutePath = %q, missing relative suffix", abs)
	}
}

func TestFileExtension(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"clip.webm", ".webm"},
		{"video.mp4", ".mp4"},
		{"archive.tar.gz", ".gz"},
		{"", ".webm"},
		{"noextension", ".webm"},
		{".hidden", ".webm"},
		{"trailingdot.", ".webm"},
	}
	for _, tt := range tests {
		if got := FileExtension(tt.filename); got != tt.want {
			t.Errorf("FileExtension(%q) = %q, want %q", tt.filename, got, tt.want)
		}
	}
}
