package storage

import (
	"bytes"
	"context"
	"io"
	"testing"
)

func TestLocalSaveOpenDelete(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}
	ctx := context.Background()
	key := FileKey("sess-1", "file-1", ".pdf")
	content := []byte("slide deck bytes")

	n, err := store.Save(ctx, key, bytes.NewReader(content))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if n != int64(len(content)) {
		t.Fatalf("Save wrote %d bytes, want %d", n, len(content))
	}

	rc, err := store.Open(ctx, key)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !bytes.Equal(got, content) {
		t.Fatalf("read back %q, want %q", got, content)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Open(ctx, key); err == nil {
		t.Fatal("Open after Delete should fail")
	}
	// deleting again is not an error
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func TestFileKey(t *testing.T) {
	got := FileKey("abc", "def", ".pptx")
	want := "sessions/abc/def.pptx"
	if got != want {
		t.Fatalf("FileKey = %q, want %q", got, want)
	}
}
