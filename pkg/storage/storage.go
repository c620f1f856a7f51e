package storage

import (
	"context"
	"io"
	"path"
)

// Store persists session file objects. Implementations: local disk (default) and S3.
type Store interface {
	// Save streams r to the object at key and returns the number of bytes written.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)
	// Open returns a reader over the stored object. Caller must close it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the stored object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// FileKey returns the object key for a session file version:
// sessions/{session_id}/{file_id}{ext}.
func FileKey(sessionID, fileID, ext string) string {
	return path.Join("sessions", sessionID, fileID+ext)
}
