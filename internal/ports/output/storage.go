// Package output defines the secondary/driven ports of the application.
package output

import (
	"context"
	"io"
)

// PayloadStore defines the secondary port for durable payload storage.
// Implementations keep an active area for live payloads and a separate
// archive area for copies taken at deletion time.
type PayloadStore interface {
	// Save writes the payload bytes under filename in the active area,
	// creating the area if absent. An existing payload with the same
	// filename is overwritten silently.
	Save(ctx context.Context, filename string, r io.Reader) error

	// ArchiveAndDelete copies the live payload into the archive area under
	// a name derived from filename and a filesystem-safe timestamp, then
	// removes the live payload. Absent payloads are a no-op.
	ArchiveAndDelete(ctx context.Context, filename string) error

	// GetReader returns a reader for a live payload.
	GetReader(ctx context.Context, filename string) (io.ReadCloser, error)

	// Exists checks whether a live payload exists.
	Exists(ctx context.Context, filename string) (bool, error)

	// List returns all live payloads.
	List(ctx context.Context) ([]StorageObject, error)

	// ListArchive returns all archive entries.
	ListArchive(ctx context.Context) ([]StorageObject, error)
}

// StorageObject represents a payload in the store.
type StorageObject struct {
	Key          string // Payload filename or archive entry name
	Size         int64  // Size in bytes
	LastModified int64  // Unix timestamp
	ETag         string // Content hash, when the backend provides one
}

// StorageType represents the type of storage backend.
type StorageType string

const (
	StorageTypeS3    StorageType = "s3"
	StorageTypeAzure StorageType = "azure"
	StorageTypeLocal StorageType = "local"
)
