// Package storage provides payload store adapters.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/output"
)

// archiveTimestampLayout is an ISO timestamp with millisecond precision;
// colons and dots are replaced afterwards to stay filesystem-safe.
const archiveTimestampLayout = "2006-01-02T15:04:05.000Z"

var archiveTimestampSafe = strings.NewReplacer(":", "-", ".", "-")

// LocalStore implements PayloadStore on the local filesystem. Live payloads
// sit in basePath, archive entries in archivePath.
type LocalStore struct {
	basePath    string
	archivePath string
	now         func() time.Time
}

// NewLocalStore creates a new local payload store. When archivePath is
// empty, a "backup" directory under basePath is used.
func NewLocalStore(basePath, archivePath string) *LocalStore {
	if archivePath == "" {
		archivePath = filepath.Join(basePath, "backup")
	}
	return &LocalStore{
		basePath:    basePath,
		archivePath: archivePath,
		now:         time.Now,
	}
}

// Save writes the payload under filename in the active area.
func (s *LocalStore) Save(_ context.Context, filename string, r io.Reader) error {
	if !domain.SafeFilename(filename) {
		return &domain.StorageError{
			Operation: "save",
			Filename:  filename,
			Err:       domain.ErrInvalidInput,
		}
	}

	if err := os.MkdirAll(s.basePath, 0750); err != nil {
		return &domain.StorageError{Operation: "save", Filename: filename, Err: err}
	}

	f, err := os.Create(filepath.Join(s.basePath, filename)) //#nosec G304 -- filename is checked above
	if err != nil {
		return &domain.StorageError{Operation: "save", Filename: filename, Err: err}
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		return &domain.StorageError{Operation: "save", Filename: filename, Err: err}
	}

	if err := f.Close(); err != nil {
		return &domain.StorageError{Operation: "save", Filename: filename, Err: err}
	}
	return nil
}

// ArchiveAndDelete copies the live payload into the archive area and then
// removes it. Absent payloads are a no-op, which makes concurrent deletes of
// the same filename safe.
func (s *LocalStore) ArchiveAndDelete(_ context.Context, filename string) error {
	if !domain.SafeFilename(filename) {
		return &domain.StorageError{
			Operation: "archive",
			Filename:  filename,
			Err:       domain.ErrInvalidInput,
		}
	}

	srcPath := filepath.Join(s.basePath, filename)
	if _, err := os.Stat(srcPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return &domain.StorageError{Operation: "archive", Filename: filename, Err: err}
	}

	if err := os.MkdirAll(s.archivePath, 0750); err != nil {
		return &domain.StorageError{Operation: "archive", Filename: filename, Err: err}
	}

	entryName := ArchiveEntryName(filename, s.now().UTC())
	if err := copyFile(srcPath, filepath.Join(s.archivePath, entryName)); err != nil {
		return &domain.StorageError{Operation: "archive", Filename: filename, Err: err}
	}

	if err := os.Remove(srcPath); err != nil {
		return &domain.StorageError{Operation: "delete", Filename: filename, Err: err}
	}
	return nil
}

// GetReader returns a reader for a live payload.
func (s *LocalStore) GetReader(_ context.Context, filename string) (io.ReadCloser, error) {
	if !domain.SafeFilename(filename) {
		return nil, &domain.StorageError{
			Operation: "read",
			Filename:  filename,
			Err:       domain.ErrInvalidInput,
		}
	}

	f, err := os.Open(filepath.Join(s.basePath, filename)) //#nosec G304 -- filename is checked above
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &domain.StorageError{
				Operation: "read",
				Filename:  filename,
				Err:       domain.ErrPayloadNotFound,
			}
		}
		return nil, &domain.StorageError{Operation: "read", Filename: filename, Err: err}
	}
	return f, nil
}

// Exists checks whether a live payload exists.
func (s *LocalStore) Exists(_ context.Context, filename string) (bool, error) {
	if !domain.SafeFilename(filename) {
		return false, nil
	}
	_, err := os.Stat(filepath.Join(s.basePath, filename))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// List returns all live GeoJSON payloads.
func (s *LocalStore) List(_ context.Context) ([]output.StorageObject, error) {
	return listDir(s.basePath)
}

// ListArchive returns all archive entries.
func (s *LocalStore) ListArchive(_ context.Context) ([]output.StorageObject, error) {
	return listDir(s.archivePath)
}

// FullPath returns the full path for a live payload.
func (s *LocalStore) FullPath(filename string) string {
	return filepath.Join(s.basePath, filename)
}

// listDir lists geojson files directly under dir. A missing directory
// yields an empty listing: the storage areas are created lazily on first
// write.
func listDir(dir string) ([]output.StorageObject, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var objects []output.StorageObject
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if !isGeoJSONFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			return nil, err
		}

		objects = append(objects, output.StorageObject{
			Key:          entry.Name(),
			Size:         info.Size(),
			LastModified: info.ModTime().Unix(),
		})
	}

	return objects, nil
}

// ArchiveEntryName combines the original filename with a filesystem-safe
// timestamp. Entries are never overwritten: the timestamp has millisecond
// precision, matching one entry per deletion.
func ArchiveEntryName(filename string, t time.Time) string {
	return fmt.Sprintf("%s.backup.%s", filename, archiveTimestampSafe.Replace(t.Format(archiveTimestampLayout)))
}

// isGeoJSONFile checks whether the name looks like a stored payload or an
// archive entry derived from one.
func isGeoJSONFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".geojson") || strings.Contains(lower, ".geojson.backup.")
}

// copyFile copies src to dst, failing if the copy cannot be completed.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //#nosec G304 -- paths are store-controlled
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst) //#nosec G304 -- paths are store-controlled
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
