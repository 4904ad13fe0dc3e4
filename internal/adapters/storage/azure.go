package storage

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/output"
)

// AzureStore implements PayloadStore for Azure Blob Storage. Live payloads
// live under prefix, archive entries under archivePrefix.
type AzureStore struct {
	client        *azblob.Client
	container     string
	prefix        string
	archivePrefix string
	now           func() time.Time
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string
	AccountName      string
	AccountKey       string
	ConnectionString string
	Prefix           string
	ArchivePrefix    string
}

// NewAzureStore creates a new Azure Blob payload store.
func NewAzureStore(cfg AzureConfig) (*AzureStore, error) {
	var client *azblob.Client
	var err error

	if cfg.ConnectionString != "" {
		client, err = azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	} else {
		url := "https://" + cfg.AccountName + ".blob.core.windows.net/"
		cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
		if err != nil {
			return nil, err
		}
		client, err = azblob.NewClientWithSharedKeyCredential(url, cred, nil)
		if err != nil {
			return nil, err
		}
	}

	if err != nil {
		return nil, err
	}

	archivePrefix := cfg.ArchivePrefix
	if archivePrefix == "" {
		archivePrefix = joinPrefix(cfg.Prefix, "backup")
	}

	return &AzureStore{
		client:        client,
		container:     cfg.Container,
		prefix:        cfg.Prefix,
		archivePrefix: archivePrefix,
		now:           time.Now,
	}, nil
}

// Save uploads the payload under filename.
func (s *AzureStore) Save(ctx context.Context, filename string, r io.Reader) error {
	if !domain.SafeFilename(filename) {
		return &domain.StorageError{
			Operation: "save",
			Filename:  filename,
			Err:       domain.ErrInvalidInput,
		}
	}

	_, err := s.client.UploadStream(ctx, s.container, s.liveKey(filename), r, nil)
	if err != nil {
		return &domain.StorageError{Operation: "save", Filename: filename, Err: err}
	}
	return nil
}

// ArchiveAndDelete copies the live blob into the archive prefix, then
// removes it. Blob copy is stream-through: azblob has no same-container
// server-side copy on the service client. An absent blob is a no-op.
func (s *AzureStore) ArchiveAndDelete(ctx context.Context, filename string) error {
	resp, err := s.client.DownloadStream(ctx, s.container, s.liveKey(filename), nil)
	if err != nil {
		// Only a confirmed absent blob is a no-op. Anything else (network,
		// auth, throttling) must fail the delete so the catalog record
		// survives alongside the live payload.
		if isBlobNotFound(err) {
			return nil
		}
		return &domain.StorageError{Operation: "archive", Filename: filename, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	entryName := ArchiveEntryName(filename, s.now().UTC())
	_, err = s.client.UploadStream(ctx, s.container, joinPrefix(s.archivePrefix, entryName), resp.Body, nil)
	if err != nil {
		return &domain.StorageError{Operation: "archive", Filename: filename, Err: err}
	}

	_, err = s.client.DeleteBlob(ctx, s.container, s.liveKey(filename), nil)
	if err != nil {
		return &domain.StorageError{Operation: "delete", Filename: filename, Err: err}
	}
	return nil
}

// GetReader returns a reader for the given payload.
func (s *AzureStore) GetReader(ctx context.Context, filename string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.liveKey(filename), nil)
	if err != nil {
		if isBlobNotFound(err) {
			return nil, &domain.StorageError{
				Operation: "read",
				Filename:  filename,
				Err:       domain.ErrPayloadNotFound,
			}
		}
		return nil, &domain.StorageError{Operation: "read", Filename: filename, Err: err}
	}
	return resp.Body, nil
}

// Exists checks if a payload exists in Azure.
func (s *AzureStore) Exists(ctx context.Context, filename string) (bool, error) {
	_, err := s.client.DownloadStream(ctx, s.container, s.liveKey(filename), &azblob.DownloadStreamOptions{
		Range: azblob.HTTPRange{Offset: 0, Count: 1},
	})
	if err != nil {
		if isBlobNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns all live GeoJSON payloads in the container.
func (s *AzureStore) List(ctx context.Context) ([]output.StorageObject, error) {
	return s.listPrefix(ctx, s.prefix, s.archivePrefix)
}

// ListArchive returns all archive entries in the container.
func (s *AzureStore) ListArchive(ctx context.Context) ([]output.StorageObject, error) {
	return s.listPrefix(ctx, s.archivePrefix, "")
}

// listPrefix pages through all geojson blobs under prefix, skipping blobs
// under skipPrefix.
func (s *AzureStore) listPrefix(ctx context.Context, prefix, skipPrefix string) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{
		Prefix: &prefix,
	})

	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, blob := range page.Segment.BlobItems {
			obj, ok := s.blobToStorageObject(blob, prefix, skipPrefix)
			if ok {
				objects = append(objects, obj)
			}
		}
	}

	return objects, nil
}

// blobToStorageObject converts an Azure blob to a StorageObject.
// Returns false if the blob should be skipped.
func (s *AzureStore) blobToStorageObject(blob *container.BlobItem, prefix, skipPrefix string) (output.StorageObject, bool) {
	name := *blob.Name

	if skipPrefix != "" && strings.HasPrefix(name, skipPrefix) {
		return output.StorageObject{}, false
	}
	if !isGeoJSONFile(name) {
		return output.StorageObject{}, false
	}

	relKey := strings.TrimPrefix(name, prefix)
	relKey = strings.TrimPrefix(relKey, "/")

	obj := output.StorageObject{
		Key: relKey,
	}

	s.extractBlobProperties(blob, &obj)
	return obj, true
}

// extractBlobProperties extracts properties from an Azure blob.
func (s *AzureStore) extractBlobProperties(blob *container.BlobItem, obj *output.StorageObject) {
	if blob.Properties == nil {
		return
	}
	if blob.Properties.ContentLength != nil {
		obj.Size = *blob.Properties.ContentLength
	}
	if blob.Properties.LastModified != nil {
		obj.LastModified = blob.Properties.LastModified.Unix()
	}
	if blob.Properties.ETag != nil {
		obj.ETag = string(*blob.Properties.ETag)
	}
}

// liveKey returns the full blob name for a live payload.
func (s *AzureStore) liveKey(filename string) string {
	return joinPrefix(s.prefix, filename)
}

// isBlobNotFound reports whether err is the service stating the blob does
// not exist, as opposed to a transport, auth or throttling failure.
func isBlobNotFound(err error) bool {
	return bloberror.HasCode(err, bloberror.BlobNotFound)
}
