package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/mhollberg/strata/internal/domain"
	"github.com/mhollberg/strata/internal/ports/output"
)

// S3Store implements PayloadStore for AWS S3. Live payloads live under
// prefix, archive entries under archivePrefix.
type S3Store struct {
	client        *s3.Client
	bucket        string
	prefix        string
	archivePrefix string
	now           func() time.Time
}

// S3Config holds S3 configuration.
type S3Config struct {
	Bucket          string
	Region          string
	Prefix          string
	ArchivePrefix   string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// NewS3Store creates a new S3 payload store.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error

	opts = append(opts, config.WithRegion(cfg.Region))

	// Use explicit credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)

	archivePrefix := cfg.ArchivePrefix
	if archivePrefix == "" {
		archivePrefix = joinPrefix(cfg.Prefix, "backup")
	}

	return &S3Store{
		client:        client,
		bucket:        cfg.Bucket,
		prefix:        cfg.Prefix,
		archivePrefix: archivePrefix,
		now:           time.Now,
	}, nil
}

// Save uploads the payload under filename.
func (s *S3Store) Save(ctx context.Context, filename string, r io.Reader) error {
	if !domain.SafeFilename(filename) {
		return &domain.StorageError{
			Operation: "save",
			Filename:  filename,
			Err:       domain.ErrInvalidInput,
		}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.liveKey(filename)),
		Body:   r,
	})
	if err != nil {
		return &domain.StorageError{Operation: "save", Filename: filename, Err: err}
	}
	return nil
}

// ArchiveAndDelete copies the live object into the archive prefix, then
// removes it. An absent object is a no-op.
func (s *S3Store) ArchiveAndDelete(ctx context.Context, filename string) error {
	exists, err := s.Exists(ctx, filename)
	if err != nil {
		return &domain.StorageError{Operation: "archive", Filename: filename, Err: err}
	}
	if !exists {
		return nil
	}

	entryName := ArchiveEntryName(filename, s.now().UTC())
	_, err = s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(s.bucket),
		CopySource: aws.String(s.bucket + "/" + s.liveKey(filename)),
		Key:        aws.String(joinPrefix(s.archivePrefix, entryName)),
	})
	if err != nil {
		return &domain.StorageError{Operation: "archive", Filename: filename, Err: err}
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.liveKey(filename)),
	})
	if err != nil {
		return &domain.StorageError{Operation: "delete", Filename: filename, Err: err}
	}
	return nil
}

// GetReader returns a reader for the given payload.
func (s *S3Store) GetReader(ctx context.Context, filename string) (io.ReadCloser, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.liveKey(filename)),
	})
	if err != nil {
		if isObjectNotFound(err) {
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

// Exists checks if a payload exists in S3. Only a confirmed missing object
// yields false; transport or auth failures are returned as errors so that
// archive decisions are never made on a guess.
func (s *S3Store) Exists(ctx context.Context, filename string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.liveKey(filename)),
	})
	if err != nil {
		if isObjectNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// List returns all live GeoJSON payloads in the bucket.
func (s *S3Store) List(ctx context.Context) ([]output.StorageObject, error) {
	return s.listPrefix(ctx, s.prefix, s.archivePrefix)
}

// ListArchive returns all archive entries in the bucket.
func (s *S3Store) ListArchive(ctx context.Context) ([]output.StorageObject, error) {
	return s.listPrefix(ctx, s.archivePrefix, "")
}

// listPrefix pages through all geojson objects under prefix, skipping
// objects under skipPrefix.
func (s *S3Store) listPrefix(ctx context.Context, prefix, skipPrefix string) ([]output.StorageObject, error) {
	var objects []output.StorageObject

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}

		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)

			if skipPrefix != "" && strings.HasPrefix(key, skipPrefix) {
				continue
			}
			if !isGeoJSONFile(key) {
				continue
			}

			relKey := strings.TrimPrefix(key, prefix)
			relKey = strings.TrimPrefix(relKey, "/")

			objects = append(objects, output.StorageObject{
				Key:          relKey,
				Size:         aws.ToInt64(obj.Size),
				LastModified: obj.LastModified.Unix(),
				ETag:         strings.Trim(aws.ToString(obj.ETag), "\""),
			})
		}
	}

	return objects, nil
}

// liveKey returns the full S3 key for a live payload.
func (s *S3Store) liveKey(filename string) string {
	return joinPrefix(s.prefix, filename)
}

// isObjectNotFound reports whether err is the service stating the object
// does not exist. HeadObject surfaces this as NotFound, GetObject as
// NoSuchKey.
func isObjectNotFound(err error) bool {
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	return errors.As(err, &notFound) || errors.As(err, &noSuchKey)
}

// joinPrefix joins a key onto an optional prefix.
func joinPrefix(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}
