package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"cloud.google.com/go/storage"
	"github.com/mithun789/campus-Me/internal/gcp"
	"google.golang.org/api/iterator"
)

// GCSStore keeps blobs in a single Cloud Storage bucket, using keys as
// object names.
type GCSStore struct {
	client *storage.Client
	bucket *storage.BucketHandle
	name   string
}

// NewGCSStore creates a storage client for bucketName.
func NewGCSStore(ctx context.Context, bucketName string) (*GCSStore, error) {
	if bucketName == "" {
		return nil, fmt.Errorf("ARTIFACTS_BUCKET must be set for the gcs blob driver")
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: client.Bucket(bucketName), name: bucketName}, nil
}

func (s *GCSStore) Driver() Driver { return DriverGCS }

// Put writes the object with a does-not-exist precondition.
func (s *GCSStore) Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	k, err := CleanKey(key)
	if err != nil {
		return Info{}, err
	}
	content, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	attrs, err := gcp.SaveToGCSAtomically(ctx, s.bucket, k, opts.ContentType, content)
	if errors.Is(err, gcp.ErrObjectExists) {
		return Info{}, fmt.Errorf("%w: gs://%s/%s", ErrExists, s.name, k)
	}
	if err != nil {
		return Info{}, err
	}
	if len(opts.Metadata) > 0 {
		if _, err := s.bucket.Object(k).Update(ctx, storage.ObjectAttrsToUpdate{Metadata: opts.Metadata}); err != nil {
			return Info{}, fmt.Errorf("failed to set metadata on gs://%s/%s: %w", s.name, k, err)
		}
	}
	if attrs == nil {
		return Info{Key: k, Size: int64(len(content)), ContentType: opts.ContentType, Metadata: cloneMetadata(opts.Metadata)}, nil
	}
	info := fromAttrs(attrs)
	info.Metadata = cloneMetadata(opts.Metadata)
	return info, nil
}

func (s *GCSStore) Get(ctx context.Context, key string) (Info, io.ReadCloser, error) {
	reader, err := s.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return Info{}, nil, fmt.Errorf("%w: gs://%s/%s", ErrNotFound, s.name, key)
	}
	if err != nil {
		return Info{}, nil, fmt.Errorf("failed to get GCS object reader for gs://%s/%s: %w", s.name, key, err)
	}
	info := Info{
		Key:          key,
		Size:         reader.Attrs.Size,
		ContentType:  reader.Attrs.ContentType,
		LastModified: reader.Attrs.LastModified,
	}
	return info, reader, nil
}

func (s *GCSStore) Delete(ctx context.Context, key string) (bool, error) {
	err := s.bucket.Object(key).Delete(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete gs://%s/%s: %w", s.name, key, err)
	}
	return true, nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]Info, error) {
	it := s.bucket.Objects(ctx, &storage.Query{Prefix: prefix})
	var infos []Info
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list gs://%s/%s: %w", s.name, prefix, err)
		}
		infos = append(infos, fromAttrs(attrs))
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Close releases the underlying storage client.
func (s *GCSStore) Close() error { return s.client.Close() }

func fromAttrs(a *storage.ObjectAttrs) Info {
	return Info{
		Key:          a.Name,
		Size:         a.Size,
		ContentType:  a.ContentType,
		ETag:         a.Etag,
		Metadata:     cloneMetadata(a.Metadata),
		LastModified: a.Updated,
	}
}
