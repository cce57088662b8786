package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// ErrObjectExists is returned by SaveToGCSAtomically when the object is
// already present.
var ErrObjectExists = errors.New("object already exists")

// SaveToGCSAtomically writes content to a GCS object only if it doesn't already exist.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName, contentType string, content []byte) (*storage.ObjectAttrs, error) {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}

	if _, err := io.Copy(writer, bytes.NewReader(content)); err != nil {
		_ = writer.Close()
		if IsPreconditionFailed(err) {
			slog.Warn("Skipping write, object already exists.", "object", objectName)
			return nil, ErrObjectExists
		}
		slog.Error("Failed to copy content to GCS object.", "object", objectName, "error", err)
		return nil, fmt.Errorf("failed to write to GCS: %w", err)
	}

	if err := writer.Close(); err != nil {
		if IsPreconditionFailed(err) {
			slog.Warn("Skipping write, object already exists.", "object", objectName)
			return nil, ErrObjectExists
		}
		slog.Error("Failed to close GCS writer.", "object", objectName, "error", err)
		return nil, fmt.Errorf("failed to finalize GCS write: %w", err)
	}
	return writer.Attrs(), nil
}

// IsPreconditionFailed reports a 412 from the GCS API.
func IsPreconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
