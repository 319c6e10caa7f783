package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
)

const documentContentType = "text/plain; charset=utf-8"

// ObjectWriterFunc opens a writer for bucket/object. The returned writer
// commits the object on Close.
type ObjectWriterFunc func(ctx context.Context, bucket, object string) io.WriteCloser

// Archiver stores generated order documents in Cloud Storage.
type Archiver struct {
	bucket string
	open   ObjectWriterFunc
}

// NewArchiver binds an archiver to bucket using a Cloud Storage client.
func NewArchiver(client *gcs.Client, bucket string) (*Archiver, error) {
	if client == nil {
		return nil, errors.New("storage archiver: client is required")
	}
	return NewArchiverWithWriter(bucket, func(ctx context.Context, bucket, object string) io.WriteCloser {
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		w.ContentType = documentContentType
		w.Metadata = map[string]string{"kind": "order-document"}
		return w
	})
}

// NewArchiverWithWriter builds an archiver around an arbitrary object writer.
func NewArchiverWithWriter(bucket string, open ObjectWriterFunc) (*Archiver, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, errors.New("storage archiver: bucket is required")
	}
	if open == nil {
		return nil, errors.New("storage archiver: writer is required")
	}
	return &Archiver{bucket: bucket, open: open}, nil
}

// ArchiveOrderDocument writes the document and returns its gs:// location.
func (a *Archiver) ArchiveOrderDocument(ctx context.Context, orderNumber string, createdAt time.Time, document []byte) (string, error) {
	object, err := OrderDocumentPath(orderNumber, createdAt)
	if err != nil {
		return "", err
	}
	w := a.open(ctx, a.bucket, object)
	if _, err := w.Write(document); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("storage: write %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("storage: commit %s: %w", object, err)
	}
	return "gs://" + a.bucket + "/" + object, nil
}
