package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSUploader mirrors final run artifacts into a GCS bucket. It is optional
// infrastructure: the pipeline only constructs one when a bucket is
// configured, and upload failures degrade to warnings because the artifacts
// already exist on disk.
type GCSUploader struct {
	bucket string
	opts   []option.ClientOption
}

// NewGCSUploader creates an uploader for the given bucket. credentialsFile
// may be empty, in which case Application Default Credentials are used.
func NewGCSUploader(bucket, credentialsFile string) *GCSUploader {
	u := &GCSUploader{bucket: bucket}
	if credentialsFile != "" {
		u.opts = append(u.opts, option.WithCredentialsFile(credentialsFile))
	}
	return u
}

// UploadFile uploads one local file under runs/<runID>/<basename>.
func (u *GCSUploader) UploadFile(ctx context.Context, runID, filePath string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("export: open %q: %w", filePath, err)
	}
	defer f.Close()

	client, err := storage.NewClient(ctx, u.opts...)
	if err != nil {
		return fmt.Errorf("export: create storage client: %w", err)
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	objectName := path.Join("runs", runID, path.Base(filePath))
	w := client.Bucket(u.bucket).Object(objectName).NewWriter(ctx)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("export: copy %q to GCS writer: %w", filePath, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("export: finalize upload of %q: %w", filePath, err)
	}
	return nil
}

// UploadAll uploads every named artifact, returning the first error after
// attempting all of them.
func (u *GCSUploader) UploadAll(ctx context.Context, runID string, paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := u.UploadFile(ctx, runID, p); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
