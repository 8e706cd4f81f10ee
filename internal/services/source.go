// Package services implements the pipeline's external collaborators on GCP:
// the GCS source store, the Vertex AI classifier and extractor, and the
// Cloud Workflows retraining hand-off.
package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/ufindi/findocflow/internal/models"
)

// GCSSourceStore resolves source byte references of the form
// "bucket/object/path" against Cloud Storage.
type GCSSourceStore struct {
	client *storage.Client
}

func NewGCSSourceStore(client *storage.Client) *GCSSourceStore {
	return &GCSSourceStore{client: client}
}

func splitRef(ref string) (bucket, object string, err error) {
	ref = strings.TrimPrefix(ref, "gs://")
	i := strings.IndexByte(ref, '/')
	if i <= 0 || i == len(ref)-1 {
		return "", "", &models.InvalidInputError{Reason: fmt.Sprintf("malformed source reference %q, want bucket/object", ref)}
	}
	return ref[:i], ref[i+1:], nil
}

// Stat verifies the referenced object exists without reading it.
func (s *GCSSourceStore) Stat(ctx context.Context, ref string) error {
	bucket, object, err := splitRef(ref)
	if err != nil {
		return err
	}
	if _, err := s.client.Bucket(bucket).Object(object).Attrs(ctx); err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return &models.NotFoundError{Kind: "source object", ID: ref}
		}
		return fmt.Errorf("failed to stat %s: %w", ref, err)
	}
	return nil
}

// FetchBytes streams the referenced object fully into memory. Documents are
// page-bounded uploads, not bulk data; the pipeline re-reads them per stage
// rather than caching.
func (s *GCSSourceStore) FetchBytes(ctx context.Context, ref string) ([]byte, error) {
	bucket, object, err := splitRef(ref)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, &models.NotFoundError{Kind: "source object", ID: ref}
		}
		return nil, fmt.Errorf("failed to open %s: %w", ref, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return data, nil
}

// ValidatePDF checks that uploaded bytes are a structurally sound PDF and
// returns its page count. Intake rejects files that no stage could process.
func ValidatePDF(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, &models.InvalidInputError{Reason: fmt.Sprintf("unreadable PDF: %v", err)}
	}
	if pageCount < 1 {
		return 0, &models.InvalidInputError{Reason: "PDF has no pages"}
	}
	return pageCount, nil
}
