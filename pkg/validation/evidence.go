package validation

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// DefaultUploadTimeout bounds a single evidence upload.
const DefaultUploadTimeout = 30 * time.Second

// Uploader stores evidence attachments.
type Uploader struct {
	store   ports.EvidenceStore
	timeout time.Duration
}

// NewUploader wraps an Evidence Store. A zero timeout uses DefaultUploadTimeout.
func NewUploader(store ports.EvidenceStore, timeout time.Duration) *Uploader {
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	return &Uploader{store: store, timeout: timeout}
}

// Upload checks the attachment and stores it under the case.
func (u *Uploader) Upload(ctx context.Context, caseID string, key domain.EvidenceKey, m *domain.Media) (domain.StoredEvidence, error) {
	if err := Image(string(key), m); err != nil {
		return domain.StoredEvidence{}, err
	}

	ctx, span := otel.Tracer("intake/validation").Start(ctx, "EvidenceStore.Put")
	span.SetAttributes(attribute.String("evidence", string(key)), attribute.Int("bytes", len(m.Data)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	stored, err := u.store.Put(ctx, caseID, key, m.Data, m.MIMEType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.StoredEvidence{}, &domain.ExternalLookupError{Collaborator: "evidence store", Err: err}
	}
	return stored, nil
}

// NewCaseID issues an identifier of the form CC{unix millis}{3 digits}.
func NewCaseID(now time.Time) string {
	return fmt.Sprintf("CC%d%03d", now.UnixMilli(), rand.IntN(1000))
}
