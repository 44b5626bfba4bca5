// Package evidence stores uploaded evidence on the local filesystem, one
// directory per case.
package evidence

import (
	"context"
	"fmt"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/google/uuid"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// DirStore implements ports.EvidenceStore under a root directory. Stored
// files are addressed as baseURL/caseID/name.
type DirStore struct {
	root    string
	baseURL string
}

// NewDirStore creates root when missing.
func NewDirStore(root, baseURL string) (*DirStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create evidence dir: %w", err)
	}
	if baseURL == "" {
		baseURL = "file://" + filepath.ToSlash(root)
	}
	return &DirStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root returns the storage directory.
func (s *DirStore) Root() string { return s.root }

// Put writes the blob atomically through a temp file.
func (s *DirStore) Put(ctx context.Context, caseID string, key domain.EvidenceKey, blob []byte, mimeType string) (domain.StoredEvidence, error) {
	if err := ctx.Err(); err != nil {
		return domain.StoredEvidence{}, err
	}
	if !safeName.MatchString(caseID) || !safeName.MatchString(string(key)) {
		return domain.StoredEvidence{}, fmt.Errorf("invalid evidence path %q/%q", caseID, key)
	}

	dir := filepath.Join(s.root, caseID)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return domain.StoredEvidence{}, fmt.Errorf("create case dir: %w", err)
	}

	id := uuid.NewString()
	name := fmt.Sprintf("%s-%s%s", key, id, extension(mimeType))
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return domain.StoredEvidence{}, fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(blob); err != nil {
		_ = tmp.Close()
		return domain.StoredEvidence{}, fmt.Errorf("write evidence: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.StoredEvidence{}, fmt.Errorf("close evidence: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		return domain.StoredEvidence{}, fmt.Errorf("store evidence: %w", err)
	}

	return domain.StoredEvidence{
		URL:      s.baseURL + "/" + url.PathEscape(caseID) + "/" + url.PathEscape(name),
		PublicID: caseID + "/" + name,
	}, nil
}

func extension(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	}
	if exts, err := mime.ExtensionsByType(mimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}
