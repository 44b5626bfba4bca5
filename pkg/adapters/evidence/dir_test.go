package evidence

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirStore_Put(t *testing.T) {
	root := filepath.Join(t.TempDir(), "evidence")
	s, err := NewDirStore(root, "https://intake.example/evidence/")
	require.NoError(t, err)

	blob := []byte{0xff, 0xd8, 0xff, 0xe0}
	stored, err := s.Put(context.Background(), "CC1772359200000123", domain.EvidenceIdentityDocument, blob, "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(stored.URL, "https://intake.example/evidence/CC1772359200000123/identityDocument-"), stored.URL)
	assert.True(t, strings.HasSuffix(stored.URL, ".jpg"))

	got, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(stored.PublicID)))
	require.NoError(t, err)
	assert.Equal(t, blob, got)

	entries, err := os.ReadDir(filepath.Join(root, "CC1772359200000123"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files are left behind")
}

func TestDirStore_RejectsTraversal(t *testing.T) {
	s, err := NewDirStore(t.TempDir(), "")
	require.NoError(t, err)

	_, err = s.Put(context.Background(), "../etc", domain.EvidenceIdentityDocument, []byte("x"), "image/png")
	assert.Error(t, err)
}

func TestDirStore_DefaultURL(t *testing.T) {
	root := t.TempDir()
	s, err := NewDirStore(root, "")
	require.NoError(t, err)

	stored, err := s.Put(context.Background(), "CC1", domain.EvidenceGovernmentID, []byte("x"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stored.URL, "file://"))
	assert.True(t, strings.HasSuffix(stored.URL, ".png"))
}
