package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"
	"time"

	"github.com/aretw0/intake/pkg/adapters/memory"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func encrypted(t *testing.T, next ports.SessionStore, cfg middleware.EncryptionConfig) ports.SessionStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	require.NoError(t, err)
	return mw(next)
}

func TestEncryptionMiddleware_Contract(t *testing.T) {
	store := encrypted(t, memory.NewStore(), middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ports.RunSessionStoreContract(t, store)
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	key := "+919876543210"
	original := domain.NewSession(key, domain.FlowRegistration, "nationalId", 4, time.Now())
	original.Data.Set("registration", "nationalId", "234567890123")

	require.NoError(t, secure.Save(ctx, key, original))

	stored, err := underlying.Load(ctx, key)
	require.NoError(t, err)
	assert.False(t, stored.Data.Has("registration", "nationalId"), "identity number must not be stored in clear")
	assert.Empty(t, stored.State)
	assert.True(t, stored.Data.Has(domain.NamespaceSystem, "__encrypted__"))

	loaded, err := secure.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "234567890123", loaded.Data.String("registration", "nationalId"))
	assert.Equal(t, domain.FlowRegistration, loaded.State)
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlying := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)
	ctx := context.Background()
	key := "rotation-user"

	oldStore := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: oldKey})
	s := domain.NewSession(key, domain.FlowEntry, "menu", 2, time.Now())
	s.Data.Set("system", "note", "encrypted-with-old-key")
	require.NoError(t, oldStore.Save(ctx, key, s))

	newStore := encrypted(t, underlying, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})
	loaded, err := newStore.Load(ctx, key)
	require.NoError(t, err, "fallback key decrypts old envelopes")
	assert.Equal(t, "encrypted-with-old-key", loaded.Data.String("system", "note"))

	loaded.Data.Set("system", "note", "encrypted-with-new-key")
	require.NoError(t, newStore.Save(ctx, key, loaded))

	_, err = oldStore.Load(ctx, key)
	assert.Error(t, err, "old key alone cannot read the re-encrypted envelope")
}

func TestEncryptionMiddleware_RejectsPlainSessions(t *testing.T) {
	underlying := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, underlying.Save(ctx, "plain", domain.NewSession("plain", domain.FlowEntry, "menu", 2, time.Now())))

	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	_, err := secure.Load(ctx, "plain")
	assert.ErrorIs(t, err, middleware.ErrNotSealed)
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	_, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")})
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestParseKey(t *testing.T) {
	raw := generateKey(t)
	key, err := middleware.ParseKey(base64.StdEncoding.EncodeToString(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, key)

	_, err = middleware.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, middleware.ErrKeySize)
}

func TestEncryptionMiddleware_EnvelopeBoundToKey(t *testing.T) {
	underlying := memory.NewStore()
	secure := encrypted(t, underlying, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	ctx := context.Background()

	require.NoError(t, secure.Save(ctx, "victim", domain.NewSession("victim", domain.FlowEntry, "menu", 2, time.Now())))
	env, err := underlying.Load(ctx, "victim")
	require.NoError(t, err)
	require.NoError(t, underlying.Save(ctx, "attacker", env))

	_, err = secure.Load(ctx, "attacker")
	assert.Error(t, err, "an envelope copied under another user key does not open")

	_, err = secure.Load(ctx, "victim")
	assert.NoError(t, err)
}
