package middleware

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// envelopeField is the system field carrying the sealed session.
const envelopeField = "__encrypted__"

// ErrKeySize is returned for keys that are not 32 bytes.
var ErrKeySize = errors.New("encryption key must be 32 bytes (AES-256)")

// ErrNotSealed is returned when the store holds a session that was saved
// without encryption.
var ErrNotSealed = errors.New("session is not encrypted")

// EncryptionConfig holds the keys for encryption and decryption.
type EncryptionConfig struct {
	// ActiveKey seals every save.
	ActiveKey []byte

	// FallbackKeys are tried in order when the active key cannot open an
	// envelope, so keys can be rotated without migrating stored sessions.
	FallbackKeys [][]byte
}

type sealer struct {
	next ports.SessionStore
	// aeads[0] is the active key.
	aeads []cipher.AEAD
}

// NewEncryptionMiddleware seals whole sessions with AES-256-GCM. Session
// data carries identity numbers and contact details, so the stored
// envelope exposes only the key, version and timestamps. The user key is
// bound as associated data: an envelope copied to another key fails to open.
func NewEncryptionMiddleware(config EncryptionConfig) (Middleware, error) {
	keys := append([][]byte{config.ActiveKey}, config.FallbackKeys...)
	aeads := make([]cipher.AEAD, 0, len(keys))
	for i, k := range keys {
		aead, err := newAEAD(k)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			return nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		aeads = append(aeads, aead)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &sealer{next: next, aeads: aeads}
	}, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ParseKey decodes a base64 encoded 32 byte key.
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(key) != 32 {
		return nil, ErrKeySize
	}
	return key, nil
}

func (s *sealer) Save(ctx context.Context, key string, session *domain.Session) error {
	plain, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	active := s.aeads[0]
	nonce := make([]byte, active.NonceSize(), active.NonceSize()+len(plain)+active.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("nonce: %w", err)
	}
	sealed := active.Seal(nonce, nonce, plain, []byte(key))

	envelope := &domain.Session{
		Key:          session.Key,
		Version:      session.Version,
		CreatedAt:    session.CreatedAt,
		LastActivity: session.LastActivity,
		Data:         domain.Data{},
		History:      domain.NewHistory(1),
	}
	envelope.Data.Set(domain.NamespaceSystem, envelopeField, base64.StdEncoding.EncodeToString(sealed))
	return s.next.Save(ctx, key, envelope)
}

func (s *sealer) Load(ctx context.Context, key string) (*domain.Session, error) {
	envelope, err := s.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	encoded := envelope.Data.String(domain.NamespaceSystem, envelopeField)
	if encoded == "" {
		return nil, ErrNotSealed
	}
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	plain, err := s.open(sealed, []byte(key))
	if err != nil {
		return nil, err
	}
	session := new(domain.Session)
	if err := json.Unmarshal(plain, session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return session, nil
}

// open tries the active key, then each fallback.
func (s *sealer) open(sealed, ad []byte) ([]byte, error) {
	for _, aead := range s.aeads {
		n := aead.NonceSize()
		if len(sealed) < n {
			return nil, errors.New("envelope too short")
		}
		if plain, err := aead.Open(nil, sealed[:n], sealed[n:], ad); err == nil {
			return plain, nil
		}
	}
	return nil, errors.New("envelope does not open with any configured key")
}

func (s *sealer) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}

func (s *sealer) List(ctx context.Context) ([]string, error) {
	return s.next.List(ctx)
}
