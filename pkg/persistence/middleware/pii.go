package middleware

import (
	"context"
	"errors"
	"regexp"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/ports"
)

// ErrReadOnly is returned by writes through a redacting view.
var ErrReadOnly = errors.New("store is a read-only redacted view")

// DefaultPIIPatterns match the session fields holding personal identifiers.
var DefaultPIIPatterns = []string{`(?i)identity`, `(?i)national`, `(?i)phone`, `(?i)email`, `(?i)dateOfBirth`, `(?i)otp`}

type piiMiddleware struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a read-only view that masks values of fields
// matching the patterns, in the session data and every history snapshot.
// Operators inspect sessions through it.
func NewPIIMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, key string, session *domain.Session) error {
	return ErrReadOnly
}

func (m *piiMiddleware) Load(ctx context.Context, key string) (*domain.Session, error) {
	s, err := m.next.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	// never mask the instance the next store may still hold
	masked := s.Clone()
	m.maskData(masked.Data)

	history := domain.NewHistory(masked.History.Cap())
	for _, snap := range masked.History.Entries() {
		m.maskData(snap.Data)
		history.Push(snap)
	}
	masked.History = history
	return masked, nil
}

func (m *piiMiddleware) Delete(ctx context.Context, key string) error {
	return ErrReadOnly
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) maskData(d domain.Data) {
	for _, fields := range d {
		maskMap(fields, m.patterns)
	}
}

func maskMap(fields map[string]any, patterns []*regexp.Regexp) {
	for k, v := range fields {
		masked := false
		for _, p := range patterns {
			if p.MatchString(k) {
				fields[k] = "***"
				masked = true
				break
			}
		}
		if masked {
			continue
		}
		if sub, ok := v.(map[string]any); ok {
			maskMap(sub, patterns)
		}
	}
}
