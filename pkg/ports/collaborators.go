package ports

//go:generate mockgen -source=collaborators.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// CaseStore persists finalized users and complaints.
type CaseStore interface {
	// SaveRegistration stores a user. A uniqueness violation is reported
	// as *domain.DuplicateRecordError naming the offending field.
	SaveRegistration(ctx context.Context, user domain.FinalizedUser) (string, error)
	SaveComplaint(ctx context.Context, complaint domain.FinalizedComplaint) (string, error)
	// FindUserByPhone returns domain.ErrNotFound when no user is registered.
	FindUserByPhone(ctx context.Context, phone string) (domain.FinalizedUser, error)
	LookupCase(ctx context.Context, caseID string) (domain.CaseRecord, error)
	// LookupFrozenAccount matches an account number, phone or identity number.
	LookupFrozenAccount(ctx context.Context, query string) (domain.FrozenAccount, error)
}

// EvidenceStore keeps the binary evidence of a case.
type EvidenceStore interface {
	Put(ctx context.Context, caseID string, key domain.EvidenceKey, blob []byte, mimeType string) (domain.StoredEvidence, error)
}

// AddressLookup resolves a postal code to an address.
type AddressLookup interface {
	// Resolve returns domain.ErrNotFound for unknown postal codes.
	Resolve(ctx context.Context, postalCode string) (domain.Address, error)
}

// IdentityVerifier is the identity-verification provider.
type IdentityVerifier interface {
	CreateSession(ctx context.Context, tag string) (domain.VerificationSession, error)
	GetDecision(ctx context.Context, sessionID string) (domain.VerificationDecision, error)
}

// Assistant is the natural-language assistant.
type Assistant interface {
	Refine(ctx context.Context, raw string) (string, error)
	Translate(ctx context.Context, text, targetLang string) (string, error)
	Answer(ctx context.Context, question string) (string, error)
}

// Transcriber converts a voice note to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// Mailer delivers one-time passwords.
type Mailer interface {
	SendOTP(ctx context.Context, email, code string) error
}

// EventPublisher emits lifecycle events for downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// Sender delivers an outbound renderable to a user.
type Sender interface {
	Send(ctx context.Context, userKey string, r domain.Renderable) error
}
