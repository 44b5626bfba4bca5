package domain

import "time"

// FinalizedUser is a completed registration handed to the Case Store.
type FinalizedUser struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	GuardianName   string    `json:"guardian_name"`
	DateOfBirth    string    `json:"date_of_birth"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	Gender         string    `json:"gender"`
	Village        string    `json:"village"`
	PostalCode     string    `json:"postal_code"`
	Area           string    `json:"area"`
	District       string    `json:"district"`
	SubRegion      string    `json:"sub_region"`
	PoliceStation  string    `json:"police_station"`
	IdentityNumber string    `json:"identity_number"`
	Verified       bool      `json:"verified"`
	CreatedAt      time.Time `json:"created_at"`
}

// StoredEvidence is the receipt returned by the Evidence Store.
type StoredEvidence struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// SubmittedEvidence is one collected item of a finalized complaint.
type SubmittedEvidence struct {
	Key         EvidenceKey `json:"key"`
	DisplayName string      `json:"display_name"`
	URL         string      `json:"url,omitempty"`
	PublicID    string      `json:"public_id,omitempty"`
	// Value carries text evidence such as a disputed URL.
	Value  string `json:"value,omitempty"`
	Source string `json:"source,omitempty"`
}

// FinalizedComplaint is a completed complaint handed to the Case Store.
type FinalizedComplaint struct {
	CaseID         string              `json:"case_id"`
	UserPhone      string              `json:"user_phone"`
	IdentityNumber string              `json:"identity_number"`
	Description    string              `json:"description"`
	Category       Category            `json:"category"`
	FraudTypeKey   string              `json:"fraud_type_key"`
	Evidence       []SubmittedEvidence `json:"evidence"`
	Impersonation  bool                `json:"impersonation,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
}

// CaseRecord is a stored complaint as returned by a status lookup.
type CaseRecord struct {
	CaseID       string    `json:"case_id"`
	Category     Category  `json:"category"`
	FraudTypeKey string    `json:"fraud_type_key"`
	Status       string    `json:"status"`
	Evidence     int       `json:"evidence"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FrozenAccount is the result of an account-freeze inquiry lookup.
type FrozenAccount struct {
	AccountNumber string    `json:"account_number"`
	BankName      string    `json:"bank_name"`
	HolderPhone   string    `json:"holder_phone"`
	Frozen        bool      `json:"frozen"`
	FreezeState   string    `json:"freeze_state"`
	FreezeDate    time.Time `json:"freeze_date"`
	Reason        string    `json:"reason"`
	ContactOffice string    `json:"contact_office"`
	ContactEmail  string    `json:"contact_email"`
}

// Address is the enrichment returned by Address Lookup for a postal code.
type Address struct {
	Area          string `json:"area"`
	District      string `json:"district"`
	SubRegion     string `json:"sub_region"`
	PoliceStation string `json:"police_station"`
}

// VerificationSession is an identity-verification session opened for a user.
type VerificationSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

// VerificationStatus is the provider decision state.
type VerificationStatus string

const (
	VerificationApproved VerificationStatus = "approved"
	VerificationPending  VerificationStatus = "pending"
	VerificationDeclined VerificationStatus = "declined"
)

// VerificationDecision is the provider's answer for a session.
type VerificationDecision struct {
	Status VerificationStatus `json:"status"`
	// Fields holds extracted identity attributes keyed by registration field name.
	Fields map[string]string `json:"fields,omitempty"`
	// Documents holds URLs of the document images captured by the provider.
	Documents []string `json:"documents,omitempty"`
}

// EventType names a published lifecycle event.
type EventType string

const (
	EventRegistrationSaved EventType = "registration.saved"
	EventComplaintFiled    EventType = "complaint.filed"
	EventSessionEvicted    EventType = "session.evicted"
)

// Event is a lifecycle notification published for downstream consumers.
type Event struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	UserKey    string         `json:"user_key"`
	OccurredAt time.Time      `json:"occurred_at"`
	Attributes map[string]any `json:"attributes,omitempty"`
}
