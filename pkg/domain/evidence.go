package domain

// EvidenceKey identifies an evidence category.
type EvidenceKey string

// The evidence universe.
const (
	EvidenceIdentityDocument           EvidenceKey = "identityDocument"
	EvidencePaymentInstrumentPhoto     EvidenceKey = "paymentInstrumentPhoto"
	EvidenceBankAccountProof           EvidenceKey = "bankAccountProof"
	EvidenceFinancialStatement         EvidenceKey = "financialStatement"
	EvidenceDebitMessages              EvidenceKey = "debitMessages"
	EvidenceTransactionReference       EvidenceKey = "transactionReference"
	EvidencePaymentStatement           EvidenceKey = "paymentStatement"
	EvidenceBeneficiaryDetails         EvidenceKey = "beneficiaryDetails"
	EvidenceRequestLetter              EvidenceKey = "requestLetter"
	EvidenceGovernmentID               EvidenceKey = "governmentId"
	EvidenceDisputedScreenshots        EvidenceKey = "disputedScreenshots"
	EvidenceDisputedContentURL         EvidenceKey = "disputedContentUrl"
	EvidenceOriginalIdentityScreenshot EvidenceKey = "originalIdentityScreenshot"
	EvidenceOriginalIdentityURL        EvidenceKey = "originalIdentityUrl"
)

// EvidenceItem is one piece of proof requested from the user.
type EvidenceItem struct {
	Key                EvidenceKey `json:"key"`
	DisplayName        string      `json:"display_name"`
	AcceptedModalities []Modality  `json:"accepted_modalities"`
}

// Accepts reports whether the item can be satisfied with a message of modality m.
func (e EvidenceItem) Accepts(m Modality) bool {
	for _, a := range e.AcceptedModalities {
		if a == m {
			return true
		}
	}
	return false
}

// Category is the top-level classification of a complaint.
type Category string

const (
	CategoryFinancial Category = "Financial"
	CategorySocial    Category = "Social"
)
