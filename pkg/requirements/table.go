package requirements

import "github.com/aretw0/intake/pkg/domain"

// TableVersion identifies the revision of the static requirement table.
// Bump it whenever a fraud type gains or loses evidence.
const TableVersion = 3

// ImpersonationCheck is the checklist checkpoint appended to every social
// media checklist. It is answered with yes/no and is not itself evidence.
const ImpersonationCheck domain.EvidenceKey = "impersonationCheck"

var (
	images   = []domain.Modality{domain.ModalityImage}
	textOnly = []domain.Modality{domain.ModalityText}
	answers  = []domain.Modality{domain.ModalityText, domain.ModalityButton}
)

type evidenceEntry struct {
	item         domain.EvidenceItem
	instructions string
}

var evidence = map[domain.EvidenceKey]evidenceEntry{
	domain.EvidenceIdentityDocument: {
		item: domain.EvidenceItem{
			Key:                domain.EvidenceIdentityDocument,
			DisplayName:        "Aadhar Card / PAN Card",
			AcceptedModalities: []domain.Modality{domain.ModalityImage, domain.ModalityButton},
		},
		instructions: "Upload a clear photo of your Aadhar card or PAN card. All four corners must be visible.",
	},
	domain.EvidencePaymentInstrumentPhoto: {
		item:         domain.EvidenceItem{Key: domain.EvidencePaymentInstrumentPhoto, DisplayName: "Debit Card / Credit Card Photo", AcceptedModalities: images},
		instructions: "Upload a photo of the front of the card. Cover the CVV before taking it.",
	},
	domain.EvidenceBankAccountProof: {
		item:         domain.EvidenceItem{Key: domain.EvidenceBankAccountProof, DisplayName: "Bank Account Front Page", AcceptedModalities: images},
		instructions: "Upload the front page of your passbook or a cancelled cheque showing the account number.",
	},
	domain.EvidenceFinancialStatement: {
		item:         domain.EvidenceItem{Key: domain.EvidenceFinancialStatement, DisplayName: "Bank Statement (highlighting fraudulent transactions)", AcceptedModalities: images},
		instructions: "Upload your bank statement with the fraudulent transactions highlighted.",
	},
	domain.EvidenceDebitMessages: {
		item:         domain.EvidenceItem{Key: domain.EvidenceDebitMessages, DisplayName: "Debit Messages (SMS screenshots)", AcceptedModalities: images},
		instructions: "Upload screenshots of the debit SMS messages you received.",
	},
	domain.EvidenceTransactionReference: {
		item:         domain.EvidenceItem{Key: domain.EvidenceTransactionReference, DisplayName: "UPI Transaction Screenshots (with UTR number)", AcceptedModalities: images},
		instructions: "Upload screenshots of the transactions. The UTR or reference number must be readable.",
	},
	domain.EvidencePaymentStatement: {
		item:         domain.EvidenceItem{Key: domain.EvidencePaymentStatement, DisplayName: "Credit Card Statement/Screenshots", AcceptedModalities: images},
		instructions: "Upload the credit card statement or screenshots showing the disputed charges.",
	},
	domain.EvidenceBeneficiaryDetails: {
		item:         domain.EvidenceItem{Key: domain.EvidenceBeneficiaryDetails, DisplayName: "Beneficiary Account Details (with transaction reference)", AcceptedModalities: images},
		instructions: "Upload a screenshot of the account or UPI ID the money was sent to, with the transaction reference.",
	},
	domain.EvidenceRequestLetter: {
		item:         domain.EvidenceItem{Key: domain.EvidenceRequestLetter, DisplayName: "Request Letter (Acknowledgement Screenshot)", AcceptedModalities: images},
		instructions: "Upload a screenshot of the acknowledgement you received after reporting to the platform.",
	},
	domain.EvidenceGovernmentID: {
		item:         domain.EvidenceItem{Key: domain.EvidenceGovernmentID, DisplayName: "Aadhar Card / Any Govt. Issue ID", AcceptedModalities: images},
		instructions: "Upload a photo of your Aadhar, PAN, Voter ID or Passport.",
	},
	domain.EvidenceDisputedScreenshots: {
		item:         domain.EvidenceItem{Key: domain.EvidenceDisputedScreenshots, DisplayName: "Disputed Screenshots", AcceptedModalities: images},
		instructions: "Upload screenshots of the fake profile, posts or messages.",
	},
	domain.EvidenceDisputedContentURL: {
		item:         domain.EvidenceItem{Key: domain.EvidenceDisputedContentURL, DisplayName: "Alleged URL (Uniform Resource Locator)", AcceptedModalities: textOnly},
		instructions: "Send the full link of the fake profile or post as text, e.g. https://facebook.com/fake.profile",
	},
	domain.EvidenceOriginalIdentityScreenshot: {
		item:         domain.EvidenceItem{Key: domain.EvidenceOriginalIdentityScreenshot, DisplayName: "Original ID Screenshot", AcceptedModalities: images},
		instructions: "Upload a screenshot of your genuine profile.",
	},
	domain.EvidenceOriginalIdentityURL: {
		item:         domain.EvidenceItem{Key: domain.EvidenceOriginalIdentityURL, DisplayName: "Original ID URL", AcceptedModalities: textOnly},
		instructions: "Send the full link of your genuine profile as text.",
	},
	ImpersonationCheck: {
		item:         domain.EvidenceItem{Key: ImpersonationCheck, DisplayName: "Fake/Impersonation ID Check", AcceptedModalities: answers},
		instructions: "Is someone impersonating you with a fake profile?",
	},
}

// FraudType is one row of the requirement table.
type FraudType struct {
	Number      int
	Key         string
	Title       string
	Description string
	Category    domain.Category
	Evidence    []domain.EvidenceKey
}

const (
	id          = domain.EvidenceIdentityDocument
	card        = domain.EvidencePaymentInstrumentPhoto
	account     = domain.EvidenceBankAccountProof
	statement   = domain.EvidenceFinancialStatement
	reference   = domain.EvidenceTransactionReference
	ccStatement = domain.EvidencePaymentStatement
	beneficiary = domain.EvidenceBeneficiaryDetails
)

var financial = []FraudType{
	{1, "investmentFraud", "Investment/Trading/IPO", "Investment/Trading/IPO Fraud", domain.CategoryFinancial, keys(id, account, statement, beneficiary)},
	{2, "customerCareFraud", "Customer Care", "Customer Care Fraud", domain.CategoryFinancial, keys(id, account, statement, reference)},
	{3, "upiFraud", "UPI Fraud", "UPI Fraud (UPI/IMPS/INB/NEFT/RTGS)", domain.CategoryFinancial, keys(id, account, reference, beneficiary)},
	{4, "apkFraud", "APK Fraud", "APK Fraud", domain.CategoryFinancial, keys(id, account, statement, reference)},
	{5, "franchiseeFraud", "Fake Franchisee", "Fake Franchisee/Dealership Fraud", domain.CategoryFinancial, keys(id, statement, beneficiary)},
	{6, "jobFraud", "Online Job", "Online Job Fraud", domain.CategoryFinancial, keys(id, statement, beneficiary)},
	{7, "debitCardFraud", "Debit Card", "Debit Card Fraud", domain.CategoryFinancial, keys(id, card, account, statement)},
	{8, "creditCardFraud", "Credit Card", "Credit Card Fraud", domain.CategoryFinancial, keys(id, card, ccStatement)},
	{9, "ecommerceFraud", "E-Commerce", "E-Commerce Fraud", domain.CategoryFinancial, keys(id, statement)},
	{10, "loanAppFraud", "Loan App", "Loan App Fraud", domain.CategoryFinancial, keys(id, statement, beneficiary)},
	{11, "sextortionFraud", "Sextortion", "Sextortion Fraud", domain.CategoryFinancial, keys(id)},
	{12, "olxFraud", "OLX Fraud", "OLX Fraud", domain.CategoryFinancial, keys(id, statement, reference, beneficiary)},
	{13, "lotteryFraud", "Lottery", "Lottery Fraud", domain.CategoryFinancial, keys(id, statement, beneficiary)},
	{14, "hotelBookingFraud", "Hotel Booking", "Hotel Booking Fraud", domain.CategoryFinancial, keys(id, statement)},
	{15, "gamingAppFraud", "Gaming App", "Gaming App Fraud", domain.CategoryFinancial, keys(id, statement, reference)},
	{16, "aepsFraud", "AEPS Fraud", "AEPS Fraud (Aadhar Enabled Payment System)", domain.CategoryFinancial, keys(id, account, statement)},
	{17, "towerInstallationFraud", "Tower Installation", "Tower Installation Fraud", domain.CategoryFinancial, keys(id, statement, beneficiary)},
	{18, "ewalletFraud", "E-Wallet", "E-Wallet Fraud", domain.CategoryFinancial, keys(id, reference, beneficiary)},
	{19, "digitalArrestFraud", "Digital Arrest", "Digital Arrest Fraud", domain.CategoryFinancial, keys(id, statement, reference)},
	{20, "fakeWebsiteFraud", "Fake Website", "Fake Website Scam Fraud", domain.CategoryFinancial, keys(id, statement, beneficiary)},
	{21, "ticketBookingFraud", "Ticket Booking", "Ticket Booking Fraud", domain.CategoryFinancial, keys(id, statement)},
	{22, "insuranceFraud", "Insurance Maturity", "Insurance Maturity Fraud", domain.CategoryFinancial, keys(id, statement, beneficiary)},
	{23, "otherFinancialFraud", "Others", "Others", domain.CategoryFinancial, keys(id, statement)},
}

var socialEvidence = keys(
	domain.EvidenceRequestLetter,
	domain.EvidenceGovernmentID,
	domain.EvidenceDisputedScreenshots,
	domain.EvidenceDisputedContentURL,
)

var social = []FraudType{
	{1, "facebookFraud", "Facebook", "Facebook Fraud", domain.CategorySocial, socialEvidence},
	{2, "instagramFraud", "Instagram", "Instagram Fraud", domain.CategorySocial, socialEvidence},
	{3, "whatsappFraud", "WhatsApp", "WhatsApp Fraud", domain.CategorySocial, socialEvidence},
	{4, "telegramFraud", "Telegram", "Telegram Fraud", domain.CategorySocial, socialEvidence},
	{5, "twitterFraud", "X (Twitter)", "X (Twitter) Fraud", domain.CategorySocial, socialEvidence},
	{6, "gmailFraud", "Gmail", "Gmail Fraud", domain.CategorySocial, socialEvidence},
	{7, "fraudCall", "Fraud Call", "Fraud Call", domain.CategorySocial, socialEvidence},
}

var defaultEvidence = keys(id, statement)

var reportLinks = map[string]string{
	"twitterFraud":  "https://help.x.com/en/forms/account-access",
	"whatsappFraud": "https://www.whatsapp.com/contact/forms/1534459096974129",
	"telegramFraud": "https://telegram.org/support",
}

const metaReportLink = "https://help.meta.com/requests/1371776380779082/"

func keys(k ...domain.EvidenceKey) []domain.EvidenceKey { return k }
