package intake

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
	"github.com/aretw0/intake/pkg/requirements"
)

// Helpline is the national cyber crime helpline used in every referral.
const Helpline = "1930"

const portal = "https://cybercrime.gov.in"

var (
	msgWelcome = domain.Text("🙏 Welcome to the Cyber Crime Helpline.\n\nYou can type *back* to go to the previous step, *main menu* to start over, *exit* to end the conversation or *language* to change the language.")

	msgFallback = domain.Textf("⚠️ Something went wrong on our side. Please try again, or call the helpline %s.", Helpline)

	msgGoodbye = domain.Text("👋 Your session has ended. Send *hi* whenever you want to start again.")

	msgCompleted = domain.Text("Thank you for using the Cyber Crime Helpline. Send *hi* to start a new conversation.")

	msgTooLong = domain.Text("⚠️ That message is too long. Please send a shorter reply.")

	msgDuplicate = domain.Textf("⚠️ This identity is already registered with us. For help with an existing registration, call the helpline %s or visit %s.", Helpline, portal)

	msgTooManyAttempts = domain.Text("⚠️ That didn't work a few times in a row, so we took you back to the menu.")

	msgReminder = domain.Text("⏰ Are you still there? We saved your progress, just reply to continue.")

	msgExpired = domain.Text("⌛ Your previous session has expired. Let's start again.")

	msgStoreDown = domain.Textf("⚠️ We could not save your details right now. Please try again in a moment, or call %s.", Helpline)
)

// Language codes selectable by the user.
var languages = []domain.Option{
	{ID: "lang:en", Title: "English"},
	{ID: "lang:hi", Title: "हिन्दी"},
	{ID: "lang:or", Title: "ଓଡ଼ିଆ"},
}

func languageMenu() domain.Renderable {
	return domain.Choice("🌐 Choose your language", languages...)
}

var (
	optYes = domain.Option{ID: "yes", Title: "Yes"}
	optNo  = domain.Option{ID: "no", Title: "No"}
)

func menuPrompt(domain.Data) domain.Renderable {
	return domain.Choice("How can we help you today?",
		domain.Option{ID: "newComplaint", Title: "New Complaint"},
		domain.Option{ID: "checkStatus", Title: "Check Status"},
		domain.Option{ID: "more", Title: "More Options"},
	)
}

func moreMenuPrompt(domain.Data) domain.Renderable {
	return domain.Choice("More options:",
		domain.Option{ID: "accountFreeze", Title: "Account Freeze"},
		domain.Option{ID: "otherQueries", Title: "Other Queries"},
		domain.Option{ID: "back", Title: "Back"},
	)
}

func registrationSummary(d domain.Data) domain.Renderable {
	reg := string(domain.FlowRegistration)
	rows := []struct{ label, value string }{
		{"Name", firstOf(d.String(reg, "name"), verifiedField(d, "name"))},
		{"Father/Spouse/Guardian", d.String(reg, "guardianName")},
		{"Date of birth", firstOf(d.String(reg, "dateOfBirth"), verifiedField(d, "dateOfBirth"))},
		{"Phone", firstOf(d.String(reg, "phone"), d.String(domain.NamespaceSystem, sysChannelPhone))},
		{"Email", d.String(reg, "email")},
		{"Gender", d.String(reg, "gender")},
		{"Village", d.String(reg, "village")},
		{"PIN code", d.String(reg, "postalCode")},
		{"District", d.String(reg, "district")},
		{"Police station", d.String(reg, "policeStation")},
		{"Aadhar", maskTail(firstOf(d.String(reg, "nationalId"), verifiedField(d, "nationalId")))},
	}
	var sb strings.Builder
	for _, r := range rows {
		if r.value != "" {
			fmt.Fprintf(&sb, "*%s:* %s\n", r.label, r.value)
		}
	}
	return domain.Confirmation("📋 Please confirm your details", strings.TrimRight(sb.String(), "\n"),
		domain.Option{ID: "confirm", Title: "Confirm"},
		domain.Option{ID: "restart", Title: "Start Over"},
	)
}

func fraudTypeMenu(d domain.Data) domain.Renderable {
	category := domain.Category(d.String(string(domain.FlowComplaintFiling), "category"))
	if category == "" {
		category = domain.CategoryFinancial
	}
	types := requirements.FraudTypes(category)
	items := make([]string, len(types))
	for i, ft := range types {
		items[i] = ft.Description
	}
	return domain.Checklist(fmt.Sprintf("%s fraud types", category), "Reply with the number that best describes what happened:", items...)
}

func checklistIntro(caseID string, c requirements.Checklist) domain.Renderable {
	return domain.Checklist("📎 Documents required",
		fmt.Sprintf("Your case ID is *%s*. Please keep it safe.\nWe need the following, one at a time:", caseID),
		c.DisplayNames()...)
}

func evidencePrompt(key domain.EvidenceKey) flow.PromptFunc {
	return func(d domain.Data) domain.Renderable {
		item, _ := requirements.Item(key)
		keys := d.Strings(domain.NamespaceSystem, sysChecklist)
		pos := slices.Index(keys, string(key)) + 1
		title := item.DisplayName
		if pos > 0 {
			title = fmt.Sprintf("(%d/%d) %s", pos, len(keys), item.DisplayName)
		}
		body := requirements.Instructions(key)
		if key == domain.EvidenceIdentityDocument && d.Has(domain.NamespaceSystem, sysVerification) {
			return domain.Choice(title+"\n\n"+body+"\n\nOr use the ID you verified earlier.",
				domain.Option{ID: "useVerified", Title: "Use Verified ID"})
		}
		r := domain.Text(body)
		r.Title = title
		return r
	}
}

func modalityReminder(expected []domain.Modality, key domain.StepID) domain.Renderable {
	item, isEvidence := requirements.Item(domain.EvidenceKey(key))
	switch {
	case isEvidence && len(expected) > 0 && expected[0] == domain.ModalityImage:
		return domain.Textf("📷 Please send a photo of your %s.", item.DisplayName)
	case len(expected) == 1 && expected[0] == domain.ModalityText && isEvidence:
		return domain.Textf("⌨️ Please send the %s as a text message.", item.DisplayName)
	case slices.Contains(expected, domain.ModalityVoice):
		return domain.Text("⌨️ Please type your answer or send a voice note.")
	case slices.Contains(expected, domain.ModalityImage):
		return domain.Text("📷 Please send a photo.")
	}
	return domain.Text("⌨️ Please reply with text or tap one of the buttons.")
}

func caseStatus(c domain.CaseRecord) domain.Renderable {
	body := fmt.Sprintf("*Case ID:* %s\n*Category:* %s\n*Status:* %s\n*Documents:* %d\n*Filed:* %s",
		c.CaseID, c.Category, c.Status, c.Evidence, c.CreatedAt.Format("02 Jan 2006"))
	if ft, ok := requirements.Lookup(c.Category, c.FraudTypeKey); ok {
		body += "\n*Type:* " + ft.Description
	}
	return domain.Checklist("📄 Case status", body)
}

func freezeStatus(a domain.FrozenAccount) domain.Renderable {
	state := "Not frozen"
	if a.Frozen {
		state = "Frozen"
		if a.FreezeState != "" {
			state += " by " + a.FreezeState
		}
	}
	body := fmt.Sprintf("*Account:* %s\n*Bank:* %s\n*Status:* %s", maskAccount(a.AccountNumber), a.BankName, state)
	if !a.FreezeDate.IsZero() {
		body += "\n*Since:* " + a.FreezeDate.Format("02 Jan 2006")
	}
	if a.Reason != "" {
		body += "\n*Reason:* " + a.Reason
	}
	if a.ContactOffice != "" {
		body += "\n\nTo request an unfreeze, contact " + a.ContactOffice
		if a.ContactEmail != "" {
			body += " (" + a.ContactEmail + ")"
		}
		body += "."
	}
	return domain.Checklist("🏦 Account freeze status", body)
}

// maskAccount keeps the last four digits of an account number.
func maskAccount(n string) string {
	if len(n) <= 4 {
		return n
	}
	return "XXXX" + n[len(n)-4:]
}

func maskTail(n string) string {
	if len(n) <= 4 {
		return n
	}
	return strings.Repeat("X", len(n)-4) + n[len(n)-4:]
}

func firstOf(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
