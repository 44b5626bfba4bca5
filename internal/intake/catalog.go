package intake

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
	"github.com/aretw0/intake/pkg/requirements"
	"github.com/aretw0/intake/pkg/validation"
	"github.com/google/uuid"
)

// Router-owned values in the system namespace.
const (
	sysChannelPhone = "channelPhone"
	sysVerification = "verificationSession"
	sysVerified     = "verified"
	sysOTPDigest    = "otpDigest"
	sysOTPExpiry    = "otpExpiresAt"
	sysRegistered   = "registeredUser"
	sysUserID       = "userId"
	sysCaseID       = "caseId"
	sysChecklist    = "checklist"
)

var (
	nsEntry     = string(domain.FlowEntry)
	nsReg       = string(domain.FlowRegistration)
	nsComplaint = string(domain.FlowComplaintFiling)
	nsDocs      = string(domain.FlowDocumentCollection)
	nsSocial    = string(domain.FlowSocialMediaDocumentCollection)
)

// financialEvidence lists every item a financial checklist may hold.
var financialEvidence = []domain.EvidenceKey{
	domain.EvidenceIdentityDocument,
	domain.EvidencePaymentInstrumentPhoto,
	domain.EvidenceBankAccountProof,
	domain.EvidenceFinancialStatement,
	domain.EvidenceDebitMessages,
	domain.EvidenceTransactionReference,
	domain.EvidencePaymentStatement,
	domain.EvidenceBeneficiaryDetails,
}

var socialEvidence = []domain.EvidenceKey{
	domain.EvidenceRequestLetter,
	domain.EvidenceGovernmentID,
	domain.EvidenceDisputedScreenshots,
	domain.EvidenceDisputedContentURL,
	requirements.ImpersonationCheck,
	domain.EvidenceOriginalIdentityScreenshot,
	domain.EvidenceOriginalIdentityURL,
}

// flows binds the step validators to the collaborators they call.
type flows struct {
	svc      Services
	address  *validation.AddressEnricher
	uploader *validation.Uploader
}

// NewCatalog declares every intake flow. The entry flow comes first.
func NewCatalog(svc Services) *flow.Catalog {
	svc = svc.withDefaults()
	f := &flows{
		svc: svc,
		address: validation.NewAddressEnricher(svc.Address,
			validation.WithLookupTimeout(svc.Timeouts.Lookup),
			validation.WithEnricherLogger(svc.Logger)),
		uploader: validation.NewUploader(svc.Evidence, svc.Timeouts.Upload),
	}
	return flow.NewCatalog(
		f.entry(),
		f.registration(),
		f.complaintFiling(),
		f.documentCollection(),
		f.socialMediaDocumentCollection(),
		f.statusCheck(),
		f.accountFreezeInquiry(),
		f.otherQueries(),
	)
}

// pick matches a button ID, an option title or its 1-based number.
func pick(field, in string, opts ...domain.Option) (string, error) {
	v := strings.ToLower(strings.TrimSpace(in))
	for i, o := range opts {
		if v == strings.ToLower(o.ID) || v == strings.ToLower(o.Title) || v == strconv.Itoa(i+1) {
			return o.ID, nil
		}
	}
	return "", domain.Invalid(field, "Please choose one of the options.")
}

func (f *flows) now() time.Time { return f.svc.Clock() }

func (f *flows) entry() *flow.Definition {
	b := flow.New(domain.FlowEntry, "Main menu")

	b.Step("menu").
		Prompt(menuPrompt).
		Validate(func(ctx context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
			choice, err := pick("menu", in.Text, menuPrompt(d).Options...)
			if err != nil {
				return flow.Outcome{}, err
			}
			switch choice {
			case "newComplaint":
				return f.startComplaint(ctx, in)
			case "checkStatus":
				return flow.Outcome{Handoff: domain.FlowStatusCheck}, nil
			}
			return flow.Accept("menu", choice), nil
		})

	b.Step("moreMenu").
		Prompt(moreMenuPrompt).
		SkipIf(func(d domain.Data) bool { return d.String(nsEntry, "menu") != "more" }).
		Validate(func(ctx context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
			choice, err := pick("moreMenu", in.Text, moreMenuPrompt(d).Options...)
			if err != nil {
				return flow.Outcome{}, err
			}
			switch choice {
			case "accountFreeze":
				return flow.Outcome{Handoff: domain.FlowAccountFreezeInquiry}, nil
			case "otherQueries":
				return flow.Outcome{Handoff: domain.FlowOtherQueries}, nil
			}
			return flow.Outcome{Goto: "menu"}, nil
		})

	return b.Next(domain.FlowEntry).
		Handoffs(domain.FlowRegistration, domain.FlowComplaintFiling, domain.FlowStatusCheck,
			domain.FlowAccountFreezeInquiry, domain.FlowOtherQueries).
		Build()
}

// startComplaint skips registration for users already known by their
// channel phone.
func (f *flows) startComplaint(ctx context.Context, in flow.Input) (flow.Outcome, error) {
	phone := validation.PhoneFromUserKey(in.UserKey)
	out := flow.Outcome{
		Values:  map[string]any{"menu": "newComplaint"},
		Handoff: domain.FlowRegistration,
	}
	if phone == "" {
		return out, nil
	}
	out.System = map[string]any{sysChannelPhone: phone}

	lctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Store)
	defer cancel()
	user, err := f.svc.Cases.FindUserByPhone(lctx, phone)
	switch {
	case err == nil:
		out.System[sysRegistered] = map[string]any{
			"id":             user.ID,
			"name":           user.Name,
			"identityNumber": user.IdentityNumber,
			"phone":          user.Phone,
		}
		out.Handoff = domain.FlowComplaintFiling
		return out.Reply(domain.Textf("👋 Welcome back, %s. Let's file your complaint.", user.Name)), nil
	case errors.Is(err, domain.ErrNotFound):
		return out, nil
	default:
		f.svc.Metrics.IncrementCollaboratorError("case store")
		f.svc.Logger.Warn("registered user lookup failed", "error", err)
		return out, nil
	}
}

func verifiedField(d domain.Data, field string) string {
	v, _ := d.Map(domain.NamespaceSystem, sysVerified)[field].(string)
	return v
}

func verified(field string) flow.Predicate {
	return func(d domain.Data) bool { return verifiedField(d, field) != "" }
}

func (f *flows) registration() *flow.Definition {
	b := flow.New(domain.FlowRegistration, "Registration")

	identityOpts := []domain.Option{
		{ID: "verify", Title: "Verify with ID"},
		{ID: "manual", Title: "Enter Manually"},
	}
	b.Step("identityCheck").
		Choice("🪪 How would you like to register?\n\nVerifying with your ID fills in your details automatically.", identityOpts...).
		SkipIf(func(domain.Data) bool { return f.svc.Verifier == nil }).
		Validate(func(ctx context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
			choice, err := pick("identityCheck", in.Text, identityOpts...)
			if err != nil || choice == "manual" {
				return flow.Accept("identityCheck", choice), err
			}
			vctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Verification)
			defer cancel()
			vs, err := f.svc.Verifier.CreateSession(vctx, in.UserKey)
			if err != nil {
				f.svc.Metrics.IncrementCollaboratorError("identity verification")
				f.svc.Logger.Warn("create verification session failed", "error", err)
				return flow.Accept("identityCheck", "manual").
					Reply(domain.Text("⚠️ ID verification is unavailable right now. Let's continue manually.")), nil
			}
			return flow.Outcome{
				Values: map[string]any{"identityCheck": "verify"},
				System: map[string]any{sysVerification: vs.SessionID},
			}.Reply(domain.Textf("🔗 Open this link to verify your identity:\n%s", vs.URL)), nil
		})

	pendingOpts := []domain.Option{
		{ID: "done", Title: "Done"},
		{ID: "manual", Title: "Enter Manually"},
	}
	b.Step("verificationPending").
		Choice("Tap *Done* once you have finished the verification.", pendingOpts...).
		SkipIf(func(d domain.Data) bool { return d.String(nsReg, "identityCheck") != "verify" }).
		Validate(func(ctx context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
			choice, err := pick("verificationPending", in.Text, pendingOpts...)
			if err != nil || choice == "manual" {
				return flow.Accept("verificationPending", choice), err
			}
			return f.fetchDecision(ctx, d.String(domain.NamespaceSystem, sysVerification))
		})

	b.Step("name").
		Text("Please enter your full name:").
		SkipIf(verified("name")).
		Validate(textField("name", validation.Name))

	b.Step("guardianName").
		Text("Please enter your father's, spouse's or guardian's name:").
		Validate(textField("guardianName", validation.Name))

	b.Step("dateOfBirth").
		Text("Please enter your date of birth (DD/MM/YYYY):").
		SkipIf(verified("dateOfBirth")).
		Validate(func(_ context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			v, err := validation.Date(in.Text, f.now())
			return flow.Accept("dateOfBirth", v), err
		})

	b.Step("phone").
		Text("Please enter your 10-digit mobile number:").
		SkipIf(func(d domain.Data) bool { return d.Has(domain.NamespaceSystem, sysChannelPhone) }).
		Validate(plain("phone", validation.Phone))

	b.Step("email").
		Text("Please enter your email address:").
		Validate(f.sendOTP)

	b.Step("emailOtp").
		Prompt(func(d domain.Data) domain.Renderable {
			return domain.Choice(fmt.Sprintf("📧 Enter the 6-digit code we sent to %s.", firstOf(d.String(nsReg, "email"), "your email")),
				domain.Option{ID: "reenterEmail", Title: "Re-enter Email"})
		}).
		SkipIf(func(d domain.Data) bool { return !d.Has(domain.NamespaceSystem, sysOTPDigest) }).
		Validate(f.checkOTP)

	genders := []domain.Option{
		{ID: "male", Title: "Male"},
		{ID: "female", Title: "Female"},
		{ID: "others", Title: "Others"},
	}
	b.Step("gender").
		Choice("Please select your gender:", genders...).
		Validate(func(_ context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			v, err := pick("gender", in.Text, genders...)
			return flow.Accept("gender", v), err
		})

	b.Step("village").
		Text("Please enter your village or area:").
		Validate(textField("village", func(field, in string) (string, error) { return validation.MinLength(field, 2, in) }))

	b.Step("postalCode").
		Text("Please enter your PIN code (6 digits):").
		Owns("area", "district", "subRegion", "policeStation").
		Validate(func(ctx context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			pin, addr, err := f.address.Enrich(ctx, in.Text)
			if err != nil {
				return flow.Outcome{}, err
			}
			values := validation.Fields(addr)
			values["postalCode"] = pin
			return flow.Outcome{Values: values}.
				Reply(domain.Textf("📍 %s, %s, %s", addr.Area, addr.District, addr.SubRegion)), nil
		})

	b.Step("nationalId").
		Text("Please enter your 12-digit Aadhar number:").
		SkipIf(verified("nationalId")).
		Validate(plain("nationalId", validation.NationalID))

	b.Step("confirmation").
		Prompt(registrationSummary).
		Validate(f.confirmRegistration)

	return b.OnEnter(issueUserID).Next(domain.FlowComplaintFiling).Build()
}

// textField adapts a (field, input) validator into a step validator.
func textField(field string, fn func(field, in string) (string, error)) flow.Validator {
	return func(_ context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
		v, err := fn(field, in.Text)
		return flow.Accept(field, v), err
	}
}

func plain(field string, fn func(in string) (string, error)) flow.Validator {
	return func(_ context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
		v, err := fn(in.Text)
		return flow.Accept(field, v), err
	}
}

func (f *flows) fetchDecision(ctx context.Context, sessionID string) (flow.Outcome, error) {
	vctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Verification)
	defer cancel()
	dec, err := f.svc.Verifier.GetDecision(vctx, sessionID)
	if err != nil {
		f.svc.Metrics.IncrementCollaboratorError("identity verification")
		f.svc.Logger.Warn("fetch verification decision failed", "error", err)
		return flow.Accept("verificationPending", "failed").
			Reply(domain.Text("⚠️ We could not fetch your verification result. Let's continue manually.")), nil
	}

	switch dec.Status {
	case domain.VerificationPending:
		return flow.Outcome{}, domain.Invalid("verificationPending", "Your verification is still in progress. Tap Done once it is complete.")
	case domain.VerificationDeclined:
		return flow.Accept("verificationPending", "declined").
			Reply(domain.Text("⚠️ Your verification was not approved. Let's continue manually.")), nil
	}

	fields := map[string]any{}
	for _, k := range []string{"name", "dateOfBirth", "nationalId"} {
		if v := dec.Fields[k]; v != "" {
			fields[k] = v
		}
	}
	if dob, ok := fields["dateOfBirth"].(string); ok {
		if norm, err := validation.Date(dob, f.now()); err == nil {
			fields["dateOfBirth"] = norm
		} else {
			delete(fields, "dateOfBirth")
		}
	}
	if len(dec.Documents) > 0 {
		docs := make([]any, len(dec.Documents))
		for i, d := range dec.Documents {
			docs[i] = d
		}
		fields["documents"] = docs
	}
	return flow.Outcome{
		Values: map[string]any{"verificationPending": "approved"},
		System: map[string]any{sysVerified: fields},
	}.Reply(domain.Text("✅ Identity verified. We filled in the details from your ID.")), nil
}

func (f *flows) sendOTP(ctx context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
	email, err := validation.Email(in.Text)
	if err != nil {
		return flow.Outcome{}, err
	}
	out := flow.Accept("email", email)
	if f.svc.Mailer == nil {
		return out, nil
	}
	otp, err := validation.IssueOTP(email, f.now())
	if err != nil {
		return flow.Outcome{}, err
	}
	mctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Store)
	defer cancel()
	if err := f.svc.Mailer.SendOTP(mctx, email, otp.Code); err != nil {
		f.svc.Metrics.IncrementCollaboratorError("mailer")
		f.svc.Logger.Warn("send otp failed", "error", err)
		out.System = map[string]any{sysOTPDigest: ""}
		return out.Reply(domain.Text("⚠️ We could not send a verification code. Continuing without email verification.")), nil
	}
	out.System = map[string]any{
		sysOTPDigest: otp.Digest,
		sysOTPExpiry: otp.ExpiresAt.UTC().Format(time.RFC3339),
	}
	return out, nil
}

func (f *flows) checkOTP(_ context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
	if strings.EqualFold(strings.TrimSpace(in.Text), "reenterEmail") {
		return flow.Outcome{System: map[string]any{sysOTPDigest: ""}, Goto: "email"}, nil
	}
	expires, _ := time.Parse(time.RFC3339, d.String(domain.NamespaceSystem, sysOTPExpiry))
	err := validation.VerifyOTP(in.Text, d.String(nsReg, "email"), d.String(domain.NamespaceSystem, sysOTPDigest), expires, f.now())
	if err != nil {
		return flow.Outcome{}, err
	}
	return flow.Accept("emailOtp", "verified").Reply(domain.Text("✅ Email verified.")), nil
}

func (f *flows) confirmRegistration(ctx context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
	choice, err := pick("confirmation", in.Text, registrationSummary(d).Options...)
	if err != nil {
		return flow.Outcome{}, err
	}
	if choice == "restart" {
		return flow.Outcome{Goto: "name"}, nil
	}

	user := finalizedUser(d, f.now())
	id, saved, err := f.saveRegistration(ctx, user)
	if err != nil {
		return flow.Outcome{}, err
	}
	if saved {
		f.svc.publish(ctx, domain.Event{
			Type:       domain.EventRegistrationSaved,
			OccurredAt: f.now(),
			Attributes: map[string]any{"user_id": id, "district": user.District},
		})
	}
	out := flow.Outcome{
		Values: map[string]any{"confirmation": "confirmed"},
		System: map[string]any{sysRegistered: map[string]any{
			"id":             id,
			"name":           user.Name,
			"identityNumber": user.IdentityNumber,
			"phone":          user.Phone,
		}},
	}
	return out.Reply(domain.Text("✅ Registration complete. Now let's record your complaint.")), nil
}

// issueUserID gives the registration its user ID before anything is saved.
func issueUserID(_ context.Context, d domain.Data) ([]domain.Renderable, error) {
	if !d.Has(domain.NamespaceSystem, sysUserID) {
		d.Set(domain.NamespaceSystem, sysUserID, uuid.NewString())
	}
	return nil, nil
}

// saveRegistration stores user. A clash with the record this session
// already saved is not a duplicate; saved reports whether this call wrote it.
func (f *flows) saveRegistration(ctx context.Context, user domain.FinalizedUser) (id string, saved bool, err error) {
	sctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Store)
	defer cancel()
	id, err = f.svc.Cases.SaveRegistration(sctx, user)
	if err == nil {
		return id, true, nil
	}
	var dup *domain.DuplicateRecordError
	if !errors.As(err, &dup) {
		return "", false, &domain.ExternalLookupError{Collaborator: "case store", Err: err}
	}
	if user.ID != "" && user.Phone != "" {
		existing, ferr := f.svc.Cases.FindUserByPhone(sctx, user.Phone)
		if ferr == nil && existing.ID == user.ID {
			f.svc.Logger.Debug("registration already saved", "user_id", user.ID)
			return user.ID, false, nil
		}
	}
	return "", false, err
}

func finalizedUser(d domain.Data, now time.Time) domain.FinalizedUser {
	return domain.FinalizedUser{
		ID:             d.String(domain.NamespaceSystem, sysUserID),
		Name:           firstOf(d.String(nsReg, "name"), verifiedField(d, "name")),
		GuardianName:   d.String(nsReg, "guardianName"),
		DateOfBirth:    firstOf(d.String(nsReg, "dateOfBirth"), verifiedField(d, "dateOfBirth")),
		Phone:          firstOf(d.String(nsReg, "phone"), d.String(domain.NamespaceSystem, sysChannelPhone)),
		Email:          d.String(nsReg, "email"),
		Gender:         d.String(nsReg, "gender"),
		Village:        d.String(nsReg, "village"),
		PostalCode:     d.String(nsReg, "postalCode"),
		Area:           d.String(nsReg, "area"),
		District:       d.String(nsReg, "district"),
		SubRegion:      d.String(nsReg, "subRegion"),
		PoliceStation:  d.String(nsReg, "policeStation"),
		IdentityNumber: firstOf(d.String(nsReg, "nationalId"), verifiedField(d, "nationalId")),
		Verified:       d.String(nsReg, "verificationPending") == "approved",
		CreatedAt:      now,
	}
}

func (f *flows) complaintFiling() *flow.Definition {
	b := flow.New(domain.FlowComplaintFiling, "Complaint filing")

	b.Step("description").
		Text("📝 Please describe what happened, in as much detail as you can. You can also send a voice note.").
		Accept(domain.ModalityText, domain.ModalityVoice).
		Owns("descriptionSource").
		Validate(f.describe)

	categories := []domain.Option{
		{ID: string(domain.CategoryFinancial), Title: "Financial Fraud"},
		{ID: string(domain.CategorySocial), Title: "Social Media Fraud"},
	}
	b.Step("category").
		Choice("What kind of fraud was it?", categories...).
		Validate(func(_ context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			v, err := pick("category", in.Text, categories...)
			return flow.Accept("category", v), err
		})

	b.Step("fraudType").
		Prompt(fraudTypeMenu).
		Validate(func(_ context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
			category := domain.Category(d.String(nsComplaint, "category"))
			types := requirements.FraudTypes(category)
			n, err := validation.Number("fraudType", in.Text, 1, len(types))
			if err != nil {
				return flow.Outcome{}, err
			}
			ft, _ := requirements.FraudTypeByNumber(category, n)
			return flow.Accept("fraudType", ft.Key), nil
		})

	return b.Branch(func(d domain.Data) domain.FlowID {
		if domain.Category(d.String(nsComplaint, "category")) == domain.CategorySocial {
			return domain.FlowSocialMediaDocumentCollection
		}
		return domain.FlowDocumentCollection
	}, domain.FlowDocumentCollection, domain.FlowSocialMediaDocumentCollection).Build()
}

// describe accepts a typed description or transcribes and refines a voice note.
func (f *flows) describe(ctx context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
	text, source := in.Text, "text"
	var replies []domain.Renderable

	if in.Modality == domain.ModalityVoice {
		if f.svc.Transcriber == nil || in.Media == nil {
			return flow.Outcome{}, &domain.ExternalLookupError{Collaborator: "transcriber"}
		}
		tctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Transcribe)
		raw, err := f.svc.Transcriber.Transcribe(tctx, in.Media.Data, in.Media.MIMEType)
		cancel()
		if err != nil || strings.TrimSpace(raw) == "" {
			return flow.Outcome{}, &domain.ExternalLookupError{Collaborator: "transcriber", Err: err}
		}
		text, source = raw, "voice"
		if f.svc.Assistant != nil {
			actx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Assistant)
			refined, err := f.svc.Assistant.Refine(actx, raw)
			cancel()
			if err == nil && strings.TrimSpace(refined) != "" {
				text = refined
			} else if err != nil {
				f.svc.Metrics.IncrementCollaboratorError("assistant")
				f.svc.Logger.Warn("refine transcription failed", "error", err)
			}
		}
		replies = append(replies, domain.Textf("🎙️ We understood:\n\n%s", strings.TrimSpace(text)))
	}

	desc, err := validation.MinLength("description", 10, text)
	if err != nil {
		return flow.Outcome{}, err
	}
	return flow.Outcome{
		Values:  map[string]any{"description": desc, "descriptionSource": source},
		Replies: replies,
	}, nil
}

// checklistOrder sequences an evidence flow by the checklist held in data,
// framed by optional leading and trailing steps.
func checklistOrder(lead, trail []domain.StepID) func(domain.Data) []domain.StepID {
	return func(d domain.Data) []domain.StepID {
		keys := d.Strings(domain.NamespaceSystem, sysChecklist)
		out := make([]domain.StepID, 0, len(lead)+len(keys)+len(trail))
		out = append(out, lead...)
		for _, k := range keys {
			out = append(out, domain.StepID(k))
		}
		return append(out, trail...)
	}
}

// openCase issues the case ID and stores the checklist for category.
func (f *flows) openCase(category domain.Category, social bool) func(context.Context, domain.Data) ([]domain.Renderable, error) {
	return func(_ context.Context, d domain.Data) ([]domain.Renderable, error) {
		c := requirements.Resolve(category, d.String(nsComplaint, "fraudType"))
		if social {
			c = c.WithImpersonationCheck()
		}
		caseID := d.String(domain.NamespaceSystem, sysCaseID)
		if caseID == "" {
			caseID = validation.NewCaseID(f.now())
			d.Set(domain.NamespaceSystem, sysCaseID, caseID)
		}
		d.Set(domain.NamespaceSystem, sysChecklist, c.Keys())
		return []domain.Renderable{checklistIntro(caseID, c)}, nil
	}
}

func (f *flows) documentCollection() *flow.Definition {
	b := flow.New(domain.FlowDocumentCollection, "Document collection")
	for _, key := range financialEvidence {
		f.evidenceStep(b, nsDocs, key)
	}
	return b.Order(checklistOrder(nil, nil)).
		OnEnter(f.openCase(domain.CategoryFinancial, false)).
		OnFinish(f.fileComplaint(nsDocs)).
		Next(domain.FlowCompletion).
		Build()
}

func (f *flows) socialMediaDocumentCollection() *flow.Definition {
	b := flow.New(domain.FlowSocialMediaDocumentCollection, "Social media document collection")

	b.Step("platformRegistration").
		Prompt(func(d domain.Data) domain.Renderable {
			link := requirements.PlatformReportLink(d.String(nsComplaint, "fraudType"))
			return domain.Choice(fmt.Sprintf("🔗 First, report the account to the platform using this form:\n%s\n\nKeep the acknowledgement, you will upload it next.", link),
				domain.Option{ID: "done", Title: "I'm Done"})
		}).
		Validate(func(_ context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			v, err := pick("platformRegistration", in.Text, domain.Option{ID: "done", Title: "I'm Done"})
			return flow.Accept("platformRegistration", v), err
		})

	for _, key := range socialEvidence {
		if key == requirements.ImpersonationCheck {
			continue
		}
		f.evidenceStep(b, nsSocial, key)
		if key == domain.EvidenceDisputedContentURL {
			b.Step(domain.StepID(requirements.ImpersonationCheck)).
				Choice("🎭 Is someone using a fake profile to impersonate you?", optYes, optNo).
				Validate(impersonation)
		}
	}

	submit := []domain.Option{{ID: "submit", Title: "Submit"}}
	b.Step("finalConfirmation").
		Prompt(func(d domain.Data) domain.Renderable {
			c := requirements.FromKeys(d.Strings(domain.NamespaceSystem, sysChecklist)...)
			names := make([]string, 0, len(c))
			for _, item := range c {
				if item.Key != requirements.ImpersonationCheck {
					names = append(names, "✅ "+item.DisplayName)
				}
			}
			return domain.Confirmation("📋 Ready to submit", strings.Join(names, "\n"), submit...)
		}).
		Validate(func(_ context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			v, err := pick("finalConfirmation", in.Text, submit...)
			return flow.Accept("finalConfirmation", v), err
		})

	return b.Order(checklistOrder([]domain.StepID{"platformRegistration"}, []domain.StepID{"finalConfirmation"})).
		OnEnter(f.openCase(domain.CategorySocial, true)).
		OnFinish(f.fileComplaint(nsSocial)).
		Next(domain.FlowCompletion).
		Build()
}

// impersonation inserts the original-identity evidence after the checkpoint
// on a yes and drops it on a no, so an answer changed after going back wins.
func impersonation(_ context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
	v, err := pick(string(requirements.ImpersonationCheck), in.Text, optYes, optNo)
	if err != nil {
		return flow.Outcome{}, err
	}
	c := requirements.FromKeys(d.Strings(domain.NamespaceSystem, sysChecklist)...)
	if v == "yes" {
		c = c.InsertAfter(requirements.ImpersonationCheck, requirements.ImpersonationEvidence()...)
	} else {
		c = c.Without(requirements.ImpersonationEvidence()...)
	}
	out := flow.Accept(string(requirements.ImpersonationCheck), v == "yes")
	out.System = map[string]any{sysChecklist: c.Keys()}
	return out, nil
}

func (f *flows) evidenceStep(b *flow.Builder, ns string, key domain.EvidenceKey) {
	item, _ := requirements.Item(key)
	b.Step(domain.StepID(key)).
		Prompt(evidencePrompt(key)).
		Accept(item.AcceptedModalities...).
		Validate(f.collect(ns, item))
}

// collect stores one evidence item: an uploaded image, a text value, or
// for the identity document the images captured during verification.
func (f *flows) collect(ns string, item domain.EvidenceItem) flow.Validator {
	field := string(item.Key)
	return func(ctx context.Context, in flow.Input, d domain.Data) (flow.Outcome, error) {
		var value map[string]any
		switch in.Modality {
		case domain.ModalityImage:
			stored, err := f.uploader.Upload(ctx, d.String(domain.NamespaceSystem, sysCaseID), item.Key, in.Media)
			if err != nil {
				return flow.Outcome{}, err
			}
			value = map[string]any{"url": stored.URL, "publicId": stored.PublicID, "source": "upload"}
		case domain.ModalityButton:
			url, err := f.verifiedDocument(ctx, in.Text, d)
			if err != nil {
				return flow.Outcome{}, err
			}
			value = map[string]any{"url": url, "source": "verified"}
		default:
			v, err := validation.URL(field, in.Text)
			if err != nil {
				return flow.Outcome{}, err
			}
			value = map[string]any{"value": v, "source": "text"}
		}
		return flow.Accept(field, value).Reply(domain.Textf("✅ %s received.", item.DisplayName)), nil
	}
}

// verifiedDocument fetches the identity document captured by the verifier.
func (f *flows) verifiedDocument(ctx context.Context, choice string, d domain.Data) (string, error) {
	if !strings.EqualFold(strings.TrimSpace(choice), "useVerified") {
		return "", domain.Invalid(string(domain.EvidenceIdentityDocument), "Please upload a photo of your ID.")
	}
	if docs := d.Map(domain.NamespaceSystem, sysVerified)["documents"]; docs != nil {
		if list, ok := docs.([]any); ok && len(list) > 0 {
			if url, ok := list[0].(string); ok && url != "" {
				return url, nil
			}
		}
	}
	sessionID := d.String(domain.NamespaceSystem, sysVerification)
	if f.svc.Verifier == nil || sessionID == "" {
		return "", &domain.ExternalLookupError{Collaborator: "identity verification"}
	}
	vctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Verification)
	defer cancel()
	dec, err := f.svc.Verifier.GetDecision(vctx, sessionID)
	if err == nil && dec.Status == domain.VerificationApproved && len(dec.Documents) > 0 {
		return dec.Documents[0], nil
	}
	if err == nil {
		err = fmt.Errorf("no document for status %s", dec.Status)
	}
	return "", &domain.ExternalLookupError{Collaborator: "identity verification", Err: err}
}

// fileComplaint hands the finished complaint to the Case Store.
func (f *flows) fileComplaint(ns string) func(context.Context, domain.Data) ([]domain.Renderable, error) {
	return func(ctx context.Context, d domain.Data) ([]domain.Renderable, error) {
		c := finalizedComplaint(ns, d, f.now())
		sctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Store)
		defer cancel()
		caseID, err := f.svc.Cases.SaveComplaint(sctx, c)
		var dup *domain.DuplicateRecordError
		switch {
		case errors.As(err, &dup) && dup.Field == "caseId" && c.CaseID != "":
			// case IDs are issued per session, so this one is already filed
			f.svc.Logger.Debug("complaint already filed", "case_id", c.CaseID)
			return []domain.Renderable{filedMessage(c.CaseID)}, nil
		case dup != nil:
			return nil, err
		case err != nil:
			return nil, &domain.ExternalLookupError{Collaborator: "case store", Err: err}
		}
		f.svc.publish(ctx, domain.Event{
			Type:       domain.EventComplaintFiled,
			OccurredAt: f.now(),
			Attributes: map[string]any{
				"case_id":    caseID,
				"category":   string(c.Category),
				"fraud_type": c.FraudTypeKey,
				"evidence":   len(c.Evidence),
			},
		})
		return []domain.Renderable{filedMessage(caseID)}, nil
	}
}

func filedMessage(caseID string) domain.Renderable {
	return domain.Textf("✅ Your complaint has been registered.\n\n*Case ID:* %s\n\nUse *Check Status* from the main menu to follow it up. For urgent help call %s.", caseID, Helpline)
}

func finalizedComplaint(ns string, d domain.Data, now time.Time) domain.FinalizedComplaint {
	c := domain.FinalizedComplaint{
		CaseID:       d.String(domain.NamespaceSystem, sysCaseID),
		Description:  d.String(nsComplaint, "description"),
		Category:     domain.Category(d.String(nsComplaint, "category")),
		FraudTypeKey: d.String(nsComplaint, "fraudType"),
		CreatedAt:    now,
	}
	if reg := d.Map(domain.NamespaceSystem, sysRegistered); reg != nil {
		c.IdentityNumber, _ = reg["identityNumber"].(string)
		c.UserPhone, _ = reg["phone"].(string)
	}
	if c.UserPhone == "" {
		c.UserPhone = d.String(domain.NamespaceSystem, sysChannelPhone)
	}
	if v, ok := d.Get(ns, string(requirements.ImpersonationCheck)); ok {
		c.Impersonation, _ = v.(bool)
	}
	for _, item := range requirements.FromKeys(d.Strings(domain.NamespaceSystem, sysChecklist)...) {
		v := d.Map(ns, string(item.Key))
		if v == nil {
			continue
		}
		ev := domain.SubmittedEvidence{Key: item.Key, DisplayName: item.DisplayName}
		ev.URL, _ = v["url"].(string)
		ev.PublicID, _ = v["publicId"].(string)
		ev.Value, _ = v["value"].(string)
		ev.Source, _ = v["source"].(string)
		c.Evidence = append(c.Evidence, ev)
	}
	return c
}

func (f *flows) statusCheck() *flow.Definition {
	b := flow.New(domain.FlowStatusCheck, "Status check")
	b.Step("caseId").
		Text("🔎 Please enter your case ID (it starts with CC):").
		Validate(func(ctx context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			id, err := validation.CaseID(in.Text)
			if err != nil {
				return flow.Outcome{}, err
			}
			lctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Store)
			defer cancel()
			rec, err := f.svc.Cases.LookupCase(lctx, id)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return flow.Outcome{}, domain.Invalid("caseId", "No complaint found with this case ID. Please check it and try again.")
			case err != nil:
				return flow.Outcome{}, &domain.ExternalLookupError{Collaborator: "case store", Err: err}
			}
			return flow.Accept("caseId", id).Reply(caseStatus(rec)), nil
		})
	return b.Next(domain.FlowCompletion).Build()
}

func (f *flows) accountFreezeInquiry() *flow.Definition {
	b := flow.New(domain.FlowAccountFreezeInquiry, "Account freeze inquiry")
	b.Step("query").
		Text("🏦 Please enter your bank account number, or the phone or Aadhar number linked to it:").
		Validate(func(ctx context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			q, err := validation.FreezeQuery(in.Text)
			if err != nil {
				return flow.Outcome{}, err
			}
			lctx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Store)
			defer cancel()
			acct, err := f.svc.Cases.LookupFrozenAccount(lctx, q)
			switch {
			case errors.Is(err, domain.ErrNotFound):
				return flow.Accept("query", q).Reply(domain.Textf("ℹ️ We found no freeze record for %s. If your account is blocked, contact your bank or call %s.", maskAccount(q), Helpline)), nil
			case err != nil:
				return flow.Outcome{}, &domain.ExternalLookupError{Collaborator: "case store", Err: err}
			}
			return flow.Accept("query", q).Reply(freezeStatus(acct)), nil
		})
	return b.Next(domain.FlowCompletion).Build()
}

func (f *flows) otherQueries() *flow.Definition {
	b := flow.New(domain.FlowOtherQueries, "Other queries")

	b.Step("question").
		Text("❓ What would you like to know? Ask about cyber safety, reporting or the complaint process.").
		Validate(func(ctx context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			q, err := validation.Bounded("question", 3, 500, in.Text)
			if err != nil {
				return flow.Outcome{}, err
			}
			out := flow.Accept("question", q)
			if f.svc.Assistant == nil {
				return out.Reply(domain.Textf("For this question please call the helpline %s or visit %s.", Helpline, portal)), nil
			}
			actx, cancel := context.WithTimeout(ctx, f.svc.Timeouts.Assistant)
			defer cancel()
			answer, err := f.svc.Assistant.Answer(actx, q)
			if err != nil || strings.TrimSpace(answer) == "" {
				f.svc.Metrics.IncrementCollaboratorError("assistant")
				f.svc.Logger.Warn("answer query failed", "error", err)
				return out.Reply(domain.Textf("⚠️ We could not answer right now. Please call %s or visit %s.", Helpline, portal)), nil
			}
			return out.Reply(domain.Text(answer)), nil
		})

	follow := []domain.Option{
		{ID: "another", Title: "Ask Another"},
		{ID: "mainMenu", Title: "Main Menu"},
	}
	b.Step("followUp").
		Choice("Anything else?", follow...).
		Validate(func(_ context.Context, in flow.Input, _ domain.Data) (flow.Outcome, error) {
			v, err := pick("followUp", in.Text, follow...)
			switch {
			case err != nil:
				return flow.Outcome{}, err
			case v == "another":
				return flow.Outcome{Goto: "question"}, nil
			}
			return flow.Outcome{Handoff: domain.FlowEntry}, nil
		})

	return b.Next(domain.FlowEntry).Build()
}
