package requirements_test

import (
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/requirements"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_EveryTypeResolvesToKnownEvidence(t *testing.T) {
	for _, category := range []domain.Category{domain.CategoryFinancial, domain.CategorySocial} {
		types := requirements.FraudTypes(category)
		require.NotEmpty(t, types)
		seen := map[string]bool{}
		for i, ft := range types {
			assert.Equal(t, i+1, ft.Number, "numbers are contiguous")
			assert.False(t, seen[ft.Key], "duplicate key %s", ft.Key)
			seen[ft.Key] = true

			got := requirements.Resolve(category, ft.Key)
			assert.Len(t, got, len(ft.Evidence), "%s names unknown evidence", ft.Key)
			assert.True(t, len(got) >= 1 && len(got) <= 4, "%s has %d items", ft.Key, len(got))
			for _, item := range got {
				assert.NotEmpty(t, item.DisplayName)
				assert.NotEmpty(t, item.AcceptedModalities)
				assert.NotEmpty(t, requirements.Instructions(item.Key))
			}
		}
	}
	assert.Len(t, requirements.FraudTypes(domain.CategoryFinancial), 23)
	assert.Len(t, requirements.FraudTypes(domain.CategorySocial), 7)
}

func TestResolve_CreditCardFraud(t *testing.T) {
	got := requirements.Resolve(domain.CategoryFinancial, "creditCardFraud")
	assert.Equal(t, []string{"identityDocument", "paymentInstrumentPhoto", "paymentStatement"}, got.Keys())
}

func TestResolve_UnmappedFallsBackToDefault(t *testing.T) {
	want := []string{"identityDocument", "financialStatement"}
	assert.Equal(t, want, requirements.Resolve(domain.CategoryFinancial, "martianFraud").Keys())
	assert.Equal(t, want, requirements.Resolve("", "").Keys())
	assert.Equal(t, want, requirements.Resolve(domain.CategorySocial, "creditCardFraud").Keys(), "keys are category scoped")
}

func TestNextItem(t *testing.T) {
	c := requirements.Resolve(domain.CategoryFinancial, "creditCardFraud")

	first, ok := requirements.NextItem(c, "")
	require.True(t, ok)
	assert.Equal(t, domain.EvidenceIdentityDocument, first.Key)

	next, ok := requirements.NextItem(c, domain.EvidenceIdentityDocument)
	require.True(t, ok)
	assert.Equal(t, domain.EvidencePaymentInstrumentPhoto, next.Key)

	_, ok = requirements.NextItem(c, domain.EvidencePaymentStatement)
	assert.False(t, ok, "last item has no successor")
	_, ok = requirements.NextItem(c, domain.EvidenceGovernmentID)
	assert.False(t, ok)
	_, ok = requirements.NextItem(nil, "")
	assert.False(t, ok)
}

func TestInsertAfter_Impersonation(t *testing.T) {
	c := requirements.Resolve(domain.CategorySocial, "instagramFraud").WithImpersonationCheck()
	require.Equal(t, []string{
		"requestLetter", "governmentId", "disputedScreenshots", "disputedContentUrl", "impersonationCheck",
	}, c.Keys())

	grown := c.InsertAfter(requirements.ImpersonationCheck, requirements.ImpersonationEvidence()...)
	assert.Equal(t, []string{
		"requestLetter", "governmentId", "disputedScreenshots", "disputedContentUrl", "impersonationCheck",
		"originalIdentityScreenshot", "originalIdentityUrl",
	}, grown.Keys())
	assert.Len(t, c, 5, "original checklist is not mutated")

	again := grown.InsertAfter(requirements.ImpersonationCheck, requirements.ImpersonationEvidence()...)
	assert.Equal(t, grown.Keys(), again.Keys(), "insertion is idempotent")
}

func TestWithout_UndoesInsert(t *testing.T) {
	c := requirements.Resolve(domain.CategorySocial, "instagramFraud").WithImpersonationCheck()
	grown := c.InsertAfter(requirements.ImpersonationCheck, requirements.ImpersonationEvidence()...)

	assert.Equal(t, c.Keys(), grown.Without(requirements.ImpersonationEvidence()...).Keys())
	assert.Len(t, grown, 7, "receiver is not mutated")
	assert.Equal(t, c.Keys(), c.Without(requirements.ImpersonationEvidence()...).Keys(), "absent items are ignored")
}

func TestInsertAfter_Middle(t *testing.T) {
	c := requirements.FromKeys("identityDocument", "financialStatement")
	item, ok := requirements.Item(domain.EvidenceBeneficiaryDetails)
	require.True(t, ok)

	got := c.InsertAfter(domain.EvidenceIdentityDocument, item)
	assert.Equal(t, []string{"identityDocument", "beneficiaryDetails", "financialStatement"}, got.Keys())
}

func TestFromKeys_RoundTrip(t *testing.T) {
	c := requirements.Resolve(domain.CategoryFinancial, "upiFraud")
	assert.Equal(t, c, requirements.FromKeys(c.Keys()...))
	assert.Empty(t, requirements.FromKeys("bogus"))
}

func TestFraudTypeByNumber(t *testing.T) {
	ft, ok := requirements.FraudTypeByNumber(domain.CategoryFinancial, 8)
	require.True(t, ok)
	assert.Equal(t, "creditCardFraud", ft.Key)

	ft, ok = requirements.FraudTypeByNumber(domain.CategorySocial, 5)
	require.True(t, ok)
	assert.Equal(t, "X (Twitter)", ft.Title)

	_, ok = requirements.FraudTypeByNumber(domain.CategoryFinancial, 24)
	assert.False(t, ok)
	_, ok = requirements.FraudTypeByNumber(domain.CategorySocial, 0)
	assert.False(t, ok)
}

func TestPlatformReportLink(t *testing.T) {
	assert.Equal(t, "https://telegram.org/support", requirements.PlatformReportLink("telegramFraud"))
	assert.Contains(t, requirements.PlatformReportLink("facebookFraud"), "help.meta.com")
	assert.Contains(t, requirements.PlatformReportLink("fraudCall"), "help.meta.com")
}

func TestItem_ReturnsCopy(t *testing.T) {
	a, _ := requirements.Item(domain.EvidenceIdentityDocument)
	a.AcceptedModalities[0] = domain.ModalityVoice
	b, _ := requirements.Item(domain.EvidenceIdentityDocument)
	assert.Equal(t, domain.ModalityImage, b.AcceptedModalities[0])
}
