package flow_test

import (
	"context"
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ns = "registration"

func known(field string) flow.Predicate {
	return func(d domain.Data) bool { return d.Has(domain.NamespaceSystem, field) }
}

func registration() *flow.Definition {
	b := flow.New(domain.FlowRegistration, "Registration")
	b.Step("name").Text("Your name?").SkipIf(known("verifiedName"))
	b.Step("phone").Text("Your phone?").SkipIf(known("channelPhone"))
	b.Step("postalCode").Text("Postal code?").Owns("area", "district")
	b.Step("confirmation").Choice("Confirm?", domain.Option{ID: "yes", Title: "Yes"})
	b.Next(domain.FlowComplaintFiling)
	return b.Build()
}

func TestDefinition_ContinueSkipsPredicates(t *testing.T) {
	def := registration()
	d := domain.Data{}

	first, ok := def.First(d)
	require.True(t, ok)
	assert.Equal(t, domain.StepID("name"), first)

	next, done := def.Continue("name", d)
	assert.False(t, done)
	assert.Equal(t, domain.StepID("phone"), next)

	d.Set(domain.NamespaceSystem, "channelPhone", "9876543210")
	next, done = def.Continue("name", d)
	assert.False(t, done)
	assert.Equal(t, domain.StepID("postalCode"), next, "auto-filled phone is skipped")

	d.Set(domain.NamespaceSystem, "verifiedName", "Asha")
	first, _ = def.First(d)
	assert.Equal(t, domain.StepID("postalCode"), first)

	_, done = def.Continue("confirmation", d)
	assert.True(t, done)
	assert.Equal(t, domain.FlowComplaintFiling, def.Successor(d))
}

func TestDefinition_Previous(t *testing.T) {
	def := registration()
	d := domain.Data{}
	d.Set(domain.NamespaceSystem, "channelPhone", "9876543210")

	prev, ok := def.Previous("postalCode", d)
	require.True(t, ok)
	assert.Equal(t, domain.StepID("name"), prev, "skipped steps are not revisited")

	_, ok = def.Previous("name", d)
	assert.False(t, ok)
}

func TestDefinition_OrderFromData(t *testing.T) {
	b := flow.New(domain.FlowDocumentCollection, "Documents")
	for _, k := range []domain.StepID{"a", "b", "c"} {
		b.Step(k).Text(string(k)).Accept(domain.ModalityImage)
	}
	b.Order(func(d domain.Data) []domain.StepID {
		var out []domain.StepID
		for _, k := range d.Strings(domain.NamespaceSystem, "checklist") {
			out = append(out, domain.StepID(k))
		}
		return out
	})
	def := b.Build()

	d := domain.Data{}
	d.Set(domain.NamespaceSystem, "checklist", []string{"c", "ghost", "a"})
	assert.Equal(t, []domain.StepID{"c", "a"}, def.Sequence(d), "unknown keys are dropped")

	first, _ := def.First(d)
	assert.Equal(t, domain.StepID("c"), first)
	next, done := def.Continue("c", d)
	assert.False(t, done)
	assert.Equal(t, domain.StepID("a"), next)
	_, done = def.Continue("a", d)
	assert.True(t, done)

	_, ok := def.First(domain.Data{})
	assert.False(t, ok, "empty checklist has nothing to run")
}

func TestStep_DefaultValidatorAndOwnership(t *testing.T) {
	def := registration()
	s, ok := def.Step("postalCode")
	require.True(t, ok)
	assert.Equal(t, []string{"postalCode", "area", "district"}, s.Owns())
	assert.True(t, s.Accepts(domain.ModalityText))
	assert.False(t, s.Accepts(domain.ModalityImage))

	out, err := s.Validate(context.Background(), flow.Input{Text: "751001"}, domain.Data{})
	require.NoError(t, err)
	assert.Equal(t, "751001", out.Values["postalCode"])
}

func complaint() *flow.Definition {
	b := flow.New(domain.FlowComplaintFiling, "Complaint")
	b.Step("description").Text("What happened?")
	return b.Next(domain.FlowCompletion).Build()
}

func TestCatalog_ValidateAccepts(t *testing.T) {
	c := flow.NewCatalog(registration(), complaint())
	require.NoError(t, c.Validate())
	assert.Equal(t, domain.FlowRegistration, c.Entry())
	assert.True(t, c.Has(domain.FlowRegistration, "postalCode"))
	assert.False(t, c.Has(domain.FlowRegistration, "ghost"))
	assert.False(t, c.Has("ghost", "name"))
}

func TestCatalog_ValidateAggregatesErrors(t *testing.T) {
	b := flow.New(domain.FlowStatusCheck, "Status")
	b.Step("caseId").Text("Case ID?")
	b.Step("caseId").Text("again")
	b.Step("menu").Choice("Pick",
		domain.Option{ID: "1", Title: "One"},
		domain.Option{ID: "2", Title: "Two"},
		domain.Option{ID: "3", Title: "Three"},
		domain.Option{ID: "4", Title: "Four"},
	)
	b.Step("silent").Text("?").Accept()
	b.Next("nowhere")

	empty := flow.New(domain.FlowOtherQueries, "Empty").Build()

	err := flow.NewCatalog(b.Build(), empty, complaint(), complaint()).Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "found 6 errors")
	assert.Contains(t, msg, `duplicate step "caseId"`)
	assert.Contains(t, msg, "at most 3 allowed")
	assert.Contains(t, msg, `accepts no modality`)
	assert.Contains(t, msg, `successor "nowhere" is not declared`)
	assert.Contains(t, msg, "flow other_queries: no steps")
	assert.Contains(t, msg, `duplicate flow "complaint_filing"`)
}

func TestDefinition_Resume(t *testing.T) {
	def := registration()
	d := domain.Data{}
	d.Set(domain.NamespaceSystem, "verifiedName", "Asha")

	got, ok := def.Resume("name", d)
	require.True(t, ok)
	assert.Equal(t, domain.StepID("phone"), got, "skipped target resumes at the next runnable step")

	got, ok = def.Resume("postalCode", d)
	require.True(t, ok)
	assert.Equal(t, domain.StepID("postalCode"), got)

	_, ok = def.Resume("ghost", d)
	assert.False(t, ok)
}
