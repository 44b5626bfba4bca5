package graph_test

import (
	"strings"
	"testing"
	"time"

	"github.com/aretw0/intake/internal/intake"
	"github.com/aretw0/intake/internal/presentation/graph"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
	"github.com/stretchr/testify/assert"
)

var testTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func smallCatalog() *flow.Catalog {
	menu := flow.New(domain.FlowEntry, "Main menu")
	menu.Step("menu").Accept(domain.ModalityButton)
	menu.Handoffs(domain.FlowRegistration, domain.FlowStatusCheck)

	reg := flow.New(domain.FlowRegistration, "Registration")
	reg.Step("name").SkipIf(func(domain.Data) bool { return false })
	reg.Step("photo").Accept(domain.ModalityImage)
	reg.Next(domain.FlowCompletion)

	status := flow.New(domain.FlowStatusCheck, "Case \"status\"")
	status.Step("caseId")

	return flow.NewCatalog(menu.Build(), reg.Build(), status.Build())
}

func TestGenerateMermaid(t *testing.T) {
	out := graph.GenerateMermaid(smallCatalog(), nil)

	for _, want := range []string{
		"graph TD\n",
		`start(("start")) --> entry_menu`,
		`subgraph registration["Registration"]`,
		`entry_menu{{"menu"}}`,
		`registration_name["name <br/> (optional)"]`,
		`registration_photo[/"photo"/]`,
		"registration_name --> registration_photo",
		"entry_menu -.-> registration_name",
		"entry_menu -.-> status_check_caseId",
		"registration_photo -.-> completion__node",
		`subgraph status_check["Case 'status'"]`,
	} {
		assert.Contains(t, out, want)
	}
	assert.NotContains(t, out, "classDef", "no overlay without a session")
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	s := domain.NewSession("u1", domain.FlowRegistration, "photo", 5, testTime)
	s.History.Push(domain.Snapshot{State: domain.FlowEntry, Step: "menu"})
	s.History.Push(domain.Snapshot{State: domain.FlowRegistration, Step: "name"})
	s.History.Push(domain.Snapshot{State: domain.FlowRegistration, Step: "name"})
	s.History.Push(domain.Snapshot{State: "gone", Step: "away"})

	out := graph.GenerateMermaid(smallCatalog(), graph.OverlayFor(s))

	assert.Contains(t, out, "class entry_menu visited;")
	assert.Equal(t, 1, strings.Count(out, "class registration_name visited;"))
	assert.Contains(t, out, "class registration_photo current;")
	assert.NotContains(t, out, "gone_away")
}

func TestGenerateMermaid_IntakeCatalog(t *testing.T) {
	c := intake.NewCatalog(intake.Services{})
	out := graph.GenerateMermaid(c, nil)

	for _, def := range c.Flows() {
		assert.Contains(t, out, "subgraph "+string(def.ID)+"[")
	}
}
