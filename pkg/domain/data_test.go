package domain_test

import (
	"testing"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestData_CloneHasNoAliasing(t *testing.T) {
	d := domain.Data{}
	d.Set("system", "checklist", []any{"identityDocument", "financialStatement"})
	d.Set("document_collection", "identityDocument", map[string]any{"url": "a"})

	c := d.Clone()
	c.Map("document_collection", "identityDocument")["url"] = "b"
	raw, _ := c.Get("system", "checklist")
	raw.([]any)[0] = "x"
	c.Set("system", "caseId", "CC1")

	assert.Equal(t, "a", d.Map("document_collection", "identityDocument")["url"])
	assert.Equal(t, []string{"identityDocument", "financialStatement"}, d.Strings("system", "checklist"))
	assert.False(t, d.Has("system", "caseId"))
}

func TestData_Accessors(t *testing.T) {
	d := domain.Data{}
	d.Set("registration", "name", "Asha")
	d.Set("registration", "count", float64(3))
	d.Set("registration", "empty", "")

	assert.Equal(t, "Asha", d.String("registration", "name"))
	assert.Equal(t, "3", d.String("registration", "count"))
	assert.False(t, d.Has("registration", "empty"))
	assert.False(t, d.Has("other", "name"))

	d.Delete("registration", "name")
	d.Delete("registration", "count")
	d.Delete("registration", "empty")
	_, ok := d["registration"]
	assert.False(t, ok, "empty namespace is dropped")
}

func TestRenderable_Validate(t *testing.T) {
	ok := domain.Choice("pick", domain.Option{ID: "a", Title: "A"}, domain.Option{ID: "b", Title: "B"})
	assert.NoError(t, ok.Validate())

	tooMany := domain.Choice("pick",
		domain.Option{ID: "a", Title: "A"},
		domain.Option{ID: "b", Title: "B"},
		domain.Option{ID: "c", Title: "C"},
		domain.Option{ID: "d", Title: "D"},
	)
	assert.Error(t, tooMany.Validate())

	dup := domain.Choice("pick", domain.Option{ID: "a", Title: "A"}, domain.Option{ID: "a", Title: "B"})
	assert.Error(t, dup.Validate())
}
