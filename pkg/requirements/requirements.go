package requirements

import (
	"slices"

	"github.com/aretw0/intake/pkg/domain"
)

// Checklist is the ordered evidence a complaint still has to collect.
type Checklist []domain.EvidenceItem

// Resolve returns the checklist for a fraud type. Keys missing from the
// table resolve to the identity document plus a bank statement, so the
// result is never empty.
func Resolve(category domain.Category, fraudTypeKey string) Checklist {
	ks := defaultEvidence
	if ft, ok := Lookup(category, fraudTypeKey); ok {
		ks = ft.Evidence
	}
	return FromKeys(ks...)
}

// FromKeys rebuilds a checklist from its keys, dropping unknown ones.
func FromKeys[K ~string](ks ...K) Checklist {
	out := make(Checklist, 0, len(ks))
	for _, k := range ks {
		if item, ok := Item(domain.EvidenceKey(k)); ok {
			out = append(out, item)
		}
	}
	return out
}

// Item returns the evidence item declared for key.
func Item(key domain.EvidenceKey) (domain.EvidenceItem, bool) {
	entry, ok := evidence[key]
	if !ok {
		return domain.EvidenceItem{}, false
	}
	item := entry.item
	item.AcceptedModalities = slices.Clone(item.AcceptedModalities)
	return item, true
}

// Instructions is the upload guidance shown with an item's prompt.
func Instructions(key domain.EvidenceKey) string {
	return evidence[key].instructions
}

// NextItem returns the item following currentKey. An empty currentKey
// yields the first item.
func NextItem(c Checklist, currentKey domain.EvidenceKey) (domain.EvidenceItem, bool) {
	if currentKey == "" {
		if len(c) == 0 {
			return domain.EvidenceItem{}, false
		}
		return c[0], true
	}
	i := c.Index(currentKey)
	if i < 0 || i+1 >= len(c) {
		return domain.EvidenceItem{}, false
	}
	return c[i+1], true
}

// Index returns the position of key, or -1.
func (c Checklist) Index(key domain.EvidenceKey) int {
	return slices.IndexFunc(c, func(e domain.EvidenceItem) bool { return e.Key == key })
}

// Keys returns the item keys in order.
func (c Checklist) Keys() []string {
	out := make([]string, len(c))
	for i, e := range c {
		out[i] = string(e.Key)
	}
	return out
}

// DisplayNames returns the item names in order, for rendering.
func (c Checklist) DisplayNames() []string {
	out := make([]string, len(c))
	for i, e := range c {
		out[i] = e.DisplayName
	}
	return out
}

// InsertAfter returns a new checklist with items placed right after
// currentKey. Items already present are not duplicated. When currentKey is
// absent the items are appended.
func (c Checklist) InsertAfter(currentKey domain.EvidenceKey, items ...domain.EvidenceItem) Checklist {
	fresh := make([]domain.EvidenceItem, 0, len(items))
	for _, it := range items {
		if c.Index(it.Key) < 0 && !slices.ContainsFunc(fresh, func(e domain.EvidenceItem) bool { return e.Key == it.Key }) {
			fresh = append(fresh, it)
		}
	}
	at := c.Index(currentKey) + 1
	if at == 0 {
		at = len(c)
	}
	out := make(Checklist, 0, len(c)+len(fresh))
	out = append(out, c[:at]...)
	out = append(out, fresh...)
	return append(out, c[at:]...)
}

// Without returns a new checklist lacking items.
func (c Checklist) Without(items ...domain.EvidenceItem) Checklist {
	return slices.DeleteFunc(slices.Clone(c), func(e domain.EvidenceItem) bool {
		return slices.ContainsFunc(items, func(it domain.EvidenceItem) bool { return it.Key == e.Key })
	})
}

// WithImpersonationCheck appends the impersonation checkpoint.
func (c Checklist) WithImpersonationCheck() Checklist {
	item, _ := Item(ImpersonationCheck)
	return c.InsertAfter("", item)
}

// ImpersonationEvidence is what a "yes" to the impersonation checkpoint adds.
func ImpersonationEvidence() []domain.EvidenceItem {
	shot, _ := Item(domain.EvidenceOriginalIdentityScreenshot)
	url, _ := Item(domain.EvidenceOriginalIdentityURL)
	return []domain.EvidenceItem{shot, url}
}

// FraudTypes lists the numbered menu of a category.
func FraudTypes(category domain.Category) []FraudType {
	switch category {
	case domain.CategoryFinancial:
		return slices.Clone(financial)
	case domain.CategorySocial:
		return slices.Clone(social)
	}
	return nil
}

// FraudTypeByNumber maps a 1-based menu number to its fraud type.
func FraudTypeByNumber(category domain.Category, n int) (FraudType, bool) {
	types := FraudTypes(category)
	if n < 1 || n > len(types) {
		return FraudType{}, false
	}
	return types[n-1], true
}

// Lookup finds a fraud type by key within a category.
func Lookup(category domain.Category, key string) (FraudType, bool) {
	for _, ft := range FraudTypes(category) {
		if ft.Key == key {
			return ft, true
		}
	}
	return FraudType{}, false
}

// PlatformReportLink is where a social media victim files the platform
// side of the report. Platforms without their own form use Meta's.
func PlatformReportLink(fraudTypeKey string) string {
	if link, ok := reportLinks[fraudTypeKey]; ok {
		return link
	}
	return metaReportLink
}
