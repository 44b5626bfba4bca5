package flow

import (
	"fmt"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
)

// Catalog holds every declared flow.
type Catalog struct {
	entry domain.FlowID
	flows map[domain.FlowID]*Definition
	order []domain.FlowID
	errs  []string
}

// NewCatalog registers the definitions. The first one is the entry flow.
func NewCatalog(defs ...*Definition) *Catalog {
	c := &Catalog{flows: make(map[domain.FlowID]*Definition, len(defs))}
	for _, d := range defs {
		if _, dup := c.flows[d.ID]; dup {
			c.errs = append(c.errs, fmt.Sprintf("duplicate flow %q", d.ID))
			continue
		}
		if c.entry == "" {
			c.entry = d.ID
		}
		c.flows[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	return c
}

// Entry returns the entry flow ID.
func (c *Catalog) Entry() domain.FlowID {
	return c.entry
}

// Get returns the named flow.
func (c *Catalog) Get(id domain.FlowID) (*Definition, bool) {
	d, ok := c.flows[id]
	return d, ok
}

// Flows returns every definition in registration order.
func (c *Catalog) Flows() []*Definition {
	out := make([]*Definition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.flows[id])
	}
	return out
}

// Has reports whether (flow, step) is declared.
func (c *Catalog) Has(id domain.FlowID, step domain.StepID) bool {
	d, ok := c.flows[id]
	if !ok {
		return false
	}
	_, ok = d.Step(step)
	return ok
}

// Validate checks the catalog for structural errors: empty flows, duplicate
// steps, undeclared successors, steps owning nothing, and prompts breaking
// the shared rendering constraints.
func (c *Catalog) Validate() error {
	errs := append([]string(nil), c.errs...)
	if len(c.flows) == 0 {
		errs = append(errs, "catalog has no flows")
	}

	for _, d := range c.Flows() {
		errs = append(errs, d.errs...)
		if len(d.steps) == 0 {
			errs = append(errs, fmt.Sprintf("flow %s: no steps", d.ID))
		}
		for _, target := range d.successors {
			if target == domain.FlowCompletion {
				continue
			}
			if _, ok := c.flows[target]; !ok {
				errs = append(errs, fmt.Sprintf("flow %s: successor %q is not declared", d.ID, target))
			}
		}
		for _, s := range d.steps {
			if len(s.owns) == 0 || s.owns[0] == "" {
				errs = append(errs, fmt.Sprintf("flow %s: step %q owns no field", d.ID, s.Name))
			}
			if len(s.accepts) == 0 {
				errs = append(errs, fmt.Sprintf("flow %s: step %q accepts no modality", d.ID, s.Name))
			}
			if err := s.Prompt(domain.Data{}).Validate(); err != nil {
				errs = append(errs, fmt.Sprintf("flow %s: step %q: %v", d.ID, s.Name, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}
