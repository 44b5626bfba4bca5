package flow

import (
	"context"

	"github.com/aretw0/intake/pkg/domain"
)

// Definition is a named total order of steps plus its hand-off rule.
type Definition struct {
	ID    domain.FlowID
	Title string

	steps      []*Step
	index      map[domain.StepID]int
	order      func(domain.Data) []domain.StepID
	successor  func(domain.Data) domain.FlowID
	successors []domain.FlowID
	enter      func(ctx context.Context, data domain.Data) ([]domain.Renderable, error)
	finish     func(ctx context.Context, data domain.Data) ([]domain.Renderable, error)
	errs       []string
}

// Step returns the named step.
func (d *Definition) Step(name domain.StepID) (*Step, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.steps[i], true
}

// Steps returns every declared step in declaration order.
func (d *Definition) Steps() []*Step {
	out := make([]*Step, len(d.steps))
	copy(out, d.steps)
	return out
}

// Successors lists the flows this one may hand off to.
func (d *Definition) Successors() []domain.FlowID {
	out := make([]domain.FlowID, len(d.successors))
	copy(out, d.successors)
	return out
}

// Sequence is the step order for the given data. Flows without a custom
// order use declaration order; ordered flows only run the steps they list.
func (d *Definition) Sequence(data domain.Data) []domain.StepID {
	if d.order != nil {
		seq := d.order(data)
		out := seq[:0:0]
		for _, name := range seq {
			if _, ok := d.index[name]; ok {
				out = append(out, name)
			}
		}
		return out
	}
	out := make([]domain.StepID, len(d.steps))
	for i, s := range d.steps {
		out[i] = s.Name
	}
	return out
}

// Continue returns the first runnable step after current. done is true when
// the flow has no runnable step left. An empty current starts at the top.
func (d *Definition) Continue(current domain.StepID, data domain.Data) (next domain.StepID, done bool) {
	seq := d.Sequence(data)
	start := 0
	if current != "" {
		// a step missing from the sequence rescans from the top
		start = indexOf(seq, current) + 1
	}
	for j := start; j < len(seq); j++ {
		if s := d.steps[d.index[seq[j]]]; !s.Skipped(data) {
			return s.Name, false
		}
	}
	return "", true
}

// First returns the first runnable step.
func (d *Definition) First(data domain.Data) (domain.StepID, bool) {
	next, done := d.Continue("", data)
	return next, !done
}

// Previous returns the last runnable step before current.
func (d *Definition) Previous(current domain.StepID, data domain.Data) (domain.StepID, bool) {
	seq := d.Sequence(data)
	for j := indexOf(seq, current) - 1; j >= 0; j-- {
		if s := d.steps[d.index[seq[j]]]; !s.Skipped(data) {
			return s.Name, true
		}
	}
	return "", false
}

// Successor is the flow to hand off to once this one completes.
func (d *Definition) Successor(data domain.Data) domain.FlowID {
	if d.successor == nil {
		return domain.FlowCompletion
	}
	return d.successor(data)
}

// Enter runs the flow's entry hook, mutating data in place. The returned
// messages are sent before the first prompt.
func (d *Definition) Enter(ctx context.Context, data domain.Data) ([]domain.Renderable, error) {
	if d.enter == nil {
		return nil, nil
	}
	return d.enter(ctx, data)
}

// Resume returns name when it is runnable, otherwise the first runnable
// step after it.
func (d *Definition) Resume(name domain.StepID, data domain.Data) (domain.StepID, bool) {
	s, ok := d.Step(name)
	if !ok {
		return "", false
	}
	if !s.Skipped(data) && indexOf(d.Sequence(data), name) >= 0 {
		return name, true
	}
	next, done := d.Continue(name, data)
	return next, !done
}

// Finish runs the completion hook and returns the messages it produced.
func (d *Definition) Finish(ctx context.Context, data domain.Data) ([]domain.Renderable, error) {
	if d.finish == nil {
		return nil, nil
	}
	return d.finish(ctx, data)
}

func indexOf(seq []domain.StepID, name domain.StepID) int {
	for i, s := range seq {
		if s == name {
			return i
		}
	}
	return -1
}
