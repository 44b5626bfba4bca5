package flow

import (
	"context"
	"fmt"

	"github.com/aretw0/intake/pkg/domain"
)

// Builder manages the construction of one flow.
type Builder struct {
	def *Definition
}

// New creates a new flow builder.
func New(id domain.FlowID, title string) *Builder {
	return &Builder{def: &Definition{
		ID:    id,
		Title: title,
		index: make(map[domain.StepID]int),
	}}
}

// Step appends a step to the flow.
// Declaring the same name twice is reported by Catalog.Validate.
func (b *Builder) Step(name domain.StepID) *StepBuilder {
	if _, dup := b.def.index[name]; dup {
		b.def.errs = append(b.def.errs, fmt.Sprintf("flow %s: duplicate step %q", b.def.ID, name))
		return &StepBuilder{step: &Step{}, flow: b}
	}
	s := &Step{
		Name:    name,
		accepts: []domain.Modality{domain.ModalityText, domain.ModalityButton},
		owns:    []string{string(name)},
	}
	b.def.index[name] = len(b.def.steps)
	b.def.steps = append(b.def.steps, s)
	return &StepBuilder{step: s, flow: b}
}

// Order makes the step sequence a function of the captured data.
func (b *Builder) Order(fn func(domain.Data) []domain.StepID) *Builder {
	b.def.order = fn
	return b
}

// Next declares a fixed successor.
func (b *Builder) Next(target domain.FlowID) *Builder {
	b.def.successor = func(domain.Data) domain.FlowID { return target }
	return b.Handoffs(target)
}

// Branch declares a data-dependent successor. targets lists every flow fn
// may return so the catalog can check them.
func (b *Builder) Branch(fn func(domain.Data) domain.FlowID, targets ...domain.FlowID) *Builder {
	b.def.successor = fn
	return b.Handoffs(targets...)
}

// Handoffs declares flows reachable through Outcome.Handoff.
func (b *Builder) Handoffs(targets ...domain.FlowID) *Builder {
	for _, t := range targets {
		if indexOfFlow(b.def.successors, t) < 0 {
			b.def.successors = append(b.def.successors, t)
		}
	}
	return b
}

// OnEnter registers a hook run when a session enters the flow, before its
// first prompt. It may write router-owned values into data.
func (b *Builder) OnEnter(fn func(ctx context.Context, data domain.Data) ([]domain.Renderable, error)) *Builder {
	b.def.enter = fn
	return b
}

// OnFinish registers a hook run when the last step is accepted.
func (b *Builder) OnFinish(fn func(ctx context.Context, data domain.Data) ([]domain.Renderable, error)) *Builder {
	b.def.finish = fn
	return b
}

// Build returns the flow definition.
func (b *Builder) Build() *Definition {
	return b.def
}

// StepBuilder provides a fluent API for configuring a step.
type StepBuilder struct {
	step *Step
	flow *Builder
}

// Text sets a static free-text prompt.
func (s *StepBuilder) Text(body string) *StepBuilder {
	r := domain.Text(body)
	s.step.prompt = func(domain.Data) domain.Renderable { return r }
	return s
}

// Choice sets a static single-choice prompt.
func (s *StepBuilder) Choice(body string, opts ...domain.Option) *StepBuilder {
	r := domain.Choice(body, opts...)
	s.step.prompt = func(domain.Data) domain.Renderable { return r }
	return s
}

// Prompt sets a prompt rendered from the captured data.
func (s *StepBuilder) Prompt(fn PromptFunc) *StepBuilder {
	s.step.prompt = fn
	return s
}

// Validate sets the step validator.
func (s *StepBuilder) Validate(fn Validator) *StepBuilder {
	s.step.check = fn
	return s
}

// Accept replaces the accepted modalities (text and button by default).
func (s *StepBuilder) Accept(m ...domain.Modality) *StepBuilder {
	s.step.accepts = m
	return s
}

// SkipIf declares the step skippable when fn holds.
func (s *StepBuilder) SkipIf(fn Predicate) *StepBuilder {
	s.step.skipIf = fn
	return s
}

// Owns adds fields the step writes besides its own name.
func (s *StepBuilder) Owns(fields ...string) *StepBuilder {
	s.step.owns = append(s.step.owns, fields...)
	return s
}

// Step continues with the next step of the same flow.
func (s *StepBuilder) Step(name domain.StepID) *StepBuilder {
	return s.flow.Step(name)
}

func indexOfFlow(ids []domain.FlowID, id domain.FlowID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}
