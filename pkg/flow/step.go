package flow

import (
	"context"
	"slices"

	"github.com/aretw0/intake/pkg/domain"
)

// Input is the sanitized inbound message handed to a step validator.
type Input struct {
	UserKey  string
	Modality domain.Modality
	// Text is the message body, or the option ID for button replies.
	Text  string
	Media *domain.Media
}

// Outcome is what an accepted input commits.
type Outcome struct {
	// Values are written into the flow's namespace. Every key must be one of
	// the fields owned by the step.
	Values map[string]any
	// System values are written into the router-owned namespace.
	System map[string]any
	// Replies are sent before the next prompt.
	Replies []domain.Renderable
	// Goto moves to a named step of the same flow instead of the next one.
	Goto domain.StepID
	// Handoff leaves the flow immediately for another one.
	Handoff domain.FlowID
}

// Accept is a shorthand for an outcome storing a single value.
func Accept(field string, v any) Outcome {
	return Outcome{Values: map[string]any{field: v}}
}

// Reply appends messages to the outcome.
func (o Outcome) Reply(r ...domain.Renderable) Outcome {
	o.Replies = append(o.Replies, r...)
	return o
}

// Validator checks the input for a step. Returning a *domain.ValidationError
// re-prompts the same step without touching the session.
type Validator func(ctx context.Context, in Input, data domain.Data) (Outcome, error)

// Predicate decides a step's skip rule from the data captured so far.
type Predicate func(data domain.Data) bool

// PromptFunc renders a step prompt. It must tolerate empty data.
type PromptFunc func(data domain.Data) domain.Renderable

// Step is one unit of data capture.
type Step struct {
	Name    domain.StepID
	prompt  PromptFunc
	check   Validator
	accepts []domain.Modality
	skipIf  Predicate
	owns    []string
}

// Accepts reports whether the step takes messages of modality m.
func (s *Step) Accepts(m domain.Modality) bool {
	return slices.Contains(s.accepts, m)
}

// Modalities returns the accepted modalities.
func (s *Step) Modalities() []domain.Modality {
	return slices.Clone(s.accepts)
}

// Owns returns the fields the step writes.
func (s *Step) Owns() []string {
	return slices.Clone(s.owns)
}

// Skipped evaluates the step's skip rule.
func (s *Step) Skipped(data domain.Data) bool {
	return s.skipIf != nil && s.skipIf(data)
}

// Conditional reports whether the step has a skip rule.
func (s *Step) Conditional() bool { return s.skipIf != nil }

// Prompt renders the step prompt.
func (s *Step) Prompt(data domain.Data) domain.Renderable {
	if s.prompt == nil {
		return domain.Text(string(s.Name))
	}
	return s.prompt(data)
}

// Validate runs the step validator. Steps without one store the trimmed text.
func (s *Step) Validate(ctx context.Context, in Input, data domain.Data) (Outcome, error) {
	if s.check == nil {
		return Accept(s.owns[0], in.Text), nil
	}
	return s.check(ctx, in, data)
}
