package intake

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
	"github.com/aretw0/intake/pkg/session"
)

// anyStep matches every step of a flow in the dispatch table.
const anyStep domain.StepID = "*"

// maxHandoffs bounds a chain of flows finishing without a runnable step.
const maxHandoffs = 8

type route struct {
	state domain.FlowID
	step  domain.StepID
}

type handler func(ctx context.Context, t *turn) ([]domain.Renderable, error)

func (r *Router) routes() map[route]handler {
	return map[route]handler{
		{domain.FlowEntry, anyStep}:                         r.handleStep,
		{domain.FlowRegistration, anyStep}:                  r.handleStep,
		{domain.FlowComplaintFiling, anyStep}:               r.handleStep,
		{domain.FlowDocumentCollection, anyStep}:            r.handleEvidence,
		{domain.FlowSocialMediaDocumentCollection, anyStep}: r.handleEvidence,
		{domain.FlowStatusCheck, anyStep}:                   r.handleStep,
		{domain.FlowAccountFreezeInquiry, anyStep}:          r.handleStep,
		{domain.FlowOtherQueries, anyStep}:                  r.handleStep,
	}
}

// checkRoutes requires a handler for every step of every flow and rejects
// table entries naming unknown flows or steps.
func (r *Router) checkRoutes() error {
	var errs []string
	for _, def := range r.catalog.Flows() {
		if _, ok := r.handlers[route{def.ID, anyStep}]; ok {
			continue
		}
		for _, s := range def.Steps() {
			if _, ok := r.handlers[route{def.ID, s.Name}]; !ok {
				errs = append(errs, fmt.Sprintf("no handler for %s/%s", def.ID, s.Name))
			}
		}
	}
	for rt := range r.handlers {
		if _, ok := r.catalog.Get(rt.state); !ok {
			errs = append(errs, fmt.Sprintf("handler for undeclared flow %s", rt.state))
			continue
		}
		if rt.step != anyStep && !r.catalog.Has(rt.state, rt.step) {
			errs = append(errs, fmt.Sprintf("handler for undeclared step %s/%s", rt.state, rt.step))
		}
	}
	if len(errs) > 0 {
		slices.Sort(errs)
		return fmt.Errorf("found %d errors:\n- %s", len(errs), strings.Join(errs, "\n- "))
	}
	return nil
}

func (r *Router) handlerFor(state domain.FlowID, step domain.StepID) handler {
	if h, ok := r.handlers[route{state, step}]; ok {
		return h
	}
	return r.handlers[route{state, anyStep}]
}

// handleStep validates the input against the current step and advances.
func (r *Router) handleStep(ctx context.Context, t *turn) ([]domain.Renderable, error) {
	if !t.step.Accepts(t.in.Modality) {
		return nil, &domain.ModalityMismatchError{Expected: t.step.Modalities(), Got: t.in.Modality}
	}
	out, err := r.validate(ctx, t)
	if err != nil {
		return nil, err
	}
	return r.advance(ctx, t, out)
}

// handleEvidence re-enters an evidence flow whose case was never opened, so
// an upload is never stored without a case ID.
func (r *Router) handleEvidence(ctx context.Context, t *turn) ([]domain.Renderable, error) {
	if !t.sess.Data.Has(domain.NamespaceSystem, sysCaseID) {
		r.logger.Warn("evidence step without a case, reopening",
			"user", logging.Redact(t.key()), "state", t.sess.State)
		return r.handoff(ctx, t, t.def.ID, t.sess.Data.Clone())
	}
	return r.handleStep(ctx, t)
}

// validate runs the step validator on a copy of the data under a context
// that ends with the session.
func (r *Router) validate(ctx context.Context, t *turn) (flow.Outcome, error) {
	if t.prior.at(t.sess) {
		t.accepted = t.prior
		return t.prior.out, nil
	}
	bctx, cancel := r.sessions.Bind(ctx, t.key())
	defer cancel()

	out, err := t.step.Validate(bctx, t.in, t.sess.Data.Clone())
	if err != nil {
		if cause := context.Cause(bctx); errors.Is(cause, session.ErrSessionEnded) {
			return flow.Outcome{}, cause
		}
		return flow.Outcome{}, err
	}
	owns := t.step.Owns()
	for field := range out.Values {
		if !slices.Contains(owns, field) {
			return flow.Outcome{}, fmt.Errorf("step %s/%s wrote field %q it does not own", t.sess.State, t.sess.Step, field)
		}
	}
	t.accepted = &accepted{state: t.sess.State, step: t.sess.Step, out: out}
	return out, nil
}

// advance commits an accepted outcome and renders what comes next.
func (r *Router) advance(ctx context.Context, t *turn, out flow.Outcome) ([]domain.Renderable, error) {
	r.clearRetries(t.key())

	data := t.sess.Data.Clone()
	data.Merge(t.ns(), out.Values)
	data.Merge(domain.NamespaceSystem, out.System)
	replies := slices.Clone(out.Replies)

	if out.Handoff != "" {
		more, err := r.handoff(ctx, t, out.Handoff, data)
		return append(replies, more...), err
	}

	var (
		next domain.StepID
		done bool
	)
	if out.Goto != "" {
		var ok bool
		next, ok = t.def.Resume(out.Goto, data)
		done = !ok
	} else {
		next, done = t.def.Continue(t.sess.Step, data)
	}
	if done {
		more, err := r.finish(ctx, t, data)
		return append(replies, more...), err
	}

	if err := r.commit(ctx, t, session.AtStep(next).WithData(data)); err != nil {
		return nil, err
	}
	return append(replies, r.prompt(t)), nil
}

// finish runs the completion hook of the current flow and hands off to
// its successor.
func (r *Router) finish(ctx context.Context, t *turn, data domain.Data) ([]domain.Renderable, error) {
	bctx, cancel := r.sessions.Bind(ctx, t.key())
	msgs, err := t.def.Finish(bctx, data)
	cancel()
	if err != nil {
		return nil, err
	}
	more, err := r.handoff(ctx, t, t.def.Successor(data), data)
	return append(msgs, more...), err
}

// handoff moves the session into target, running its entry hook.
func (r *Router) handoff(ctx context.Context, t *turn, target domain.FlowID, data domain.Data) ([]domain.Renderable, error) {
	var replies []domain.Renderable
	from := t.sess.State
	for range maxHandoffs {
		switch target {
		case domain.FlowCompletion:
			cleared, err := r.sessions.ClearAt(ctx, t.key(), t.sess.Version)
			if err != nil {
				return nil, err
			}
			t.ended = true
			if cleared {
				r.metrics.IncrementCompletion(string(from))
				r.logger.Info("dialog completed", "user", logging.Redact(t.key()), "flow", from)
			}
			return append(replies, msgCompleted), nil
		case r.catalog.Entry():
			more, err := r.toMenu(ctx, t)
			return append(replies, more...), err
		}

		def, ok := r.catalog.Get(target)
		if !ok {
			return nil, fmt.Errorf("hand-off to undeclared flow %q", target)
		}
		bctx, cancel := r.sessions.Bind(ctx, t.key())
		msgs, err := def.Enter(bctx, data)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("enter %s: %w", target, err)
		}
		replies = append(replies, msgs...)

		first, ok := def.First(data)
		if ok {
			if err := r.commit(ctx, t, session.To(target, first).WithData(data)); err != nil {
				return nil, err
			}
			r.logger.Debug("flow entered", "user", logging.Redact(t.key()), "from", from, "to", target)
			return append(replies, r.prompt(t)), nil
		}

		bctx, cancel = r.sessions.Bind(ctx, t.key())
		msgs, err = def.Finish(bctx, data)
		cancel()
		if err != nil {
			return nil, err
		}
		replies = append(replies, msgs...)
		from, target = target, def.Successor(data)
	}
	return nil, fmt.Errorf("hand-off chain from %s exceeded %d flows", t.sess.State, maxHandoffs)
}
