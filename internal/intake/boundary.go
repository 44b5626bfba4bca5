package intake

import (
	"context"
	"errors"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/session"
)

// boundary converts a turn error into the single message answering it, and
// names the outcome for metrics. No error escapes to the transport.
func (r *Router) boundary(ctx context.Context, t *turn, err error) ([]domain.Renderable, string) {
	var (
		invalid  *domain.ValidationError
		mismatch *domain.ModalityMismatchError
		dup      *domain.DuplicateRecordError
		external *domain.ExternalLookupError
	)

	switch {
	case t == nil:
		r.logger.Error("could not load session", "error", err)
		return []domain.Renderable{msgFallback}, "error"

	case errors.As(err, &invalid):
		r.metrics.IncrementValidationFailure(invalid.Field)
		if r.failed(t.key()) {
			menu, merr := r.toMenu(ctx, t)
			if merr != nil {
				return r.unexpected(t, merr), "error"
			}
			return []domain.Renderable{withNotice(menu[0], msgTooManyAttempts.Body)}, "invalid"
		}
		return []domain.Renderable{withNotice(r.prompt(t), "❌ "+invalid.Reason)}, "invalid"

	case errors.As(err, &mismatch):
		return []domain.Renderable{withNotice(r.prompt(t), modalityReminder(mismatch.Expected, t.sess.Step).Body)}, "mismatch"

	case errors.As(err, &dup):
		r.logger.Info("duplicate record rejected", "user", logging.Redact(t.key()), "field", dup.Field)
		menu, merr := r.toMenu(ctx, t)
		if merr != nil {
			return r.unexpected(t, merr), "error"
		}
		notice := msgStoreDown.Body
		if dup.Field == "identityNumber" || dup.Field == "phone" {
			notice = msgDuplicate.Body
		}
		return []domain.Renderable{withNotice(menu[0], notice)}, "duplicate_record"

	case errors.As(err, &external):
		r.metrics.IncrementCollaboratorError(external.Collaborator)
		r.logger.Warn("collaborator failed", "user", logging.Redact(t.key()), "collaborator", external.Collaborator, "error", external.Err)
		return []domain.Renderable{withNotice(r.prompt(t), fallbackNotice(external.Collaborator))}, "external"

	case errors.Is(err, session.ErrSessionEnded):
		r.logger.Info("session ended during turn", "user", logging.Redact(t.key()))
		return nil, "ended"

	case errors.Is(err, domain.ErrSessionNotFound):
		menu, merr := r.toMenu(ctx, t)
		if merr != nil {
			return r.unexpected(t, merr), "error"
		}
		return []domain.Renderable{withNotice(menu[0], msgExpired.Body)}, "restarted"
	}
	return r.unexpected(t, err), "error"
}

func (r *Router) unexpected(t *turn, err error) []domain.Renderable {
	r.logger.Error("turn failed",
		"user", logging.Redact(t.key()),
		"state", t.sess.State,
		"step", t.sess.Step,
		"error", err,
	)
	return []domain.Renderable{msgFallback}
}

// fallbackNotice names the manual path offered when a collaborator fails.
func fallbackNotice(collaborator string) string {
	switch collaborator {
	case "identity verification":
		return "⚠️ We could not fetch your verified ID. Please upload a photo of it instead."
	case "transcriber":
		return "⚠️ We could not understand the voice note. Please type your answer instead."
	case "case store":
		return msgStoreDown.Body
	}
	return "⚠️ That service is unavailable right now. Please try again."
}

// withNotice prefixes a prompt with a notice, keeping its options.
func withNotice(r domain.Renderable, notice string) domain.Renderable {
	if notice == "" {
		return r
	}
	r.Body = notice + "\n\n" + r.Body
	return r
}
