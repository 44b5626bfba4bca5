package intake

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
)

// deliver sends the replies in order. It runs after the commit, outside any
// session lock, so a slow translation never holds up another turn.
func (r *Router) deliver(ctx context.Context, userKey, lang string, msgs []domain.Renderable) error {
	var errs []error
	for _, m := range msgs {
		if err := m.Validate(); err != nil {
			r.logger.Error("dropping malformed message", "user", logging.Redact(userKey), "error", err)
			continue
		}
		m = r.translate(ctx, m, lang)
		if err := r.sender.Send(ctx, userKey, m); err != nil {
			errs = append(errs, fmt.Errorf("send to %s: %w", logging.Redact(userKey), err))
		}
	}
	return errors.Join(errs...)
}

// translate renders m in lang. Any failure sends the English original.
func (r *Router) translate(ctx context.Context, m domain.Renderable, lang string) domain.Renderable {
	if r.translator == nil || lang == "" || lang == domain.DefaultLanguage {
		return m
	}
	ctx, cancel := context.WithTimeout(ctx, r.translateT)
	defer cancel()

	tr := func(s string) (string, error) {
		if s == "" {
			return s, nil
		}
		return r.translator.Translate(ctx, s, lang)
	}

	out := m
	var err error
	if out.Title, err = tr(m.Title); err != nil {
		return r.untranslated(m, lang, err)
	}
	if out.Body, err = tr(m.Body); err != nil {
		return r.untranslated(m, lang, err)
	}
	if len(m.Items) > 0 {
		out.Items = make([]string, len(m.Items))
		for i, item := range m.Items {
			if out.Items[i], err = tr(item); err != nil {
				return r.untranslated(m, lang, err)
			}
		}
	}
	if len(m.Options) > 0 {
		out.Options = make([]domain.Option, len(m.Options))
		for i, o := range m.Options {
			out.Options[i].ID = o.ID
			if out.Options[i].Title, err = tr(o.Title); err != nil {
				return r.untranslated(m, lang, err)
			}
		}
	}
	return out
}

func (r *Router) untranslated(m domain.Renderable, lang string, err error) domain.Renderable {
	r.metrics.IncrementCollaboratorError("assistant")
	r.logger.Warn("translation failed, sending english", "lang", lang, "error", err)
	return m
}
