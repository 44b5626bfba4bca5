package intake

import (
	"context"
	"strings"

	"github.com/aretw0/intake/internal/logging"
	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
	"github.com/aretw0/intake/pkg/session"
)

type signal int

const (
	sigNone signal = iota
	sigBack
	sigExit
	sigMainMenu
	sigLanguageMenu
	sigLanguage
)

var signals = map[string]signal{
	"back":         sigBack,
	"nav:back":     sigBack,
	"exit":         sigExit,
	"quit":         sigExit,
	"nav:exit":     sigExit,
	"main menu":    sigMainMenu,
	"mainmenu":     sigMainMenu,
	"menu":         sigMainMenu,
	"nav:mainmenu": sigMainMenu,
	"language":     sigLanguageMenu,
	"lang":         sigLanguageMenu,
}

// parseSignal recognizes the global navigation commands. The second value
// is the language code of a language selection.
func parseSignal(in flow.Input) (signal, string) {
	if in.Modality != domain.ModalityText && in.Modality != domain.ModalityButton {
		return sigNone, ""
	}
	v := strings.ToLower(strings.TrimSpace(in.Text))
	if code, ok := strings.CutPrefix(v, "lang:"); ok {
		for _, l := range languages {
			if strings.EqualFold(l.ID, v) {
				return sigLanguage, code
			}
		}
		return sigNone, ""
	}
	return signals[v], ""
}

func (r *Router) navigate(ctx context.Context, t *turn, sig signal, arg string) ([]domain.Renderable, error) {
	switch sig {
	case sigBack:
		return r.back(ctx, t)
	case sigExit:
		if err := r.sessions.Clear(ctx, t.key()); err != nil {
			return nil, err
		}
		t.ended = true
		return []domain.Renderable{msgGoodbye}, nil
	case sigMainMenu:
		return r.toMenu(ctx, t)
	case sigLanguageMenu:
		return []domain.Renderable{languageMenu()}, nil
	case sigLanguage:
		if err := r.sessions.SetLanguage(ctx, t.key(), arg); err != nil {
			return nil, err
		}
		t.lang = arg
		r.logger.Debug("language changed", "user", logging.Redact(t.key()), "lang", arg)
		return []domain.Renderable{domain.Text("✅ Language updated."), r.prompt(t)}, nil
	}
	return nil, nil
}

// back steps to the previous runnable step of the current flow, forgetting
// what both steps captured. At the first step of a flow it pops the history;
// with nothing left to pop it returns to the menu.
func (r *Router) back(ctx context.Context, t *turn) ([]domain.Renderable, error) {
	if t.def != nil && t.step != nil {
		if prev, ok := t.def.Previous(t.sess.Step, t.sess.Data); ok {
			data := t.sess.Data.Clone()
			target, _ := t.def.Step(prev)
			for _, s := range []*flow.Step{t.step, target} {
				for _, field := range s.Owns() {
					data.Delete(t.ns(), field)
				}
			}
			if err := r.commit(ctx, t, session.AtStep(prev).WithData(data)); err != nil {
				return nil, err
			}
			return []domain.Renderable{r.prompt(t)}, nil
		}
	}

	restored, err := r.sessions.GoBack(ctx, t.key())
	if err != nil {
		return nil, err
	}
	if !restored {
		return r.toMenu(ctx, t)
	}
	s, err := r.sessions.Get(ctx, t.key())
	if err != nil {
		return nil, err
	}
	r.bind(t, s)
	if t.step == nil {
		return r.toMenu(ctx, t)
	}
	return []domain.Renderable{r.prompt(t)}, nil
}
