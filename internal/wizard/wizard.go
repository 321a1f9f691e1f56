// Package wizard — конфигуратор стенда экспонента: пошаговый выбор опций по
// нескольким продуктам, расчёт стоимости, сводка, сохранение и оплата.
//
// Session хранит состояние и переходы, Derive считает цены,
// Orchestrator сохраняет конфигурации и создаёт платёж.
package wizard

import (
	"context"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
)

type Options struct {
	// Initial — ранее сохранённые конфигурации (продолжение редактирования).
	Initial []Configuration
	// OnCancel вызывается, когда «Назад» нажали на самом первом шаге.
	OnCancel func()
	// GroupTitle — заголовок группы продуктов для экрана.
	GroupTitle string
}

// Wizard — визард как единое целое: сессия плюс сохранение/оплата и колбэки.
type Wizard struct {
	*Session
	orch     *Orchestrator
	onCancel func()
	title    string
}

func New(products []catalog.Product, orch *Orchestrator, opts Options) *Wizard {
	return &Wizard{
		Session:  NewSession(products, opts.Initial),
		orch:     orch,
		onCancel: opts.OnCancel,
		title:    opts.GroupTitle,
	}
}

// Resume — продолжение по снимку из хранилища диалогов.
func Resume(products []catalog.Product, snap Snapshot, orch *Orchestrator, opts Options) *Wizard {
	return &Wizard{
		Session:  Restore(products, snap),
		orch:     orch,
		onCancel: opts.OnCancel,
		title:    opts.GroupTitle,
	}
}

func (w *Wizard) GroupTitle() string { return w.title }

// Previous как у Session, но на первом шаге вызывает OnCancel.
func (w *Wizard) Previous() (cancel bool, err error) {
	cancel, err = w.Session.Previous()
	if cancel && w.onCancel != nil {
		w.onCancel()
	}
	return cancel, err
}

// Complete отправляет конфигурацию (см. Orchestrator.Complete).
func (w *Wizard) Complete(ctx context.Context) (Outcome, error) {
	if w.orch == nil {
		return Outcome{}, ErrWrongPhase
	}
	return w.orch.Complete(ctx, w.Session)
}
