package wizard

import (
	"github.com/google/uuid"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
)

type Phase string

const (
	PhaseStepping        Phase = "stepping"
	PhaseSummary         Phase = "summary"
	PhaseSubmitting      Phase = "submitting"
	PhaseAwaitingPayment Phase = "awaiting_payment"
	PhaseCompleted       Phase = "completed"
	PhaseFailed          Phase = "failed"
)

// Editable — в этих фазах ответы можно менять.
func (p Phase) Editable() bool {
	return p == PhaseStepping || p == PhaseSummary || p == PhaseFailed
}

// Position — текущий шаг: индекс продукта и индекс шага внутри него.
type Position struct {
	Product int `json:"product"`
	Step    int `json:"step"`
}

// Session — изменяемое состояние визарда одного пользователя.
// Не потокобезопасна: её меняет один вызывающий за раз.
type Session struct {
	id       string
	products []catalog.Product
	pos      Position
	sel      Selections
	phase    Phase
	terms    bool
	lastErr  *Failure
	inFlight bool
	receipts []Receipt
	payment  *PaymentIntent
}

// NewSession создаёт сессию на каталоге. initial — ранее сохранённые
// конфигурации (продолжение редактирования), может быть nil.
func NewSession(products []catalog.Product, initial []Configuration) *Session {
	s := &Session{
		id:       uuid.NewString(),
		products: products,
		sel:      SelectionsFromConfigurations(products, initial),
		phase:    PhaseStepping,
	}
	if first, ok := firstPosition(products); ok {
		s.pos = first
	} else {
		s.phase = PhaseSummary
	}
	return s
}

func (s *Session) ID() string                  { return s.id }
func (s *Session) Phase() Phase                { return s.phase }
func (s *Session) Position() Position          { return s.pos }
func (s *Session) Products() []catalog.Product { return s.products }
func (s *Session) TermsAccepted() bool         { return s.terms }
func (s *Session) LastError() *Failure         { return s.lastErr }
func (s *Session) InFlight() bool              { return s.inFlight }
func (s *Session) Receipts() []Receipt         { return append([]Receipt(nil), s.receipts...) }

func (s *Session) Payment() (PaymentIntent, bool) {
	if s.payment == nil {
		return PaymentIntent{}, false
	}
	return *s.payment, true
}

// Selections — копия ответов.
func (s *Session) Selections() Selections { return s.sel.Clone() }

func (s *Session) Value(productID, stepID string) Value { return s.sel.Get(productID, stepID) }

// Pricing пересчитывается на каждом чтении.
func (s *Session) Pricing() Pricing { return Derive(s.products, s.sel) }

// Progress в процентах.
func (s *Session) Progress() int {
	if s.phase != PhaseStepping {
		return 100
	}
	return Progress(s.products, s.pos)
}

// Current — текущие продукт и шаг (ok=false вне фазы Stepping).
func (s *Session) Current() (catalog.Product, catalog.Step, bool) {
	if s.phase != PhaseStepping {
		return catalog.Product{}, catalog.Step{}, false
	}
	return at(s.products, s.pos)
}

// SetValue заменяет ответ на шаг и сбрасывает ошибку валидации.
func (s *Session) SetValue(productID, stepID string, v Value) error {
	if !s.phase.Editable() {
		return ErrWrongPhase
	}
	p, ok := catalog.Find(s.products, productID)
	if !ok {
		return ErrUnknownStep
	}
	st, ok := p.Step(stepID)
	if !ok {
		return ErrUnknownStep
	}

	switch {
	case st.Multi() && !v.IsMulti() && !v.IsEmpty():
		v = Multi(v.String())
	case !st.Multi() && v.IsMulti():
		return s.reject(&StepError{ProductID: productID, StepID: stepID, StepLabel: st.Label, Err: ErrInvalidValue})
	}
	if st.Multi() && len(v.IDs()) > st.MaxSelections {
		return s.reject(&StepError{ProductID: productID, StepID: stepID, StepLabel: st.Label, Err: ErrTooManySelections})
	}
	if st.Kind.HasOptions() {
		for _, id := range v.IDs() {
			if _, ok := st.Option(id); !ok {
				return s.reject(&StepError{ProductID: productID, StepID: stepID, StepLabel: st.Label, Err: ErrInvalidValue})
			}
		}
	}

	s.sel.Set(productID, stepID, v)
	s.lastErr = nil
	return nil
}

// Toggle выбирает/снимает вариант. Для одиночного выбора повторный выбор
// того же варианта очищает шаг.
func (s *Session) Toggle(productID, stepID, optionID string) error {
	p, ok := catalog.Find(s.products, productID)
	if !ok {
		return ErrUnknownStep
	}
	st, ok := p.Step(stepID)
	if !ok {
		return ErrUnknownStep
	}
	cur := s.sel.Get(productID, stepID)

	if !st.Multi() {
		if cur.String() == optionID {
			return s.SetValue(productID, stepID, Null)
		}
		return s.SetValue(productID, stepID, Scalar(optionID))
	}

	ids := cur.IDs()
	if cur.Contains(optionID) {
		kept := ids[:0]
		for _, id := range ids {
			if id != optionID {
				kept = append(kept, id)
			}
		}
		return s.SetValue(productID, stepID, Multi(kept...))
	}
	return s.SetValue(productID, stepID, Multi(append(ids, optionID)...))
}

// SetCurrent — SetValue для текущего шага.
func (s *Session) SetCurrent(v Value) error {
	p, st, ok := s.Current()
	if !ok {
		return ErrWrongPhase
	}
	return s.SetValue(p.ID, st.ID, v)
}

func (s *Session) AcceptTerms(accepted bool) {
	s.terms = accepted
	if accepted && s.lastErr != nil && s.lastErr.Kind == KindValidation {
		s.lastErr = nil
	}
}

func (s *Session) reject(err error) error {
	s.lastErr = failureOf(err)
	return err
}

func (s *Session) fail(err error) error {
	s.phase = PhaseFailed
	s.inFlight = false
	s.lastErr = failureOf(err)
	return err
}
