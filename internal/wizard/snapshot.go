package wizard

import (
	"github.com/google/uuid"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
)

// Snapshot — сериализуемое состояние сессии (хранится в payload диалога).
type Snapshot struct {
	ID            string         `json:"id"`
	Position      Position       `json:"position"`
	Selections    Selections     `json:"selections"`
	Phase         Phase          `json:"phase"`
	TermsAccepted bool           `json:"terms_accepted"`
	LastError     *Failure       `json:"last_error,omitempty"`
	InFlight      bool           `json:"in_flight,omitempty"`
	Receipts      []Receipt      `json:"receipts,omitempty"`
	Payment       *PaymentIntent `json:"payment,omitempty"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:            s.id,
		Position:      s.pos,
		Selections:    s.sel.Clone(),
		Phase:         s.phase,
		TermsAccepted: s.terms,
		LastError:     s.lastErr,
		InFlight:      s.inFlight,
		Receipts:      s.Receipts(),
	}
	if s.payment != nil {
		p := *s.payment
		snap.Payment = &p
	}
	return snap
}

// Restore поднимает сессию из снимка на актуальном каталоге.
// Позиция подрезается под каталог, устаревшие ответы отбрасываются.
// Снимок, сделанный посреди отправки, возвращается в сводку.
func Restore(products []catalog.Product, snap Snapshot) *Session {
	s := &Session{
		id:       snap.ID,
		products: products,
		sel:      sanitize(products, snap.Selections),
		phase:    snap.Phase,
		terms:    snap.TermsAccepted,
		lastErr:  snap.LastError,
		receipts: append([]Receipt(nil), snap.Receipts...),
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	if snap.Payment != nil {
		p := *snap.Payment
		s.payment = &p
	}

	switch s.phase {
	case PhaseSubmitting:
		s.phase = PhaseSummary
	case PhaseStepping, PhaseSummary, PhaseAwaitingPayment, PhaseCompleted, PhaseFailed:
	default:
		s.phase = PhaseStepping
	}
	if s.phase == PhaseAwaitingPayment && s.payment == nil {
		s.phase = PhaseSummary
	}

	pos, ok := clampPosition(products, snap.Position)
	s.pos = pos
	if !ok && s.phase == PhaseStepping {
		s.phase = PhaseSummary
	}
	return s
}
