package wizard

import "github.com/Spok95/expo-stand-bot/internal/domain/catalog"

// Next проверяет текущий шаг и двигается вперёд: следующий шаг продукта,
// первый шаг следующего продукта или сводка после последнего шага.
func (s *Session) Next() error {
	if s.phase != PhaseStepping {
		return ErrWrongPhase
	}
	p, st, ok := at(s.products, s.pos)
	if !ok {
		// позиция указывает в пустой продукт — перескакиваем дальше
		return s.advanceFrom(s.pos.Product)
	}
	if st.Required && s.sel.Get(p.ID, st.ID).IsEmpty() {
		return s.reject(&StepError{ProductID: p.ID, StepID: st.ID, StepLabel: st.Label, Err: ErrFieldRequired})
	}
	s.lastErr = nil

	if s.pos.Step+1 < len(p.Steps) {
		s.pos.Step++
		return nil
	}
	return s.advanceFrom(s.pos.Product)
}

func (s *Session) advanceFrom(productIdx int) error {
	for i := productIdx + 1; i < len(s.products); i++ {
		if len(s.products[i].Steps) > 0 {
			s.pos = Position{Product: i}
			return nil
		}
	}
	s.phase = PhaseSummary
	return nil
}

// Previous двигается назад. cancel=true — пользователь уже на самом первом
// шаге: переход не делается, вызывающий должен отменить визард.
// Из сводки возвращает на последний шаг последнего продукта, ответы сохраняются.
// Из Failed возвращает в сводку.
func (s *Session) Previous() (cancel bool, err error) {
	switch s.phase {
	case PhaseFailed:
		s.phase = PhaseSummary
		s.lastErr = nil
		return false, nil

	case PhaseSummary:
		last, ok := lastPosition(s.products)
		if !ok {
			return true, nil
		}
		s.pos = last
		s.phase = PhaseStepping
		s.lastErr = nil
		return false, nil

	case PhaseStepping:
		s.lastErr = nil
		if _, _, ok := at(s.products, s.pos); ok && s.pos.Step > 0 {
			s.pos.Step--
			return false, nil
		}
		for i := s.pos.Product - 1; i >= 0; i-- {
			if n := len(s.products[i].Steps); n > 0 {
				s.pos = Position{Product: i, Step: n - 1}
				return false, nil
			}
		}
		return true, nil
	}
	return false, ErrWrongPhase
}

// Progress — процент прохождения: абсолютный индекс шага по всем продуктам,
// делённый на (всего шагов + 1). 100% только в сводке.
func Progress(products []catalog.Product, pos Position) int {
	total := catalog.TotalSteps(products)
	return AbsoluteIndex(products, pos) * 100 / (total + 1)
}

// AbsoluteIndex — сумма шагов предыдущих продуктов плюс индекс шага.
func AbsoluteIndex(products []catalog.Product, pos Position) int {
	n := 0
	for i := 0; i < pos.Product && i < len(products); i++ {
		n += len(products[i].Steps)
	}
	return n + pos.Step
}

func at(products []catalog.Product, pos Position) (catalog.Product, catalog.Step, bool) {
	if pos.Product < 0 || pos.Product >= len(products) {
		return catalog.Product{}, catalog.Step{}, false
	}
	p := products[pos.Product]
	if pos.Step < 0 || pos.Step >= len(p.Steps) {
		return catalog.Product{}, catalog.Step{}, false
	}
	return p, p.Steps[pos.Step], true
}

func firstPosition(products []catalog.Product) (Position, bool) {
	for i, p := range products {
		if len(p.Steps) > 0 {
			return Position{Product: i}, true
		}
	}
	return Position{}, false
}

func lastPosition(products []catalog.Product) (Position, bool) {
	for i := len(products) - 1; i >= 0; i-- {
		if n := len(products[i].Steps); n > 0 {
			return Position{Product: i, Step: n - 1}, true
		}
	}
	return Position{}, false
}

// clampPosition приводит сохранённую позицию к текущему каталогу.
func clampPosition(products []catalog.Product, pos Position) (Position, bool) {
	if pos.Product >= 0 && pos.Product < len(products) {
		if n := len(products[pos.Product].Steps); n > 0 {
			if pos.Step < 0 {
				pos.Step = 0
			}
			if pos.Step >= n {
				pos.Step = n - 1
			}
			return pos, true
		}
	}
	return firstPosition(products)
}
