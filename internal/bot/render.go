package bot

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

/*** ТЕКСТЫ ЭКРАНОВ ВИЗАРДА ***/

func rub(m catalog.Money) string { return m.String() + " ₽" }

// renderStep — экран текущего шага.
func renderStep(s *wizard.Session, title string) string {
	p, st, ok := s.Current()
	if !ok {
		return ""
	}
	var sb strings.Builder
	if title != "" {
		sb.WriteString(title + "\n")
	}
	fmt.Fprintf(&sb, "%s · шаг %d из %d · %d%%\n\n",
		p.Title, s.Position().Step+1, len(p.Steps), s.Progress())

	sb.WriteString(st.Label)
	if st.Required {
		sb.WriteString(" *")
	}
	sb.WriteString("\n")
	if st.Description != "" {
		sb.WriteString(st.Description + "\n")
	}
	sb.WriteString("\n")

	v := s.Value(p.ID, st.ID)
	switch st.Kind {
	case catalog.KindText:
		hint := "Отправьте ответ сообщением."
		if st.Placeholder != "" {
			hint += " Например: " + st.Placeholder
		}
		sb.WriteString(hint + "\n")
		if !v.IsEmpty() {
			sb.WriteString("Сейчас: " + v.String() + "\n")
		}
	case catalog.KindUpload:
		sb.WriteString("Пришлите файл документом или фото.\n")
		if !v.IsEmpty() {
			sb.WriteString("✅ " + wizard.AttachedLabel + "\n")
		}
	default:
		if st.Multi() {
			fmt.Fprintf(&sb, "Можно выбрать до %d вариантов.\n", st.MaxSelections)
		}
		for _, o := range st.Options {
			mark := "▫️"
			if v.Contains(o.ID) {
				mark = "✅"
			}
			fmt.Fprintf(&sb, "%s %s — %s\n", mark, o.Label, rub(o.Price))
			if o.Description != "" {
				sb.WriteString("    " + o.Description + "\n")
			}
			if st.Kind == catalog.KindImageSelect && o.ImageURL != "" {
				sb.WriteString("    🖼 " + o.ImageURL + "\n")
			}
		}
	}

	fmt.Fprintf(&sb, "\nИтого: %s", rub(s.Pricing().GrandTotal))
	if msg := failureText(s.LastError(), s.Products()); msg != "" {
		sb.WriteString("\n\n⚠️ " + msg)
	}
	return sb.String()
}

// renderSummary — сводка перед оформлением (и после неудачной отправки/оплаты).
func renderSummary(s *wizard.Session, title, termsURL string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(title + "\n")
	}
	sb.WriteString("Проверьте заказ\n")

	pricing := s.Pricing()
	for _, pp := range pricing.Products {
		if len(pp.Items) == 0 {
			continue
		}
		sb.WriteString("\n" + pp.Title + "\n")
		for _, it := range pp.Items {
			line := fmt.Sprintf("• %s: %s", it.StepLabel, it.ChosenLabel)
			if it.Price > 0 {
				line += " — " + rub(it.Price)
			}
			sb.WriteString(line + "\n")
		}
		sb.WriteString("Подытог: " + rub(pp.Subtotal) + "\n")
	}
	if pricing.GrandTotal == 0 && !hasItems(pricing) {
		sb.WriteString("\nНичего не выбрано.\n")
	}
	sb.WriteString("\nК оплате: " + rub(pricing.GrandTotal) + "\n")

	terms := "⬜ Я принимаю условия участия"
	if s.TermsAccepted() {
		terms = "☑️ Я принимаю условия участия"
	}
	sb.WriteString("\n" + terms)
	if termsURL != "" {
		sb.WriteString("\n" + termsURL)
	}

	if msg := failureText(s.LastError(), s.Products()); msg != "" {
		sb.WriteString("\n\n⚠️ " + msg)
	}
	return sb.String()
}

// renderPayment — экран ожидания оплаты.
func renderPayment(s *wizard.Session) string {
	var sb strings.Builder
	sb.WriteString("Заявка сохранена.\n")
	if rs := s.Receipts(); len(rs) > 0 {
		sb.WriteString("Номер заказа: " + rs[0].Identifier() + "\n")
	}
	sb.WriteString("К оплате: " + rub(s.Pricing().GrandTotal) + "\n\n")
	sb.WriteString("Нажмите «Оплатить», после оплаты бот сам пришлёт подтверждение.")
	return sb.String()
}

func hasItems(p wizard.Pricing) bool {
	for _, pp := range p.Products {
		if len(pp.Items) > 0 {
			return true
		}
	}
	return false
}

// failureText — сообщение пользователю по последней ошибке сессии.
func failureText(f *wizard.Failure, products []catalog.Product) string {
	if f == nil {
		return ""
	}
	switch f.Kind {
	case wizard.KindValidation:
		switch {
		case strings.HasPrefix(f.Message, wizard.ErrTermsNotAccepted.Error()):
			return "Чтобы оформить заказ, примите условия участия."
		case strings.HasPrefix(f.Message, wizard.ErrTooManySelections.Error()):
			return "Выбрано слишком много вариантов."
		case strings.HasPrefix(f.Message, wizard.ErrFieldRequired.Error()):
			if label := stepLabel(products, f.StepID); label != "" {
				return fmt.Sprintf("Шаг «%s» обязателен.", label)
			}
			return "Это обязательный шаг."
		default:
			return "Такой вариант выбрать нельзя."
		}
	case wizard.KindUpload:
		return "Не удалось загрузить файл, попробуйте ещё раз."
	case wizard.KindSubmission:
		return "Не удалось сохранить заявку. Ваши ответы сохранены, попробуйте ещё раз."
	case wizard.KindPaymentCreate:
		return "Не удалось создать платёж. Попробуйте ещё раз чуть позже."
	case wizard.KindPaymentOutcome:
		reason := strings.TrimPrefix(f.Message, wizard.ErrPaymentOutcome.Error())
		reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
		if reason == "" {
			return "Оплата не прошла. Можно изменить заказ и оформить снова."
		}
		return "Оплата не прошла (" + reason + "). Можно изменить заказ и оформить снова."
	default:
		return "Что-то пошло не так, попробуйте ещё раз."
	}
}

func stepLabel(products []catalog.Product, stepID string) string {
	for _, p := range products {
		if st, ok := p.Step(stepID); ok {
			return st.Label
		}
	}
	return ""
}

/*** КЛАВИАТУРЫ ВИЗАРДА ***/

func stepKeyboard(s *wizard.Session) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	p, st, ok := s.Current()
	if ok {
		v := s.Value(p.ID, st.ID)
		for i, o := range st.Options {
			label := o.Label
			if o.Price > 0 {
				label += " · " + rub(o.Price)
			}
			if v.Contains(o.ID) {
				label = "✅ " + label
			}
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("wz:opt:%d", i)),
			))
		}
		if !st.Kind.HasOptions() && !v.IsEmpty() {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("🗑 Очистить", "wz:clear"),
			))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "wz:prev"),
		tgbotapi.NewInlineKeyboardButtonData("Далее ➡️", "wz:next"),
	))
	rows = append(rows, navKeyboard(false, true).InlineKeyboard[0])
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func summaryKeyboard(s *wizard.Session) tgbotapi.InlineKeyboardMarkup {
	terms := "⬜ Принимаю условия"
	if s.TermsAccepted() {
		terms = "☑️ Принимаю условия"
	}
	submit := "📨 Оформить"
	if s.Phase() == wizard.PhaseFailed {
		submit = "🔁 Повторить"
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(terms, "wz:terms")),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(submit, "wz:complete")),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Изменить", "wz:prev"),
			tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить", "nav:cancel"),
		),
	)
}

func paymentKeyboard(s *wizard.Session) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if p, ok := s.Payment(); ok && p.CheckoutURL != "" {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("💳 Оплатить", p.CheckoutURL),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("🔄 Проверить оплату", "wz:check"),
		tgbotapi.NewInlineKeyboardButtonData("🔕 Не следить", "wz:dismiss"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// screen — текст и клавиатура для текущей фазы сессии.
func screen(s *wizard.Session, title, termsURL string) (string, tgbotapi.InlineKeyboardMarkup) {
	switch s.Phase() {
	case wizard.PhaseStepping:
		return renderStep(s, title), stepKeyboard(s)
	case wizard.PhaseAwaitingPayment:
		return renderPayment(s), paymentKeyboard(s)
	default:
		return renderSummary(s, title, termsURL), summaryKeyboard(s)
	}
}
