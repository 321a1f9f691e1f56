package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/expo-stand-bot/internal/dialog"
	"github.com/Spok95/expo-stand-bot/internal/domain/users"
)

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		u, err := b.upsertUser(ctx, msg.From)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "Ошибка: не удалось сохранить профиль"))
			return
		}
		if !u.Registered() {
			_ = b.states.Set(ctx, chatID, dialog.StateAwaitCompany, dialog.Payload{})
			b.askCompany(chatID)
			return
		}
		b.showMainMenu(chatID, u)

	case "stand":
		u, _ := b.users.GetByTelegramID(ctx, msg.From.ID)
		if !u.Registered() {
			b.send(tgbotapi.NewMessage(chatID, "Сначала зарегистрируйтесь: /start"))
			return
		}
		b.startWizard(ctx, chatID, u)

	case "order":
		u, _ := b.users.GetByTelegramID(ctx, msg.From.ID)
		if u == nil {
			b.send(tgbotapi.NewMessage(chatID, "Сначала зарегистрируйтесь: /start"))
			return
		}
		b.showMyOrder(ctx, chatID, u)

	case "admin":
		u, _ := b.users.GetByTelegramID(ctx, msg.From.ID)
		if !b.isAdmin(u) {
			b.send(tgbotapi.NewMessage(chatID, "Доступ запрещён"))
			return
		}
		m := tgbotapi.NewMessage(chatID, "Админка: загрузка каталога стендов и выгрузка заказов.")
		m.ReplyMarkup = adminReplyKeyboard()
		b.send(m)

	case "help":
		b.send(tgbotapi.NewMessage(chatID,
			"Команды:\n/start — регистрация\n/stand — настроить стенд\n/order — мой заказ\n/help — помощь"))

	default:
		b.send(tgbotapi.NewMessage(chatID, "Не знаю такую команду. Наберите /help"))
	}
}

func (b *Bot) handleStateMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("load dialog state failed", "chat_id", chatID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Ошибка, попробуйте ещё раз."))
		return
	}
	u, _ := b.users.GetByTelegramID(ctx, msg.From.ID)

	// Нижняя панель
	switch strings.TrimSpace(msg.Text) {
	case btnStand:
		if !u.Registered() {
			b.send(tgbotapi.NewMessage(chatID, "Сначала зарегистрируйтесь: /start"))
			return
		}
		b.startWizard(ctx, chatID, u)
		return
	case btnMyOrder:
		if u != nil {
			b.showMyOrder(ctx, chatID, u)
		}
		return
	case btnImport, btnExport, btnTemplate:
		if !b.isAdmin(u) {
			return
		}
		b.handleAdminButton(ctx, chatID, msg.Text)
		return
	}

	switch st.State {
	case dialog.StateAwaitCompany:
		b.handleCompany(ctx, msg, u)
	case dialog.StateWizard:
		if u == nil {
			return
		}
		b.handleWizardInput(ctx, msg, u, st)
	case dialog.StateAdmCatalogImport:
		if !b.isAdmin(u) {
			return
		}
		b.handleCatalogImport(ctx, msg)
	default:
		if u != nil {
			b.showMainMenu(chatID, u)
		}
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID
	data := cb.Data

	switch {
	case data == "nav:cancel":
		b.answerCallback(cb, "", false)
		b.cancelDialog(ctx, chatID, cb.Message.MessageID)

	case strings.HasPrefix(data, "wz:"):
		u, _ := b.users.GetByTelegramID(ctx, cb.From.ID)
		if u == nil {
			b.answerCallback(cb, "Сначала зарегистрируйтесь: /start", true)
			return
		}
		b.handleWizardCallback(ctx, cb, u)

	default:
		b.answerCallback(cb, "Кнопка устарела", false)
	}
}

// cancelDialog — «Отменить» в любом диалоге: состояние сбрасывается, кнопки убираются.
func (b *Bot) cancelDialog(ctx context.Context, chatID int64, messageID int) {
	st, _ := b.states.Get(ctx, chatID)
	if st != nil && st.State == dialog.StateWizard {
		if snap, ok := decodeSnapshot(st.Payload); ok && snap.Payment != nil {
			b.observer.Stop(snap.Payment.PaymentID)
		}
	}
	_ = b.states.Reset(ctx, chatID)
	b.editTextAndClear(chatID, messageID, "Отменено.")
}

func (b *Bot) upsertUser(ctx context.Context, from *tgbotapi.User) (*users.User, error) {
	role := users.RoleExhibitor
	if from.ID == b.adminChat {
		role = users.RoleAdmin
	}
	return b.users.UpsertFromTelegram(ctx, users.Telegram{
		ID:        from.ID,
		Username:  from.UserName,
		FirstName: from.FirstName,
		LastName:  from.LastName,
	}, role)
}

func (b *Bot) showMainMenu(chatID int64, u *users.User) {
	m := tgbotapi.NewMessage(chatID, "Готово! Чтобы собрать стенд, жмите «"+btnStand+"».")
	if b.isAdmin(u) {
		m.Text = "Привет, админ! Каталог и заказы — в меню снизу."
		m.ReplyMarkup = adminReplyKeyboard()
	} else {
		m.ReplyMarkup = exhibitorReplyKeyboard()
	}
	b.send(m)
}
