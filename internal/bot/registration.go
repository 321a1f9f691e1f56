package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/expo-stand-bot/internal/dialog"
	"github.com/Spok95/expo-stand-bot/internal/domain/users"
)

func (b *Bot) askCompany(chatID int64) {
	kb := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить", "nav:cancel"),
		),
	)
	m := tgbotapi.NewMessage(chatID, "Введите, пожалуйста, название компании-экспонента одной строкой.")
	m.ReplyMarkup = kb
	b.send(m)
}

func (b *Bot) handleCompany(ctx context.Context, msg *tgbotapi.Message, u *users.User) {
	chatID := msg.Chat.ID
	company := strings.TrimSpace(msg.Text)
	if company == "" || len([]rune(company)) > 200 {
		b.send(tgbotapi.NewMessage(chatID, "Название не может быть пустым (и не длиннее 200 символов). Попробуйте ещё раз."))
		return
	}
	if u == nil {
		var err error
		if u, err = b.upsertUser(ctx, msg.From); err != nil {
			b.send(tgbotapi.NewMessage(chatID, "Ошибка: не удалось сохранить профиль"))
			return
		}
	}
	if err := b.users.SetCompany(ctx, u.ID, company); err != nil {
		b.log.Error("set company failed", "user_id", u.ID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Ошибка: не удалось сохранить компанию"))
		return
	}
	u.Company = company
	_ = b.states.Set(ctx, chatID, dialog.StateIdle, dialog.Payload{})
	b.notifyAdmin("Новый экспонент: " + u.DisplayName())
	b.showMainMenu(chatID, u)
}
