package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	btnStand    = "🧩 Настроить стенд"
	btnMyOrder  = "🧾 Мой заказ"
	btnImport   = "📥 Загрузить каталог"
	btnExport   = "📤 Выгрузить заказы"
	btnTemplate = "📄 Текущий каталог"
)

func navKeyboard(back bool, cancel bool) tgbotapi.InlineKeyboardMarkup {
	row := []tgbotapi.InlineKeyboardButton{}
	if back {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("⬅️ Назад", "nav:back"))
	}
	if cancel {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData("✖️ Отменить", "nav:cancel"))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

// adminReplyKeyboard Нижняя панель (ReplyKeyboard) для админа
func adminReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton(btnImport), tgbotapi.NewKeyboardButton(btnTemplate)},
			{tgbotapi.NewKeyboardButton(btnExport)},
			{tgbotapi.NewKeyboardButton(btnStand)},
		},
	}
}

func exhibitorReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton(btnStand)},
			{tgbotapi.NewKeyboardButton(btnMyOrder)},
		},
	}
}
