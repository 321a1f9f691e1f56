package bot

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/expo-stand-bot/internal/dialog"
	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/domain/configurations"
)

const maxCatalogFile = 10 << 20

func (b *Bot) handleAdminButton(ctx context.Context, chatID int64, text string) {
	switch text {
	case btnImport:
		_ = b.states.Set(ctx, chatID, dialog.StateAdmCatalogImport, dialog.Payload{})
		m := tgbotapi.NewMessage(chatID,
			"Пришлите Excel-файл (.xlsx) с каталогом. Текущий каталог мероприятия будет заменён целиком.\n"+
				"Шаблон — кнопка «"+btnTemplate+"».")
		m.ReplyMarkup = navKeyboard(false, true)
		b.send(m)
	case btnExport:
		b.exportOrders(ctx, chatID)
	case btnTemplate:
		b.exportCatalog(ctx, chatID)
	}
}

// handleCatalogImport читает каталог из присланного Excel и заменяет каталог мероприятия.
func (b *Bot) handleCatalogImport(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	if msg.Document == nil || !strings.HasSuffix(strings.ToLower(msg.Document.FileName), ".xlsx") {
		b.send(tgbotapi.NewMessage(chatID, "Нужен файл .xlsx документом."))
		return
	}
	data, err := b.downloadTelegramFile(ctx, msg.Document.FileID, maxCatalogFile)
	if err != nil {
		b.log.Error("download catalog failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось скачать файл из Telegram."))
		return
	}

	products, err := catalog.ReadExcel(bytes.NewReader(data))
	if err != nil {
		b.send(tgbotapi.NewMessage(chatID, "Каталог не принят: "+err.Error()))
		return
	}
	if err := b.catalog.ReplaceCatalog(ctx, b.opts.EventID, products); err != nil {
		b.log.Error("replace catalog failed", "event_id", b.opts.EventID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось сохранить каталог: "+err.Error()))
		return
	}

	_ = b.states.Set(ctx, chatID, dialog.StateIdle, dialog.Payload{})
	b.log.Info("catalog imported", "event_id", b.opts.EventID, "products", len(products), "steps", catalog.TotalSteps(products))
	b.send(tgbotapi.NewMessage(chatID, fmt.Sprintf(
		"Каталог обновлён.\nПродуктов: %d\nШагов: %d", len(products), catalog.TotalSteps(products))))
}

func (b *Bot) exportCatalog(ctx context.Context, chatID int64) {
	products, err := b.catalog.FetchProducts(ctx, b.opts.EventID)
	if err != nil {
		b.log.Error("fetch catalog failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить каталог."))
		return
	}
	var buf bytes.Buffer
	if err := catalog.WriteExcel(&buf, products); err != nil {
		b.log.Error("write catalog xlsx failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось сформировать файл."))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("catalog_%d.xlsx", b.opts.EventID),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Каталог: продуктов %d. Отредактируйте и загрузите обратно.", len(products))
	b.send(doc)
}

func (b *Bot) exportOrders(ctx context.Context, chatID int64) {
	rows, err := b.configs.ListByEvent(ctx, b.opts.EventID)
	if err != nil {
		b.log.Error("list configurations failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить заказы."))
		return
	}
	if len(rows) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Заказов пока нет."))
		return
	}
	var buf bytes.Buffer
	if err := configurations.WriteExcel(&buf, rows); err != nil {
		b.log.Error("write orders xlsx failed", "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось сформировать файл."))
		return
	}
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("orders_%d_%s.xlsx", b.opts.EventID, time.Now().Format("20060102_1504")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("Конфигураций: %d", len(rows))
	b.send(doc)
}
