package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/expo-stand-bot/internal/dialog"
	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/domain/configurations"
	"github.com/Spok95/expo-stand-bot/internal/domain/users"
	"github.com/Spok95/expo-stand-bot/internal/infra/metrics"
	"github.com/Spok95/expo-stand-bot/internal/infra/payments"
	"github.com/Spok95/expo-stand-bot/internal/infra/storage"
)

// Options — настройки визарда для мероприятия.
type Options struct {
	AdminChatID int64
	EventID     int64
	GroupTitle  string
	TermsURL    string
	RedirectURL string
}

type Deps struct {
	Users    *users.Repo
	States   *dialog.Repo
	Catalog  *catalog.Repo
	Configs  *configurations.Repo
	Payments *payments.Service
	Observer *payments.Observer
	Storage  *storage.Client
	Metrics  *metrics.Metrics
}

type Bot struct {
	api       *tgbotapi.BotAPI
	log       *slog.Logger
	users     *users.Repo
	states    *dialog.Repo
	catalog   *catalog.Repo
	configs   *configurations.Repo
	payments  *payments.Service
	observer  *payments.Observer
	storage   *storage.Client
	metrics   *metrics.Metrics
	adminChat int64
	opts      Options

	// исходы оплаты из горутин наблюдателя; обрабатываются в Run,
	// чтобы сессию визарда менял только один поток
	outcomes chan paymentOutcome
}

func New(api *tgbotapi.BotAPI, log *slog.Logger, deps Deps, opts Options) *Bot {
	return &Bot{
		api: api, log: log,
		users: deps.Users, states: deps.States,
		catalog: deps.Catalog, configs: deps.Configs,
		payments: deps.Payments, observer: deps.Observer,
		storage: deps.Storage, metrics: deps.Metrics,
		adminChat: opts.AdminChatID,
		opts:      opts,
		outcomes:  make(chan paymentOutcome, 16),
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	b.resumeWatches(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out := <-b.outcomes:
			b.onPaymentOutcome(ctx, out)
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if upd.Message != nil {
				b.onMessage(ctx, upd.Message)
			} else if upd.CallbackQuery != nil {
				b.handleCallback(ctx, upd.CallbackQuery)
			}
		}
	}
}

func (b *Bot) onMessage(ctx context.Context, msg *tgbotapi.Message) {
	if msg.From == nil {
		return
	}
	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleStateMessage(ctx, msg)
}

func (b *Bot) isAdmin(u *users.User) bool {
	return u != nil && (u.Role == users.RoleAdmin || u.TelegramID == b.adminChat)
}

// notifyAdmin пишет в админский чат, если он настроен.
func (b *Bot) notifyAdmin(text string) {
	if b.adminChat == 0 {
		return
	}
	b.send(tgbotapi.NewMessage(b.adminChat, text))
}
