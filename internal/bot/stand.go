package bot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/expo-stand-bot/internal/dialog"
	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/domain/configurations"
	"github.com/Spok95/expo-stand-bot/internal/domain/users"
	"github.com/Spok95/expo-stand-bot/internal/infra/payments"
	"github.com/Spok95/expo-stand-bot/internal/infra/storage"
	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

const submitTimeout = 30 * time.Second

type paymentOutcome struct {
	chatID    int64
	sessionID string
	paymentID string
	kind      string // success | error | timeout
	reason    string
}

func decodeSnapshot(p dialog.Payload) (wizard.Snapshot, bool) {
	var snap wizard.Snapshot
	ok, err := dialog.Decode(p, dialog.KeyWizard, &snap)
	if err != nil || !ok {
		return wizard.Snapshot{}, false
	}
	return snap, true
}

// orchestrator привязывает сохранение конфигураций к экспоненту и мероприятию.
func (b *Bot) orchestrator(u *users.User) *wizard.Orchestrator {
	persist := wizard.PersisterFunc(func(ctx context.Context, cfg wizard.Configuration) (wizard.Receipt, error) {
		return b.configs.Submit(ctx, u.ID, b.opts.EventID, cfg)
	})
	return wizard.NewOrchestrator(persist, b.payments, b.opts.RedirectURL, b.log.With("user_id", u.ID))
}

func (b *Bot) wizardOptions(onCancel func()) wizard.Options {
	return wizard.Options{GroupTitle: b.opts.GroupTitle, OnCancel: onCancel}
}

// loadWizard поднимает визард из состояния диалога. nil — снимка нет.
func (b *Bot) loadWizard(ctx context.Context, st *dialog.Item, orch *wizard.Orchestrator, onCancel func()) (*wizard.Wizard, error) {
	if st == nil || st.State != dialog.StateWizard {
		return nil, nil
	}
	snap, ok := decodeSnapshot(st.Payload)
	if !ok {
		return nil, nil
	}
	products, err := b.catalog.FetchProducts(ctx, b.opts.EventID)
	if err != nil {
		return nil, err
	}
	return wizard.Resume(products, snap, orch, b.wizardOptions(onCancel)), nil
}

func (b *Bot) saveWizard(ctx context.Context, chatID int64, w *wizard.Wizard, mid int) {
	payload := dialog.Payload{"last_mid": float64(mid)}
	if err := dialog.Encode(payload, dialog.KeyWizard, w.Snapshot()); err != nil {
		b.log.Error("encode wizard snapshot failed", "chat_id", chatID, "err", err)
		return
	}
	if err := b.states.Set(ctx, chatID, dialog.StateWizard, payload); err != nil {
		b.log.Error("save wizard failed", "chat_id", chatID, "session_id", w.ID(), "err", err)
	}
}

// show рисует текущий экран: правит сообщение mid или (mid == 0) шлёт новое.
func (b *Bot) show(ctx context.Context, chatID int64, w *wizard.Wizard, mid int) {
	text, kb := screen(w.Session, w.GroupTitle(), b.opts.TermsURL)
	if mid > 0 {
		if _, err := b.api.Send(tgbotapi.NewEditMessageTextAndMarkup(chatID, mid, text, kb)); err != nil {
			// "message is not modified" и т.п. — не критично
			b.log.Debug("edit wizard message failed", "chat_id", chatID, "err", err)
		}
	} else {
		mid = b.sendText(chatID, text, kb)
	}
	b.saveWizard(ctx, chatID, w, mid)
}

// startWizard открывает визард: продолжает начатую сессию или создаёт новую,
// подставляя ответы из последнего неоплаченного заказа экспонента.
func (b *Bot) startWizard(ctx context.Context, chatID int64, u *users.User) {
	st, _ := b.states.Get(ctx, chatID)
	orch := b.orchestrator(u)

	w, err := b.loadWizard(ctx, st, orch, nil)
	if err != nil {
		b.log.Error("resume wizard failed", "chat_id", chatID, "err", err)
	}
	if w != nil {
		b.clearPrevStep(chatID, st.Payload)
		b.show(ctx, chatID, w, 0)
		return
	}

	products, err := b.catalog.FetchProducts(ctx, b.opts.EventID)
	if err != nil {
		b.log.Error("fetch catalog failed", "event_id", b.opts.EventID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить каталог, попробуйте позже."))
		return
	}
	if catalog.TotalSteps(products) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Каталог опций стенда ещё не опубликован."))
		return
	}

	prior, err := b.configs.LatestForUser(ctx, u.ID, b.opts.EventID)
	if err != nil {
		b.log.Warn("load prior configurations failed", "user_id", u.ID, "err", err)
		prior = nil
	}
	if len(prior) > 0 && prior[0].PaymentStatus == wizard.PaymentPaid {
		// оплаченный заказ не дублируем: новая сессия — с чистого листа
		prior = nil
	}

	opts := b.wizardOptions(nil)
	opts.Initial = prior
	w = wizard.New(products, orch, opts)
	b.log.Info("wizard started", "chat_id", chatID, "session_id", w.ID(), "resumed_from", len(prior))
	b.metrics.Transition("start", "")
	b.show(ctx, chatID, w, 0)
}

// track учитывает переход визарда с классом ошибки.
func (b *Bot) track(transition string, err error) {
	b.metrics.Transition(transition, string(wizard.Kind(err)))
}

func (b *Bot) handleWizardCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, u *users.User) {
	chatID := cb.Message.Chat.ID
	mid := cb.Message.MessageID

	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.answerCallback(cb, "Ошибка, попробуйте ещё раз", true)
		return
	}
	cancelled := false
	w, err := b.loadWizard(ctx, st, b.orchestrator(u), func() { cancelled = true })
	if err != nil {
		b.log.Error("load wizard failed", "chat_id", chatID, "err", err)
		b.answerCallback(cb, "Ошибка, попробуйте ещё раз", true)
		return
	}
	if w == nil {
		b.answerCallback(cb, "Сессия завершена", false)
		b.editTextAndClear(chatID, mid, "Сессия завершена. Начать заново: /stand")
		return
	}
	if last := lastMID(st.Payload); last != 0 && last != mid {
		b.answerCallback(cb, "Это старое сообщение, используйте последнее", false)
		return
	}

	action := strings.TrimPrefix(cb.Data, "wz:")
	var opErr error
	switch {
	case strings.HasPrefix(action, "opt:"):
		idx, convErr := strconv.Atoi(strings.TrimPrefix(action, "opt:"))
		p, step, ok := w.Current()
		if convErr != nil || !ok || idx < 0 || idx >= len(step.Options) {
			b.answerCallback(cb, "Кнопка устарела", false)
			b.show(ctx, chatID, w, mid)
			return
		}
		opErr = w.Toggle(p.ID, step.ID, step.Options[idx].ID)
		b.track("select", opErr)

	case action == "clear":
		opErr = w.SetCurrent(wizard.Null)
		b.track("clear", opErr)

	case action == "next":
		opErr = w.Next()
		b.track("next", opErr)

	case action == "prev":
		_, opErr = w.Previous()
		b.track("previous", opErr)
		if cancelled {
			b.answerCallback(cb, "", false)
			b.cancelDialog(ctx, chatID, mid)
			return
		}

	case action == "terms":
		w.AcceptTerms(!w.TermsAccepted())

	case action == "complete":
		b.answerCallback(cb, "", false)
		b.complete(ctx, chatID, mid, w)
		return

	case action == "check":
		if _, ok := w.Payment(); !ok || w.Phase() != wizard.PhaseAwaitingPayment {
			b.answerCallback(cb, "Платёж не ожидается", false)
			return
		}
		b.watchPayment(ctx, chatID, w)
		b.answerCallback(cb, "Проверяем оплату…", false)
		return

	case action == "dismiss":
		if p, ok := w.Payment(); ok {
			b.observer.Stop(p.PaymentID)
		}
		b.answerCallback(cb, "Не следим за оплатой. Проверить можно кнопкой «Проверить оплату».", true)
		return

	default:
		b.answerCallback(cb, "Кнопка устарела", false)
		return
	}

	switch {
	case opErr == nil:
		b.answerCallback(cb, "", false)
	case wizard.IsValidation(opErr):
		b.answerCallback(cb, failureText(w.LastError(), w.Products()), false)
	case errors.Is(opErr, wizard.ErrWrongPhase), errors.Is(opErr, wizard.ErrSubmitInFlight):
		b.answerCallback(cb, "Сейчас это действие недоступно", false)
	default:
		b.log.Error("wizard action failed", "chat_id", chatID, "action", action, "err", opErr)
		b.answerCallback(cb, "Ошибка, попробуйте ещё раз", true)
	}
	b.show(ctx, chatID, w, mid)
}

// handleWizardInput — текст или файл для текущего шага.
func (b *Bot) handleWizardInput(ctx context.Context, msg *tgbotapi.Message, u *users.User, st *dialog.Item) {
	chatID := msg.Chat.ID
	w, err := b.loadWizard(ctx, st, b.orchestrator(u), nil)
	if err != nil || w == nil {
		_ = b.states.Reset(ctx, chatID)
		b.send(tgbotapi.NewMessage(chatID, "Сессия устарела, начните заново: /stand"))
		return
	}
	p, step, ok := w.Current()
	if !ok {
		b.send(tgbotapi.NewMessage(chatID, "Используйте кнопки под сообщением."))
		return
	}

	switch step.Kind {
	case catalog.KindText:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			b.send(tgbotapi.NewMessage(chatID, "Отправьте ответ текстом."))
			return
		}
		err = w.SetValue(p.ID, step.ID, wizard.Scalar(text))
		b.track("input", err)

	case catalog.KindUpload:
		url, upErr := b.uploadFromMessage(ctx, msg)
		if upErr != nil {
			b.track("upload", upErr)
			b.log.Warn("upload failed", "chat_id", chatID, "session_id", w.ID(), "err", upErr)
			b.send(tgbotapi.NewMessage(chatID, uploadErrorText(upErr)))
			return
		}
		err = w.SetValue(p.ID, step.ID, wizard.Scalar(url))
		b.track("upload", err)

	default:
		b.send(tgbotapi.NewMessage(chatID, "Выберите вариант кнопкой под сообщением."))
		return
	}
	if err != nil {
		b.log.Warn("set value failed", "chat_id", chatID, "err", err)
	}

	b.clearPrevStep(chatID, st.Payload)
	b.show(ctx, chatID, w, 0)
}

var errNoFile = errors.New("no file in message")

// uploadFromMessage выгружает документ/фото из сообщения в файловое хранилище.
// Все ошибки оборачиваются в wizard.ErrUpload.
func (b *Bot) uploadFromMessage(ctx context.Context, msg *tgbotapi.Message) (string, error) {
	var fileID, name string
	var size int
	switch {
	case msg.Document != nil:
		fileID, name, size = msg.Document.FileID, msg.Document.FileName, msg.Document.FileSize
	case len(msg.Photo) > 0:
		ph := msg.Photo[len(msg.Photo)-1] // самое большое
		fileID, name, size = ph.FileID, ph.FileUniqueID+".jpg", ph.FileSize
	default:
		return "", fmt.Errorf("%w: %w", wizard.ErrUpload, errNoFile)
	}
	if name == "" {
		name = fileID
	}

	limit := b.storage.MaxBytes()
	if limit > 0 && int64(size) > limit {
		return "", fmt.Errorf("%w: %w", wizard.ErrUpload, storageTooLarge(limit))
	}
	data, err := b.downloadTelegramFile(ctx, fileID, limit)
	if err != nil {
		return "", fmt.Errorf("%w: %w", wizard.ErrUpload, err)
	}
	url, err := b.storage.Upload(ctx, name, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", wizard.ErrUpload, err)
	}
	return url, nil
}

// complete — «Оформить»: сохраняем конфигурации и, если нужно, создаём платёж.
func (b *Bot) complete(ctx context.Context, chatID int64, mid int, w *wizard.Wizard) {
	if w.InFlight() {
		return
	}
	// пока идёт отправка, кнопок нет — повторно нажать нельзя
	b.editTextAndClear(chatID, mid, "⏳ Сохраняем заявку…")

	cctx, cancel := context.WithTimeout(ctx, submitTimeout)
	defer cancel()
	out, err := w.Complete(cctx)
	b.track("complete", err)

	if err != nil {
		switch wizard.Kind(err) {
		case wizard.KindSubmission:
			b.metrics.Submission("failed")
		case wizard.KindPaymentCreate:
			b.metrics.Submission("ok")
			b.metrics.Payment("create_failed")
		}
		if !wizard.IsValidation(err) {
			b.log.Error("complete failed", "chat_id", chatID, "session_id", w.ID(), "err", err)
		}
		b.show(ctx, chatID, w, mid)
		return
	}

	b.metrics.Submission("ok")
	b.metrics.Order(int64(out.Total))
	order := "—"
	if len(out.Receipts) > 0 {
		order = out.Receipts[0].Identifier()
	}

	if out.Completed {
		if err := b.configs.SetSessionPaymentStatus(ctx, w.ID(), wizard.PaymentPaid); err != nil {
			b.log.Error("set payment status failed", "session_id", w.ID(), "err", err)
		}
		_ = b.states.Reset(ctx, chatID)
		b.editTextAndClear(chatID, mid, fmt.Sprintf("✅ Заявка принята! Номер заказа: %s. Оплата не требуется.", order))
		b.notifyAdmin(fmt.Sprintf("Заказ %s оформлен без оплаты.", order))
		return
	}

	b.metrics.Payment("created")
	if err := b.configs.AttachPayment(ctx, w.ID(), out.Payment.PaymentID); err != nil {
		b.log.Error("attach payment failed", "session_id", w.ID(), "payment_id", out.Payment.PaymentID, "err", err)
	}
	b.show(ctx, chatID, w, mid)
	b.watchPayment(ctx, chatID, w)
	b.notifyAdmin(fmt.Sprintf("Заказ %s на %s ждёт оплаты.", order, rub(out.Total)))
}

func (b *Bot) watchPayment(ctx context.Context, chatID int64, w *wizard.Wizard) {
	p, ok := w.Payment()
	if !ok {
		return
	}
	ref := ""
	if rs := w.Receipts(); len(rs) > 0 {
		ref = rs[0].Identifier()
	}
	b.watchFor(ctx, chatID, w.ID(), p.PaymentID, ref)
}

func (b *Bot) watchFor(ctx context.Context, chatID int64, sessionID, paymentID, ref string) {
	post := func(kind, reason string) {
		out := paymentOutcome{chatID: chatID, sessionID: sessionID, paymentID: paymentID, kind: kind, reason: reason}
		select {
		case b.outcomes <- out:
		case <-ctx.Done():
		}
	}
	b.observer.Watch(ctx, paymentID, ref, payments.Callbacks{
		OnSuccess: func() { post("success", "") },
		OnError:   func(reason string) { post("error", reason) },
		OnTimeout: func() { post("timeout", "") },
	})
}

// resumeWatches после рестарта снова следит за платежами незавершённых сессий.
func (b *Bot) resumeWatches(ctx context.Context) {
	items, err := b.states.ListByState(ctx, dialog.StateWizard)
	if err != nil {
		b.log.Error("list wizard sessions failed", "err", err)
		return
	}
	n := 0
	for _, it := range items {
		snap, ok := decodeSnapshot(it.Payload)
		if !ok || snap.Phase != wizard.PhaseAwaitingPayment || snap.Payment == nil {
			continue
		}
		ref := ""
		if len(snap.Receipts) > 0 {
			ref = snap.Receipts[0].Identifier()
		}
		b.watchFor(ctx, it.ChatID, snap.ID, snap.Payment.PaymentID, ref)
		n++
	}
	if n > 0 {
		b.log.Info("payment watches resumed", "count", n)
	}
}

// onPaymentOutcome применяет исход оплаты к сессии визарда.
func (b *Bot) onPaymentOutcome(ctx context.Context, out paymentOutcome) {
	log := b.log.With("chat_id", out.chatID, "session_id", out.sessionID, "payment_id", out.paymentID)

	st, err := b.states.Get(ctx, out.chatID)
	if err != nil {
		log.Error("load dialog state failed", "err", err)
		return
	}
	w, err := b.loadWizard(ctx, st, nil, nil)
	if err != nil || w == nil || w.ID() != out.sessionID {
		log.Info("payment outcome for inactive session", "kind", out.kind)
		if out.kind != "timeout" {
			b.reconcile(ctx, out)
		}
		return
	}

	switch out.kind {
	case "success":
		if err := w.PaymentSucceeded(out.paymentID); err != nil {
			log.Warn("payment success ignored", "err", err)
			return
		}
		b.reconcile(ctx, out)
		order := ""
		if rs := w.Receipts(); len(rs) > 0 {
			order = rs[0].Identifier()
		}
		b.clearPrevStep(out.chatID, st.Payload)
		_ = b.states.Reset(ctx, out.chatID)
		b.send(tgbotapi.NewMessage(out.chatID, fmt.Sprintf("✅ Оплата получена. Заказ %s оформлен, спасибо!", order)))
		b.notifyAdmin(fmt.Sprintf("Заказ %s оплачен (%s).", order, rub(w.Pricing().GrandTotal)))

	case "error":
		if err := w.PaymentFailed(out.paymentID, out.reason); err != nil {
			log.Warn("payment failure ignored", "err", err)
			return
		}
		b.reconcile(ctx, out)
		b.clearPrevStep(out.chatID, st.Payload)
		b.show(ctx, out.chatID, w, 0)

	case "timeout":
		b.metrics.Payment("timeout")
		b.clearPrevStep(out.chatID, st.Payload)
		mid := b.sendText(out.chatID, "Оплата пока не подтверждена. Если вы уже оплатили, нажмите «Проверить оплату».", paymentKeyboard(w.Session))
		b.saveWizard(ctx, out.chatID, w, mid)
	}
}

// reconcile проставляет статус оплаты заказу и конфигурациям сессии.
func (b *Bot) reconcile(ctx context.Context, out paymentOutcome) {
	status := wizard.PaymentPaid
	result := "paid"
	if out.kind == "error" {
		status, result = wizard.PaymentFailed, "failed"
	}
	b.metrics.Payment(result)
	if err := b.configs.SetSessionPaymentStatus(ctx, out.sessionID, status); err != nil {
		b.log.Error("set payment status failed", "session_id", out.sessionID, "err", err)
	}
}

func (b *Bot) showMyOrder(ctx context.Context, chatID int64, u *users.User) {
	cfgs, err := b.configs.LatestForUser(ctx, u.ID, b.opts.EventID)
	if err != nil {
		b.log.Error("load configurations failed", "user_id", u.ID, "err", err)
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить заказ, попробуйте позже."))
		return
	}
	if len(cfgs) == 0 {
		b.send(tgbotapi.NewMessage(chatID, "Заказов пока нет. Настроить стенд: /stand"))
		return
	}
	order, err := b.configs.GetOrderBySession(ctx, cfgs[0].SessionID)
	if err != nil || order == nil {
		b.send(tgbotapi.NewMessage(chatID, "Не удалось загрузить заказ, попробуйте позже."))
		return
	}
	b.send(tgbotapi.NewMessage(chatID, renderOrder(order, cfgs)))
}

func renderOrder(o *configurations.Order, cfgs []wizard.Configuration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Заказ %s от %s\n", o.Number, o.CreatedAt.Format("02.01.2006"))
	for _, c := range cfgs {
		fmt.Fprintf(&sb, "\n%s — %s\n", c.ProductTitle, rub(c.Subtotal))
		if d := configurations.Describe(c.Metadata); d != "" {
			sb.WriteString(d + "\n")
		}
	}
	fmt.Fprintf(&sb, "\nИтого: %s\nОплата: %s", rub(o.Total), paymentStatusTitle(o.PaymentStatus))
	return sb.String()
}

func paymentStatusTitle(s wizard.PaymentStatus) string {
	switch s {
	case wizard.PaymentPaid:
		return "оплачен ✅"
	case wizard.PaymentFailed:
		return "ошибка оплаты ❌"
	default:
		return "ожидает оплаты ⏳"
	}
}

func storageTooLarge(limit int64) error {
	return fmt.Errorf("%w: limit %d bytes", storage.ErrTooLarge, limit)
}

func uploadErrorText(err error) string {
	switch {
	case errors.Is(err, errNoFile):
		return "Пришлите файл документом или фото."
	case errors.Is(err, storage.ErrTooLarge):
		return "Файл слишком большой. Пришлите файл поменьше."
	case errors.Is(err, storage.ErrEmpty):
		return "Файл пустой. Пришлите другой файл."
	default:
		return failureText(&wizard.Failure{Kind: wizard.KindUpload}, nil)
	}
}
