package wizard

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
)

// Persister сохраняет конфигурацию одного продукта.
// Повторное сохранение той же (session_id, product_id) не должно плодить записи.
type Persister interface {
	Submit(ctx context.Context, cfg Configuration) (Receipt, error)
}

type PersisterFunc func(ctx context.Context, cfg Configuration) (Receipt, error)

func (f PersisterFunc) Submit(ctx context.Context, cfg Configuration) (Receipt, error) {
	return f(ctx, cfg)
}

// PaymentRequest — запрос на создание платежа. Amount в формате "100.00".
type PaymentRequest struct {
	Amount      string
	Description string
	RedirectURL string
	ReferenceID string
}

type PaymentIntent struct {
	PaymentID   string `json:"payment_id"`
	CheckoutURL string `json:"checkout_url"`
	Status      string `json:"status"`
}

type PaymentCreator interface {
	CreatePayment(ctx context.Context, req PaymentRequest) (PaymentIntent, error)
}

// Outcome — результат Complete.
type Outcome struct {
	Receipts  []Receipt
	Total     catalog.Money
	Completed bool           // итог 0 — оплата не нужна
	Payment   *PaymentIntent // итог > 0 — ждём оплату по CheckoutURL
}

// Orchestrator сохраняет конфигурации и при ненулевом итоге создаёт платёж.
type Orchestrator struct {
	persist     Persister
	payments    PaymentCreator
	redirectURL string
	log         *slog.Logger
}

func NewOrchestrator(persist Persister, payments PaymentCreator, redirectURL string, log *slog.Logger) *Orchestrator {
	if persist == nil {
		panic("wizard.NewOrchestrator: nil persister")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{persist: persist, payments: payments, redirectURL: redirectURL, log: log}
}

// Complete переводит сессию из сводки в Submitting, сохраняет конфигурации и
// дальше в Completed (итог 0) или AwaitingPayment. Любая ошибка переводит в
// Failed, ответы и согласие с условиями сохраняются.
func (o *Orchestrator) Complete(ctx context.Context, s *Session) (Outcome, error) {
	if err := s.beginSubmit(); err != nil {
		return Outcome{}, err
	}
	log := o.log.With("session_id", s.id)

	configs := BuildConfigurations(s.id, s.products, s.sel)
	total := s.Pricing().GrandTotal

	receipts, err := o.submitAll(ctx, configs)
	if err != nil {
		log.Error("submit configurations failed", "err", err)
		return Outcome{}, s.fail(fmt.Errorf("%w: %w", ErrSubmission, err))
	}
	for _, r := range receipts {
		if r.Identifier() == "" {
			log.Error("submission without identifier", "product_id", r.ProductID)
			return Outcome{}, s.fail(fmt.Errorf("%w: product %s", ErrNoIdentifier, r.ProductID))
		}
	}
	s.receipts = receipts
	out := Outcome{Receipts: receipts, Total: total}

	if total == 0 {
		s.phase = PhaseCompleted
		s.inFlight = false
		s.lastErr = nil
		out.Completed = true
		log.Info("configuration completed without payment", "products", len(receipts))
		return out, nil
	}

	if len(receipts) == 0 {
		return Outcome{}, s.fail(fmt.Errorf("%w: no products to pay for", ErrNoIdentifier))
	}
	if o.payments == nil {
		return Outcome{}, s.fail(fmt.Errorf("%w: payments are not configured", ErrPaymentCreate))
	}
	ref := receipts[0].Identifier()
	req := PaymentRequest{
		Amount:      total.String(),
		Description: describe(s.products, configs),
		RedirectURL: o.redirectFor(ref),
		ReferenceID: ref,
	}
	intent, err := o.payments.CreatePayment(ctx, req)
	if err != nil {
		log.Error("create payment failed", "err", err, "reference_id", ref)
		return Outcome{}, s.fail(fmt.Errorf("%w: %w", ErrPaymentCreate, err))
	}
	if intent.PaymentID == "" || intent.CheckoutURL == "" {
		return Outcome{}, s.fail(fmt.Errorf("%w: empty payment intent", ErrPaymentCreate))
	}

	s.payment = &intent
	s.phase = PhaseAwaitingPayment
	s.inFlight = false
	s.lastErr = nil
	out.Payment = &intent
	log.Info("payment created", "payment_id", intent.PaymentID, "amount", req.Amount, "reference_id", ref)
	return out, nil
}

// submitAll сохраняет продукты параллельно; квитанции в порядке configs.
func (o *Orchestrator) submitAll(ctx context.Context, configs []Configuration) ([]Receipt, error) {
	g, ctx := errgroup.WithContext(ctx)
	receipts := make([]Receipt, len(configs))
	for i, c := range configs {
		g.Go(func() error {
			r, err := o.persist.Submit(ctx, c)
			if err != nil {
				return fmt.Errorf("product %s: %w", c.ProductID, err)
			}
			if r.ProductID == "" {
				r.ProductID = c.ProductID
			}
			receipts[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return receipts, nil
}

func (o *Orchestrator) redirectFor(ref string) string {
	if o.redirectURL == "" {
		return ""
	}
	if strings.Contains(o.redirectURL, "%s") {
		return fmt.Sprintf(o.redirectURL, url.QueryEscape(ref))
	}
	u, err := url.Parse(o.redirectURL)
	if err != nil {
		return o.redirectURL
	}
	q := u.Query()
	q.Set("order", ref)
	u.RawQuery = q.Encode()
	return u.String()
}

func describe(products []catalog.Product, configs []Configuration) string {
	titles := make([]string, 0, len(configs))
	for _, c := range configs {
		title := c.ProductTitle
		if p, ok := catalog.Find(products, c.ProductID); ok && p.Title != "" {
			title = p.Title
		}
		if title == "" {
			title = c.ProductID
		}
		titles = append(titles, title)
	}
	return "Конфигурация стенда: " + strings.Join(titles, ", ")
}

// beginSubmit — Complete разрешён из сводки (и повторно из Failed)
// только при принятых условиях и без незавершённой отправки.
func (s *Session) beginSubmit() error {
	if s.inFlight || s.phase == PhaseSubmitting {
		return ErrSubmitInFlight
	}
	if s.phase != PhaseSummary && s.phase != PhaseFailed {
		return ErrWrongPhase
	}
	if !s.terms {
		return s.reject(ErrTermsNotAccepted)
	}
	s.phase = PhaseSubmitting
	s.inFlight = true
	s.lastErr = nil
	return nil
}

// PaymentSucceeded — внешний наблюдатель сообщил об успешной оплате.
func (s *Session) PaymentSucceeded(paymentID string) error {
	if err := s.checkPayment(paymentID); err != nil {
		return err
	}
	s.phase = PhaseCompleted
	s.payment.Status = "succeeded"
	s.lastErr = nil
	return nil
}

// PaymentFailed — оплата не прошла: Failed, сессию можно править и отправить снова.
func (s *Session) PaymentFailed(paymentID, reason string) error {
	if err := s.checkPayment(paymentID); err != nil {
		return err
	}
	s.payment.Status = "failed"
	if reason == "" {
		reason = "unknown reason"
	}
	_ = s.fail(fmt.Errorf("%w: %s", ErrPaymentOutcome, reason))
	return nil
}

func (s *Session) checkPayment(paymentID string) error {
	if s.phase != PhaseAwaitingPayment || s.payment == nil {
		return ErrWrongPhase
	}
	if paymentID != "" && paymentID != s.payment.PaymentID {
		return fmt.Errorf("%w: unexpected payment %s", ErrWrongPhase, paymentID)
	}
	return nil
}
