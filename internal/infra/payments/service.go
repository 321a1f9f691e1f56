package payments

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

// Service — платёжный провайдер-песочница: платёж хранится у нас,
// а страница оплаты — наш же HTTP-сервер.
type Service struct {
	baseURL string
	store   Store
	log     *slog.Logger
}

func NewService(baseURL string, store Store, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{baseURL: strings.TrimRight(baseURL, "/"), store: store, log: log}
}

// PaymentURL строит ссылку на страницу оплаты.
func (s *Service) PaymentURL(paymentID string) string {
	return fmt.Sprintf("%s/payments/pay?payment=%s", s.baseURL, url.QueryEscape(paymentID))
}

// CreatePayment создаёт pending-платёж и возвращает ссылку на оплату.
func (s *Service) CreatePayment(ctx context.Context, req wizard.PaymentRequest) (wizard.PaymentIntent, error) {
	amount, err := catalog.ParseMoney(req.Amount)
	if err != nil {
		return wizard.PaymentIntent{}, err
	}
	if amount <= 0 {
		return wizard.PaymentIntent{}, fmt.Errorf("%w: %s", ErrBadAmount, req.Amount)
	}

	p := Payment{
		ID:          uuid.NewString(),
		ReferenceID: req.ReferenceID,
		Amount:      amount,
		Description: req.Description,
		RedirectURL: req.RedirectURL,
		Status:      StatusPending,
	}
	if err := s.store.Create(ctx, p); err != nil {
		return wizard.PaymentIntent{}, fmt.Errorf("store payment: %w", err)
	}
	s.log.Info("payment created", "payment_id", p.ID, "reference_id", p.ReferenceID, "amount", amount.String())

	return wizard.PaymentIntent{
		PaymentID:   p.ID,
		CheckoutURL: s.PaymentURL(p.ID),
		Status:      string(p.Status),
	}, nil
}

// Status — текущий статус платежа (для кнопки «Проверить оплату»).
func (s *Service) Status(ctx context.Context, paymentID string) (*Payment, error) {
	p, err := s.store.Get(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	return p, nil
}
