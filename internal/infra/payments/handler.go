package payments

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"net/url"
)

type Handler struct {
	log   *slog.Logger
	store Store
}

func NewHandler(log *slog.Logger, store Store) *Handler {
	return &Handler{
		log:   log,
		store: store,
	}
}

// ServeHTTP эмулирует страницу оплаты провайдера:
// /payments/pay?payment=<id> -> платёж succeeded,
// /payments/pay?payment=<id>&result=fail -> платёж failed.
// Если у платежа есть redirect_url — отправляем пользователя туда.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	paymentID := r.URL.Query().Get("payment")
	if paymentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("missing payment parameter"))
		return
	}

	p, err := h.store.Get(ctx, paymentID)
	if err != nil {
		h.log.Error("failed to load payment", "payment_id", paymentID, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("failed to load payment"))
		return
	}
	if p == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("payment not found"))
		return
	}

	status, reason := StatusSucceeded, ""
	if r.URL.Query().Get("result") == "fail" {
		status, reason = StatusFailed, "declined by payer"
	}

	if !p.Status.Terminal() {
		if err := h.store.SetStatus(ctx, p.ID, status, reason); err != nil && !errors.Is(err, ErrNotFound) {
			h.log.Error("failed to update payment status",
				"payment_id", p.ID,
				"err", err,
			)
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte("failed to update payment status"))
			return
		}
		p.Status = status
		h.log.Info("payment resolved", "payment_id", p.ID, "status", status)
	}

	if p.RedirectURL != "" {
		http.Redirect(w, r, withStatus(p.RedirectURL, p.Status), http.StatusSeeOther)
		return
	}

	title := "Оплата прошла"
	if p.Status == StatusFailed {
		title = "Оплата не прошла"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w,
		"<html><body><h1>%s</h1><p>Платёж %s на сумму %s ₽. Вернитесь в бот.</p></body></html>",
		title, html.EscapeString(p.ID), p.Amount,
	)
}

func withStatus(raw string, status Status) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	q.Set("status", string(status))
	u.RawQuery = q.Encode()
	return u.String()
}
