package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// StatusSource — откуда наблюдатель читает статус платежа.
type StatusSource interface {
	Get(ctx context.Context, id string) (*Payment, error)
}

// Callbacks — исходы наблюдения. Вызываются из горутины наблюдателя,
// ровно один из них и только если наблюдение не остановили.
type Callbacks struct {
	OnSuccess func()
	OnError   func(reason string)
	// OnTimeout — статус так и не стал окончательным за poll_timeout.
	// Платёж при этом может пройти позже, его можно проверить снова.
	OnTimeout func()
}

var errStillPending = errors.New("payment still pending")

// Observer опрашивает статусы платежей. Один активный опрос на платёж:
// повторный Watch того же платежа перезапускает опрос.
type Observer struct {
	src      StatusSource
	interval time.Duration
	timeout  time.Duration
	log      *slog.Logger

	mu      sync.Mutex
	watches map[string]context.CancelFunc
	wg      sync.WaitGroup
}

func NewObserver(src StatusSource, interval, timeout time.Duration, log *slog.Logger) *Observer {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Observer{
		src:      src,
		interval: interval,
		timeout:  timeout,
		log:      log,
		watches:  map[string]context.CancelFunc{},
	}
}

// Watch запускает опрос платежа в фоне.
func (o *Observer) Watch(ctx context.Context, paymentID, referenceID string, cb Callbacks) {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	if prev, ok := o.watches[paymentID]; ok {
		prev()
	}
	o.watches[paymentID] = cancel
	o.mu.Unlock()

	log := o.log.With("payment_id", paymentID, "reference_id", referenceID)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release(ctx, paymentID)

		err := o.poll(ctx, paymentID)
		if ctx.Err() != nil {
			log.Debug("payment watch stopped")
			return
		}
		switch {
		case err == nil:
			log.Info("payment succeeded")
			if cb.OnSuccess != nil {
				cb.OnSuccess()
			}
		case errors.Is(err, errStillPending):
			log.Warn("payment status timeout", "timeout", o.timeout)
			if cb.OnTimeout != nil {
				cb.OnTimeout()
			}
		default:
			log.Info("payment failed", "reason", err.Error())
			if cb.OnError != nil {
				cb.OnError(err.Error())
			}
		}
	}()
}

// Stop прекращает опрос платежа. Состояние сессии не трогается.
func (o *Observer) Stop(paymentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.watches[paymentID]; ok {
		cancel()
		delete(o.watches, paymentID)
	}
}

// Watching — идёт ли сейчас опрос платежа.
func (o *Observer) Watching(paymentID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.watches[paymentID]
	return ok
}

// Close останавливает все опросы и ждёт горутины.
func (o *Observer) Close() {
	o.mu.Lock()
	for id, cancel := range o.watches {
		cancel()
		delete(o.watches, id)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Observer) poll(ctx context.Context, paymentID string) error {
	b := retry.WithMaxDuration(o.timeout, retry.NewConstant(o.interval))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		p, err := o.src.Get(ctx, paymentID)
		if err != nil {
			o.log.Warn("payment status lookup failed", "payment_id", paymentID, "err", err)
			return retry.RetryableError(errStillPending)
		}
		if p == nil {
			return ErrNotFound
		}
		switch p.Status {
		case StatusSucceeded:
			return nil
		case StatusFailed:
			if p.Reason == "" {
				return errors.New("payment failed")
			}
			return fmt.Errorf("payment failed: %s", p.Reason)
		default:
			return retry.RetryableError(errStillPending)
		}
	})
}

// release убирает запись, если её ещё не заменил новый Watch.
func (o *Observer) release(ctx context.Context, paymentID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if cancel, ok := o.watches[paymentID]; ok && ctx.Err() == nil {
		cancel()
		delete(o.watches, paymentID)
	}
}
