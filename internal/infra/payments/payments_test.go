package payments

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

type memStore struct {
	mu    sync.Mutex
	items map[string]Payment
	gets  int
	// script — статусы, которые Get отдаёт по очереди (для наблюдателя)
	script []Status
	getErr error
}

func newMemStore() *memStore { return &memStore{items: map[string]Payment{}} }

func (m *memStore) Create(_ context.Context, p Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[p.ID] = p
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return nil, m.getErr
	}
	p, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	if len(m.script) > 0 {
		p.Status = m.script[0]
		m.script = m.script[1:]
	}
	return &p, nil
}

func (m *memStore) SetStatus(_ context.Context, id string, status Status, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.items[id]
	if !ok {
		return ErrNotFound
	}
	if p.Status == StatusPending {
		p.Status, p.Reason = status, reason
		m.items[id] = p
	}
	return nil
}

func TestCreatePayment(t *testing.T) {
	store := newMemStore()
	svc := NewService("https://bot.local/", store, nil)

	intent, err := svc.CreatePayment(context.Background(), wizard.PaymentRequest{
		Amount:      "100.00",
		Description: "Конфигурация стенда: Стенд",
		RedirectURL: "https://expo.local/paid?order=ORD-1",
		ReferenceID: "ORD-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, intent.PaymentID)
	assert.Equal(t, "https://bot.local/payments/pay?payment="+intent.PaymentID, intent.CheckoutURL)
	assert.Equal(t, "pending", intent.Status)

	p, err := svc.Status(context.Background(), intent.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, catalog.Money(10000), p.Amount)
	assert.Equal(t, "ORD-1", p.ReferenceID)

	_, err = svc.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.CreatePayment(context.Background(), wizard.PaymentRequest{Amount: "0.00"})
	assert.ErrorIs(t, err, ErrBadAmount)
	_, err = svc.CreatePayment(context.Background(), wizard.PaymentRequest{Amount: "abc"})
	assert.ErrorIs(t, err, catalog.ErrBadMoney)
}

func TestHandler(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.Create(context.Background(), Payment{ID: "p1", Amount: 5000, Status: StatusPending, RedirectURL: "https://expo.local/paid?order=ORD-1"}))
	require.NoError(t, store.Create(context.Background(), Payment{ID: "p2", Amount: 5000, Status: StatusPending}))
	h := NewHandler(testLogger(), store)

	t.Run("missing parameter", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/pay", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown payment", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/pay?payment=zzz", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("success redirects", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/pay?payment=p1", nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "https://expo.local/paid?order=ORD-1&status=succeeded", rec.Header().Get("Location"))
		assert.Equal(t, StatusSucceeded, store.items["p1"].Status)
	})

	t.Run("resolved payment is not changed", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/pay?payment=p1&result=fail", nil))
		assert.Equal(t, StatusSucceeded, store.items["p1"].Status)
	})

	t.Run("failure page", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/pay?payment=p2&result=fail", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Оплата не прошла")
		assert.Contains(t, rec.Body.String(), "50.00")
		assert.Equal(t, StatusFailed, store.items["p2"].Status)
		assert.Equal(t, "declined by payer", store.items["p2"].Reason)
	})
}

type outcome struct {
	kind   string
	reason string
}

func watch(o *Observer, id string) <-chan outcome {
	ch := make(chan outcome, 1)
	o.Watch(context.Background(), id, "ref", Callbacks{
		OnSuccess: func() { ch <- outcome{kind: "success"} },
		OnError:   func(r string) { ch <- outcome{kind: "error", reason: r} },
		OnTimeout: func() { ch <- outcome{kind: "timeout"} },
	})
	return ch
}

func wait(t *testing.T, ch <-chan outcome) outcome {
	t.Helper()
	select {
	case out := <-ch:
		return out
	case <-time.After(2 * time.Second):
		t.Fatal("observer did not report")
		return outcome{}
	}
}

func TestObserver(t *testing.T) {
	t.Run("success after pending", func(t *testing.T) {
		store := newMemStore()
		require.NoError(t, store.Create(context.Background(), Payment{ID: "p", Status: StatusPending}))
		store.script = []Status{StatusPending, StatusPending, StatusSucceeded}

		o := NewObserver(store, time.Millisecond, time.Second, testLogger())
		defer o.Close()
		assert.Equal(t, outcome{kind: "success"}, wait(t, watch(o, "p")))
		assert.Equal(t, 3, store.gets)
	})

	t.Run("failure carries reason", func(t *testing.T) {
		store := newMemStore()
		require.NoError(t, store.Create(context.Background(), Payment{ID: "p", Status: StatusFailed, Reason: "card declined"}))

		o := NewObserver(store, time.Millisecond, time.Second, testLogger())
		defer o.Close()
		out := wait(t, watch(o, "p"))
		assert.Equal(t, "error", out.kind)
		assert.Contains(t, out.reason, "card declined")
	})

	t.Run("unknown payment", func(t *testing.T) {
		o := NewObserver(newMemStore(), time.Millisecond, time.Second, testLogger())
		defer o.Close()
		out := wait(t, watch(o, "ghost"))
		assert.Equal(t, "error", out.kind)
		assert.Equal(t, ErrNotFound.Error(), out.reason)
	})

	t.Run("timeout", func(t *testing.T) {
		store := newMemStore()
		store.getErr = errors.New("connection refused")
		o := NewObserver(store, 5*time.Millisecond, 30*time.Millisecond, testLogger())
		defer o.Close()
		assert.Equal(t, outcome{kind: "timeout"}, wait(t, watch(o, "p")))
	})

	t.Run("stop suppresses callbacks", func(t *testing.T) {
		store := newMemStore()
		require.NoError(t, store.Create(context.Background(), Payment{ID: "p", Status: StatusPending}))
		o := NewObserver(store, 5*time.Millisecond, time.Second, testLogger())
		ch := watch(o, "p")
		assert.True(t, o.Watching("p"))
		o.Stop("p")
		assert.False(t, o.Watching("p"))
		o.Close()

		select {
		case out := <-ch:
			t.Fatalf("unexpected outcome %v", out)
		default:
		}
	})
}

func TestWithStatus(t *testing.T) {
	assert.Equal(t, "https://x.local/?status=failed", withStatus("https://x.local/", StatusFailed))
	assert.True(t, strings.HasPrefix(withStatus("https://x.local/p?a=1", StatusSucceeded), "https://x.local/p?"))
}
