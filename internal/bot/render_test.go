package bot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/domain/configurations"
	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

func testProducts() []catalog.Product {
	return []catalog.Product{
		{
			ID:    "booth",
			Title: "Стенд",
			Steps: []catalog.Step{
				{ID: "size", Label: "Размер", Kind: catalog.KindSelect, Required: true, Options: []catalog.Option{
					{ID: "s", Label: "3x3", Price: 5000},
					{ID: "m", Label: "3x6", Price: 9000},
				}},
				{ID: "name", Label: "Фриз", Kind: catalog.KindText, Placeholder: "ООО Ромашка"},
			},
		},
		{
			ID:    "print",
			Title: "Печать",
			Steps: []catalog.Step{{ID: "logo", Label: "Логотип", Kind: catalog.KindUpload}},
		},
	}
}

func TestRenderStep(t *testing.T) {
	s := wizard.NewSession(testProducts(), nil)
	require.NoError(t, s.SetCurrent(wizard.Scalar("m")))

	text := renderStep(s, "Экспо 2026")
	assert.Contains(t, text, "Экспо 2026")
	assert.Contains(t, text, "Стенд · шаг 1 из 2 · 0%")
	assert.Contains(t, text, "Размер *")
	assert.Contains(t, text, "✅ 3x6 — 90.00 ₽")
	assert.Contains(t, text, "▫️ 3x3 — 50.00 ₽")
	assert.Contains(t, text, "Итого: 90.00 ₽")

	kb := stepKeyboard(s)
	require.Len(t, kb.InlineKeyboard, 4) // 2 варианта + навигация + отмена
	assert.Equal(t, "wz:opt:0", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "✅ 3x6 · 90.00 ₽", kb.InlineKeyboard[1][0].Text)
	assert.Equal(t, "wz:next", *kb.InlineKeyboard[2][1].CallbackData)
	assert.Equal(t, "nav:cancel", *kb.InlineKeyboard[3][0].CallbackData)
}

func TestRenderTextStepAndRequiredError(t *testing.T) {
	s := wizard.NewSession(testProducts(), nil)
	require.Error(t, s.Next())
	assert.Contains(t, renderStep(s, ""), "⚠️ Шаг «Размер» обязателен.")

	require.NoError(t, s.SetCurrent(wizard.Scalar("s")))
	require.NoError(t, s.Next())
	text := renderStep(s, "")
	assert.Contains(t, text, "Например: ООО Ромашка")
	assert.NotContains(t, text, "⚠️")

	require.NoError(t, s.SetCurrent(wizard.Scalar("Ромашка")))
	assert.Contains(t, renderStep(s, ""), "Сейчас: Ромашка")
	kb := stepKeyboard(s)
	assert.Equal(t, "wz:clear", *kb.InlineKeyboard[0][0].CallbackData)
}

func TestRenderSummary(t *testing.T) {
	s := wizard.NewSession(testProducts(), nil)
	require.NoError(t, s.SetValue("booth", "size", wizard.Scalar("s")))
	require.NoError(t, s.SetValue("print", "logo", wizard.Scalar("https://files/l.png")))
	for s.Phase() == wizard.PhaseStepping {
		require.NoError(t, s.Next())
	}

	text := renderSummary(s, "", "https://expo/terms")
	assert.Contains(t, text, "• Размер: 3x3 — 50.00 ₽")
	assert.Contains(t, text, "• Логотип: "+wizard.AttachedLabel)
	assert.Contains(t, text, "К оплате: 50.00 ₽")
	assert.Contains(t, text, "⬜ Я принимаю условия участия")
	assert.Contains(t, text, "https://expo/terms")

	orch := wizard.NewOrchestrator(wizard.PersisterFunc(func(_ context.Context, cfg wizard.Configuration) (wizard.Receipt, error) {
		return wizard.Receipt{}, nil
	}), nil, "", nil)
	_, err := orch.Complete(context.Background(), s)
	require.ErrorIs(t, err, wizard.ErrTermsNotAccepted)
	assert.Contains(t, renderSummary(s, "", ""), "примите условия участия")

	s.AcceptTerms(true)
	kb := summaryKeyboard(s)
	assert.Equal(t, "☑️ Принимаю условия", kb.InlineKeyboard[0][0].Text)
	assert.Equal(t, "📨 Оформить", kb.InlineKeyboard[1][0].Text)
}

func TestScreenByPhase(t *testing.T) {
	s := wizard.NewSession(testProducts(), nil)
	_, kb := screen(s, "", "")
	assert.Equal(t, "wz:opt:0", *kb.InlineKeyboard[0][0].CallbackData)

	require.NoError(t, s.SetCurrent(wizard.Scalar("s")))
	for s.Phase() == wizard.PhaseStepping {
		require.NoError(t, s.Next())
	}
	s.AcceptTerms(true)

	orch := wizard.NewOrchestrator(
		wizard.PersisterFunc(func(_ context.Context, cfg wizard.Configuration) (wizard.Receipt, error) {
			return wizard.Receipt{ProductID: cfg.ProductID, OrderID: "EXPO-000007"}, nil
		}),
		fakeCreator{},
		"", nil,
	)
	_, err := orch.Complete(context.Background(), s)
	require.NoError(t, err)

	text, kb := screen(s, "", "")
	assert.Contains(t, text, "Номер заказа: EXPO-000007")
	assert.Contains(t, text, "К оплате: 50.00 ₽")
	require.NotNil(t, kb.InlineKeyboard[0][0].URL)
	assert.Equal(t, "https://pay.local/p1", *kb.InlineKeyboard[0][0].URL)
	assert.Equal(t, "wz:check", *kb.InlineKeyboard[1][0].CallbackData)

	require.NoError(t, s.PaymentFailed("p1", "card declined"))
	text, kb = screen(s, "", "")
	assert.Contains(t, text, "Оплата не прошла (card declined)")
	assert.Equal(t, "🔁 Повторить", kb.InlineKeyboard[1][0].Text)
}

type fakeCreator struct{}

func (fakeCreator) CreatePayment(_ context.Context, _ wizard.PaymentRequest) (wizard.PaymentIntent, error) {
	return wizard.PaymentIntent{PaymentID: "p1", CheckoutURL: "https://pay.local/p1", Status: "pending"}, nil
}

func TestFailureText(t *testing.T) {
	assert.Empty(t, failureText(nil, nil))
	assert.Contains(t, failureText(&wizard.Failure{Kind: wizard.KindSubmission}, nil), "Не удалось сохранить")
	assert.Contains(t, failureText(&wizard.Failure{Kind: wizard.KindPaymentCreate}, nil), "платёж")
	assert.Equal(t, "Выбрано слишком много вариантов.",
		failureText(&wizard.Failure{Kind: wizard.KindValidation, Message: wizard.ErrTooManySelections.Error() + ": Опции"}, nil))
}

func TestRenderOrder(t *testing.T) {
	o := &configurations.Order{
		Number:        "EXPO-000003",
		Total:         12500,
		PaymentStatus: wizard.PaymentPaid,
		CreatedAt:     time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	cfgs := []wizard.Configuration{{
		ProductTitle: "Стенд",
		Subtotal:     12500,
		Metadata: wizard.Metadata{Steps: []wizard.StepMetadata{
			{StepLabel: "Размер", Options: []wizard.ChosenOption{{Label: "3x6"}}},
		}},
	}}
	text := renderOrder(o, cfgs)
	assert.Contains(t, text, "Заказ EXPO-000003 от 04.05.2026")
	assert.Contains(t, text, "Стенд — 125.00 ₽")
	assert.Contains(t, text, "Размер: 3x6")
	assert.Contains(t, text, "Оплата: оплачен ✅")
}

func TestUploadErrorText(t *testing.T) {
	assert.Equal(t, "Пришлите файл документом или фото.", uploadErrorText(errNoFile))
	assert.Contains(t, uploadErrorText(storageTooLarge(10)), "слишком большой")
}
