package configurations

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

func TestWriteExcel(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	rows := []Row{
		{
			OrderNumber: "EXPO-000002", Company: "Ромашка", Contact: "Анна @anna",
			ProductTitle: "Стенд", Subtotal: 12500, PaymentStatus: wizard.PaymentPaid, CreatedAt: at,
			Metadata: wizard.Metadata{Steps: []wizard.StepMetadata{
				{StepLabel: "Размер", Options: []wizard.ChosenOption{{Label: "3x3"}}},
				{StepLabel: "Опции", Options: []wizard.ChosenOption{{Label: "ТВ"}, {Label: "Wi-Fi"}}},
			}},
		},
		{
			OrderNumber: "EXPO-000002", Company: "Ромашка", ProductTitle: "Печать", Subtotal: 0,
			PaymentStatus: wizard.PaymentPaid, CreatedAt: at,
			Metadata: wizard.Metadata{Steps: []wizard.StepMetadata{{StepLabel: "Логотип", FileURL: "https://files/l.png"}}},
		},
		{
			OrderNumber: "EXPO-000001", Company: "Лютик", ProductTitle: "Стенд", Subtotal: 5000,
			PaymentStatus: wizard.PaymentPending, CreatedAt: at,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, rows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	got, err := f.GetRows(ordersSheet)
	require.NoError(t, err)
	require.Len(t, got, 6) // шапка + 3 строки + 2 итога

	assert.Equal(t, "Заказ", got[0][0])
	assert.Equal(t, []string{"EXPO-000002", "Ромашка", "Анна @anna", "Стенд", "Размер: 3x3; Опции: ТВ, Wi-Fi", "125.00", "оплачен", "01.03.2026 12:30"}, got[1])
	assert.Equal(t, "Логотип: https://files/l.png", got[2][4])
	assert.Equal(t, "Итого по заказу", got[3][3])
	assert.Equal(t, "125.00", got[3][5])
	assert.Equal(t, "ожидает", got[4][6])
	assert.Equal(t, "50.00", got[5][5])
}

func TestDescribeText(t *testing.T) {
	m := wizard.Metadata{Steps: []wizard.StepMetadata{{StepLabel: "Фриз", Text: "ООО Ромашка"}}}
	assert.Equal(t, "Фриз: ООО Ромашка", Describe(m))
	assert.Equal(t, "", Describe(wizard.Metadata{}))
}
