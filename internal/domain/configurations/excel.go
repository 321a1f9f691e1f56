package configurations

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

const ordersSheet = "orders"

var exportHeader = []any{
	"Заказ", "Компания", "Контакт", "Продукт", "Состав", "Сумма, ₽", "Оплата", "Создан",
}

var statusTitles = map[wizard.PaymentStatus]string{
	wizard.PaymentPending: "ожидает",
	wizard.PaymentPaid:    "оплачен",
	wizard.PaymentFailed:  "ошибка оплаты",
}

// WriteExcel выгружает конфигурации в .xlsx: строка на продукт,
// после каждого заказа — строка с итогом по заказу.
func WriteExcel(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), ordersSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(ordersSheet, "A1", &exportHeader); err != nil {
		return err
	}

	line := 2
	var orderTotal catalog.Money
	for i, r := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, line)
		vals := []any{
			r.OrderNumber,
			r.Company,
			r.Contact,
			r.ProductTitle,
			Describe(r.Metadata),
			r.Subtotal.String(),
			statusTitle(r.PaymentStatus),
			r.CreatedAt.Format("02.01.2006 15:04"),
		}
		if err := f.SetSheetRow(ordersSheet, cellName, &vals); err != nil {
			return err
		}
		line++
		orderTotal += r.Subtotal

		last := i == len(rows)-1 || rows[i+1].OrderNumber != r.OrderNumber
		if last {
			cellName, _ = excelize.CoordinatesToCellName(1, line)
			total := []any{r.OrderNumber, "", "", "Итого по заказу", "", orderTotal.String(), "", ""}
			if err := f.SetSheetRow(ordersSheet, cellName, &total); err != nil {
				return err
			}
			line++
			orderTotal = 0
		}
	}

	_ = f.SetColWidth(ordersSheet, "A", "A", 14)
	_ = f.SetColWidth(ordersSheet, "B", "D", 24)
	_ = f.SetColWidth(ordersSheet, "E", "E", 60)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

// Describe — состав конфигурации одной строкой: «Размер: 3x3; Опции: ТВ, Wi-Fi».
func Describe(m wizard.Metadata) string {
	parts := make([]string, 0, len(m.Steps))
	for _, s := range m.Steps {
		var v string
		switch {
		case len(s.Options) > 0:
			labels := make([]string, 0, len(s.Options))
			for _, o := range s.Options {
				labels = append(labels, o.Label)
			}
			v = strings.Join(labels, ", ")
		case s.FileURL != "":
			v = s.FileURL
		default:
			v = s.Text
		}
		parts = append(parts, s.StepLabel+": "+v)
	}
	return strings.Join(parts, "; ")
}

func statusTitle(s wizard.PaymentStatus) string {
	if t, ok := statusTitles[s]; ok {
		return t
	}
	return string(s)
}
