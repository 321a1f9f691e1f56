package wizard

import (
	"strings"
	"unicode/utf8"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
)

// PreviewLen — сколько символов свободного текста показываем в сводке.
const PreviewLen = 40

// AttachedLabel — как в сводке выглядит шаг загрузки с файлом.
const AttachedLabel = "файл прикреплён"

// SummaryRow — строка сводки: один отвеченный шаг.
type SummaryRow struct {
	StepID      string
	StepLabel   string
	ChosenLabel string
	Price       catalog.Money
}

// ProductPricing — расчёт по одному продукту.
type ProductPricing struct {
	ProductID string
	Title     string
	Subtotal  catalog.Money
	Breakdown map[string]catalog.Money // label шага -> сумма выбранных вариантов
	Items     []SummaryRow
}

// Pricing — результат Derive. Продукты в порядке каталога.
type Pricing struct {
	Products   []ProductPricing
	GrandTotal catalog.Money
}

// Subtotal по id продукта (0, если продукта нет).
func (p Pricing) Subtotal(productID string) catalog.Money {
	for _, pp := range p.Products {
		if pp.ProductID == productID {
			return pp.Subtotal
		}
	}
	return 0
}

func (p Pricing) Product(productID string) (ProductPricing, bool) {
	for _, pp := range p.Products {
		if pp.ProductID == productID {
			return pp, true
		}
	}
	return ProductPricing{}, false
}

// Derive считает подытоги, разбивку по шагам, строки сводки и общий итог.
// Чистая функция: ничего не кэширует и не меняет входные данные.
// Устаревшие id вариантов (каталог поменялся) молча пропускаются.
func Derive(products []catalog.Product, sel Selections) Pricing {
	out := Pricing{Products: make([]ProductPricing, 0, len(products))}
	for _, p := range products {
		pp := ProductPricing{
			ProductID: p.ID,
			Title:     p.Title,
			Breakdown: map[string]catalog.Money{},
		}
		for _, s := range p.Steps {
			v := sel.Get(p.ID, s.ID)
			if v.IsEmpty() {
				continue
			}

			if !s.Kind.HasOptions() {
				pp.Items = append(pp.Items, SummaryRow{
					StepID:      s.ID,
					StepLabel:   s.Label,
					ChosenLabel: preview(s.Kind, v.String()),
				})
				continue
			}

			var labels []string
			var stepSum catalog.Money
			matched := false
			for _, id := range v.IDs() {
				o, ok := s.Option(id)
				if !ok {
					continue
				}
				matched = true
				labels = append(labels, o.Label)
				stepSum += o.Price
			}
			if !matched {
				continue
			}
			pp.Breakdown[s.Label] += stepSum
			pp.Subtotal += stepSum
			pp.Items = append(pp.Items, SummaryRow{
				StepID:      s.ID,
				StepLabel:   s.Label,
				ChosenLabel: strings.Join(labels, ", "),
				Price:       stepSum,
			})
		}
		out.GrandTotal += pp.Subtotal
		out.Products = append(out.Products, pp)
	}
	return out
}

func preview(kind catalog.StepKind, s string) string {
	if kind == catalog.KindUpload {
		return AttachedLabel
	}
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= PreviewLen {
		return s
	}
	r := []rune(s)
	return string(r[:PreviewLen]) + "…"
}
