package wizard

import (
	"sort"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
)

type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentPaid    PaymentStatus = "paid"
	PaymentFailed  PaymentStatus = "failed"
)

// Configuration — сохраняемая запись по одному продукту.
type Configuration struct {
	SessionID     string                   `json:"session_id"`
	ProductID     string                   `json:"product_id"`
	ProductTitle  string                   `json:"product_title"`
	Selections    map[string]Value         `json:"selections"`
	Metadata      Metadata                 `json:"metadata"`
	Subtotal      catalog.Money            `json:"subtotal"`
	Breakdown     map[string]catalog.Money `json:"breakdown"`
	PaymentStatus PaymentStatus            `json:"payment_status"`
}

// Metadata — расшифровка ответов для людей (админка, выгрузки).
type Metadata struct {
	Steps []StepMetadata `json:"steps"`
}

type StepMetadata struct {
	StepID    string           `json:"step_id"`
	StepLabel string           `json:"step_label"`
	Kind      catalog.StepKind `json:"kind"`
	Options   []ChosenOption   `json:"options,omitempty"`
	Text      string           `json:"text,omitempty"`
	FileURL   string           `json:"file_url,omitempty"`
}

type ChosenOption struct {
	ID    string        `json:"id"`
	Label string        `json:"label"`
	Price catalog.Money `json:"price"`
}

// Receipt — что вернуло хранилище на сохранение конфигурации.
type Receipt struct {
	ProductID       string `json:"product_id"`
	ConfigurationID string `json:"configuration_id"`
	OrderID         string `json:"order_id,omitempty"`
}

// Identifier — id заказа, если есть, иначе id конфигурации.
// Оплата сверяется по id заказа.
func (r Receipt) Identifier() string {
	if r.OrderID != "" {
		return r.OrderID
	}
	return r.ConfigurationID
}

// BuildConfigurations собирает записи для сохранения, по одной на каждый
// продукт с шагами (в том числе без ответов: пустые ответы, итог 0),
// со статусом оплаты pending. Повторная отправка той же сессии так
// перезаписывает и продукты, ответы по которым убрали.
func BuildConfigurations(sessionID string, products []catalog.Product, sel Selections) []Configuration {
	pricing := Derive(products, sel)
	out := make([]Configuration, 0, len(products))
	for _, p := range products {
		if len(p.Steps) == 0 {
			continue
		}
		raw := map[string]Value{}
		meta := Metadata{Steps: []StepMetadata{}}
		for _, st := range p.Steps {
			v := sel.Get(p.ID, st.ID)
			if v.IsEmpty() {
				continue
			}
			raw[st.ID] = v
			sm := StepMetadata{StepID: st.ID, StepLabel: st.Label, Kind: st.Kind}
			switch st.Kind {
			case catalog.KindText:
				sm.Text = v.String()
			case catalog.KindUpload:
				sm.FileURL = v.String()
			default:
				for _, id := range v.IDs() {
					if o, ok := st.Option(id); ok {
						sm.Options = append(sm.Options, ChosenOption{ID: o.ID, Label: o.Label, Price: o.Price})
					}
				}
			}
			meta.Steps = append(meta.Steps, sm)
		}
		pp, _ := pricing.Product(p.ID)
		out = append(out, Configuration{
			SessionID:     sessionID,
			ProductID:     p.ID,
			ProductTitle:  p.Title,
			Selections:    raw,
			Metadata:      meta,
			Subtotal:      pp.Subtotal,
			Breakdown:     pp.Breakdown,
			PaymentStatus: PaymentPending,
		})
	}
	return out
}

// SelectionsFromConfigurations восстанавливает ответы из ранее сохранённых
// конфигураций. Всё, чего уже нет в каталоге, отбрасывается.
func SelectionsFromConfigurations(products []catalog.Product, prior []Configuration) Selections {
	raw := Selections{}
	for _, c := range prior {
		for stepID, v := range c.Selections {
			raw.Set(c.ProductID, stepID, v)
		}
	}
	return sanitize(products, raw)
}

// sanitize приводит ответы к текущему каталогу: убирает неизвестные
// продукты, шаги и id вариантов, чинит одиночный/множественный выбор.
func sanitize(products []catalog.Product, sel Selections) Selections {
	out := Selections{}
	for _, p := range products {
		for _, st := range p.Steps {
			v := sel.Get(p.ID, st.ID)
			if v.IsEmpty() {
				continue
			}
			if !st.Kind.HasOptions() {
				if v.IsMulti() {
					continue
				}
				out.Set(p.ID, st.ID, v)
				continue
			}

			var ids []string
			for _, id := range v.IDs() {
				if _, ok := st.Option(id); ok {
					ids = append(ids, id)
				}
			}
			if len(ids) == 0 {
				continue
			}
			if !st.Multi() {
				sort.Strings(ids)
				out.Set(p.ID, st.ID, Scalar(ids[0]))
				continue
			}
			if len(ids) > st.MaxSelections {
				ids = ids[:st.MaxSelections]
			}
			out.Set(p.ID, st.ID, Multi(ids...))
		}
	}
	return out
}
