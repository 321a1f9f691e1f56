package configurations

import (
	"time"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
	"github.com/Spok95/expo-stand-bot/internal/wizard"
)

// Order — заказ сессии визарда: объединяет конфигурации всех продуктов,
// по нему сверяется оплата.
type Order struct {
	ID            int64
	Number        string
	SessionID     string
	UserID        int64
	EventID       int64
	Total         catalog.Money
	PaymentID     string
	PaymentStatus wizard.PaymentStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Row — строка выгрузки: одна конфигурация продукта с данными заказа и экспонента.
type Row struct {
	OrderNumber   string
	SessionID     string
	Company       string
	Contact       string
	ProductID     string
	ProductTitle  string
	Metadata      wizard.Metadata
	Subtotal      catalog.Money
	PaymentStatus wizard.PaymentStatus
	CreatedAt     time.Time
}
