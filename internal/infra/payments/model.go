package payments

import (
	"errors"
	"time"

	"github.com/Spok95/expo-stand-bot/internal/domain/catalog"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool { return s == StatusSucceeded || s == StatusFailed }

var (
	ErrNotFound  = errors.New("payments: payment not found")
	ErrBadAmount = errors.New("payments: amount must be positive")
)

type Payment struct {
	ID          string
	ReferenceID string
	Amount      catalog.Money
	Description string
	RedirectURL string
	Status      Status
	Reason      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
