package wizard

import (
	"context"
	"errors"
)

var (
	// ошибки валидации: блокируют переход, исправляются вводом пользователя
	ErrFieldRequired     = errors.New("wizard: field required")
	ErrTermsNotAccepted  = errors.New("wizard: terms not accepted")
	ErrTooManySelections = errors.New("wizard: too many selections")
	ErrInvalidValue      = errors.New("wizard: invalid value for step")
	ErrUnknownStep       = errors.New("wizard: unknown product or step")

	ErrWrongPhase       = errors.New("wizard: operation not allowed in current phase")
	ErrSubmitInFlight   = errors.New("wizard: submission already in flight")
	ErrUpload           = errors.New("wizard: upload failed")
	ErrSubmission       = errors.New("wizard: submission failed")
	ErrNoIdentifier     = errors.New("wizard: submission returned no identifier")
	ErrPaymentCreate    = errors.New("wizard: payment creation failed")
	ErrPaymentOutcome   = errors.New("wizard: payment failed")
)

// StepError привязывает ошибку валидации к шагу.
type StepError struct {
	ProductID string
	StepID    string
	StepLabel string
	Err       error
}

func (e *StepError) Error() string {
	return e.Err.Error() + ": " + e.StepLabel
}

func (e *StepError) Unwrap() error { return e.Err }

// ErrorKind — класс ошибки для сообщений пользователю и метрик.
type ErrorKind string

const (
	KindNone           ErrorKind = ""
	KindValidation     ErrorKind = "validation"
	KindUpload         ErrorKind = "upload"
	KindSubmission     ErrorKind = "submission"
	KindPaymentCreate  ErrorKind = "payment_create"
	KindPaymentOutcome ErrorKind = "payment_outcome"
	KindPhase          ErrorKind = "phase"
	KindTimeout        ErrorKind = "timeout"
	KindCanceled       ErrorKind = "canceled"
	KindInternal       ErrorKind = "internal"
)

// Kind классифицирует ошибку.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone

	case errors.Is(err, ErrFieldRequired),
		errors.Is(err, ErrTermsNotAccepted),
		errors.Is(err, ErrTooManySelections),
		errors.Is(err, ErrInvalidValue):
		return KindValidation

	case errors.Is(err, ErrUpload):
		return KindUpload

	case errors.Is(err, ErrSubmission),
		errors.Is(err, ErrNoIdentifier):
		return KindSubmission

	case errors.Is(err, ErrPaymentCreate):
		return KindPaymentCreate

	case errors.Is(err, ErrPaymentOutcome):
		return KindPaymentOutcome

	case errors.Is(err, ErrWrongPhase),
		errors.Is(err, ErrSubmitInFlight):
		return KindPhase

	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout

	case errors.Is(err, context.Canceled):
		return KindCanceled

	default:
		return KindInternal
	}
}

// IsValidation true для локальных ошибок ввода: не являются сбоем системы.
func IsValidation(err error) bool { return Kind(err) == KindValidation }

// Failure — сохраняемое описание последней ошибки сессии.
type Failure struct {
	Kind    ErrorKind `json:"kind"`
	Message string `json:"message"`
	StepID  string `json:"step_id,omitempty"`
}

func failureOf(err error) *Failure {
	if err == nil {
		return nil
	}
	f := &Failure{Kind: Kind(err), Message: err.Error()}
	var se *StepError
	if errors.As(err, &se) {
		f.StepID = se.StepID
	}
	return f
}
