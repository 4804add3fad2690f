// internal/pkg/apperror/apperror.go
package apperror

import (
	"errors"
	"fmt"
)

// Kind groups error codes by how a caller is expected to react
type Kind string

const (
	KindValidation          Kind = "VALIDATION_ERROR"
	KindNotFound            Kind = "NOT_FOUND"
	KindStateConflict       Kind = "STATE_CONFLICT"
	KindPaymentVerification Kind = "PAYMENT_VERIFICATION_FAILED"
	KindGatewayUnavailable  Kind = "GATEWAY_UNAVAILABLE"
	KindInternal            Kind = "INTERNAL_ERROR"
)

// Code identifies a specific failure
type Code string

const (
	CodeInvalidQuantity       Code = "INVALID_QUANTITY"
	CodeInvalidInput          Code = "INVALID_INPUT"
	CodeReasonRequired        Code = "REASON_REQUIRED"
	CodeInvalidPaymentMode    Code = "INVALID_PAYMENT_MODE"
	CodePaymentProofRequired  Code = "PAYMENT_PROOF_REQUIRED"
	CodeEmptyCart             Code = "EMPTY_CART"
	CodeProductUnavailable    Code = "PRODUCT_UNAVAILABLE"
	CodeProductNotFound       Code = "PRODUCT_NOT_FOUND"
	CodeItemNotFound          Code = "ITEM_NOT_FOUND"
	CodeAddressNotFound       Code = "ADDRESS_NOT_FOUND"
	CodeOrderNotFound         Code = "ORDER_NOT_FOUND"
	CodeCannotCancelDelivered Code = "CANNOT_CANCEL_DELIVERED"
	CodeInvalidTransition     Code = "INVALID_TRANSITION"
	CodeAlreadyReturned       Code = "ALREADY_RETURNED"
	CodeOrderNotDelivered     Code = "ORDER_NOT_DELIVERED"
	CodePaymentNotVerified    Code = "PAYMENT_VERIFICATION_FAILED"
	CodeGatewayUnavailable    Code = "GATEWAY_UNAVAILABLE"
	CodeInternal              Code = "INTERNAL_ERROR"
)

// AppError is the typed error returned by every domain operation
type AppError struct {
	Kind      Kind   `json:"kind"`
	Code      Code   `json:"code"`
	Message   string `json:"message"`
	Field     string `json:"field,omitempty"`
	Current   string `json:"current_state,omitempty"`
	Requested string `json:"requested_state,omitempty"`
	Retryable bool   `json:"retryable"`
	Err       error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so callers can compare against the sentinels below
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is
var (
	ErrInvalidQuantity       = &AppError{Kind: KindValidation, Code: CodeInvalidQuantity}
	ErrInvalidInput          = &AppError{Kind: KindValidation, Code: CodeInvalidInput}
	ErrReasonRequired        = &AppError{Kind: KindValidation, Code: CodeReasonRequired}
	ErrInvalidPaymentMode    = &AppError{Kind: KindValidation, Code: CodeInvalidPaymentMode}
	ErrPaymentProofRequired  = &AppError{Kind: KindValidation, Code: CodePaymentProofRequired}
	ErrEmptyCart             = &AppError{Kind: KindValidation, Code: CodeEmptyCart}
	ErrProductUnavailable    = &AppError{Kind: KindValidation, Code: CodeProductUnavailable}
	ErrProductNotFound       = &AppError{Kind: KindNotFound, Code: CodeProductNotFound}
	ErrItemNotFound          = &AppError{Kind: KindNotFound, Code: CodeItemNotFound}
	ErrAddressNotFound       = &AppError{Kind: KindNotFound, Code: CodeAddressNotFound}
	ErrOrderNotFound         = &AppError{Kind: KindNotFound, Code: CodeOrderNotFound}
	ErrCannotCancelDelivered = &AppError{Kind: KindStateConflict, Code: CodeCannotCancelDelivered}
	ErrInvalidTransition     = &AppError{Kind: KindStateConflict, Code: CodeInvalidTransition}
	ErrAlreadyReturned       = &AppError{Kind: KindStateConflict, Code: CodeAlreadyReturned}
	ErrOrderNotDelivered     = &AppError{Kind: KindStateConflict, Code: CodeOrderNotDelivered}
	ErrPaymentNotVerified    = &AppError{Kind: KindPaymentVerification, Code: CodePaymentNotVerified}
	ErrGatewayUnavailable    = &AppError{Kind: KindGatewayUnavailable, Code: CodeGatewayUnavailable}
)

// Validation creates a validation error for a specific field
func Validation(code Code, field, message string) *AppError {
	return &AppError{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
		Field:   field,
	}
}

// NotFound creates a not-found error
func NotFound(code Code, message string) *AppError {
	return &AppError{
		Kind:    KindNotFound,
		Code:    code,
		Message: message,
	}
}

// StateConflict creates an illegal-transition error carrying both states
func StateConflict(code Code, current, requested, message string) *AppError {
	return &AppError{
		Kind:      KindStateConflict,
		Code:      code,
		Message:   message,
		Current:   current,
		Requested: requested,
	}
}

// PaymentVerificationFailed creates the error returned when a gateway rejects a payment proof
func PaymentVerificationFailed(message string) *AppError {
	return &AppError{
		Kind:    KindPaymentVerification,
		Code:    CodePaymentNotVerified,
		Message: message,
	}
}

// GatewayUnavailable wraps a transport failure talking to the payment provider
func GatewayUnavailable(message string, err error) *AppError {
	return &AppError{
		Kind:      KindGatewayUnavailable,
		Code:      CodeGatewayUnavailable,
		Message:   message,
		Retryable: true,
		Err:       err,
	}
}

// Internal wraps an unexpected infrastructure failure
func Internal(message string, err error) *AppError {
	return &AppError{
		Kind:    KindInternal,
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}

// As returns the AppError in err's chain, if any
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err, defaulting to KindInternal
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}
