package models

import "errors"

// Wallet side.
var (
	ErrNoProvider        = errors.New("no wallet provider registered")
	ErrNotConnected      = errors.New("wallet not connected")
	ErrUserRejected      = errors.New("user rejected transaction")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// Facilitator side.
var (
	ErrSettlement       = errors.New("settlement failed")
	ErrTransport        = errors.New("facilitator unreachable")
	ErrTimeout          = errors.New("operation timed out")
	ErrUnexpectedStatus = errors.New("unexpected resource status")
	ErrNotAuthorized    = errors.New("payment proof required")
)

// Session side.
var (
	ErrSessionInProgress = errors.New("a payment session is already in progress for this wallet")
	ErrSessionActive     = errors.New("payment session cannot be closed while in flight")
	ErrUnknownService    = errors.New("unknown service")
	ErrNoSession         = errors.New("no payment session holds the wallet")
)

type ErrorCode string

const (
	ErrCodeNoProvider        ErrorCode = "NO_PROVIDER"
	ErrCodeNotConnected      ErrorCode = "NOT_CONNECTED"
	ErrCodeUserRejected      ErrorCode = "USER_REJECTED"
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	ErrCodeSettlement        ErrorCode = "SETTLEMENT_FAILED"
	ErrCodeTransport         ErrorCode = "TRANSPORT_ERROR"
	ErrCodeTimeout           ErrorCode = "TIMEOUT"
	ErrCodeUnexpectedStatus  ErrorCode = "UNEXPECTED_STATUS"
	ErrCodeNotAuthorized     ErrorCode = "NOT_AUTHORIZED"
)

var codeKinds = map[ErrorCode]error{
	ErrCodeNoProvider:        ErrNoProvider,
	ErrCodeNotConnected:      ErrNotConnected,
	ErrCodeUserRejected:      ErrUserRejected,
	ErrCodeInsufficientFunds: ErrInsufficientFunds,
	ErrCodeSettlement:        ErrSettlement,
	ErrCodeTransport:         ErrTransport,
	ErrCodeTimeout:           ErrTimeout,
	ErrCodeUnexpectedStatus:  ErrUnexpectedStatus,
	ErrCodeNotAuthorized:     ErrNotAuthorized,
}

// PaymentError carries a user-facing message and the accessibility
// metadata that goes with it. Error returns the message verbatim and
// Unwrap returns the sentinel for the code, so errors.Is classifies it.
type PaymentError struct {
	Code          ErrorCode
	Message       string
	Accessibility *AccessibilityMetadata
	Details       map[string]any
	Err           error
}

func NewPaymentError(code ErrorCode, message string, err error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func (e *PaymentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if kind := codeKinds[e.Code]; kind != nil {
		return kind.Error()
	}
	return string(e.Code)
}

func (e *PaymentError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if kind := codeKinds[e.Code]; kind != nil {
		errs = append(errs, kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// WithAccessibility attaches metadata for the announcer.
func (e *PaymentError) WithAccessibility(meta *AccessibilityMetadata) *PaymentError {
	e.Accessibility = meta
	return e
}

func (e *PaymentError) WithDetails(key string, value any) *PaymentError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// AccessibilityOf returns the metadata carried by err, if any.
func AccessibilityOf(err error) *AccessibilityMetadata {
	var perr *PaymentError
	if errors.As(err, &perr) {
		return perr.Accessibility
	}
	return nil
}
