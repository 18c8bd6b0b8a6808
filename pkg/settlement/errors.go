package settlement

import (
	"fmt"
	"net/http"

	"github.com/chris/pi-settlement/pkg/models"
)

// ErrorKind classifies why a settlement or verification did not succeed.
type ErrorKind string

const (
	KindInvalidInput       ErrorKind = "invalid_input"
	KindPayerMismatch      ErrorKind = "payer_mismatch"
	KindPlatform           ErrorKind = "platform_error"
	KindOrderNotFound      ErrorKind = "order_not_found"
	KindNotFound           ErrorKind = "transaction_not_found"
	KindVerificationFailed ErrorKind = "verification_failed"
	KindLedgerUnavailable  ErrorKind = "ledger_unavailable"
	KindConflict           ErrorKind = "conflict"
	KindRecordingFailed    ErrorKind = "recording_failed"
	KindInternal           ErrorKind = "internal_error"
)

// Error is returned by the Orchestrator for every unsuccessful outcome.
type Error struct {
	Kind    ErrorKind
	Message string
	Details string

	// PlatformStatus is the platform's HTTP status for KindPlatform.
	PlatformStatus int

	// Verification is the ledger verdict, when one was reached.
	Verification *models.VerificationResult

	// Settlement is the rejected record being replayed, or for KindRecordingFailed
	// the verified settlement that could not be stored.
	Settlement *models.Settlement

	Err error
}

func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Verified reports whether the ledger verified the payment even though the request failed.
func (e *Error) Verified() bool {
	return e.Verification != nil && e.Verification.Verified
}

// HTTPStatus maps the error kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalidInput, KindVerificationFailed:
		return http.StatusBadRequest
	case KindPayerMismatch:
		return http.StatusForbidden
	case KindPlatform:
		if e.PlatformStatus >= 400 && e.PlatformStatus <= 599 {
			return e.PlatformStatus
		}
		return http.StatusBadGateway
	case KindOrderNotFound, KindNotFound:
		return http.StatusNotFound
	case KindLedgerUnavailable:
		return http.StatusBadGateway
	case KindConflict:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// Retryable reports whether the same request may succeed later without any change.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindLedgerUnavailable, KindRecordingFailed, KindInternal:
		return true
	case KindPlatform:
		return e.PlatformStatus == 0 || e.PlatformStatus == http.StatusTooManyRequests || e.PlatformStatus >= 500
	}
	return false
}

func invalidInput(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func internalError(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Details: err.Error(), Err: err}
}
