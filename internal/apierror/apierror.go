// Package apierror defines the error taxonomy shared by services and handlers
// and the JSON envelope every 4xx/5xx response goes through. Internal details
// (DB errors, stack traces) never reach the client.
package apierror

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failure so handlers can pick the HTTP status.
type Kind string

const (
	KindValidation             Kind = "VALIDATION_ERROR"
	KindAuthenticationRequired Kind = "AUTHENTICATION_REQUIRED"
	KindForbidden              Kind = "FORBIDDEN"
	KindTenantMismatch         Kind = "TENANT_MISMATCH"
	KindNotFound               Kind = "NOT_FOUND"
	KindInsufficientStock      Kind = "INSUFFICIENT_STOCK"
	KindAttributionConflict    Kind = "ATTRIBUTION_CONFLICT"
	KindStoreNotAssigned       Kind = "STORE_NOT_ASSIGNED"
	KindConflict               Kind = "CONFLICT"
	KindStructuralMismatch     Kind = "STRUCTURAL_STORAGE_MISMATCH"
	KindInternal               Kind = "INTERNAL_ERROR"
)

var statusByKind = map[Kind]int{
	KindValidation:             http.StatusBadRequest,
	KindAuthenticationRequired: http.StatusUnauthorized,
	KindForbidden:              http.StatusForbidden,
	KindTenantMismatch:         http.StatusForbidden,
	KindNotFound:               http.StatusNotFound,
	KindInsufficientStock:      http.StatusBadRequest,
	KindAttributionConflict:    http.StatusForbidden,
	KindStoreNotAssigned:       http.StatusBadRequest,
	KindConflict:               http.StatusConflict,
	KindStructuralMismatch:     http.StatusInternalServerError,
	KindInternal:               http.StatusInternalServerError,
}

// Error is the typed error returned by services.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Status returns the HTTP status for the error kind.
func (e *Error) Status() int {
	if s, ok := statusByKind[e.Kind]; ok {
		return s
	}
	return http.StatusInternalServerError
}

// Wrap attaches the underlying cause.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

func newErr(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a validation error whose message enumerates the offending fields.
func Validation(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fields[k])
	}
	return &Error{
		Kind:    KindValidation,
		Message: "Validation error: " + strings.Join(parts, "; "),
		Fields:  fields,
	}
}

func AuthenticationRequired(format string, args ...any) *Error {
	return newErr(KindAuthenticationRequired, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newErr(KindForbidden, format, args...)
}

func TenantMismatch(format string, args ...any) *Error {
	return newErr(KindTenantMismatch, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newErr(KindNotFound, format, args...)
}

func InsufficientStock(product string) *Error {
	return newErr(KindInsufficientStock, "Insufficient stock for product %s", product)
}

func AttributionConflict(format string, args ...any) *Error {
	return newErr(KindAttributionConflict, format, args...)
}

func StoreNotAssigned() *Error {
	return newErr(KindStoreNotAssigned, "User not assigned to a store")
}

func Conflict(format string, args ...any) *Error {
	return newErr(KindConflict, format, args...)
}

func StructuralMismatch(format string, args ...any) *Error {
	return newErr(KindStructuralMismatch, format, args...)
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// As extracts an *Error from err.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind == kind
}

// Response is the canonical envelope for all 4xx/5xx HTTP responses.
type Response struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func New(msg string) *Response {
	return &Response{Message: msg}
}

// Render converts any error into a status code and a safe envelope.
// Errors that are not *Error, and 5xx errors, are reported with a generic message.
func Render(err error) (int, *Response) {
	e, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, New("Internal server error")
	}
	status := e.Status()
	if status >= http.StatusInternalServerError && e.Kind != KindStructuralMismatch {
		return status, New("Internal server error")
	}
	return status, &Response{Message: e.Message, Fields: e.Fields}
}
