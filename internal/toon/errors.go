package toon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeTransport indicates the service could not be reached (network failure, timeout)
	ErrTypeTransport ErrorType = iota
	// ErrTypeProtocol indicates a malformed or unexpected response
	ErrTypeProtocol
	// ErrTypeAuth indicates the login rejected the credentials
	ErrTypeAuth
	// ErrTypeAPI indicates an application-level error reported by the service
	ErrTypeAPI
	// ErrTypeValidation indicates invalid caller-supplied input
	ErrTypeValidation
)

// NetworkErrorSubtype provides more specific transport error classification
type NetworkErrorSubtype int

const (
	NetworkErrorGeneral NetworkErrorSubtype = iota
	NetworkErrorTimeout
	NetworkErrorCanceled
	NetworkErrorConnectionRefused
	NetworkErrorDNS
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeProtocol:
		return "Protocol Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeAPI:
		return "API Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error represents a failure talking to the Toon service
type Error struct {
	Type           ErrorType           // Category of error
	Message        string              // Human-readable error message
	StatusCode     int                 // HTTP status code (0 when no response was received)
	Body           []byte              // Raw response body, if any
	ErrorCode      string              // Service-provided errorCode, if any
	Reason         string              // Service-provided reason, if any
	Err            error               // Underlying error (if any)
	NetworkSubtype NetworkErrorSubtype // More specific transport error type

	// SessionRetry marks failures consistent with an expired session.
	// Only these trigger the one-time re-authentication on session-bearing calls.
	SessionRetry bool
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Type, e.Message)

	var details []string
	if e.StatusCode != 0 {
		details = append(details, fmt.Sprintf("status %d", e.StatusCode))
	}
	if e.ErrorCode != "" {
		details = append(details, "errorCode "+e.ErrorCode)
	}
	if e.Reason != "" {
		details = append(details, "reason "+e.Reason)
	}
	if len(details) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(details, ", "))
	}

	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// ClassifyTransportError analyzes a failed exchange and returns a transport error
// with the most specific subtype available
func ClassifyTransportError(message string, err error) *Error {
	if err == nil {
		return nil
	}

	e := &Error{
		Type:           ErrTypeTransport,
		Message:        message,
		Err:            err,
		NetworkSubtype: NetworkErrorGeneral,
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError

	switch {
	case errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err):
		e.NetworkSubtype = NetworkErrorTimeout
	case errors.Is(err, context.Canceled):
		e.NetworkSubtype = NetworkErrorCanceled
	case errors.As(err, &dnsErr):
		e.NetworkSubtype = NetworkErrorDNS
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED):
		e.NetworkSubtype = NetworkErrorConnectionRefused
	}

	return e
}

// NewProtocolError creates an error for a malformed or unexpected response
func NewProtocolError(message string, statusCode int, body []byte, err error) *Error {
	return &Error{
		Type:       ErrTypeProtocol,
		Message:    message,
		StatusCode: statusCode,
		Body:       body,
		Err:        err,
	}
}

// NewAPIError creates an error for an application-level failure reported by the service
func NewAPIError(statusCode int, errorCode, reason string, body []byte) *Error {
	return &Error{
		Type:         ErrTypeAPI,
		Message:      "api error",
		StatusCode:   statusCode,
		Body:         body,
		ErrorCode:    errorCode,
		Reason:       reason,
		SessionRetry: true,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *Error {
	return &Error{
		Type:    ErrTypeValidation,
		Message: message,
	}
}

// asAuthError converts a rejected login response into an authentication error,
// keeping the diagnostics of the original
func asAuthError(e *Error) *Error {
	return &Error{
		Type:       ErrTypeAuth,
		Message:    "login rejected",
		StatusCode: e.StatusCode,
		Body:       e.Body,
		ErrorCode:  e.ErrorCode,
		Reason:     e.Reason,
		Err:        e.Err,
	}
}

func errorType(err error) (ErrorType, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Type, true
	}
	return 0, false
}

// IsTransportError checks if an error is a transport error
func IsTransportError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTransport
}

// IsProtocolError checks if an error is a protocol error
func IsProtocolError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeProtocol
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeAuth
}

// IsAPIError checks if an error is an application-level API error
func IsAPIError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeAPI
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeValidation
}

// IsTimeout checks if an error is a transport timeout
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Type == ErrTypeTransport && e.NetworkSubtype == NetworkErrorTimeout
}

// IsSessionFailure reports whether err is consistent with an expired session
func IsSessionFailure(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.SessionRetry
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}

	switch e.Type {
	case ErrTypeTransport:
		switch e.NetworkSubtype {
		case NetworkErrorTimeout:
			return "Toon service not responding (timeout)"
		case NetworkErrorDNS:
			return "Cannot resolve the Toon service hostname"
		case NetworkErrorConnectionRefused:
			return "Toon service refused the connection"
		case NetworkErrorCanceled:
			return "Request cancelled"
		default:
			return "Network error - check connection"
		}
	case ErrTypeAuth:
		return "Login rejected - check username and password"
	case ErrTypeAPI:
		if e.Reason != "" {
			return fmt.Sprintf("Toon service error: %s", e.Reason)
		}
		return fmt.Sprintf("Toon service error (code %s)", e.ErrorCode)
	case ErrTypeProtocol:
		return "Unexpected response from the Toon service"
	default:
		return e.Message
	}
}

// GetTroubleshootingHint returns user-facing troubleshooting tips for an error
func GetTroubleshootingHint(err error) []string {
	var e *Error
	if !errors.As(err, &e) {
		return nil
	}

	switch e.Type {
	case ErrTypeTransport:
		if e.NetworkSubtype == NetworkErrorTimeout {
			return []string{
				"Try increasing the timeout (--timeout or TOONAPP_TIMEOUT)",
				"Check that the service endpoint is reachable",
			}
		}
		return []string{
			"Check your network connection",
			"Verify the endpoint setting (TOONAPP_ENDPOINT)",
		}
	case ErrTypeAuth:
		return []string{
			"Verify the username and password used for the Toon web app",
			"The service allows at most four sessions per account; close other apps and retry",
		}
	case ErrTypeAPI:
		return []string{
			"The request was rejected even after re-authenticating",
			"Check the parameters (preset id, temperature value)",
		}
	case ErrTypeProtocol:
		return []string{
			"The service returned something other than the expected JSON",
			"Run with TOONAPP_LOG_LEVEL=debug to see the raw response",
		}
	default:
		return nil
	}
}
