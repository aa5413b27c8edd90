// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"
)

// =============================================================================
// ERROR KINDS
// =============================================================================

var (
	// ErrTransport is the parent of every transport failure.
	// Use errors.Is(err, ErrTransport) to check for any of them.
	ErrTransport = errors.New("transport error")

	// ErrTimeout is returned when no data arrives within the idle timeout.
	ErrTimeout = errors.New("request timed out")

	// ErrCancelled is returned when the stream is closed by the caller.
	ErrCancelled = errors.New("request cancelled")

	// ErrAuthFailed is returned for rejected credentials.
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited is returned when the provider throttles the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServerError is returned for 5xx responses.
	ErrServerError = errors.New("server error")

	// ErrInvalidRequest is returned for other 4xx responses, such as an
	// unknown model or an oversized context.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNetwork covers connection failures and malformed streams.
	ErrNetwork = errors.New("network error")

	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("API key not configured")
)

// TransportError is a classified transport failure.
type TransportError struct {
	// Kind is one of the Err* sentinels above.
	Kind error
	// Status is the HTTP status code, if any.
	Status int
	// Message is the provider's error message, if any.
	Message string
	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%v (status %d): %s", e.Kind, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

// Unwrap returns the underlying cause.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport and the error's own kind.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport || target == e.Kind
}

// NewTransportError builds a TransportError of the given kind.
func NewTransportError(kind error, cause error) *TransportError {
	return &TransportError{Kind: kind, Err: cause}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// kindForStatus maps an HTTP status code to an error kind.
func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuthFailed
	case status == http.StatusTooManyRequests:
		return ErrRateLimited
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return ErrTimeout
	case status >= 500:
		return ErrServerError
	case status >= 400:
		return ErrInvalidRequest
	default:
		return ErrNetwork
	}
}

// classify converts an error from the go-openai client into a TransportError.
func classify(ctx context.Context, err error) *TransportError {
	var te *TransportError
	if errors.As(err, &te) {
		return te
	}

	switch ctx.Err() {
	case context.Canceled:
		return NewTransportError(ErrCancelled, err)
	case context.DeadlineExceeded:
		return NewTransportError(ErrTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &TransportError{
			Kind:    kindForStatus(apiErr.HTTPStatusCode),
			Status:  apiErr.HTTPStatusCode,
			Message: apiErr.Message,
			Err:     err,
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &TransportError{
			Kind:   kindForStatus(reqErr.HTTPStatusCode),
			Status: reqErr.HTTPStatusCode,
			Err:    err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewTransportError(ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTransportError(ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return NewTransportError(ErrCancelled, err)
	}

	return NewTransportError(ErrNetwork, err)
}

// Summary returns the one-line, human-readable text shown in place of a
// failed reply.
func Summary(err error) string {
	var te *TransportError
	if !errors.As(err, &te) {
		return fmt.Sprintf("error: %v", err)
	}

	switch te.Kind {
	case ErrTimeout:
		return "error: request timed out waiting for the model"
	case ErrCancelled:
		return "error: request cancelled"
	case ErrAuthFailed:
		return "error: authentication failed, check the API key (chatterm -r)"
	case ErrRateLimited:
		return "error: rate limited by the provider, try again shortly"
	}

	if te.Message != "" {
		return fmt.Sprintf("error: %v: %s", te.Kind, te.Message)
	}
	if te.Err != nil {
		return fmt.Sprintf("error: %v: %v", te.Kind, te.Err)
	}
	return fmt.Sprintf("error: %v", te.Kind)
}
