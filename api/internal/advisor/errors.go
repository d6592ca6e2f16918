package advisor

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// ConfigurationError means the model credential is missing or was rejected.
// Operators fix it in the deployment, users cannot.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return "configuration: " + e.Reason + ": " + e.Err.Error()
	}
	return "configuration: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TransportError means the model call did not complete (network, quota, server error).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return e.Op + ": transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

// EmptyResponseError means the call succeeded but carried no text.
type EmptyResponseError struct {
	Op string
}

func (e *EmptyResponseError) Error() string { return e.Op + ": empty response" }

// DecodeError means the reply was not JSON or did not match the response schema.
type DecodeError struct {
	Op  string
	Raw string
	Err error
}

func (e *DecodeError) Error() string { return e.Op + ": bad JSON: " + e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

// InputError is a client-side rejection; the model is never called.
type InputError struct {
	Field string
	Err   error
}

func (e *InputError) Error() string { return "invalid " + e.Field + ": " + e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

var ErrMissingCredential = errors.New("GEMINI_API_KEY is empty")

// Kind names the taxonomy class of err for logs and API bodies.
func Kind(err error) string {
	var (
		ce *ConfigurationError
		te *TransportError
		ee *EmptyResponseError
		de *DecodeError
		ie *InputError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ie):
		return "input"
	case errors.As(err, &ce):
		return "configuration"
	case errors.As(err, &ee):
		return "empty_response"
	case errors.As(err, &de):
		return "decode"
	case errors.As(err, &te):
		return "transport"
	default:
		return "unknown"
	}
}

// Panel identifies which feature a message is for.
type Panel string

const (
	PanelPredict Panel = "predict"
	PanelDetect  Panel = "detect"
)

// MessageKey maps an error to the i18n key of the single user-facing message for panel.
func MessageKey(panel Panel, err error) string {
	switch Kind(err) {
	case "configuration":
		return "errors.configuration"
	case "input":
		var ie *InputError
		if errors.As(err, &ie) && ie.Field == "image" {
			return "errors.invalidImage"
		}
		return "errors.selectLocation"
	}
	if panel == PanelDetect {
		return "errors.detectFailed"
	}
	return "errors.predictFailed"
}

// classify turns a raw model-call error into ConfigurationError or TransportError.
func classify(op string, err error) error {
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return err
	}
	if isAuthFailure(err) {
		return &ConfigurationError{Reason: "credential rejected", Err: err}
	}
	return &TransportError{Op: op, Err: err}
}

func isAuthFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusUnauthorized || gerr.Code == http.StatusForbidden {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"403", "401", "api key", "api_key_invalid", "permission_denied", "unauthenticated"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
