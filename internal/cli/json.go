package cli

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"strings"

	"github.com/rileyhilliard/sentinel/internal/errors"
	"github.com/rileyhilliard/sentinel/internal/executor"
	"github.com/rileyhilliard/sentinel/internal/store"
)

// Machine mode flag - when true, outputs JSON and suppresses human-friendly decorations
var machineMode bool

// MachineMode returns true if machine-readable output is enabled
func MachineMode() bool {
	return machineMode
}

// JSONEnvelope wraps command output in a consistent structure for machine parsing.
// All --json output should use this envelope.
type JSONEnvelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *JSONError  `json:"error,omitempty"`
}

// JSONError provides structured error information for machine parsing.
type JSONError struct {
	Code       string      `json:"code"`
	Message    string      `json:"message"`
	Suggestion string      `json:"suggestion,omitempty"`
	Details    interface{} `json:"details,omitempty"`
}

// Error codes for machine-readable output.
const (
	ErrCodeConfigNotFound    = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid     = "CONFIG_INVALID"
	ErrCodeHostNotFound      = "HOST_NOT_FOUND"
	ErrCodeHostExists        = "HOST_EXISTS"
	ErrCodeSSHTimeout        = "SSH_TIMEOUT"
	ErrCodeSSHAuthFailed     = "SSH_AUTH_FAILED"
	ErrCodeSSHHostKey        = "SSH_HOST_KEY"
	ErrCodeSSHConnectionFail = "SSH_CONNECTION_FAILED"
	ErrCodeCommandFailed     = "COMMAND_FAILED"
	ErrCodeParseFailed       = "PARSE_FAILED"
	ErrCodeStoreFailed       = "STORE_FAILED"
	ErrCodeUnknown           = "UNKNOWN"
)

// WriteJSONSuccess writes a successful response with data to the writer.
func WriteJSONSuccess(w io.Writer, data interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: true,
		Data:    data,
	})
}

// WriteJSONError writes an error response to the writer.
func WriteJSONError(w io.Writer, code, message, suggestion string, details interface{}) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error: &JSONError{
			Code:       code,
			Message:    message,
			Suggestion: suggestion,
			Details:    details,
		},
	})
}

// WriteJSONFromError converts a Go error to a JSON error response.
func WriteJSONFromError(w io.Writer, err error) error {
	return writeJSONEnvelope(w, JSONEnvelope{
		Success: false,
		Error:   ErrorToJSON(err),
	})
}

// writeJSONEnvelope writes the envelope with consistent formatting.
func writeJSONEnvelope(w io.Writer, env JSONEnvelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// ErrorToJSON converts a Go error to a JSONError with appropriate code mapping.
func ErrorToJSON(err error) *JSONError {
	if err == nil {
		return nil
	}

	var connErr *executor.ConnectivityError
	if stderrors.As(err, &connErr) {
		return connectivityErrorToJSON(connErr)
	}

	var sErr *errors.Error
	if stderrors.As(err, &sErr) {
		return &JSONError{
			Code:       mapErrorCode(sErr),
			Message:    sErr.Message,
			Suggestion: sErr.Suggestion,
		}
	}

	return &JSONError{
		Code:    ErrCodeUnknown,
		Message: err.Error(),
	}
}

// mapErrorCode maps internal error codes to machine-readable codes.
func mapErrorCode(e *errors.Error) string {
	switch e.Code {
	case errors.ErrConfig:
		msgLower := strings.ToLower(e.Message)
		if strings.Contains(msgLower, "not found") || strings.Contains(msgLower, "couldn't find") {
			return ErrCodeConfigNotFound
		}
		return ErrCodeConfigInvalid
	case errors.ErrSSH:
		return ErrCodeSSHConnectionFail
	case errors.ErrExec:
		return ErrCodeCommandFailed
	case errors.ErrParse:
		return ErrCodeParseFailed
	case errors.ErrStore:
		switch {
		case stderrors.Is(e, store.ErrNotFound):
			return ErrCodeHostNotFound
		case stderrors.Is(e, store.ErrDuplicateID):
			return ErrCodeHostExists
		}
		return ErrCodeStoreFailed
	}
	return ErrCodeUnknown
}

// connectivityErrorToJSON maps a connectivity failure to a specific SSH code.
func connectivityErrorToJSON(connErr *executor.ConnectivityError) *JSONError {
	var code, suggestion string

	switch connErr.Reason {
	case executor.FailTimeout:
		code = ErrCodeSSHTimeout
		suggestion = "Check if the host is reachable: ping the address"
	case executor.FailAuth:
		code = ErrCodeSSHAuthFailed
		suggestion = "Check ssh.user and that the configured key is in the host's authorized_keys"
	case executor.FailHostKey:
		code = ErrCodeSSHHostKey
		suggestion = "Add the host to ssh.known_hosts or fix the stale entry"
	case executor.FailRefused, executor.FailUnreachable:
		code = ErrCodeSSHConnectionFail
		suggestion = "Check the SSH server is running and the port is right"
	default:
		code = ErrCodeSSHConnectionFail
	}

	return &JSONError{
		Code:       code,
		Message:    connErr.Error(),
		Suggestion: suggestion,
		Details: map[string]interface{}{
			"reason":  connErr.Reason.String(),
			"address": connErr.Address,
		},
	}
}
