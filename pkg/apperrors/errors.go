// Package apperrors defines the error values returned by the builder usecases
// and how they map onto HTTP responses.
package apperrors

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindValidation
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation_error"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal_error"
	}
}

// Error is a classified sentinel. Compare with errors.Is; wrap with %w for context.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Not found.
var (
	ErrUserNotFound        = newError(KindNotFound, "user_not_found", "user not found")
	ErrWorkflowNotFound    = newError(KindNotFound, "workflow_not_found", "workflow not found")
	ErrNodeNotFound        = newError(KindNotFound, "node_not_found", "node not found")
	ErrEdgeNotFound        = newError(KindNotFound, "edge_not_found", "edge not found")
	ErrExecutionNotFound   = newError(KindNotFound, "execution_not_found", "execution not found")
	ErrLLMProviderNotFound = newError(KindNotFound, "llm_provider_not_found", "llm provider not found")
)

// Conflict.
var (
	ErrUserAlreadyExists = newError(KindConflict, "user_already_exists", "user already exists")
	ErrNodeConfigExists  = newError(KindConflict, "node_config_exists", "node configuration already exists")
	ErrLLMProviderInUse  = newError(KindConflict, "llm_provider_in_use", "llm provider is referenced by an llm node")
)

// Validation.
var (
	ErrNodeTypeMismatch       = newError(KindValidation, "node_type_mismatch", "node type does not match configuration kind")
	ErrEdgeNodeMismatch       = newError(KindValidation, "edge_node_mismatch", "edge node does not belong to the workflow")
	ErrInvalidNodeType        = newError(KindValidation, "invalid_node_type", "invalid node type")
	ErrInvalidExecutionStatus = newError(KindValidation, "invalid_execution_status", "invalid execution status")
	ErrInvalidFormat          = newError(KindValidation, "invalid_format", "invalid format")
	ErrInvalidProviderType    = newError(KindValidation, "invalid_provider_type", "invalid llm provider type")
)

var ErrAuthCredentials = newError(KindUnauthorized, "invalid_credentials", "could not validate credentials")

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the machine readable code, or "internal_error".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return KindInternal.String()
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool     { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool     { return KindOf(err) == KindConflict }
func IsValidation(err error) bool   { return KindOf(err) == KindValidation }
func IsUnauthorized(err error) bool { return KindOf(err) == KindUnauthorized }
