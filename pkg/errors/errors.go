// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Strata Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	// Write-path validation failures. These always propagate to the
	// caller and are never auto-corrected.
	CodeStoreModelUnknown   Code = "store.embedding.model.unknown"
	CodeStoreScopeInvalid   Code = "store.embedding.scope.invalid_input"
	CodeStoreDeleteUnscoped Code = "store.embedding.delete.unscoped"

	// Backing datastore failures. Unavailable covers connection and
	// open/ping failures; database.failure covers statement execution.
	CodeStoreUnavailable     Code = "store.backend.unavailable"
	CodeStoreDatabaseFailure Code = "store.database.failure"

	CodeStoreBackendUnsupported Code = "store.backend.unsupported"
	CodeStoreInvalidInput       Code = "store.invalid_input"
	CodeStoreNotFound           Code = "store.embedding.get.not_found"

	CodeRegistryModelNotFound Code = "registry.model.not_found"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeAuditQueryFailure Code = "audit.query.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldModel(value string) Attr {
	return Field("embedding_model", value)
}

func FieldDimension(value int) Attr {
	return Field("embedding_dimension", value)
}

func FieldActorType(value string) Attr {
	return Field("actor_type", value)
}

func FieldClientID(value string) Attr {
	return Field("client_id", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeStoreDatabaseFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// IsUnknownModel reports whether err is a model/dimension governance
// rejection: the model name is absent from the registry or the vector
// length disagrees with the registered dimension.
func IsUnknownModel(err error) bool {
	return HasCode(err, CodeStoreModelUnknown)
}

// IsScopeViolation reports whether err is a tenancy-scope rejection
// (client_id presence contradicts the actor type).
func IsScopeViolation(err error) bool {
	return HasCode(err, CodeStoreScopeInvalid)
}

// IsUnscopedDelete reports whether err is a refused filterless delete.
func IsUnscopedDelete(err error) bool {
	return HasCode(err, CodeStoreDeleteUnscoped)
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "unscoped" || r == "unknown"
}

// IsRetryable reports whether err is a transient backing-store failure.
// Retry policy is a caller-level concern; the store never retries
// internally. Upsert retries are safe because the logical-key upsert is
// idempotent; search and stats retries simply reflect the latest state.
func IsRetryable(err error) bool {
	code := CodeOf(err)
	return code == CodeStoreUnavailable || code == CodeStoreDatabaseFailure
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case HasCode(err, CodeStoreUnavailable):
		return http.StatusServiceUnavailable
	case HasCode(err, CodeStoreDatabaseFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeStoreDatabaseFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
