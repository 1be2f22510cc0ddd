// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Vidgate Contributors

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
	CodeRegistryChannelDuplicate Code = "registry.channel.add.duplicate"
	CodeRegistryChannelNotFound  Code = "registry.channel.get.not_found"

	CodeMembershipQueryFailure Code = "membership.query.failure"

	CodeDispatchStateInvalid    Code = "dispatch.request.state.invalid"
	CodeDispatchRequestNotFound Code = "dispatch.request.get.not_found"

	CodeExecutorSubmitFailure   Code = "executor.job.submit.failure"
	CodeExecutorDownloadFailure Code = "executor.job.download.failure"

	CodeAdminAccessDenied Code = "admin.access.denied"

	CodeStoreDatabaseFailure Code = "store.database.failure"
	CodeStoreInvalidInput    Code = "store.invalid_input"
	CodeStoreUserNotFound    Code = "store.user.get.not_found"

	CodeTelegramRequestFailure   Code = "telegram.api.request.failure"
	CodeTelegramStatusFailure    Code = "telegram.api.status.failure"
	CodeTelegramTokenInvalid     Code = "telegram.token.invalid"
	CodeTelegramTokenCheckFailed Code = "telegram.token.check.failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeSecretNotFound     Code = "secret.not_found"
	CodeSecretStoreFailure Code = "secret.store.failure"
	CodeSecretInvalidInput Code = "secret.invalid_input"

	CodeServerStartFailure Code = "server.start.failure"

	CodeCLISetupFailure      Code = "cli.setup.failure"
	CodeCLIServiceNotRunning Code = "cli.service.not_running"

	CodeInternalFailure Code = "internal.failure"
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

func FieldUserID(value int64) Attr {
	return Field("user_id", value)
}

func FieldChannelID(value int64) Attr {
	return Field("channel_id", value)
}

func FieldRequestID(value string) Attr {
	return Field("request_id", value)
}

func FieldPlatform(value string) Attr {
	return Field("platform", value)
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
		code = CodeInternalFailure
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

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsDuplicate(err error) bool {
	return reason(CodeOf(err)) == "duplicate"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsDenied(err error) bool {
	r := reason(CodeOf(err))
	return r == "denied" || r == "forbidden" || r == "unauthorized"
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsDuplicate(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsDenied(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeInternalFailure).Wrap(stderrors.Join(errs...))
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
