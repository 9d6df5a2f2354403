// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package actioncode

import (
	"errors"
	"net/http"
)

// ErrorKind is the stable machine-readable error code surfaced to
// clients.
type ErrorKind string

const (
	KindInvalidPayload    ErrorKind = "INVALID_PAYLOAD"
	KindCodeNotFound      ErrorKind = "CODE_NOT_FOUND"
	KindCodeExpired       ErrorKind = "CODE_EXPIRED"
	KindCodeAlreadyExists ErrorKind = "CODE_ALREADY_EXISTS"
	KindTxAlreadyAttached ErrorKind = "TX_ALREADY_ATTACHED"
	KindTxMissing         ErrorKind = "TX_MISSING"
	KindUnsupportedChain  ErrorKind = "UNSUPPORTED_CHAIN"
	KindAdapterNotFound   ErrorKind = "ADAPTER_NOT_FOUND"
	KindSignatureInvalid  ErrorKind = "SIGNATURE_INVALID"
	KindUnknown           ErrorKind = "UNKNOWN_ERROR"
)

// Error is a lifecycle error with a stable kind and an HTTP status
// for the REST surface. Two Errors match under errors.Is when their
// kinds match, regardless of message.
type Error struct {
	Details map[string]any
	Kind    ErrorKind
	Message string
	Status  int
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// WithMessage returns a copy of the error with a different message
func (e *Error) WithMessage(message string) *Error {
	out := *e
	out.Message = message
	return &out
}

// WithDetails returns a copy of the error with structured details
func (e *Error) WithDetails(details map[string]any) *Error {
	out := *e
	out.Details = details
	return &out
}

var (
	ErrInvalidPayload = &Error{
		Kind:    KindInvalidPayload,
		Message: "invalid request payload",
		Status:  http.StatusBadRequest,
	}
	ErrCodeNotFound = &Error{
		Kind:    KindCodeNotFound,
		Message: "action code not found",
		Status:  http.StatusNotFound,
	}
	ErrCodeExpired = &Error{
		Kind:    KindCodeExpired,
		Message: "action code has expired",
		Status:  http.StatusGone,
	}
	ErrCodeAlreadyExists = &Error{
		Kind:    KindCodeAlreadyExists,
		Message: "action code already registered",
		Status:  http.StatusConflict,
	}
	ErrTxAlreadyAttached = &Error{
		Kind:    KindTxAlreadyAttached,
		Message: "transaction already attached",
		Status:  http.StatusConflict,
	}
	ErrTxMissing = &Error{
		Kind:    KindTxMissing,
		Message: "no transaction attached",
		Status:  http.StatusBadRequest,
	}
	ErrUnsupportedChain = &Error{
		Kind:    KindUnsupportedChain,
		Message: "unsupported chain",
		Status:  http.StatusBadRequest,
	}
	ErrAdapterNotFound = &Error{
		Kind:    KindAdapterNotFound,
		Message: "no adapter registered for chain",
		Status:  http.StatusBadRequest,
	}
	ErrSignatureInvalid = &Error{
		Kind:    KindSignatureInvalid,
		Message: "signature verification failed",
		Status:  http.StatusUnauthorized,
	}
	ErrUnknown = &Error{
		Kind:    KindUnknown,
		Message: "internal error",
		Status:  http.StatusInternalServerError,
	}
)

// NormalizeError maps any error into the lifecycle taxonomy. Errors
// already in the taxonomy pass through unchanged; anything else
// collapses to UNKNOWN_ERROR so internal details never reach clients.
func NormalizeError(err error) *Error {
	var lcErr *Error
	if errors.As(err, &lcErr) {
		return lcErr
	}
	return ErrUnknown
}
