// Package apperr defines the error kinds surfaced by the ledger services.
// Each error carries an i18n message key so the transport layer can render a
// localized message without the services knowing the caller's locale.
package apperr

import (
	"github.com/pkg/errors"
)

// Kind classifies a domain failure so callers can decide how to react.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	KindInternal   Kind = "internal"

	KindUnauthenticated Kind = "unauthenticated"
)

type Error struct {
	Kind Kind
	Key  string
	Data map[string]any
}

func (e *Error) Error() string {
	return string(e.Kind) + ": " + e.Key
}

func newError(kind Kind, key string, data []map[string]any) *Error {
	e := &Error{Kind: kind, Key: key}
	if len(data) > 0 {
		e.Data = data[0]
	}
	return e
}

func Validation(key string, data ...map[string]any) *Error {
	return newError(KindValidation, key, data)
}

func Conflict(key string, data ...map[string]any) *Error {
	return newError(KindConflict, key, data)
}

func Forbidden(key string, data ...map[string]any) *Error {
	return newError(KindForbidden, key, data)
}

func NotFound(key string, data ...map[string]any) *Error {
	return newError(KindNotFound, key, data)
}

func Unauthenticated(key string) *Error {
	return newError(KindUnauthenticated, key, nil)
}

// As returns the domain error in err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for anything that is not a domain error.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
