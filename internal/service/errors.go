package service

import (
	"errors"
	"fmt"

	"github.com/iyhunko/catalog-service/internal/repository"
)

// Kind classifies a catalog error for the transport layer.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindConflict
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid input"
	default:
		return "unknown"
	}
}

// Error is a catalog error carrying a client-facing message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return e.Message
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict) holds for every conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
)

func notFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf(format, args...)}
}

func invalidInput(format string, args ...any) error {
	return &Error{Kind: KindInvalidInput, Message: fmt.Sprintf(format, args...)}
}

// mapStoreError translates store errors the catalog knows about and wraps the rest.
func mapStoreError(err error, action string) error {
	var (
		uniqueErr     *repository.UniqueConstraintError
		validationErr *repository.ValidationError
	)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return notFound("Product not found")
	case errors.As(err, &uniqueErr):
		return conflict("Product with this name already exists")
	case errors.As(err, &validationErr):
		return invalidInput("Product is invalid: %s", validationErr.Detail)
	default:
		return fmt.Errorf("failed to %s: %w", action, err)
	}
}
