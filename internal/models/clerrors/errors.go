package clerrors

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "unexpected"
	}
}

// Error porte le type d'erreur jusqu'au handler HTTP
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

var (
	ErrUnauthorized = &Error{Kind: KindUnauthorized, Msg: "Unauthorized"}
	ErrForbidden    = &Error{Kind: KindForbidden, Msg: "Access denied"}
)

func Validation(format string, a ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, a...)}
}

func NotFound(what string) error {
	return &Error{Kind: KindNotFound, Msg: what + " not found"}
}

func Unexpected(msg string, err error) error {
	return &Error{Kind: KindUnexpected, Msg: msg, Err: err}
}

// FromStore traduit une erreur gorm: record not found devient NotFound,
// le reste est une erreur inattendue
func FromStore(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound(what)
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Unexpected("failed to load "+what, err)
}

func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

func StatusCode(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Message retourne le texte exposé au client, sans le détail interne
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Msg
	}
	return "Internal server error"
}
