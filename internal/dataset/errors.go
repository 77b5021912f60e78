package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrDataUnavailable matches every load failure (see UnavailableError).
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrInvalidColumn indicates an unknown column or one of the wrong kind.
	ErrInvalidColumn = errors.New("invalid column")
)

// UnavailableError reports that the dataset source is unreachable or malformed.
type UnavailableError struct {
	Source string
	Err    error
}

func (e *UnavailableError) Error() string {
	if e == nil {
		return ErrDataUnavailable.Error()
	}
	if e.Source != "" {
		return fmt.Sprintf("data unavailable from %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("data unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrDataUnavailable) match any UnavailableError.
func (e *UnavailableError) Is(target error) bool { return target == ErrDataUnavailable }

func unavailable(source string, format string, args ...any) error {
	return &UnavailableError{Source: source, Err: fmt.Errorf(format, args...)}
}
