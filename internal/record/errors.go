package record

import "errors"

type structural interface {
	Structural() bool
}

type structuralError struct {
	err error
}

func (e structuralError) Error() string    { return e.err.Error() }
func (e structuralError) Unwrap() error    { return e.err }
func (e structuralError) Structural() bool { return true }

// Structural marks err as a malformed-input failure: detected before any
// destructive action and reported with a distinct exit status.
func Structural(err error) error {
	if err == nil {
		return nil
	}
	return structuralError{err: err}
}

// IsStructural reports whether any error in err's chain was marked structural.
func IsStructural(err error) bool {
	var s structural
	return errors.As(err, &s) && s.Structural()
}
