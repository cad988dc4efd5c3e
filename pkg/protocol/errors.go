package protocol

import "errors"

// TransientError marks a dispatch failure as retryable. Handlers wrap
// timeouts, rate limits, and 5xx responses in it; everything else is treated
// as permanent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func Transient(err error) error {
	if err == nil {
		return nil
	}

	return &TransientError{Err: err}
}

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool {
	var te *TransientError

	return errors.As(err, &te)
}

// PermanentError marks a dispatch failure as not retryable even when wrapped
// inside a transient chain. Handlers use it for rejected recipients and
// malformed parameters.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return "permanent: " + e.Err.Error()
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

func Permanent(err error) error {
	if err == nil {
		return nil
	}

	return &PermanentError{Err: err}
}

func IsPermanent(err error) bool {
	var pe *PermanentError

	return errors.As(err, &pe)
}
