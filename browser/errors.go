package browser

import (
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

var (
	// ErrTimeout is returned when a driver call exceeds its timeout.
	ErrTimeout = errors.New("browser: timeout")

	// ErrClosed is returned when the page, context or browser has gone away.
	// It is the only driver condition callers treat as unrecoverable.
	ErrClosed = errors.New("browser: target closed")
)

// IsTimeout reports whether err is a driver timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsFault reports whether err means the page can no longer be driven.
func IsFault(err error) bool {
	return errors.Is(err, ErrClosed)
}

// wrapErr maps playwright errors onto the package sentinels while keeping the
// original message.
func wrapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, playwright.ErrTimeout):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, playwright.ErrTargetClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	default:
		return err
	}
}
