package speech_to_text

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrUnintelligible = errors.New("speech was unintelligible")
	ErrServiceFailure = errors.New("transcription service failed")
	ErrTimeout        = errors.New("transcription timed out")
)

// Classify wraps err in the failure kind it belongs to. Cancellation is
// passed through untouched so callers can tell shutdown from failure.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnintelligible), errors.Is(err, ErrServiceFailure), errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", ErrServiceFailure, err)
	}
}

// Recoverable reports whether err is a transcription failure after which
// listening should simply continue.
func Recoverable(err error) bool {
	return errors.Is(err, ErrUnintelligible) || errors.Is(err, ErrServiceFailure) || errors.Is(err, ErrTimeout)
}
