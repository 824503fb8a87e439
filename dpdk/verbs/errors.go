package verbs

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/usnistgov/verbsrx/dpdk/eal"
)

// Error kinds.
// Errors returned by receive queue operations wrap one of these, test with errors.Is.
var (
	ErrConfiguration    = errors.New("configuration error")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrOutOfMemory      = errors.New("out of memory")
	ErrResourceMismatch = errors.New("resource mismatch")
	ErrOverflow         = errors.New("value too large")
)

var errnoOf = map[error]eal.Errno{
	ErrConfiguration:    eal.EINVAL,
	ErrInvalidArgument:  eal.EINVAL,
	ErrOutOfMemory:      eal.ENOMEM,
	ErrResourceMismatch: eal.EINVAL,
	ErrOverflow:         eal.EOVERFLOW,
}

// ToErrno converts an error to errno.
// It returns 0 for nil, and EINVAL for unclassified errors.
func ToErrno(e error) eal.Errno {
	if e == nil {
		return 0
	}
	for kind, errno := range errnoOf {
		if errors.Is(e, kind) {
			return errno
		}
	}
	var errno eal.Errno
	if errors.As(e, &errno) {
		return errno
	}
	return eal.EINVAL
}

// Wrap annotates a device error with the operation that failed.
func Wrap(op string, e error) error {
	if e == nil {
		return nil
	}
	logger.Debug("device operation failed", zap.String("op", op), zap.Int("errno", int(ToErrno(e))), zap.Error(e))
	return fmt.Errorf("%s: %w", op, e)
}
