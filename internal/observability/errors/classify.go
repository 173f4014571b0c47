// Package errors turns arbitrary errors into low-cardinality labels for metrics and logs.
package errors

import (
	"context"
	goerrors "errors"
	"net"
	"reflect"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Class names returned for well-known failures.
const (
	ClassNone     = ""
	ClassTimeout  = "timeout"
	ClassCanceled = "canceled"
	ClassNotFound = "redis_nil"
	ClassNetwork  = "network"
	ClassUnknown  = "unknown"
)

// Classify returns a normalized label for err. Context and network failures get
// fixed names; anything else is named after the innermost concrete type,
// e.g. "apperrors_apperror".
func Classify(err error) string {
	switch {
	case err == nil:
		return ClassNone
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	case goerrors.Is(err, redis.Nil):
		return ClassNotFound
	}
	var netErr net.Error
	if goerrors.As(err, &netErr) {
		if netErr.Timeout() {
			return ClassTimeout
		}
		return ClassNetwork
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ClassUnknown
	}
	name := strings.ToLower(t.String())
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return ClassUnknown
	}
	return name
}
