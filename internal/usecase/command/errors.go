package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/device-management-toolkit/bmcserver/internal/entity"
)

// Sentinels for errors.Is checks on the typed errors below.
var (
	ErrValidation        = errors.New("validation failed")
	ErrCommandInProgress = errors.New("command in progress")
	ErrDevice            = errors.New("device error")
)

// Errors a DeviceLink may wrap to classify a failure precisely.
var (
	ErrLinkNACK        = errors.New("device NACK")
	ErrLinkUnavailable = errors.New("device unavailable")
)

// Reasons carried by ValidationError.
const (
	ReasonInvalidMode    = "invalid mode"
	ReasonInvalidRequest = "invalid request"
	ReasonTokenReuse     = "idempotency token reused with a different target mode"
)

// ValidationError is a malformed or unknown request. It never reaches the device.
type ValidationError struct {
	Reason string
	Err    error
}

func (e ValidationError) Error() string { return e.Reason }

func (e ValidationError) Unwrap() error { return e.Err }

// Is -.
func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// ConflictError means another command holds the device.
type ConflictError struct{}

func (ConflictError) Error() string { return ErrCommandInProgress.Error() }

func (ConflictError) Unwrap() error { return ErrCommandInProgress }

// DeviceErrorKind -.
type DeviceErrorKind string

const (
	KindTimeout     DeviceErrorKind = "timeout"
	KindNACK        DeviceErrorKind = "nack"
	KindTransport   DeviceErrorKind = "transport"
	KindUnavailable DeviceErrorKind = "unavailable"
	KindUnconfirmed DeviceErrorKind = "unconfirmed"
)

// DeviceError is a failed DeviceLink call, normalized to a Kind.
type DeviceError struct {
	Kind   DeviceErrorKind
	Target entity.DeviceMode
	Err    error
}

func (e DeviceError) Error() string {
	return fmt.Sprintf("device %s: %v", e.Kind, e.Err)
}

func (e DeviceError) Unwrap() error { return e.Err }

// Is -.
func (e DeviceError) Is(target error) bool { return target == ErrDevice }

// unconfirmedError is reported when the device answers with a mode other than the target.
func unconfirmedError(target, got entity.DeviceMode) DeviceError {
	return DeviceError{
		Kind:   KindUnconfirmed,
		Target: target,
		Err:    fmt.Errorf("device reported %s after command to %s", got, target),
	}
}

// kindTokens maps substrings of vendor messages to a kind. First match wins.
var kindTokens = []struct {
	kind   DeviceErrorKind
	tokens []string
}{
	{KindTimeout, []string{"TIMEOUT", "TIMED OUT", "DEADLINE"}},
	{KindNACK, []string{"NACK", "REJECTED", "NOT ACKNOWLEDGED"}},
	{KindUnavailable, []string{"UNAVAILABLE", "OFFLINE", "NOT_READY", "NOT READY", "BUSY"}},
}

// NormalizeDeviceError classifies any DeviceLink error into a DeviceError.
func NormalizeDeviceError(target entity.DeviceMode, err error) DeviceError {
	var de DeviceError
	if errors.As(err, &de) {
		return de
	}

	return DeviceError{Kind: classify(err), Target: target, Err: err}
}

func classify(err error) DeviceErrorKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrLinkNACK):
		return KindNACK
	case errors.Is(err, ErrLinkUnavailable):
		return KindUnavailable
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	msg := strings.ToUpper(err.Error())

	for _, entry := range kindTokens {
		for _, token := range entry.tokens {
			if strings.Contains(msg, token) {
				return entry.kind
			}
		}
	}

	return KindTransport
}
