package replay

import (
	"errors"
	"fmt"
)

var (
	// ErrEngineStopped is returned by Flush when the engine is not running
	ErrEngineStopped = errors.New("replay engine stopped")

	// ErrOffline is reported by a cycle that could not start because the device is offline
	ErrOffline = errors.New("device is offline")

	// ErrUnresolvedTarget indicates an update or delete whose local target was never created on the server
	ErrUnresolvedTarget = errors.New("target has no server id")
)

// ErrorKind classifies a delivery failure
type ErrorKind int

const (
	// Transient failures are retried: network unreachable, timeout, 5xx, 429
	Transient ErrorKind = iota
	// Permanent failures need manual resolution: 4xx validation, authorization, conflict
	Permanent
)

func (k ErrorKind) String() string {
	switch k {
	case Transient:
		return "transient"
	case Permanent:
		return "permanent"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// DeliveryError describes why the remote executor could not deliver a request
type DeliveryError struct {
	Err        error
	Detail     string
	Kind       ErrorKind
	StatusCode int
}

func (e *DeliveryError) Error() string {
	msg := e.Detail
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s delivery error (%d): %s", e.Kind, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s delivery error: %s", e.Kind, msg)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Is matches another *DeliveryError of the same kind, so that
// errors.Is(err, &DeliveryError{Kind: Permanent}) works as a kind check.
func (e *DeliveryError) Is(target error) bool {
	t, ok := target.(*DeliveryError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.StatusCode == 0 || t.StatusCode == e.StatusCode)
}

// NewTransientError wraps err as a transient delivery failure
func NewTransientError(err error) *DeliveryError {
	return &DeliveryError{Kind: Transient, Err: err}
}

// NewPermanentError creates a permanent delivery failure
func NewPermanentError(statusCode int, detail string) *DeliveryError {
	return &DeliveryError{Kind: Permanent, StatusCode: statusCode, Detail: detail}
}

// Classify returns the kind of err. Unclassified errors and timeouts are transient.
func Classify(err error) ErrorKind {
	var de *DeliveryError
	if errors.As(err, &de) {
		return de.Kind
	}
	if errors.Is(err, ErrUnresolvedTarget) {
		return Permanent
	}
	// context.DeadlineExceeded попадает сюда же
	return Transient
}

// IsPermanent reports whether err is a permanent delivery failure
func IsPermanent(err error) bool {
	return Classify(err) == Permanent
}
