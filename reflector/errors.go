package reflector

import (
	"errors"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// ErrStopped is returned by Stop when the Reflector has already been
// stopped, and by Run when it is entered after a Stop.
var ErrStopped = errors.New("reflector: already stopped")

// ErrRunning is returned by Run when another run loop is already active on
// the same Reflector. At most one loop runs per instance.
var ErrRunning = errors.New("reflector: run loop already active")

// StatusReasonStopped is the reason carried by the terminal Error event
// that Stop appends so that active observers unwind.
const StatusReasonStopped metav1.StatusReason = "ReflectorStopped"

// IntegrityError reports an upstream contract violation: a malformed item
// missing identity fields, or an event the Reflector does not recognize.
// It aborts the run loop immediately.
type IntegrityError struct {
	Reason string
}

func (e *IntegrityError) Error() string {
	return "reflector: integrity violation: " + e.Reason
}
