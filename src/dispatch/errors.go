package dispatch

import (
	"errors"
	"fmt"

	"hookstat/src/contracts"
)

var (
	// ErrLateEvent is returned for events dispatched after Finish or Abort started.
	ErrLateEvent = errors.New("event arrived after end of execution")

	// ErrAlreadyFinished is returned by a second Finish or Abort.
	ErrAlreadyFinished = errors.New("dispatcher already finished")

	// ErrDiscarded is the panic value raised when a discarded dispatcher is used.
	ErrDiscarded = errors.New("dispatcher was discarded")
)

// ClassifierError reports a classifier that failed or panicked on one event.
// The event is dropped for that analysis only.
type ClassifierError struct {
	Analysis string
	Kind     contracts.EventKind
	IID      contracts.EventID
	Err      error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier %s/%s failed on iid %d: %v", e.Analysis, e.Kind, e.IID, e.Err)
}

func (e *ClassifierError) Unwrap() error {
	return e.Err
}
