package fact

import (
	"errors"
	"fmt"
)

// ErrEnvironmentClosed is returned by environment-level operations after
// Close. Handle-level operations surface it through their own error types.
var ErrEnvironmentClosed = errors.New("fact: environment is closed")

// SlotErrorKind discriminates slot write failures.
type SlotErrorKind int

const (
	// SlotUnknown means the template declares no slot with that name.
	SlotUnknown SlotErrorKind = iota
	// SlotTypeMismatch means the value violates the slot's declared bound.
	SlotTypeMismatch
	// SlotBuilderNotOpen means the builder was already asserted, aborted
	// or disposed.
	SlotBuilderNotOpen
	// SlotEnvironmentClosed means the owning environment was closed.
	SlotEnvironmentClosed
)

func (k SlotErrorKind) String() string {
	switch k {
	case SlotUnknown:
		return "unknown slot"
	case SlotTypeMismatch:
		return "type mismatch"
	case SlotBuilderNotOpen:
		return "builder not open"
	case SlotEnvironmentClosed:
		return "environment closed"
	default:
		return fmt.Sprintf("slot error(%d)", int(k))
	}
}

// SlotError reports a failed slot write. The builder stays in its current
// state; the caller may retry with a different value or slot.
type SlotError struct {
	Template string
	Slot     string
	Kind     SlotErrorKind
}

func (e *SlotError) Error() string {
	return fmt.Sprintf("fact: put slot %q on template %q: %s", e.Slot, e.Template, e.Kind)
}

// AssertError reports a rejected assertion. The engine does not surface a
// finer-grained reason across this boundary, so the failure is opaque.
type AssertError struct {
	Template string
	Reason   string
}

func (e *AssertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("fact: assertion against template %q failed", e.Template)
	}
	return fmt.Sprintf("fact: assertion against template %q failed: %s", e.Template, e.Reason)
}

// RetractErrorKind discriminates retraction failures.
type RetractErrorKind int

const (
	// RetractAlreadyRetracted means the fact is no longer live.
	RetractAlreadyRetracted RetractErrorKind = iota
	// RetractEnvironmentClosed means the owning environment was closed.
	RetractEnvironmentClosed
)

func (k RetractErrorKind) String() string {
	switch k {
	case RetractAlreadyRetracted:
		return "already retracted"
	case RetractEnvironmentClosed:
		return "environment closed"
	default:
		return fmt.Sprintf("retract error(%d)", int(k))
	}
}

// RetractError reports a failed retraction. The handle is unusable
// afterwards either way; there is no retry path.
type RetractError struct {
	Index int64
	Kind  RetractErrorKind
}

func (e *RetractError) Error() string {
	return fmt.Sprintf("fact: retract fact f-%d: %s", e.Index, e.Kind)
}
