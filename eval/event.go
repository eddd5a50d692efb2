package eval

import "tram/types"

// EventKind tags a non-local control signal
type EventKind int

const (
	EventNone EventKind = iota
	EventException
	EventReturn
	EventBreak
	EventContinue
	EventCleanup
)

func (k EventKind) String() string {
	switch k {
	case EventNone:
		return "none"
	case EventException:
		return "exception"
	case EventReturn:
		return "return"
	case EventBreak:
		return "break"
	case EventContinue:
		return "continue"
	case EventCleanup:
		return "cleanup"
	default:
		return "unknown"
	}
}

// Event is routed through the queue to the nearest pending Finalizer
type Event struct {
	Kind      EventKind
	Err       *LangError  // EventException
	Value     types.Value // EventReturn
	Location  types.Location
	Traceback Traceback
}

// Pending reports whether the event still needs resolving
func (e Event) Pending() bool {
	return e.Kind != EventNone
}
