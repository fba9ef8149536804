package core

// CallState is the lifecycle stage of an asynchronous fetch.
type CallState int

const (
	CallStateUnknown CallState = iota
	CallStateExecuting
	CallStateExecutingFailed
	CallStateRetrieving
	CallStateRetrievingFailed
	CallStateDone
	CallStateCanceled
)

var callStateNames = map[CallState]string{
	CallStateUnknown:          "unknown",
	CallStateExecuting:        "executing",
	CallStateExecutingFailed:  "executing_failed",
	CallStateRetrieving:       "retrieving",
	CallStateRetrievingFailed: "retrieving_failed",
	CallStateDone:             "done",
	CallStateCanceled:         "canceled",
}

// CallStateFromString is the inverse of String. Unknown names map to
// CallStateUnknown.
func CallStateFromString(s string) CallState {
	for state, name := range callStateNames {
		if name == s {
			return state
		}
	}
	return CallStateUnknown
}

func (s CallState) String() string {
	if name, ok := callStateNames[s]; ok {
		return name
	}
	return callStateNames[CallStateUnknown]
}

func (s CallState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *CallState) UnmarshalText(b []byte) error {
	*s = CallStateFromString(string(b))
	return nil
}

// IsFinal reports whether no further state change will happen.
func (s CallState) IsFinal() bool {
	switch s {
	case CallStateExecutingFailed, CallStateRetrievingFailed, CallStateDone, CallStateCanceled:
		return true
	default:
		return false
	}
}

// IsFailed reports whether the call ended with an error.
func (s CallState) IsFailed() bool {
	return s == CallStateExecutingFailed || s == CallStateRetrievingFailed
}
