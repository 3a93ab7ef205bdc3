package revert

import "errors"

// Kind classifies why a protocol call was rejected.
type Kind int

const (
	KindUnauthorized Kind = iota + 1
	KindIdentity
	KindState
	KindBounds
	KindDoubleAction
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindIdentity:
		return "identity"
	case KindState:
		return "state"
	case KindBounds:
		return "bounds"
	case KindDoubleAction:
		return "double_action"
	default:
		return "unknown"
	}
}

// Error is a synchronous, all-or-nothing rejection carrying a short
// machine-checkable reason.
type Error struct {
	Kind   Kind
	Reason string
}

func (e *Error) Error() string { return e.Reason }

// Is matches another *Error with the same kind and reason, so sentinel values
// survive wrapping and copying.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Reason == t.Reason
}

func Unauthorized(reason string) *Error { return &Error{Kind: KindUnauthorized, Reason: reason} }
func Identity(reason string) *Error     { return &Error{Kind: KindIdentity, Reason: reason} }
func State(reason string) *Error        { return &Error{Kind: KindState, Reason: reason} }
func Bounds(reason string) *Error       { return &Error{Kind: KindBounds, Reason: reason} }
func DoubleAction(reason string) *Error { return &Error{Kind: KindDoubleAction, Reason: reason} }

// KindOf returns the rejection kind of err, or 0 when err is not a rejection.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	return 0
}

// IsKind reports whether err is a rejection of kind k.
func IsKind(err error, k Kind) bool { return KindOf(err) == k }
