package uthread

// Value is an optional typed carrier for entry/return payloads, for callers
// who want to avoid sprinkling type assertions on the raw any ABI. It is a
// thin convenience layered on top of the opaque core described in spec.md
// §9's Design Notes; Create and Join never require it.
type Value struct {
	Kind    string
	Payload any
}

// NewValue builds a Value with the given kind tag and payload.
func NewValue(kind string, payload any) Value {
	return Value{Kind: kind, Payload: payload}
}
