package model

// ErrorCode is the discriminated result of a non-throwing bucket insert.
type ErrorCode uint8

const (
	// ErrorCodeUnknown means the operation has not completed.
	ErrorCodeUnknown ErrorCode = iota
	// ErrorCodeInserted means the object was stored.
	ErrorCodeInserted
	// ErrorCodeRefused means a filter vetoed the insert.
	ErrorCodeRefused
	// ErrorCodeDuplicate means a data-equal object was already present.
	ErrorCodeDuplicate
	// ErrorCodeSoftCapacity means the object was stored but the bucket's
	// soft capacity is now exceeded.
	ErrorCodeSoftCapacity
	// ErrorCodeHardCapacity means the insert was refused because it would
	// exceed the bucket's hard capacity.
	ErrorCodeHardCapacity
)

// String returns a short human-readable name for the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeInserted:
		return "inserted"
	case ErrorCodeRefused:
		return "refused"
	case ErrorCodeDuplicate:
		return "duplicate"
	case ErrorCodeSoftCapacity:
		return "soft capacity exceeded"
	case ErrorCodeHardCapacity:
		return "hard capacity exceeded"
	default:
		return "unknown"
	}
}

// OK reports whether the code represents a completed insert.
func (c ErrorCode) OK() bool {
	return c == ErrorCodeInserted || c == ErrorCodeSoftCapacity
}
