package frame

import "fmt"

// StreamFramingError means the byte stream can no longer be walked: a
// declared length points outside the input or a header is malformed.
type StreamFramingError struct {
	Offset int64
	Reason string
}

func (e *StreamFramingError) Error() string {
	return fmt.Sprintf("stream framing error at offset %d: %s", e.Offset, e.Reason)
}

type UnsupportedInputError struct {
	Reason string
}

func (e *UnsupportedInputError) Error() string {
	return "unsupported input: " + e.Reason
}
