package codec

import "fmt"

// UnsupportedCompressionError is returned when asked to decode or encode a compression that has no codec.
type UnsupportedCompressionError struct {
	Compression Compression
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("Unsupported compression: %s", e.Compression)
}

// FinishError is returned when an encoder fails to flush its trailing data.
//
// Encoder names the failing encoder, e.g. "GzEncoder" or "ZstdEncoder".
type FinishError struct {
	Encoder string
	Err     error
}

func (e *FinishError) Error() string {
	return fmt.Sprintf("FinishError: Failed to finish encoder %q: %v", e.Encoder, e.Err)
}

func (e *FinishError) Unwrap() error {
	return e.Err
}

// InvalidLevelError is returned when a compression level is out of range.
type InvalidLevelError struct {
	Compression Compression
	Level       int
	Min, Max    int
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("compression level must be between %d and %d but was %d", e.Min, e.Max, e.Level)
}
