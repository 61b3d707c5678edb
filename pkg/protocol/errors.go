package protocol

import (
	"errors"
	"fmt"
)

// Decode failures are non-fatal: the calling loop logs them and moves on to
// the next line. No partial reading is ever returned alongside an error.
var (
	// ErrMalformedFrame covers lines with too few tokens or tokens that do
	// not parse as the numbers the format requires.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrBadCRC marks a raw-format payload whose CRC-16 remainder is nonzero.
	ErrBadCRC = errors.New("CRC mismatch")
)

// UnknownSensorError reports a line whose leading tag is not a known sensor
// class.
type UnknownSensorError struct {
	Tag string
}

func (e UnknownSensorError) Error() string {
	return fmt.Sprintf("unknown sensor identifier %q", e.Tag)
}

func malformedf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrMalformedFrame, fmt.Sprintf(format, args...))
}
