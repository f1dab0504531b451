package wsdl

import "fmt"

// CodingError reports a wire value that cannot be encoded or decoded. It
// always indicates a programming error or a protocol version mismatch and is
// never worth retrying.
type CodingError struct {
	msg string
}

func (e *CodingError) Error() string { return e.msg }

// NewCodingError builds a CodingError from a format string.
func NewCodingError(format string, args ...any) *CodingError {
	return &CodingError{msg: fmt.Sprintf(format, args...)}
}

// Fault is an RPC fault returned by the remote service inside a response
// envelope. Origin is "client" or "server" depending on the fault code.
type Fault struct {
	Origin  string
	Message string
}

func (f *Fault) Error() string { return f.Origin + ": " + f.Message }
