package hosttech

import "fmt"

// AuthError means the response header did not confirm authentication. Not
// retryable without new credentials.
type AuthError struct{}

func (e *AuthError) Error() string { return "authentication rejected by remote service" }

// TypeMismatchError means a decoded body result had an unexpected kind, which
// points at a protocol or API version mismatch.
type TypeMismatchError struct {
	Operation string
	Want      string
	Got       any
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: result has unexpected type %T (want %s)", e.Operation, e.Got, e.Want)
}
