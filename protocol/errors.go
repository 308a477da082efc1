package protocol

import "fmt"

// MalformedPayloadError reports a request whose data field could not be
// decoded for its declared method. The request is still answered (with
// status error); the connection stays up.
type MalformedPayloadError struct {
	Method string
	Err    error
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: %v", e.Method, e.Err)
}

func (e *MalformedPayloadError) Unwrap() error { return e.Err }
