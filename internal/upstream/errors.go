package upstream

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidResponse marks a successful response whose body is not JSON.
var ErrInvalidResponse = errors.New("upstream returned a non-JSON body")

// UnavailableError reports that the analytics service could not be reached
// or did not answer in time. It carries no HTTP status.
type UnavailableError struct {
	Op  string
	URL string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// ApplicationError reports a non-2xx answer from the analytics service.
type ApplicationError struct {
	Op     string
	Status int
	Body   []byte
}

func (e *ApplicationError) Error() string {
	if msg := e.message(); msg != "" {
		return fmt.Sprintf("%s: upstream status %d: %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: upstream status %d", e.Op, e.Status)
}

// message extracts the "error" field of a JSON failure envelope.
func (e *ApplicationError) message() string {
	var env struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(e.Body, &env) == nil {
		return env.Error
	}
	return ""
}

// Details returns the upstream body for inclusion in a failure envelope: the
// decoded JSON when the body is JSON, the raw text otherwise, nil when empty.
func (e *ApplicationError) Details() any {
	if len(e.Body) == 0 {
		return nil
	}
	if json.Valid(e.Body) {
		return json.RawMessage(e.Body)
	}
	return string(e.Body)
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// DetailsOf returns what a failure envelope should report about err: the
// upstream body when there is one, the error text otherwise.
func DetailsOf(err error) any {
	var appErr *ApplicationError
	if errors.As(err, &appErr) {
		if d := appErr.Details(); d != nil {
			return d
		}
	}
	if err == nil {
		return nil
	}
	return err.Error()
}
