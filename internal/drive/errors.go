package drive

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// APIError is an upstream rejection carrying the Drive status code.
// Every client method converts *googleapi.Error into this type, so callers
// only need errors.As(err, &apiErr) to tell upstream failures apart from
// local ones.
type APIError struct {
	Code    int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("drive API error %d: %s", e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a Drive 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}

// toAPIError converts googleapi errors to *APIError and leaves everything
// else untouched.
func toAPIError(err error) error {
	if err == nil {
		return nil
	}
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return err
	}
	msg := gErr.Message
	if msg == "" && len(gErr.Errors) > 0 {
		msg = gErr.Errors[0].Message
	}
	if msg == "" {
		msg = http.StatusText(gErr.Code)
	}
	return &APIError{Code: gErr.Code, Message: msg, Err: err}
}
