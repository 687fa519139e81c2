package domain

import "errors"

// ErrInvalidInput reports a local validation failure. Operations returning it
// have not sent any request and have not notified the operator.
var ErrInvalidInput = errors.New("invalid input")
