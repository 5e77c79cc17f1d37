package assignment

import "errors"

// ErrNoEmployees is returned when there is nobody to assign clients to.
var ErrNoEmployees = errors.New("no employees available")
