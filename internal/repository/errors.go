package repository

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUserNotFound = errors.New("user not found")

// DuplicateKeyError reports a uniqueness violation on the named fields.
type DuplicateKeyError struct {
	Fields []string
	Err    error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s", strings.Join(e.Fields, ", "))
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}
