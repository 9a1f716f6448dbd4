package config

import (
	"fmt"
)

// ErrConfiguration indicates a bad or missing credential, setting or config file entry
type ErrConfiguration struct {
	Field  string
	Reason string
	Err    error
}

func (e *ErrConfiguration) Error() string {
	switch {
	case e.Err != nil && e.Reason != "":
		return fmt.Sprintf("configuration error (%s): %s: %v", e.Field, e.Reason, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("configuration error (%s): %v", e.Field, e.Err)
	}
	return fmt.Sprintf("configuration error (%s): %s", e.Field, e.Reason)
}

func (e *ErrConfiguration) Unwrap() error {
	return e.Err
}
