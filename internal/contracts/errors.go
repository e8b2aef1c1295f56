package contracts

import (
	"fmt"
	"strings"
)

// SchemaError reports required canonical columns missing after mapping.
// Fatal: the run stops before anything is persisted.
type SchemaError struct {
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns %v (found: %s); check the source headers and SHEETS",
		e.Missing, strings.Join(e.Found, ", "))
}

// PersistenceError reports a connectivity, constraint or transaction failure
// against the store. Fatal.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// NotificationError reports a failed alert delivery. Logged, never fatal.
type NotificationError struct {
	Channel string
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
