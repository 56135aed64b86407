package helper

import "fmt"

// NewError wraps an error with the task that failed.
// The wrapped error stays reachable through errors.Is/errors.As.
func NewError(task string, err error) error {
	return fmt.Errorf("error in %s: %w", task, err)
}
