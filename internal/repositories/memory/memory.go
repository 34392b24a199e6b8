// Package memory provides mutex-guarded in-memory implementations of the
// repository contracts. The engines are storage-agnostic; this backing
// matches the single-process model of the application.
package memory

import "fmt"

type notFoundError struct {
	entity string
	id     string
}

func (e notFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.entity, e.id)
}

func (e notFoundError) IsNotFound() bool { return true }
func (e notFoundError) IsConflict() bool { return false }
