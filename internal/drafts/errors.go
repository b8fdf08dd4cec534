package drafts

import (
	"fmt"
	"strings"
)

// AggregateError bundles the failures of several independent sub-operations
// that settled together, preserving every underlying cause in order.
type AggregateError struct {
	Op     string
	Causes []error
}

func (e *AggregateError) Error() string {
	messages := make([]string, 0, len(e.Causes))
	for _, cause := range e.Causes {
		messages = append(messages, cause.Error())
	}
	return fmt.Sprintf("%s: %d failure(s): %s", e.Op, len(e.Causes), strings.Join(messages, "; "))
}

func (e *AggregateError) Unwrap() []error {
	return e.Causes
}
