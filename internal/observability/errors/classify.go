// Package errors derives low-cardinality error classifications for metric and
// log tagging.
package errors

import (
	goerrors "errors"
	"reflect"
	"strings"
)

// Classify returns a normalized name for the innermost error in the chain,
// suitable as a metric tag value (e.g. "net_opError", "context_deadlineexceedederror").
func Classify(err error) string {
	if err == nil {
		return ""
	}

	// The innermost error carries the most signal; wrappers mostly add prose.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
