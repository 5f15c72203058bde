package display

import (
	"fmt"
	"strings"
)

// NotFoundError reports that no discovered display matches the requested
// name. Available carries the full list for diagnostic output.
type NotFoundError struct {
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("display %q not found. Available: %s",
		e.Name, strings.Join(e.Available, ", "))
}

// AmbiguousError reports that the requested name is a prefix of more than
// one discovered display.
type AmbiguousError struct {
	Name       string
	Candidates []string
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("display %q is ambiguous. Did you mean: %s?",
		e.Name, strings.Join(e.Candidates, ", "))
}

// Resolve maps a requested display name to exactly one of the discovered
// names. An exact match wins immediately, even when other names share the
// request as a prefix. Otherwise a unique prefix match is accepted; zero
// matches yield a NotFoundError and multiple matches an AmbiguousError.
func Resolve(names []string, want string) (string, error) {
	for _, n := range names {
		if n == want {
			return n, nil
		}
	}

	var matches []string
	for _, n := range names {
		if strings.HasPrefix(n, want) {
			matches = append(matches, n)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", &NotFoundError{Name: want, Available: append([]string(nil), names...)}
	default:
		return "", &AmbiguousError{Name: want, Candidates: matches}
	}
}
