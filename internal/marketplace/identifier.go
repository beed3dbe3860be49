package marketplace

import (
	"fmt"
	"strings"
)

// SplitIdentifier splits "publisher.name" into its two parts.
//
// Only the first two dot-separated segments are used: "a.b.c" yields
// ("a", "b"). Extension names containing dots are therefore truncated.
func SplitIdentifier(identifier string) (publisher, name string, err error) {
	parts := strings.Split(identifier, ".")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, identifier)
	}
	return parts[0], parts[1], nil
}
