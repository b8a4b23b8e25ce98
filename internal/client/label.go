package client

import (
	"fmt"
	"strings"
)

// GenericLabel is shown in legacy direct-message mode, where the server
// does not attribute typing to individual users.
const GenericLabel = "Someone is typing..."

// FormatLabel renders the indicator text for a set of typist display names.
// Returns "" for an empty set (indicator hidden).
//
//	1 name:    "A is typing..."
//	2-3 names: "A, B are typing..."
//	4+ names:  "A, B and N-2 others are typing..."
func FormatLabel(names []string) string {
	switch n := len(names); {
	case n == 0:
		return ""
	case n == 1:
		return names[0] + " is typing..."
	case n <= 3:
		return strings.Join(names, ", ") + " are typing..."
	default:
		return fmt.Sprintf("%s, %s and %d others are typing...", names[0], names[1], n-2)
	}
}
