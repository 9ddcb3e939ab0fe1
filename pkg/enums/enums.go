// Package enums holds the closed string sets stored in the database and sent
// over the wire. Each type has IsValid and most have a Parse function.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

func parse[T ~string](set []T, kind, raw string) (T, error) {
	v := T(strings.TrimSpace(raw))
	if !slices.Contains(set, v) {
		return "", fmt.Errorf("invalid %s %q", kind, raw)
	}
	return v, nil
}
