// Package normalize canonicalizes raw sensor lines into the dash-joined,
// underscore-escaped key-value form used as a port's payload.
package normalize

import "strings"

// Line converts a free-form "type - value" reading into canonical
// "type-value" form. Lines without a dash are returned whole with spaces
// replaced by underscores. Idempotent: normalizing a canonical string is a
// no-op.
func Line(s string) string {
	s = strings.TrimSpace(s)
	typ, val, found := strings.Cut(s, "-")
	if !found {
		return escape(s)
	}
	return escape(strings.TrimSpace(typ)) + "-" + escape(strings.TrimSpace(val))
}

func escape(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}
