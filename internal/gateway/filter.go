package gateway

import "strings"

// Filter expressions are plain strings handed to the backend's query
// engine, e.g. `user = "abc"` or `id = "a" || id = "b"`. These helpers
// build the two forms the client needs and escape the interpolated
// values.

// Eq builds `field = "value"`.
func Eq(field, value string) string {
	return field + ` = "` + escapeFilterValue(value) + `"`
}

// NotEq builds `field != "value"`.
func NotEq(field, value string) string {
	return field + ` != "` + escapeFilterValue(value) + `"`
}

// OrEq builds `field = "a" || field = "b" || …`. Empty input yields an
// empty filter, which the backend treats as match-all; callers guard
// against that before querying.
func OrEq(field string, values []string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, Eq(field, v))
	}
	return strings.Join(parts, " || ")
}

func escapeFilterValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `"`, `\"`)
	return v
}
