package shared

import "strings"

// NormalizeQueryKey folds a search query into a cache key: lower case with runs of whitespace collapsed.
func NormalizeQueryKey(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}
