package xstrings

import "strings"

// Unique returns s without duplicates, keeping the first occurrence order.
func Unique[T comparable](s []T) []T {
	seen := make(map[T]struct{}, len(s))
	list := make([]T, 0, len(s))
	for _, entry := range s {
		if _, ok := seen[entry]; ok {
			continue
		}
		seen[entry] = struct{}{}
		list = append(list, entry)
	}
	return list
}

// SplitList splits a comma separated list, dropping blank and repeated
// entries.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return Unique(out)
}
