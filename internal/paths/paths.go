package paths

import (
	"strings"
)

// Normalize drops empty entries and duplicates from a path list, preserving the
// order in which each path was first seen. The result is never nil and applying
// Normalize to its own output returns the same list.
func Normalize(paths []string) []string {
	result := make([]string, 0, len(paths))
	seen := make(map[string]struct{}, len(paths))

	for _, p := range paths {
		if p == "" {
			continue
		}

		if _, exists := seen[p]; exists {
			continue
		}

		seen[p] = struct{}{}
		result = append(result, p)
	}

	return result
}

// ParseList splits a raw input value into one path per line. GitHub Action
// inputs are plain strings, so multi-path inputs arrive in this form. Lines are
// kept verbatim apart from a trailing carriage return, so commas and surrounding
// spaces stay part of the path. Blank lines are dropped.
func ParseList(raw string) []string {
	lines := strings.Split(raw, "\n")

	entries := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		entries = append(entries, line)
	}

	return entries
}

// ParseLists applies ParseList to each value and concatenates the results.
func ParseLists(values []string) []string {
	var entries []string
	for _, v := range values {
		entries = append(entries, ParseList(v)...)
	}
	return entries
}

// Merge concatenates groups in order and normalizes the result.
func Merge(groups ...[]string) []string {
	var all []string
	for _, group := range groups {
		all = append(all, group...)
	}
	return Normalize(all)
}

// Overlap returns the paths of a that also appear in b, in a's order. A path
// listed as both changed and deleted is forwarded as-is; the API decides.
func Overlap(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}

	inB := make(map[string]struct{}, len(b))
	for _, p := range b {
		inB[p] = struct{}{}
	}

	var overlap []string
	for _, p := range Normalize(a) {
		if _, ok := inB[p]; ok {
			overlap = append(overlap, p)
		}
	}
	return overlap
}
