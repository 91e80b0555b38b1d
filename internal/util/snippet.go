package util

import "strings"

// ExtractSnippet returns the lines [start,end] padded by context lines on
// each side, clamped to the file.
func ExtractSnippet(content string, start, end, context int) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	start = max(start, 1)
	end = max(end, start)
	s := max(0, start-1-context)
	e := min(len(lines)-1, end-1+context)
	if s > e {
		return ""
	}
	return strings.Join(lines[s:e+1], "\n")
}

// LineOf returns the 1-based line of the first occurrence of needle, or 0.
func LineOf(content, needle string) int {
	idx := strings.Index(content, needle)
	if needle == "" || idx < 0 {
		return 0
	}
	return strings.Count(content[:idx], "\n") + 1
}
