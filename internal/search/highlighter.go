package search

import "github.com/hyperjump/cognidocs/pkg/utils"

// Snippet shortens content to at most maxLen runes on a single line, for log output.
func Snippet(content string, maxLen int) string {
	return utils.Truncate(utils.SingleLine(content), maxLen)
}
