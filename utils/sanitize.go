package utils

import "github.com/microcosm-cc/bluemonday"

var sanitizer = bluemonday.UGCPolicy()

// Sanitize cleans admin-supplied HTML (reward descriptions) to prevent XSS.
func Sanitize(input string) string {
	return sanitizer.Sanitize(input)
}
