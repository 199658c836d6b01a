package model

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Fingerprint derives the dedup key for an alert: its type, account and
// normalized title joined by hyphens. Two oracle outputs are "the same
// alert" only when they restate the same title for the same account and
// type; the key is intentionally coarse and carries no semantic matching.
// It is only meaningful among alerts that have not been resolved or
// dismissed, and is not unique across all time.
func Fingerprint(typ AlertType, accountID, title string) string {
	normalized := strings.ToLower(strings.TrimSpace(title))
	normalized = whitespaceRun.ReplaceAllString(normalized, "-")
	return string(typ) + "-" + accountID + "-" + normalized
}
