// internal/pkg/sanitize/sanitize.go
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips markup from user-supplied free text and trims surrounding whitespace.
// Entities are decoded again so the stored value is plain text; every renderer escapes on output.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}
