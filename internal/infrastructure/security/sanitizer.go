package security

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips all markup from user-supplied text before it is stored.
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize removes tags and returns plain text. Entities produced by the
// policy are decoded again so "Tom & Jerry" survives unchanged.
func (s *Sanitizer) Sanitize(in string) string {
	if in == "" {
		return ""
	}
	return html.UnescapeString(s.policy.Sanitize(in))
}
