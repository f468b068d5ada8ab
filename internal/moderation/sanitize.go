package moderation

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

var scriptURL = regexp.MustCompile(`(?i)\b(?:javascript|vbscript|data)\s*:`)

// maxUnescapePasses bounds how many layers of entity encoding are peeled off
const maxUnescapePasses = 4

// Sanitizer strips markup and control characters from message text
type Sanitizer struct {
	policy *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	return &Sanitizer{policy: bluemonday.StrictPolicy()}
}

// Sanitize removes every HTML element (script and style bodies included), script URL
// schemes and control characters other than newline and tab. Entity-encoded markup is
// decoded and stripped again until the text stops changing.
func (s *Sanitizer) Sanitize(text string) string {
	clean := s.strip(text)
	clean = scriptURL.ReplaceAllString(clean, "")
	clean = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) || r == '\u200b' || r == '\ufeff' {
			return -1
		}
		return r
	}, clean)
	return strings.TrimSpace(clean)
}

func (s *Sanitizer) strip(text string) string {
	clean := text
	for i := 0; i < maxUnescapePasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(clean))
		if next == clean {
			return clean
		}
		clean = next
	}
	// still decoding into new markup; leave it entity-encoded
	return s.policy.Sanitize(clean)
}
