package dispatch

import (
	"strings"

	"github.com/ironlady/newsletter-platform/internal/domain"
)

// Render binds a template to a single subscriber. The subject passes
// through unchanged; every occurrence of the name placeholder in the body
// is replaced with the subscriber's display name, and everything else is
// passed through verbatim. Rendering never fails: a template without the
// placeholder renders as-is.
func Render(tmpl *domain.Template, sub *domain.Subscriber) (subject, body string) {
	subject = tmpl.Subject
	body = strings.ReplaceAll(tmpl.Content, domain.NamePlaceholder, sub.Name)
	return subject, body
}
