package natspub

import (
	"strings"

	"github.com/gosimple/slug"
)

// KeyFor derives a KV key from a document name. KV keys allow only
// [-/_=.a-zA-Z0-9], so path separators become dots.
func KeyFor(document string) string {
	parts := strings.FieldsFunc(document, func(r rune) bool { return r == '/' || r == '\\' })
	for i, p := range parts {
		parts[i] = slug.Make(p)
	}
	key := strings.Trim(strings.Join(parts, "."), ".")
	if key == "" {
		return "default"
	}
	return key
}
