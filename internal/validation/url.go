package validation

import (
	"net/url"
	"strings"

	validation "github.com/jellydator/validation"
)

// RedirectTarget validates a resume location. Only paths on this host are
// accepted; absolute URLs and anything a browser would read as a
// protocol-relative URL (//host, /\host) are rejected.
var RedirectTarget = validation.By(func(value any) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_redirect_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	if !IsLocalPath(s) {
		return validation.NewError("validation_redirect", "must be a local path")
	}
	return nil
})

// IsLocalPath reports whether s is an absolute path on the current host.
func IsLocalPath(s string) bool {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") {
		return false
	}
	// Browsers treat '\' as '/' and drop tabs and newlines while parsing.
	for _, r := range s {
		if r == '\\' || r < 0x20 || r == 0x7f {
			return false
		}
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}
