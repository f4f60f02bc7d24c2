package service

import (
	"regexp"
	"strings"

	"github.com/blunari/blunari-backend/pkg/errors"
)

// Slug length bounds for tenant identifiers.
const (
	SlugMinLength = 3
	SlugMaxLength = 50
)

// reservedSlugs are path segments the platform claims for itself. A tenant
// slug colliding with one would shadow a real route.
var reservedSlugs = map[string]bool{
	"admin":     true,
	"api":       true,
	"app":       true,
	"auth":      true,
	"blog":      true,
	"booking":   true,
	"dashboard": true,
	"demo":      true,
	"docs":      true,
	"help":      true,
	"login":     true,
	"mail":      true,
	"signup":    true,
	"status":    true,
	"support":   true,
	"www":       true,
}

var (
	slugStripPattern    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugHyphenCollapse  = regexp.MustCompile(`[\s-]+`)
	slugCanonicalFormat = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// DeriveSlug transforms a human-entered restaurant name into a URL-safe slug:
// lowercase, strip everything outside [a-z0-9 space hyphen], collapse
// whitespace and hyphen runs to single hyphens, trim edge hyphens, truncate.
func DeriveSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugStripPattern.ReplaceAllString(slug, "")
	slug = slugHyphenCollapse.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")

	if len(slug) > SlugMaxLength {
		slug = slug[:SlugMaxLength]
		slug = strings.Trim(slug, "-")
	}

	return slug
}

// ValidateSlug checks a derived or caller-supplied slug against format,
// length, and reserved-word rules. Each violation names the rule that failed
// so the client can surface a corrective action.
func ValidateSlug(slug string) error {
	if len(slug) < SlugMinLength {
		return errors.Validation(map[string]string{
			"slug": "must be at least 3 characters",
		})
	}
	if len(slug) > SlugMaxLength {
		return errors.Validation(map[string]string{
			"slug": "must be at most 50 characters",
		})
	}
	if !slugCanonicalFormat.MatchString(slug) {
		return errors.Validation(map[string]string{
			"slug": "must contain only lowercase letters, digits, and single hyphens",
		})
	}
	if reservedSlugs[slug] {
		return errors.Validation(map[string]string{
			"slug": "is a reserved word",
		})
	}
	return nil
}
