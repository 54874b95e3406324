package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const slugMax = 64

// safeFileSlug folds value into lowercase ASCII words joined by dashes.
// Accents are stripped from letters and any other symbol is dropped.
func safeFileSlug(value string) string {
	var b strings.Builder
	gap := false
	for _, r := range norm.NFKD.String(strings.ToLower(value)) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			if gap && b.Len() > 0 {
				b.WriteByte('-')
			}
			gap = false
			b.WriteRune(r)
		case unicode.IsSpace(r) || strings.ContainsRune("-_.+", r):
			gap = true
		}
	}
	slug := b.String()
	if len(slug) > slugMax {
		slug = strings.TrimRight(slug[:slugMax], "-")
	}
	return slug
}

// effectToken names the effect chain of set for file names, one slug per
// step joined by dashes. Intensities are left to $INTENSITY.
func effectToken(set Settings) string {
	chain, err := set.Chain()
	if err != nil || len(chain) == 0 {
		return strings.ToLower(strings.TrimSpace(set.Effect))
	}
	parts := make([]string, 0, len(chain))
	for _, spec := range chain {
		if slug := strings.ToLower(strings.TrimSpace(spec.Slug)); slug != "" {
			parts = append(parts, slug)
		}
	}
	return strings.Join(parts, "-")
}
