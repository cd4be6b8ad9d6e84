package domain

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD, drops combining marks, and recomposes to
// NFC. "Crème Fraîche" becomes "Creme Fraiche" before slugging.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slugify derives a URL- and filename-safe natural key from a display
// name: diacritics stripped, lowercased, runs of non-alphanumerics
// collapsed to single hyphens.
//
// Slugs are the identity that survives export and import, so this must
// be a pure function of the name: same name in, same slug out, on every
// platform.
func Slugify(name string) string {
	folded, _, err := transform.String(stripMarks, name)
	if err != nil {
		// Transform only fails on malformed UTF-8; fall back to the raw
		// name so the caller still gets a usable key.
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	pendingHyphen := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			if pendingHyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingHyphen = false
			b.WriteRune(r)
		default:
			pendingHyphen = true
		}
	}
	return b.String()
}

// SnapshotCode builds the natural key for a recipe snapshot from the
// recipe's slug and the snapshot version, e.g. "croissant-v3".
func SnapshotCode(recipeSlug string, version int) string {
	return recipeSlug + "-v" + strconv.Itoa(version)
}
