package archive

import (
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// sortNatural orders records the way the app lists them: by display
// name with numeric-aware, case-insensitive collation ("Tin 2" before
// "Tin 10"). The tiebreak key must be unique (slug, code) so the order
// is total; identical databases must export identical files.
func sortNatural[T any](items []T, name func(T) string, tiebreak func(T) string) {
	c := collate.New(language.Und, collate.Numeric, collate.IgnoreCase)
	sort.SliceStable(items, func(i, j int) bool {
		if cmp := c.CompareString(name(items[i]), name(items[j])); cmp != 0 {
			return cmp < 0
		}
		return tiebreak(items[i]) < tiebreak(items[j])
	})
}
