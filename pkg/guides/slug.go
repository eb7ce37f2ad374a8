package guides

import (
	"strings"

	"github.com/gosimple/slug"
)

// Slugify turns free-form text into the URL and directory safe form used for
// guide titles.
func Slugify(text string) string {
	return slug.Make(text)
}

// SlugifyCategory turns a category name into its slug. Only the text before
// any parenthetical is used because some category names carry long
// clarifications that would make ugly URLs and folders.
func SlugifyCategory(category string) string {
	base, _, _ := strings.Cut(category, "(")
	return slug.Make(base)
}
