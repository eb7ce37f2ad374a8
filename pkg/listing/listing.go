// Package listing reads and writes the per-status index files. Each publish
// status has one markdown file listing every guide in that status so a page
// of guides costs a single file read instead of an API walk.
//
// The files are plain markdown on purpose: they render as a usable table of
// contents when browsed directly in the repository.
package listing

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

// Entry is one guide section in a listing file.
type Entry struct {
	Title          string
	URL            string
	Author         string
	AuthorRealName string
	AuthorURL      string
	AuthorImgURL   string
	ThumbnailURL   string
	Categories     []string
}

// Filename returns the listing file for a publish status, stored at the
// repository root.
func Filename(status string) string {
	return status + ".md"
}

var (
	linkRe      = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	authorImgRe = regexp.MustCompile(`<img src="([^"]+)"`)
)

const (
	sectionPrefix   = "### "
	guideLinkText   = "Read the guide"
	authorLinkText  = "Read more from "
	relatedPrefix   = "- Related to: "
	thumbnailPrefix = "- [Thumbnail]("
)

// Parse reads every well-formed section out of listing text. Sections missing
// a title or guide link are skipped so one corrupt entry cannot take down the
// whole listing.
func Parse(text string) []Entry {
	var entries []Entry
	for _, section := range splitSections(text) {
		if entry, ok := parseSection(section); ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// splitSections cuts listing text into per-guide line groups, each starting
// with its title line.
func splitSections(text string) [][]string {
	var sections [][]string
	var current []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, sectionPrefix) {
			if current != nil {
				sections = append(sections, current)
			}
			current = []string{line}
			continue
		}
		if current != nil && strings.TrimSpace(line) != "" {
			current = append(current, strings.TrimRight(line, " "))
		}
	}
	if current != nil {
		sections = append(sections, current)
	}
	return sections
}

func parseSection(lines []string) (Entry, bool) {
	var entry Entry

	title, author, ok := parseTitleLine(lines[0])
	if !ok {
		return entry, false
	}
	entry.Title = title
	entry.AuthorRealName = author

	for _, line := range lines[1:] {
		switch {
		case strings.Contains(line, "["+guideLinkText+"]"):
			if m := linkRe.FindStringSubmatch(line); m != nil {
				entry.URL = m[2]
			}
		case strings.Contains(line, "[Read more"):
			if m := linkRe.FindStringSubmatch(line); m != nil {
				// Both "Read more from X" and the older
				// "Read more guides from X" wording appear in the wild.
				name := strings.TrimPrefix(m[1], "Read more guides from ")
				name = strings.TrimPrefix(name, authorLinkText)
				entry.AuthorRealName = name
				entry.AuthorURL = m[2]
				entry.Author = m[2][strings.LastIndex(m[2], "/")+1:]
			}
			if m := authorImgRe.FindStringSubmatch(line); m != nil {
				entry.AuthorImgURL = m[1]
			}
		case strings.HasPrefix(line, relatedPrefix):
			entry.Categories = parseCategories(strings.TrimPrefix(line, relatedPrefix))
		case strings.HasPrefix(line, thumbnailPrefix):
			if m := linkRe.FindStringSubmatch(line); m != nil {
				entry.ThumbnailURL = m[2]
			}
		}
	}

	if entry.URL == "" {
		return entry, false
	}
	return entry, true
}

// parseTitleLine splits "### <title> by <author>" on the last " by " so
// titles containing the word keep working.
func parseTitleLine(line string) (title, author string, ok bool) {
	if !strings.HasPrefix(line, sectionPrefix) {
		return "", "", false
	}
	rest := strings.TrimSpace(strings.TrimPrefix(line, sectionPrefix))
	idx := strings.LastIndex(rest, " by ")
	if idx < 0 {
		// Older listings occasionally had no author on the title line.
		return rest, "", rest != ""
	}
	return rest[:idx], rest[idx+len(" by "):], true
}

// parseCategories splits a comma separated category list while leaving commas
// inside parentheses alone. Values are lowercased for comparison with
// metadata.
func parseCategories(raw string) []string {
	var cats []string
	depth := 0
	start := 0
	flush := func(end int) {
		if c := strings.ToLower(strings.TrimSpace(raw[start:end])); c != "" {
			cats = append(cats, c)
		}
	}
	for i, r := range raw {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				flush(i)
				start = i + 1
			}
		}
	}
	flush(len(raw))
	return cats
}

// Render produces the markdown section for an entry. Optional pieces are
// dropped rather than rendered empty.
func (e Entry) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s%s by %s\n", sectionPrefix, e.Title, e.AuthorRealName)
	fmt.Fprintf(&b, "- [%s](%s)\n", guideLinkText, e.URL)

	fmt.Fprintf(&b, "- [%s%s](%s)", authorLinkText, e.AuthorRealName, e.AuthorURL)
	if e.AuthorImgURL != "" {
		fmt.Fprintf(&b, ` <img src="%s" width="30" height="30" alt="%s" />`, e.AuthorImgURL, e.AuthorRealName)
	}
	b.WriteString("\n")

	if len(e.Categories) > 0 {
		fmt.Fprintf(&b, "%s%s\n", relatedPrefix, strings.Join(e.Categories, ", "))
	}
	if e.ThumbnailURL != "" {
		fmt.Fprintf(&b, "%s%s)\n", thumbnailPrefix, e.ThumbnailURL)
	}
	return strings.TrimRight(b.String(), "\n")
}

// sameTitle compares titles by slug so punctuation and case changes do not
// duplicate listing sections.
func sameTitle(a, b string) bool {
	return slug.Make(a) == slug.Make(b)
}

// Update returns listing text with the entry's section replaced in place, or
// prepended when the guide is not listed yet. Newest guides sit at the top.
func Update(text string, entry Entry) string {
	sections := splitSections(text)
	for i, section := range sections {
		title, _, ok := parseTitleLine(section[0])
		if ok && sameTitle(title, entry.Title) {
			rendered := make([]string, 0, len(sections))
			for j, s := range sections {
				if j == i {
					rendered = append(rendered, entry.Render())
				} else {
					rendered = append(rendered, strings.Join(s, "\n"))
				}
			}
			return strings.Join(rendered, "\n\n")
		}
	}

	if strings.TrimSpace(text) == "" {
		return entry.Render()
	}
	return entry.Render() + "\n\n" + strings.TrimSpace(text)
}

// Remove returns listing text without the section for the given title.
// Removing an unlisted title returns the text unchanged.
func Remove(text, title string) string {
	sections := splitSections(text)
	var kept []string
	removed := false
	for _, section := range sections {
		t, _, ok := parseTitleLine(section[0])
		if ok && sameTitle(t, title) {
			removed = true
			continue
		}
		kept = append(kept, strings.Join(section, "\n"))
	}
	if !removed {
		return text
	}
	return strings.Join(kept, "\n\n")
}
