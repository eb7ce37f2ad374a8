package listing_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hackguides/guides/pkg/listing"
)

const sampleListing = `### A Beginners Guide to jQuery by Carl Smith
- [Read the guide](http://example.com/front-end-javascript/a-beginners-guide-to-jquery)
- [Read more from Carl Smith](http://example.com/user/carlsmith) <img src="https://avatars.example.com/u/7561668" width="30" height="30" alt="Carl Smith" />
- Related to: Front-End JavaScript (Angular, React, Meteor, etc)

### JavaScript Callbacks Variable Scope Problem by Itay Grudev
- [Read the guide](http://example.com/front-end-javascript/javascript-callbacks-variable-scope-problem)
- [Read more from Itay Grudev](http://example.com/user/itay-grudev)
- [Thumbnail](https://raw.example.com/images/thumb.jpg)`

func TestParse(t *testing.T) {
	t.Parallel()

	entries := listing.Parse(sampleListing)
	require.Len(t, entries, 2)

	first := entries[0]
	require.Equal(t, "A Beginners Guide to jQuery", first.Title)
	require.Equal(t, "http://example.com/front-end-javascript/a-beginners-guide-to-jquery", first.URL)
	require.Equal(t, "carlsmith", first.Author)
	require.Equal(t, "Carl Smith", first.AuthorRealName)
	require.Equal(t, "http://example.com/user/carlsmith", first.AuthorURL)
	require.Equal(t, "https://avatars.example.com/u/7561668", first.AuthorImgURL)
	require.Empty(t, first.ThumbnailURL)
	require.Equal(t, []string{"front-end javascript (angular, react, meteor, etc)"}, first.Categories)

	second := entries[1]
	require.Equal(t, "JavaScript Callbacks Variable Scope Problem", second.Title)
	require.Equal(t, "itay-grudev", second.Author)
	require.Empty(t, second.AuthorImgURL)
	require.Equal(t, "https://raw.example.com/images/thumb.jpg", second.ThumbnailURL)
	require.Empty(t, second.Categories)
}

func TestParseLegacyAuthorWording(t *testing.T) {
	t.Parallel()

	text := `### Old Guide by Carl Smith
- [Read the guide](http://example.com/other/old-guide)
- [Read more guides from Carl Smith](http://example.com/user/carlsmith)`

	entries := listing.Parse(text)
	require.Len(t, entries, 1)
	require.Equal(t, "Carl Smith", entries[0].AuthorRealName)
	require.Equal(t, "carlsmith", entries[0].Author)
}

func TestParseSkipsMalformedSections(t *testing.T) {
	t.Parallel()

	text := `### Broken entry with no guide link by Somebody
- [Read more from Somebody](http://example.com/user/somebody)

` + sampleListing

	entries := listing.Parse(text)
	require.Len(t, entries, 2, "the section without a guide link should be dropped")
	require.Equal(t, "A Beginners Guide to jQuery", entries[0].Title)
}

func TestParseCategoriesWithParentheses(t *testing.T) {
	t.Parallel()

	text := `### Multi Stack Guide by Dev
- [Read the guide](http://example.com/python/multi-stack-guide)
- [Read more from Dev](http://example.com/user/dev)
- Related to: Front-End JavaScript (Angular, React, Meteor, etc), Python, C/C++`

	entries := listing.Parse(text)
	require.Len(t, entries, 1)
	require.Equal(t, []string{
		"front-end javascript (angular, react, meteor, etc)",
		"python",
		"c/c++",
	}, entries[0].Categories)
}

func TestUpdatePrependsNewEntry(t *testing.T) {
	t.Parallel()

	entry := listing.Entry{
		Title:          "New article",
		URL:            "http://example.com/python/new-article",
		Author:         "me",
		AuthorRealName: "Test Name",
		AuthorURL:      "http://example.com/user/me",
		AuthorImgURL:   "http://example.com/user/me.jpg",
		ThumbnailURL:   "http://example.com/user/thumbnail.jpg",
		Categories:     []string{"Python"},
	}

	updated := listing.Update(sampleListing, entry)

	require.True(t, strings.HasPrefix(updated, "### New article by Test Name\n"),
		"new entries go on top")
	require.Contains(t, updated,
		`- [Read more from Test Name](http://example.com/user/me) <img src="http://example.com/user/me.jpg" width="30" height="30" alt="Test Name" />`)
	require.Contains(t, updated, "- Related to: Python")
	require.Contains(t, updated, "- [Thumbnail](http://example.com/user/thumbnail.jpg)")

	entries := listing.Parse(updated)
	require.Len(t, entries, 3)
	require.Equal(t, "New article", entries[0].Title)
	require.Equal(t, "A Beginners Guide to jQuery", entries[1].Title)
}

func TestUpdateOnEmptyListing(t *testing.T) {
	t.Parallel()

	entry := listing.Entry{
		Title:          "Only guide",
		URL:            "http://example.com/other/only-guide",
		Author:         "me",
		AuthorRealName: "Me",
		AuthorURL:      "http://example.com/user/me",
	}

	updated := listing.Update("", entry)
	entries := listing.Parse(updated)
	require.Len(t, entries, 1)
	require.Equal(t, "Only guide", entries[0].Title)
}

func TestUpdateReplacesInPlace(t *testing.T) {
	t.Parallel()

	entry := listing.Entry{
		Title:          "JavaScript Callbacks Variable Scope Problem",
		URL:            "http://example.com/front-end-javascript/javascript-callbacks-variable-scope-problem",
		Author:         "itay-grudev",
		AuthorRealName: "Itay Grudev",
		AuthorURL:      "http://example.com/user/itay-grudev",
		// Categories added, thumbnail dropped.
		Categories: []string{"Python"},
	}

	updated := listing.Update(sampleListing, entry)
	entries := listing.Parse(updated)
	require.Len(t, entries, 2, "replacing must not duplicate the section")

	// Position is preserved.
	require.Equal(t, "A Beginners Guide to jQuery", entries[0].Title)
	require.Equal(t, []string{"python"}, entries[1].Categories)
	require.Empty(t, entries[1].ThumbnailURL)
}

func TestUpdateMatchesTitlesBySlug(t *testing.T) {
	t.Parallel()

	entry := listing.Entry{
		Title:          "A Beginners Guide To JQUERY",
		URL:            "http://example.com/front-end-javascript/a-beginners-guide-to-jquery",
		Author:         "carlsmith",
		AuthorRealName: "Carl Smith",
		AuthorURL:      "http://example.com/user/carlsmith",
	}

	updated := listing.Update(sampleListing, entry)
	require.Len(t, listing.Parse(updated), 2, "case change must replace, not append")
}

func TestRemove(t *testing.T) {
	t.Parallel()

	updated := listing.Remove(sampleListing, "A Beginners Guide to jQuery")
	entries := listing.Parse(updated)
	require.Len(t, entries, 1)
	require.Equal(t, "JavaScript Callbacks Variable Scope Problem", entries[0].Title)
}

func TestRemoveUnknownTitleIsNoop(t *testing.T) {
	t.Parallel()

	require.Equal(t, sampleListing, listing.Remove(sampleListing, "No Such Guide"))
}

func TestRenderRoundTrip(t *testing.T) {
	t.Parallel()

	entry := listing.Entry{
		Title:          "Round Trip",
		URL:            "http://example.com/go/round-trip",
		Author:         "dev",
		AuthorRealName: "Dev Eloper",
		AuthorURL:      "http://example.com/user/dev",
		AuthorImgURL:   "http://example.com/avatar.png",
		ThumbnailURL:   "http://example.com/thumb.png",
		Categories:     []string{"go", "testing"},
	}

	parsed := listing.Parse(entry.Render())
	require.Len(t, parsed, 1)
	require.Equal(t, entry, parsed[0])
}

func TestFilename(t *testing.T) {
	t.Parallel()

	require.Equal(t, "published.md", listing.Filename("published"))
}
