package guides

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// ArticleFilename is the file holding the guide body inside its
	// directory.
	ArticleFilename = "article.md"
	// MetadataFilename is the file holding the guide metadata, stored next
	// to the body.
	MetadataFilename = "details.json"
	// DefaultCategory is assigned when a guide was saved without one.
	DefaultCategory = "other"
	// DefaultBranch is the branch holding canonical content and metadata.
	DefaultBranch = "master"
)

// BranchRef records a contributor branch as the pair of who created it and
// what the branch is called. Older metadata stored bare branch names from the
// days when branches were named after the editor alone; those decode with the
// name doubling as the author.
type BranchRef struct {
	Author string
	Name   string
}

// MarshalJSON encodes the ref as a two element array to stay compatible with
// metadata already in the repository.
func (b BranchRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{b.Author, b.Name})
}

// UnmarshalJSON accepts either the two element array form or a legacy bare
// string.
func (b *BranchRef) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err == nil {
		if len(pair) != 2 {
			return fmt.Errorf("%w: branch ref wants 2 elements, got %d", ErrParse, len(pair))
		}
		b.Author, b.Name = pair[0], pair[1]
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("%w: branch ref: %v", ErrParse, err)
	}
	b.Author, b.Name = name, name
	return nil
}

// Article is a single guide. Identity comes from the publish status, primary
// category, and title, which together derive the directory it lives in. The
// body and metadata are separate files inside that directory.
type Article struct {
	Title          string
	AuthorName     string
	AuthorRealName string

	// Categories the guide covers. The first one is primary and part of the
	// guide's path. Never empty after construction.
	Categories []string

	Status PublishStatus

	// Branch the article was read from or will be written to.
	Branch string

	// Branches lists every contributor branch tracked for this guide. Only
	// the copy on the default branch is authoritative.
	Branches []BranchRef

	Filename     string
	ImageURL     string
	ThumbnailURL string

	// FirstCommit is the commit that created the body, kept so creation
	// time survives relocations.
	FirstCommit string

	// Fields filled from the remote at read time, never serialized into
	// metadata.
	Content      string
	SHA          string
	ExternalURL  string
	LastUpdated  time.Time
	CreationDate time.Time

	// extra holds metadata keys this version does not understand so they
	// survive a read-modify-write cycle.
	extra map[string]json.RawMessage
}

// NewArticle constructs a draft article with defaults applied.
func NewArticle(title, authorName string, categories []string) *Article {
	if len(categories) == 0 {
		categories = []string{DefaultCategory}
	}
	return &Article{
		Title:          title,
		AuthorName:     authorName,
		AuthorRealName: authorName,
		Categories:     categories,
		Status:         Draft,
		Branch:         DefaultBranch,
		Filename:       ArticleFilename,
	}
}

// Path returns the guide's directory, not including either filename.
func (a *Article) Path() string {
	return fmt.Sprintf("%s/%s/%s", a.Status, SlugifyCategory(a.Categories[0]), Slugify(a.Title))
}

// ContentPath returns the full path to the guide body.
func (a *Article) ContentPath() string {
	return a.Path() + "/" + a.Filename
}

// MetadataPath returns the full path to the guide metadata file.
func (a *Article) MetadataPath() string {
	return a.Path() + "/" + MetadataFilename
}

// Published reports whether the guide is live.
func (a *Article) Published() bool { return a.Status == Published }

// ForkBranchName returns the branch a contributor's changes to this guide
// belong on.
func (a *Article) ForkBranchName(author string) string {
	return fmt.Sprintf("%s-%s-%s", author, SlugifyCategory(a.Categories[0]), Slugify(a.Title))
}

// HasBranch reports whether the given ref is already tracked.
func (a *Article) HasBranch(ref BranchRef) bool {
	for _, b := range a.Branches {
		if b == ref {
			return true
		}
	}
	return false
}

// AddBranch tracks a contributor branch, ignoring duplicates.
func (a *Article) AddBranch(ref BranchRef) {
	if !a.HasBranch(ref) {
		a.Branches = append(a.Branches, ref)
	}
}

// RemoveBranch stops tracking the named branch and reports whether it was
// tracked at all.
func (a *Article) RemoveBranch(name string) bool {
	for i, b := range a.Branches {
		if b.Name == name {
			a.Branches = append(a.Branches[:i], a.Branches[i+1:]...)
			return true
		}
	}
	return false
}

// MergeBranches folds another article's tracked branches into this one. The
// union is kept so concurrent editors cannot erase each other's branch links.
func (a *Article) MergeBranches(other *Article) {
	for _, b := range other.Branches {
		a.AddBranch(b)
	}
}

// metadataKeys are the canonical details.json keys. Everything else read from
// a metadata file is preserved verbatim in extra.
var metadataKeys = map[string]bool{
	"title": true, "author_name": true, "author_real_name": true,
	"stacks": true, "publish_status": true, "_publish_status": true,
	"published": true, "branch": true, "branches": true, "filename": true,
	"image_url": true, "thumbnail_url": true, "first_commit": true,
}

// MarshalMetadata serializes the article for its details.json file. Keys are
// sorted and the output indented so files diff cleanly and unchanged saves
// can be detected by comparing text.
func (a *Article) MarshalMetadata() (string, error) {
	doc := map[string]any{
		"title":            a.Title,
		"author_name":      a.AuthorName,
		"author_real_name": a.AuthorRealName,
		"stacks":           a.Categories,
		"publish_status":   string(a.Status),
		"branch":           a.Branch,
		"branches":         a.Branches,
		"filename":         a.Filename,
		"image_url":        a.ImageURL,
		"thumbnail_url":    a.ThumbnailURL,
		"first_commit":     a.FirstCommit,
	}
	if a.Branches == nil {
		doc["branches"] = []BranchRef{}
	}
	for key, raw := range a.extra {
		doc[key] = raw
	}
	out, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return "", fmt.Errorf("marshal metadata for %q: %w", a.Title, err)
	}
	return string(out), nil
}

// UnmarshalMetadata parses a details.json document. Two legacy forms are
// translated on the way in: a boolean "published" key from before the three
// stage lifecycle, and bare string branch names. Unknown keys are kept and
// written back out by MarshalMetadata.
func UnmarshalMetadata(text string) (*Article, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrParse, err)
	}

	a := &Article{Branch: DefaultBranch, Filename: ArticleFilename, Status: Draft}

	str := func(key string) (string, error) {
		var s string
		if msg, ok := raw[key]; ok {
			if err := json.Unmarshal(msg, &s); err != nil {
				return "", fmt.Errorf("%w: metadata key %q: %v", ErrParse, key, err)
			}
		}
		return s, nil
	}

	var err error
	if a.Title, err = str("title"); err != nil {
		return nil, err
	}
	if a.AuthorName, err = str("author_name"); err != nil {
		return nil, err
	}
	if a.Title == "" || a.AuthorName == "" {
		return nil, fmt.Errorf("%w: metadata missing title or author_name", ErrParse)
	}
	if a.AuthorRealName, err = str("author_real_name"); err != nil {
		return nil, err
	}
	if a.AuthorRealName == "" {
		a.AuthorRealName = a.AuthorName
	}
	if s, serr := str("branch"); serr != nil {
		return nil, serr
	} else if s != "" {
		a.Branch = s
	}
	if s, serr := str("filename"); serr != nil {
		return nil, serr
	} else if s != "" {
		a.Filename = s
	}
	if a.ImageURL, err = str("image_url"); err != nil {
		return nil, err
	}
	if a.ThumbnailURL, err = str("thumbnail_url"); err != nil {
		return nil, err
	}
	if a.FirstCommit, err = str("first_commit"); err != nil {
		return nil, err
	}

	if msg, ok := raw["stacks"]; ok {
		if err := json.Unmarshal(msg, &a.Categories); err != nil {
			return nil, fmt.Errorf("%w: metadata key \"stacks\": %v", ErrParse, err)
		}
	}
	if len(a.Categories) == 0 {
		a.Categories = []string{DefaultCategory}
	}

	if msg, ok := raw["branches"]; ok {
		if err := json.Unmarshal(msg, &a.Branches); err != nil {
			return nil, err
		}
	}

	// The status key was renamed twice. Newest first, then the attribute
	// spelling, then the original boolean.
	switch {
	case raw["publish_status"] != nil || raw["_publish_status"] != nil:
		key := "publish_status"
		if raw[key] == nil {
			key = "_publish_status"
		}
		s, serr := str(key)
		if serr != nil {
			return nil, serr
		}
		status, serr := ParseStatus(s)
		if serr != nil {
			return nil, serr
		}
		a.Status = status
	case raw["published"] != nil:
		var published bool
		if err := json.Unmarshal(raw["published"], &published); err != nil {
			return nil, fmt.Errorf("%w: metadata key \"published\": %v", ErrParse, err)
		}
		if published {
			a.Status = Published
		}
	}

	for key, msg := range raw {
		if metadataKeys[key] {
			continue
		}
		if a.extra == nil {
			a.extra = map[string]json.RawMessage{}
		}
		a.extra[key] = msg
	}
	return a, nil
}

// TitleMatches reports whether the article's title slugifies to the same slug
// as the given title. Searches compare slugs so case and punctuation do not
// matter.
func (a *Article) TitleMatches(title string) bool {
	return Slugify(a.Title) == Slugify(title)
}

// CategoryMatches reports whether any of the article's categories equals the
// given one, ignoring case.
func (a *Article) CategoryMatches(category string) bool {
	for _, c := range a.Categories {
		if strings.EqualFold(c, category) {
			return true
		}
	}
	return false
}
