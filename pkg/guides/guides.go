// Package guides models the content layer: articles stored as directories in
// a remote git repository, one markdown body and one JSON metadata file per
// guide, addressed by publish status, category slug, and title slug.
//
// The package owns the lifecycle rules (drafts, review, publishing), the
// contributor branch protocol, and the metadata format. Talking to the
// hosting service is delegated to a remote.Store.
package guides

import (
	"fmt"
	"strings"
)

// PathInfo is the identity encoded in a guide path.
type PathInfo struct {
	Status       PublishStatus
	CategorySlug string
	TitleSlug    string
	Filename     string
}

// Dir returns the guide directory the info describes.
func (p PathInfo) Dir() string {
	return fmt.Sprintf("%s/%s/%s", p.Status, p.CategorySlug, p.TitleSlug)
}

// ParsePath splits a guide path into its identity parts. The filename part is
// optional; "published/go/error-handling" and
// "published/go/error-handling/article.md" both parse.
func ParsePath(path string) (PathInfo, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) != 3 && len(parts) != 4 {
		return PathInfo{}, fmt.Errorf("%w: guide path %q", ErrParse, path)
	}
	status, err := ParseStatus(parts[0])
	if err != nil {
		return PathInfo{}, fmt.Errorf("%w: guide path %q", ErrParse, path)
	}
	info := PathInfo{
		Status:       status,
		CategorySlug: parts[1],
		TitleSlug:    parts[2],
	}
	if len(parts) == 4 {
		info.Filename = parts[3]
	}
	return info, nil
}
