package guides

import "fmt"

// PublishStatus is the lifecycle stage of a guide. The status is the first
// path segment of every guide, so moving between stages relocates the guide
// directory.
type PublishStatus string

const (
	// Draft guides are visible only to their author.
	Draft PublishStatus = "draft"
	// InReview guides are awaiting editorial review.
	InReview PublishStatus = "in-review"
	// Published guides are live on the site.
	Published PublishStatus = "published"
)

// Statuses lists every publish status in display order, most visible first.
func Statuses() []PublishStatus {
	return []PublishStatus{Published, InReview, Draft}
}

// Valid reports whether s is a recognized publish status.
func (s PublishStatus) Valid() bool {
	switch s {
	case Draft, InReview, Published:
		return true
	}
	return false
}

func (s PublishStatus) String() string { return string(s) }

// ParseStatus converts a raw string into a PublishStatus.
func ParseStatus(raw string) (PublishStatus, error) {
	s := PublishStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: publish status %q", ErrParse, raw)
	}
	return s, nil
}
