// Package remote defines the narrow contract this system consumes from the
// version-controlled file-hosting service, along with two implementations: a
// GitHub-backed client and an in-memory store used by tests.
//
// The contract is deliberately small. Everything above this package treats the
// service as a content API with SHA-addressed blobs, branches, and a recursive
// tree listing; nothing here knows about articles, listings, or publish
// statuses.
package remote

import (
	"context"
	"time"
)

// FileDetails describes a single file read from the remote service.
type FileDetails struct {
	Path   string
	Branch string

	// SHA is the blob hash of the current content. It is empty for rendered
	// reads, which the service serves without version information.
	SHA string

	// URL is the external, human-viewable location of the file.
	URL string

	Text         string
	LastModified time.Time
}

// TreeEntry is one blob in a recursive tree listing.
type TreeEntry struct {
	Path string
	SHA  string
}

// TreeListing is the result of a recursive tree read. When the caller supplied
// a validator and nothing changed, NotModified is true and Entries is empty.
type TreeListing struct {
	Entries []TreeEntry

	// Etag is the validator to present on the next listing call.
	Etag string

	NotModified bool

	// Truncated indicates the service could not return the full tree. Callers
	// work with what they got; the condition is logged upstream.
	Truncated bool
}

// CommitAuthor identifies the author/committer for a write. Both fields must
// be set together or left empty together; empty means the service account.
type CommitAuthor struct {
	Name  string
	Email string
}

// UserProfile is the subset of a remote user account this system cares about.
type UserProfile struct {
	Login     string
	Name      string
	AvatarURL string
	Email     string
}

// RateLimit reports remaining request quota against the remote API.
type RateLimit struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Store is the content API contract. All paths are repository-relative
// (no owner/repo prefix). Implementations translate service failures into the
// package's error taxonomy: ErrNotFound for missing paths/branches,
// ErrPreconditionFailed for SHA mismatches, ErrConflict for merge conflicts,
// and *RemoteError for everything else.
type Store interface {
	// GetFile reads raw file content and its SHA from the given branch.
	GetFile(ctx context.Context, path, branch string) (*FileDetails, error)

	// GetRenderedFile reads the file and returns it rendered to HTML. The
	// returned details carry no SHA.
	GetRenderedFile(ctx context.Context, path, branch string) (*FileDetails, error)

	// PutFile commits content to path on branch. sha is the optimistic
	// concurrency precondition: the blob hash the caller last observed, or
	// empty to require that the file does not yet exist. Returns the new
	// commit SHA.
	PutFile(ctx context.Context, path, branch, content, sha string, author CommitAuthor, message string) (string, error)

	// DeleteFile removes a file from a branch. If sha is empty the current
	// blob hash is resolved with an extra read first.
	DeleteFile(ctx context.Context, path, branch, sha, message string, author CommitAuthor) error

	// ListTree lists every blob reachable from the head of branch. etag, if
	// non-empty, makes the request conditional.
	ListTree(ctx context.Context, branch, etag string) (*TreeListing, error)

	// BranchHead returns the commit SHA at the head of a branch.
	BranchHead(ctx context.Context, name string) (string, error)

	// CreateBranch creates a branch pointing at fromSHA. Creating a branch
	// that already exists is not an error.
	CreateBranch(ctx context.Context, name, fromSHA string) error

	// Merge merges head into base server-side. Returns false when the service
	// reports there was nothing to merge.
	Merge(ctx context.Context, base, head, message string) (bool, error)

	// GetUser fetches a user profile by login.
	GetUser(ctx context.Context, login string) (*UserProfile, error)

	// IsCollaborator reports whether login has write access to the
	// repository.
	IsCollaborator(ctx context.Context, login string) (bool, error)

	// RateLimit reports the caller's remaining API quota.
	RateLimit(ctx context.Context) (*RateLimit, error)
}
