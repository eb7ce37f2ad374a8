package guides

import (
	"errors"

	"github.com/hackguides/guides/pkg/remote"
)

var (
	// ErrNotFound indicates a guide, file, or branch does not exist. It is
	// the remote layer's sentinel so callers can match either package.
	ErrNotFound = remote.ErrNotFound

	// ErrPreconditionFailed indicates a write lost a race: the caller's SHA
	// is stale or the file it expected to create already exists.
	ErrPreconditionFailed = remote.ErrPreconditionFailed

	// ErrPermission indicates the acting user is not allowed to perform the
	// operation on the guide.
	ErrPermission = errors.New("guides: permission denied")

	// ErrParse indicates stored content could not be interpreted.
	ErrParse = errors.New("guides: parse failure")
)

// IsNotFound reports whether err indicates missing content on the remote.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPermission reports whether err is an authorization failure.
func IsPermission(err error) bool { return errors.Is(err, ErrPermission) }
