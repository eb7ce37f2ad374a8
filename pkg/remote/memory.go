package remote

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-memory Store used by tests and local tooling. It models the
// pieces of the remote contract the rest of the system depends on: per-branch
// file blobs, content-addressed SHAs, precondition rejection on stale writes,
// and branch merges that copy missing files into the base.
type Memory struct {
	mu sync.RWMutex

	defaultBranch string
	// files is keyed by branch, then path.
	files         map[string]map[string]memoryFile
	users         map[string]UserProfile
	collaborators map[string]bool

	// treeVersion bumps on every successful write so etag validation works.
	treeVersion map[string]int

	// failMerges, when set, makes every Merge report a conflict.
	failMerges bool

	now func() time.Time
}

type memoryFile struct {
	text     string
	sha      string
	modified time.Time
}

var _ Store = (*Memory)(nil)

// NewMemory creates an empty in-memory Store with the given default branch.
func NewMemory(defaultBranch string) *Memory {
	return &Memory{
		defaultBranch: defaultBranch,
		files:         map[string]map[string]memoryFile{defaultBranch: {}},
		users:         map[string]UserProfile{},
		collaborators: map[string]bool{},
		treeVersion:   map[string]int{defaultBranch: 0},
		now:           time.Now,
	}
}

// AddCollaborator grants a login write access for IsCollaborator.
func (m *Memory) AddCollaborator(login string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collaborators[login] = true
}

// AddUser registers a profile returned by GetUser.
func (m *Memory) AddUser(p UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[p.Login] = p
}

func contentSHA(text string) string {
	// Git-style blob addressing keeps SHAs stable across branches with
	// identical content.
	h := sha1.Sum([]byte(fmt.Sprintf("blob %d\x00%s", len(text), text)))
	return hex.EncodeToString(h[:])
}

// GetFile implements Store.
func (m *Memory) GetFile(_ context.Context, path, branch string) (*FileDetails, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	branchFiles, ok := m.files[branch]
	if !ok {
		return nil, fmt.Errorf("%w: branch %q", ErrNotFound, branch)
	}
	f, ok := branchFiles[path]
	if !ok {
		return nil, fmt.Errorf("%w: %q on %q", ErrNotFound, path, branch)
	}
	return &FileDetails{
		Path:         path,
		Branch:       branch,
		SHA:          f.sha,
		Text:         f.text,
		LastModified: f.modified,
	}, nil
}

// GetRenderedFile implements Store. The memory store has no renderer; callers
// fall back to local rendering when they see this.
func (m *Memory) GetRenderedFile(ctx context.Context, path, branch string) (*FileDetails, error) {
	return nil, NewRemoteError("GetRenderedFile", path, 0, fmt.Errorf("rendering not supported"), false)
}

// PutFile implements Store.
func (m *Memory) PutFile(_ context.Context, path, branch, content, sha string, _ CommitAuthor, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	branchFiles, ok := m.files[branch]
	if !ok {
		return "", fmt.Errorf("%w: branch %q", ErrNotFound, branch)
	}
	existing, exists := branchFiles[path]
	if sha == "" && exists {
		return "", fmt.Errorf("%w: %q already exists on %q", ErrPreconditionFailed, path, branch)
	}
	if sha != "" && (!exists || existing.sha != sha) {
		return "", fmt.Errorf("%w: stale sha for %q on %q", ErrPreconditionFailed, path, branch)
	}
	branchFiles[path] = memoryFile{
		text:     content,
		sha:      contentSHA(content),
		modified: m.now(),
	}
	m.treeVersion[branch]++
	return fmt.Sprintf("commit-%s-%d", branch, m.treeVersion[branch]), nil
}

// DeleteFile implements Store.
func (m *Memory) DeleteFile(_ context.Context, path, branch, sha, _ string, _ CommitAuthor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	branchFiles, ok := m.files[branch]
	if !ok {
		return fmt.Errorf("%w: branch %q", ErrNotFound, branch)
	}
	existing, exists := branchFiles[path]
	if !exists {
		return fmt.Errorf("%w: %q on %q", ErrNotFound, path, branch)
	}
	if sha != "" && existing.sha != sha {
		return fmt.Errorf("%w: stale sha for %q on %q", ErrPreconditionFailed, path, branch)
	}
	delete(branchFiles, path)
	m.treeVersion[branch]++
	return nil
}

// ListTree implements Store.
func (m *Memory) ListTree(_ context.Context, branch, etag string) (*TreeListing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	branchFiles, ok := m.files[branch]
	if !ok {
		return nil, fmt.Errorf("%w: branch %q", ErrNotFound, branch)
	}
	currentEtag := fmt.Sprintf("v%d", m.treeVersion[branch])
	if etag != "" && etag == currentEtag {
		return &TreeListing{Etag: etag, NotModified: true}, nil
	}

	listing := &TreeListing{Etag: currentEtag}
	for path, f := range branchFiles {
		listing.Entries = append(listing.Entries, TreeEntry{Path: path, SHA: f.sha})
	}
	sort.Slice(listing.Entries, func(i, j int) bool {
		return listing.Entries[i].Path < listing.Entries[j].Path
	})
	return listing, nil
}

// BranchHead implements Store.
func (m *Memory) BranchHead(_ context.Context, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	version, ok := m.treeVersion[name]
	if !ok {
		return "", fmt.Errorf("%w: branch %q", ErrNotFound, name)
	}
	return fmt.Sprintf("head-%s-%d", name, version), nil
}

// CreateBranch implements Store. The new branch snapshots the default branch,
// which is the only base the fork protocol ever branches from.
func (m *Memory) CreateBranch(_ context.Context, name, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.files[name]; exists {
		return nil
	}
	snapshot := make(map[string]memoryFile, len(m.files[m.defaultBranch]))
	for path, f := range m.files[m.defaultBranch] {
		snapshot[path] = f
	}
	m.files[name] = snapshot
	m.treeVersion[name] = m.treeVersion[m.defaultBranch]
	return nil
}

// DeleteBranch removes a branch entirely. The GitHub API does this through
// ref deletion; tests drive the same state transition directly.
func (m *Memory) DeleteBranch(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if name == m.defaultBranch {
		return
	}
	delete(m.files, name)
	delete(m.treeVersion, name)
}

// Merge implements Store. Files present on head but differing from or missing
// on base are copied over; identical trees report no-op. A file changed on
// both sides since they diverged cannot be detected without history, so the
// memory store only conflicts when asked to via FailMerges.
func (m *Memory) Merge(_ context.Context, base, head, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failMerges {
		return false, fmt.Errorf("%w: %s into %s", ErrConflict, head, base)
	}
	baseFiles, ok := m.files[base]
	if !ok {
		return false, fmt.Errorf("%w: branch %q", ErrNotFound, base)
	}
	headFiles, ok := m.files[head]
	if !ok {
		return false, fmt.Errorf("%w: branch %q", ErrNotFound, head)
	}

	merged := false
	for path, f := range headFiles {
		if existing, exists := baseFiles[path]; !exists || existing.sha != f.sha {
			baseFiles[path] = f
			merged = true
		}
	}
	if merged {
		m.treeVersion[base]++
	}
	return merged, nil
}

// FailMerges toggles forced merge conflicts for tests.
func (m *Memory) FailMerges(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failMerges = fail
}

// GetUser implements Store.
func (m *Memory) GetUser(_ context.Context, login string) (*UserProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.users[login]
	if !ok {
		return nil, fmt.Errorf("%w: user %q", ErrNotFound, login)
	}
	return &p, nil
}

// IsCollaborator implements Store.
func (m *Memory) IsCollaborator(_ context.Context, login string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collaborators[login], nil
}

// RateLimit implements Store.
func (m *Memory) RateLimit(_ context.Context) (*RateLimit, error) {
	return &RateLimit{Limit: 5000, Remaining: 5000, ResetAt: m.now().Add(time.Hour)}, nil
}
