package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/hackguides/guides/pkg/log"
)

// GitHubConfig configures a GitHub-backed Store.
type GitHubConfig struct {
	// Owner and Repo name the content repository.
	Owner string
	Repo  string

	// Token is the repo-owner access token used for writes and ref
	// operations.
	Token string

	// HTTPClient, when set, overrides the oauth2 transport entirely. Tests
	// use this to point at a stub server.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// GitHub implements Store against the GitHub REST API.
type GitHub struct {
	gh     *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

var _ Store = (*GitHub)(nil)

// NewGitHub constructs a GitHub-backed Store.
func NewGitHub(cfg GitHubConfig) *GitHub {
	hc := cfg.HTTPClient
	if hc == nil && cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		hc = oauth2.NewClient(context.Background(), ts)
	}
	return &GitHub{
		gh:     github.NewClient(hc),
		owner:  cfg.Owner,
		repo:   cfg.Repo,
		logger: log.Or(cfg.Logger),
	}
}

// ExternalURL returns the human-viewable location of a file.
func (c *GitHub) ExternalURL(path, branch string) string {
	return fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", c.owner, c.repo, branch, path)
}

// GetFile implements Store.
func (c *GitHub) GetFile(ctx context.Context, path, branch string) (*FileDetails, error) {
	opts := &github.RepositoryContentGetOptions{Ref: branch}
	fc, _, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, opts)
	if err != nil {
		return nil, c.translate("GetFile", path, resp, err)
	}
	if fc == nil {
		// A directory listing came back; the contract only covers files.
		return nil, NewRemoteError("GetFile", path, 0, errors.New("path is a directory"), false)
	}
	text, err := fc.GetContent()
	if err != nil {
		return nil, NewRemoteError("GetFile", path, 0, err, false)
	}
	details := &FileDetails{
		Path:   path,
		Branch: branch,
		SHA:    fc.GetSHA(),
		URL:    fc.GetHTMLURL(),
		Text:   text,
	}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if t, perr := http.ParseTime(lm); perr == nil {
			details.LastModified = t
		}
	}
	return details, nil
}

// GetRenderedFile implements Store. The raw file is fetched first and then
// rendered through the service's markdown endpoint so the HTML matches what
// the service itself would serve.
func (c *GitHub) GetRenderedFile(ctx context.Context, path, branch string) (*FileDetails, error) {
	details, err := c.GetFile(ctx, path, branch)
	if err != nil {
		return nil, err
	}
	opts := &github.MarkdownOptions{Mode: "gfm", Context: c.owner + "/" + c.repo}
	html, resp, err := c.gh.Markdown.Render(ctx, details.Text, opts)
	if err != nil {
		return nil, c.translate("GetRenderedFile", path, resp, err)
	}
	return &FileDetails{
		Path:         path,
		Branch:       branch,
		URL:          c.ExternalURL(path, branch),
		Text:         html,
		LastModified: details.LastModified,
	}, nil
}

// PutFile implements Store.
func (c *GitHub) PutFile(ctx context.Context, path, branch, content, sha string, author CommitAuthor, message string) (string, error) {
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: []byte(content),
		Branch:  github.String(branch),
	}
	if author.Name != "" && author.Email != "" {
		ca := &github.CommitAuthor{Name: github.String(author.Name), Email: github.String(author.Email)}
		opts.Author = ca
		opts.Committer = ca
	} else if author.Name != "" || author.Email != "" {
		return "", NewRemoteError("PutFile", path, 0, errors.New("author name and email must be set together"), false)
	}

	var (
		rc   *github.RepositoryContentResponse
		resp *github.Response
		err  error
	)
	if sha == "" {
		rc, resp, err = c.gh.Repositories.CreateFile(ctx, c.owner, c.repo, path, opts)
	} else {
		opts.SHA = github.String(sha)
		rc, resp, err = c.gh.Repositories.UpdateFile(ctx, c.owner, c.repo, path, opts)
	}
	if err != nil {
		terr := c.translate("PutFile", path, resp, err)
		// The contents endpoint reports both a stale SHA and an existing file
		// (when no SHA was given) as unprocessable.
		if resp != nil && (resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusConflict) {
			return "", fmt.Errorf("%w: %s on %s: %v", ErrPreconditionFailed, path, branch, err)
		}
		return "", terr
	}
	return rc.Commit.GetSHA(), nil
}

// DeleteFile implements Store.
func (c *GitHub) DeleteFile(ctx context.Context, path, branch, sha, message string, author CommitAuthor) error {
	if sha == "" {
		details, err := c.GetFile(ctx, path, branch)
		if err != nil {
			return err
		}
		sha = details.SHA
	}
	opts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		SHA:     github.String(sha),
		Branch:  github.String(branch),
	}
	if author.Name != "" && author.Email != "" {
		ca := &github.CommitAuthor{Name: github.String(author.Name), Email: github.String(author.Email)}
		opts.Author = ca
		opts.Committer = ca
	}
	_, resp, err := c.gh.Repositories.DeleteFile(ctx, c.owner, c.repo, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return fmt.Errorf("%w: %s on %s: %v", ErrPreconditionFailed, path, branch, err)
		}
		return c.translate("DeleteFile", path, resp, err)
	}
	return nil
}

// ListTree implements Store. The listing is addressed by the branch head SHA
// and made conditional with the supplied validator so an unchanged tree costs
// a single cheap 304 round trip.
func (c *GitHub) ListTree(ctx context.Context, branch, etag string) (*TreeListing, error) {
	head, err := c.BranchHead(ctx, branch)
	if err != nil {
		return nil, err
	}

	u := fmt.Sprintf("repos/%s/%s/git/trees/%s?recursive=1", c.owner, c.repo, head)
	req, err := c.gh.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, NewRemoteError("ListTree", branch, 0, err, false)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	var tree github.Tree
	resp, err := c.gh.Do(ctx, req, &tree)
	if resp != nil && resp.StatusCode == http.StatusNotModified {
		return &TreeListing{Etag: etag, NotModified: true}, nil
	}
	if err != nil {
		return nil, c.translate("ListTree", branch, resp, err)
	}

	listing := &TreeListing{
		Etag:      resp.Header.Get("ETag"),
		Truncated: tree.GetTruncated(),
	}
	if listing.Truncated {
		c.logger.Error("tree listing truncated by remote service",
			slog.String("branch", branch), slog.String("sha", head))
	}
	for _, entry := range tree.Entries {
		if entry.GetType() != "blob" {
			continue
		}
		listing.Entries = append(listing.Entries, TreeEntry{
			Path: entry.GetPath(),
			SHA:  entry.GetSHA(),
		})
	}
	return listing, nil
}

// BranchHead implements Store.
func (c *GitHub) BranchHead(ctx context.Context, name string) (string, error) {
	ref, resp, err := c.gh.Git.GetRef(ctx, c.owner, c.repo, "heads/"+name)
	if err != nil {
		return "", c.translate("BranchHead", name, resp, err)
	}
	return ref.GetObject().GetSHA(), nil
}

// CreateBranch implements Store.
func (c *GitHub) CreateBranch(ctx context.Context, name, fromSHA string) error {
	ref := &github.Reference{
		Ref:    github.String("refs/heads/" + name),
		Object: &github.GitObject{SHA: github.String(fromSHA)},
	}
	_, resp, err := c.gh.Git.CreateRef(ctx, c.owner, c.repo, ref)
	if err != nil {
		// Unprocessable usually means the ref already exists; confirm before
		// treating it as success.
		if resp != nil && resp.StatusCode == http.StatusUnprocessableEntity {
			if _, herr := c.BranchHead(ctx, name); herr == nil {
				return nil
			}
		}
		return c.translate("CreateBranch", name, resp, err)
	}
	return nil
}

// Merge implements Store.
func (c *GitHub) Merge(ctx context.Context, base, head, message string) (bool, error) {
	req := &github.RepositoryMergeRequest{
		Base:          github.String(base),
		Head:          github.String(head),
		CommitMessage: github.String(message),
	}
	commit, resp, err := c.gh.Repositories.Merge(ctx, c.owner, c.repo, req)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusConflict {
			return false, fmt.Errorf("%w: %s into %s", ErrConflict, head, base)
		}
		return false, c.translate("Merge", base, resp, err)
	}
	// No content means the branches were already up to date.
	return commit.GetSHA() != "", nil
}

// GetUser implements Store.
func (c *GitHub) GetUser(ctx context.Context, login string) (*UserProfile, error) {
	user, resp, err := c.gh.Users.Get(ctx, login)
	if err != nil {
		return nil, c.translate("GetUser", login, resp, err)
	}
	return &UserProfile{
		Login:     user.GetLogin(),
		Name:      user.GetName(),
		AvatarURL: user.GetAvatarURL(),
		Email:     user.GetEmail(),
	}, nil
}

// IsCollaborator implements Store.
func (c *GitHub) IsCollaborator(ctx context.Context, login string) (bool, error) {
	ok, resp, err := c.gh.Repositories.IsCollaborator(ctx, c.owner, c.repo, login)
	if err != nil {
		// The endpoint answers "no" with a 404.
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return false, nil
		}
		return false, c.translate("IsCollaborator", login, resp, err)
	}
	return ok, nil
}

// RateLimit implements Store.
func (c *GitHub) RateLimit(ctx context.Context) (*RateLimit, error) {
	limits, resp, err := c.gh.RateLimit.Get(ctx)
	if err != nil {
		return nil, c.translate("RateLimit", "", resp, err)
	}
	core := limits.GetCore()
	return &RateLimit{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		ResetAt:   core.Reset.Time,
	}, nil
}

// translate maps a go-github error + response into the package error taxonomy
// and logs it once with full request context.
func (c *GitHub) translate(op, path string, resp *github.Response, err error) error {
	var rle *github.RateLimitError
	if errors.As(err, &rle) {
		c.logger.Warn("remote rate limit hit", slog.String("op", op), slog.String("path", path))
		return &RateLimitError{ResetAt: rle.Rate.Reset.Time, Cause: err}
	}
	var arle *github.AbuseRateLimitError
	if errors.As(err, &arle) {
		c.logger.Warn("remote abuse detection triggered", slog.String("op", op), slog.String("path", path))
		return &RateLimitError{Cause: err}
	}

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	if status == http.StatusNotFound {
		return fmt.Errorf("%w: %s %q", ErrNotFound, op, path)
	}

	url := ""
	if resp != nil && resp.Request != nil {
		url = resp.Request.URL.String()
	}
	c.logger.Error("remote call failed",
		slog.String("op", op),
		slog.String("path", path),
		slog.String("url", url),
		slog.Int("status", status),
		slog.String("err", err.Error()))

	transient := status >= http.StatusInternalServerError ||
		strings.Contains(err.Error(), "connection reset")
	return NewRemoteError(op, path, status, err, transient)
}
