package guides

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hackguides/guides/pkg/cache"
	"github.com/hackguides/guides/pkg/log"
	"github.com/hackguides/guides/pkg/queue"
	"github.com/hackguides/guides/pkg/remote"
)

// Mover relocates a guide directory on the default branch while preserving
// file history.
type Mover interface {
	Move(ctx context.Context, oldPath, newPath, message string, author remote.CommitAuthor) error
}

// Config wires a Service together.
type Config struct {
	Store remote.Store
	// Cache is optional; nil disables caching.
	Cache cache.Cache
	// Queue serializes listing updates and relocations. Optional; without
	// one those mutations run inline.
	Queue *queue.Queue
	// Mover is required for publish status and category changes.
	Mover Mover
	// SiteURL is the public base URL guides are served from, used for
	// listing links.
	SiteURL string
	// EtagCapacity bounds the in-process table of tree listing validators.
	EtagCapacity int
	Logger       *slog.Logger
}

// Service is the guide store. All reads and writes go through here so
// caching, listing maintenance, and the branch protocol stay consistent.
type Service struct {
	store   remote.Store
	cache   cache.Cache
	queue   *queue.Queue
	mover   Mover
	etags   *cache.EtagTable
	siteURL string
	logger  *slog.Logger
}

// NewService builds a Service. Only Config.Store is mandatory.
func NewService(cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("guides: remote store is required")
	}
	c := cfg.Cache
	if c == nil {
		c = cache.NewNop()
	}
	capacity := cfg.EtagCapacity
	if capacity <= 0 {
		capacity = 64
	}
	etags, err := cache.NewEtagTable(capacity)
	if err != nil {
		return nil, err
	}
	return &Service{
		store:   cfg.Store,
		cache:   c,
		queue:   cfg.Queue,
		mover:   cfg.Mover,
		etags:   etags,
		siteURL: strings.TrimRight(cfg.SiteURL, "/"),
		logger:  log.Or(cfg.Logger),
	}, nil
}

// cachedArticle is the cache representation of a fully read article. Unlike
// details.json it includes the body and read-time fields so a hit avoids the
// remote entirely.
type cachedArticle struct {
	Metadata    string `json:"metadata"`
	Content     string `json:"content"`
	SHA         string `json:"sha"`
	ExternalURL string `json:"external_url"`
	Branch      string `json:"branch"`
}

// Read loads a guide by its directory path.
//
// Metadata always comes from the default branch, where it is canonical; only
// the body is read from the requested branch. With rendered set the body is
// HTML, falling back to local rendering when the remote renderer is
// unavailable.
func (s *Service) Read(ctx context.Context, path, branch string, rendered bool) (*Article, error) {
	info, err := ParsePath(path)
	if err != nil {
		return nil, err
	}
	dir := info.Dir()
	if branch == "" {
		branch = DefaultBranch
	}

	if a, ok := s.readCached(ctx, dir, branch); ok {
		return a, nil
	}

	meta, err := s.store.GetFile(ctx, dir+"/"+MetadataFilename, DefaultBranch)
	if err != nil {
		return nil, err
	}
	article, err := UnmarshalMetadata(meta.Text)
	if err != nil {
		s.logger.Error("bad metadata", slog.String("path", dir), slog.String("err", err.Error()))
		return nil, err
	}
	article.Branch = branch

	body, err := s.readBody(ctx, dir+"/"+article.Filename, branch, rendered)
	if err != nil {
		return nil, err
	}
	article.Content = body.Text
	article.SHA = body.SHA
	article.ExternalURL = body.URL
	article.LastUpdated = body.LastModified

	if article.ImageURL == "" {
		if user, uerr := s.FindUser(ctx, article.AuthorName); uerr == nil {
			article.ImageURL = user.AvatarURL
		}
	}

	// Cache space is reserved for rendered reads, the traffic that matters.
	if rendered {
		s.cacheArticle(ctx, dir, branch, meta.Text, article)
	}
	return article, nil
}

func (s *Service) readBody(ctx context.Context, path, branch string, rendered bool) (*remote.FileDetails, error) {
	if !rendered {
		return s.store.GetFile(ctx, path, branch)
	}
	body, err := s.store.GetRenderedFile(ctx, path, branch)
	if err == nil {
		return body, nil
	}
	if IsNotFound(err) {
		return nil, err
	}
	// Remote renderer unavailable; render here instead.
	raw, rerr := s.store.GetFile(ctx, path, branch)
	if rerr != nil {
		return nil, rerr
	}
	html, rerr := RenderMarkdown(raw.Text)
	if rerr != nil {
		return nil, rerr
	}
	rendered2 := *raw
	rendered2.Text = html
	return &rendered2, nil
}

func (s *Service) readCached(ctx context.Context, dir, branch string) (*Article, bool) {
	raw, ok := s.cache.Get(ctx, cache.FileKey(dir, branch))
	if !ok {
		return nil, false
	}
	var cached cachedArticle
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		s.cache.Delete(ctx, cache.FileKey(dir, branch))
		return nil, false
	}
	article, err := UnmarshalMetadata(cached.Metadata)
	if err != nil {
		s.cache.Delete(ctx, cache.FileKey(dir, branch))
		return nil, false
	}
	article.Content = cached.Content
	article.SHA = cached.SHA
	article.ExternalURL = cached.ExternalURL
	article.Branch = cached.Branch
	return article, true
}

func (s *Service) cacheArticle(ctx context.Context, dir, branch, metadata string, a *Article) {
	payload, err := json.Marshal(cachedArticle{
		Metadata:    metadata,
		Content:     a.Content,
		SHA:         a.SHA,
		ExternalURL: a.ExternalURL,
		Branch:      branch,
	})
	if err != nil {
		return
	}
	s.cache.Set(ctx, cache.FileKey(dir, branch), string(payload), cache.FileTTL)
}

// evict drops every cached copy of the article: its own branch plus every
// tracked contributor branch. Harmless when nothing is cached.
func (s *Service) evict(ctx context.Context, a *Article) {
	s.cache.Delete(ctx, cache.FileKey(a.Path(), a.Branch))
	s.cache.Delete(ctx, cache.FileKey(a.Path(), DefaultBranch))
	for _, b := range a.Branches {
		s.cache.Delete(ctx, cache.FileKey(a.Path(), b.Name))
	}
}

// Invalidate drops the cached copy of one guide directory on one branch.
func (s *Service) Invalidate(ctx context.Context, dir, branch string) {
	s.cache.Delete(ctx, cache.FileKey(dir, branch))
}

// InvalidateListing drops the cached listing for a status.
func (s *Service) InvalidateListing(ctx context.Context, status PublishStatus) {
	s.cache.Delete(ctx, cache.ListingKey(string(status)))
}

// FindByBranch locates the guide tracking the given contributor branch in its
// canonical metadata. Walks the whole repository, so callers should be rare
// events, not request handlers.
func (s *Service) FindByBranch(ctx context.Context, branch string) (*Article, error) {
	articles, err := s.ListFromAPI(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, a := range articles {
		for _, b := range a.Branches {
			if b.Name == branch {
				return a, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: no guide tracks branch %q", ErrNotFound, branch)
}

// RemoteRateLimit reports the hosting service API quota for the configured
// credentials.
func (s *Service) RemoteRateLimit(ctx context.Context) (*remote.RateLimit, error) {
	return s.store.RateLimit(ctx)
}

// SaveRequest carries everything needed to create or update a guide body.
type SaveRequest struct {
	Title   string
	Content string
	Message string

	AuthorName     string
	AuthorRealName string
	Email          string

	// SHA of the body being replaced. Empty means the save must create the
	// file; a stale value fails the write instead of clobbering someone
	// else's edit.
	SHA string

	// Branch defaults to the default branch.
	Branch string

	Categories  []string
	Status      PublishStatus
	ImageURL    string
	FirstCommit string
}

// Save writes a guide body and its metadata under the author's own name.
// Contributions to someone else's guide go through CreateOrFork instead so
// attribution survives.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*Article, error) {
	if req.Title == "" || req.AuthorName == "" {
		return nil, fmt.Errorf("%w: save requires a title and author", ErrParse)
	}
	article := NewArticle(req.Title, req.AuthorName, req.Categories)
	if req.AuthorRealName != "" {
		article.AuthorRealName = req.AuthorRealName
	}
	if req.Status != "" {
		if !req.Status.Valid() {
			return nil, fmt.Errorf("%w: publish status %q", ErrParse, req.Status)
		}
		article.Status = req.Status
	}
	if req.Branch != "" {
		article.Branch = req.Branch
	}
	article.ImageURL = req.ImageURL
	article.FirstCommit = req.FirstCommit
	article.Content = req.Content

	author := remote.CommitAuthor{Name: req.AuthorName, Email: req.Email}
	commitSHA, err := s.store.PutFile(ctx, article.ContentPath(), article.Branch,
		req.Content, req.SHA, author, req.Message)
	if err != nil {
		return nil, err
	}
	if req.SHA == "" {
		// First save of the body; remember the commit that created it.
		article.FirstCommit = commitSHA
	}

	if article.Branch != DefaultBranch {
		err = s.saveForkMetadata(ctx, article, author, true)
	} else {
		err = s.SaveMetadata(ctx, article, author, DefaultBranch, true)
	}
	if err != nil {
		return nil, fmt.Errorf("guide body saved but metadata failed: %w", err)
	}

	s.evict(ctx, article)
	s.enqueueListingUpdate(ctx, article, author)
	return article, nil
}

// SaveMetadata writes the article's details.json on the given branch.
//
// When updateBranches is set the tracked branch list is merged with whatever
// the stored metadata already tracks. The union is deliberate: branch links
// are only ever removed by the delete paths, so a concurrent editor can never
// erase someone else's branch here.
func (s *Service) SaveMetadata(ctx context.Context, article *Article, author remote.CommitAuthor, branch string, updateBranches bool) error {
	return s.saveMetadataAt(ctx, article, article.MetadataPath(), author, branch, updateBranches)
}

// saveMetadataAt is SaveMetadata with an explicit file path, for the window
// during a relocation where metadata changes before the directory moves.
func (s *Service) saveMetadataAt(ctx context.Context, article *Article, path string, author remote.CommitAuthor, branch string, updateBranches bool) error {
	sha := ""
	existingText := ""
	existing, err := s.store.GetFile(ctx, path, branch)
	switch {
	case err == nil:
		sha = existing.SHA
		existingText = existing.Text
		stored, perr := UnmarshalMetadata(existing.Text)
		if perr != nil {
			return perr
		}
		if updateBranches {
			article.MergeBranches(stored)
		}
	case IsNotFound(err):
		// First write.
	default:
		return err
	}

	text, err := article.MarshalMetadata()
	if err != nil {
		return err
	}
	if existingText != "" && text == existingText {
		// Nothing changed, skip the empty commit.
		return nil
	}

	s.evict(ctx, article)

	message := fmt.Sprintf("Updating article metadata for %q", article.Title)
	_, err = s.store.PutFile(ctx, path, branch, text, sha, author, message)
	return err
}
