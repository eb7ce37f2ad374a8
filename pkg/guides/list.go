package guides

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hackguides/guides/pkg/cache"
	"github.com/hackguides/guides/pkg/listing"
	"github.com/hackguides/guides/pkg/queue"
	"github.com/hackguides/guides/pkg/remote"
)

// GuideURL returns the public URL a guide is served from. Published guides
// sit at the site root; the other stages are namespaced by stage.
func (s *Service) GuideURL(a *Article) string {
	cat := SlugifyCategory(a.Categories[0])
	title := Slugify(a.Title)
	if a.Status == Published {
		return fmt.Sprintf("%s/%s/%s", s.siteURL, cat, title)
	}
	return fmt.Sprintf("%s/%s/%s/%s", s.siteURL, a.Status, cat, title)
}

// AuthorURL returns the public profile URL for a login.
func (s *Service) AuthorURL(login string) string {
	return s.siteURL + "/user/" + login
}

// List returns the guides in a publish status, cheapest source first: the
// per-status listing file costs one read where an API walk costs one per
// guide. Articles from here carry identity and listing details only; use
// Read for the body and full metadata.
func (s *Service) List(ctx context.Context, status PublishStatus) ([]*Article, error) {
	text, err := s.listingText(ctx, status)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	entries := listing.Parse(text)
	articles := make([]*Article, 0, len(entries))
	for _, e := range entries {
		a := NewArticle(e.Title, e.Author, e.Categories)
		a.Status = status
		if e.AuthorRealName != "" {
			a.AuthorRealName = e.AuthorRealName
		}
		a.ImageURL = e.AuthorImgURL
		a.ThumbnailURL = e.ThumbnailURL
		a.ExternalURL = e.URL
		articles = append(articles, a)
	}
	return articles, nil
}

func (s *Service) listingText(ctx context.Context, status PublishStatus) (string, error) {
	key := cache.ListingKey(string(status))
	if text, ok := s.cache.Get(ctx, key); ok {
		return text, nil
	}
	details, err := s.store.GetFile(ctx, listing.Filename(string(status)), DefaultBranch)
	if err != nil {
		return "", err
	}
	s.cache.Set(ctx, key, details.Text, cache.SlowTTL)
	return details.Text, nil
}

// ListFromAPI walks the repository tree and reads every guide's metadata for
// one status, or all of them when status is empty. Expensive; this is the
// source of truth the listing files are rebuilt from.
func (s *Service) ListFromAPI(ctx context.Context, status PublishStatus) ([]*Article, error) {
	entries, err := s.treeEntries(ctx, DefaultBranch)
	if err != nil {
		return nil, err
	}

	var articles []*Article
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Path, "/"+ArticleFilename) {
			continue
		}
		if status != "" && !strings.HasPrefix(entry.Path, string(status)+"/") {
			continue
		}
		info, perr := ParsePath(entry.Path)
		if perr != nil {
			continue
		}
		meta, merr := s.store.GetFile(ctx, info.Dir()+"/"+MetadataFilename, DefaultBranch)
		if merr != nil {
			s.logger.Error("guide without metadata", slog.String("path", entry.Path))
			continue
		}
		article, aerr := UnmarshalMetadata(meta.Text)
		if aerr != nil {
			s.logger.Error("bad metadata", slog.String("path", entry.Path), slog.String("err", aerr.Error()))
			continue
		}
		article.SHA = entry.SHA
		articles = append(articles, article)
	}
	return articles, nil
}

// treeEntries lists the repository tree, reusing the validator from the last
// listing so an unchanged tree costs a single conditional request.
func (s *Service) treeEntries(ctx context.Context, branch string) ([]remote.TreeEntry, error) {
	etag, payload, _ := s.etags.Get(branch)

	tree, err := s.store.ListTree(ctx, branch, etag)
	if err != nil {
		return nil, err
	}
	if tree.NotModified {
		var entries []remote.TreeEntry
		if jerr := json.Unmarshal([]byte(payload), &entries); jerr == nil {
			return entries, nil
		}
		// Stored payload is unusable, refetch unconditionally.
		s.etags.Invalidate(branch)
		if tree, err = s.store.ListTree(ctx, branch, ""); err != nil {
			return nil, err
		}
	}

	if raw, jerr := json.Marshal(tree.Entries); jerr == nil && tree.Etag != "" {
		s.etags.Put(branch, tree.Etag, string(raw))
	}
	return tree.Entries, nil
}

// ListForAuthor filters a status listing, or all statuses when status is
// empty, down to one author's guides.
func (s *Service) ListForAuthor(ctx context.Context, author string, status PublishStatus) ([]*Article, error) {
	statuses := []PublishStatus{status}
	if status == "" {
		statuses = Statuses()
	}

	var out []*Article
	for _, st := range statuses {
		articles, err := s.List(ctx, st)
		if err != nil {
			return nil, err
		}
		for _, a := range articles {
			if a.AuthorName == author {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

// SearchByTitle finds a guide whose title slug matches, optionally narrowed
// by category and status. Empty status searches all stages most visible
// first.
func (s *Service) SearchByTitle(ctx context.Context, title string, categories []string, status PublishStatus) (*Article, error) {
	statuses := []PublishStatus{status}
	if status == "" {
		statuses = Statuses()
	}

	for _, st := range statuses {
		articles, err := s.List(ctx, st)
		if err != nil {
			return nil, err
		}
		for _, a := range articles {
			if !a.TitleMatches(title) {
				continue
			}
			if len(categories) == 0 {
				return a, nil
			}
			for _, c := range categories {
				if a.CategoryMatches(c) {
					return a, nil
				}
			}
		}
	}
	return nil, fmt.Errorf("%w: guide titled %q", ErrNotFound, title)
}

// listingEntry builds the listing section for an article. The displayed name
// falls back to the login when no real name is known.
func (s *Service) listingEntry(a *Article) listing.Entry {
	name := a.AuthorRealName
	if name == "" {
		name = a.AuthorName
	}
	return listing.Entry{
		Title:          a.Title,
		URL:            s.GuideURL(a),
		Author:         a.AuthorName,
		AuthorRealName: name,
		AuthorURL:      s.AuthorURL(a.AuthorName),
		AuthorImgURL:   a.ImageURL,
		ThumbnailURL:   a.ThumbnailURL,
		Categories:     a.Categories,
	}
}

// enqueueListingUpdate queues an update of the status listing file to show
// the article. Saves on contributor branches change nothing here; only
// canonical guides are listed.
//
// A guide appears in exactly one listing, so the same job removes the title
// from the other statuses. Removal from a listing that never had it is a
// no-op.
func (s *Service) enqueueListingUpdate(ctx context.Context, a *Article, author remote.CommitAuthor) {
	if a.Branch != DefaultBranch {
		return
	}
	entry := s.listingEntry(a)
	status := a.Status
	title := a.Title
	job := queue.Job{
		Name: fmt.Sprintf("listing update %s %q", status, a.Title),
		Run: func(jctx context.Context) error {
			if err := s.writeListing(jctx, status, author, func(text string) string {
				return listing.Update(text, entry)
			}); err != nil {
				return err
			}
			for _, other := range Statuses() {
				if other == status {
					continue
				}
				if err := s.writeListing(jctx, other, author, func(text string) string {
					return listing.Remove(text, title)
				}); err != nil {
					return err
				}
			}
			return nil
		},
	}
	if err := s.enqueue(ctx, job); err != nil {
		s.logger.Error("listing update not queued",
			slog.String("title", a.Title), slog.String("err", err.Error()))
	}
}

// enqueueListingRemove queues removal of a title from a status listing file.
func (s *Service) enqueueListingRemove(ctx context.Context, status PublishStatus, title string, author remote.CommitAuthor) {
	job := queue.Job{
		Name: fmt.Sprintf("listing remove %s %q", status, title),
		Run: func(jctx context.Context) error {
			return s.writeListing(jctx, status, author, func(text string) string {
				return listing.Remove(text, title)
			})
		},
	}
	if err := s.enqueue(ctx, job); err != nil {
		s.logger.Error("listing removal not queued",
			slog.String("title", title), slog.String("err", err.Error()))
	}
}

// SyncListing rebuilds a status listing file from an API walk. Expensive, so
// it runs from the reconciliation paths, not the request path.
func (s *Service) SyncListing(ctx context.Context, status PublishStatus, author remote.CommitAuthor) error {
	articles, err := s.ListFromAPI(ctx, status)
	if err != nil {
		return err
	}
	for i := range articles {
		if articles[i].ImageURL == "" {
			if user, uerr := s.FindUser(ctx, articles[i].AuthorName); uerr == nil {
				articles[i].ImageURL = user.AvatarURL
			}
		}
	}

	job := queue.Job{
		Name: "listing sync " + string(status),
		Run: func(jctx context.Context) error {
			return s.writeListing(jctx, status, author, func(string) string {
				sections := make([]string, 0, len(articles))
				for _, a := range articles {
					sections = append(sections, s.listingEntry(a).Render())
				}
				return strings.Join(sections, "\n\n")
			})
		},
	}
	return s.enqueue(ctx, job)
}

// listingWriteAttempts bounds the read-modify-write retries on one listing
// file. Matches the relocation push retry bound.
const listingWriteAttempts = 3

// writeListing reads, transforms, and writes back a listing file. The queue
// keeps these writes from interleaving with each other, but the file is still
// reachable by direct pushes, so a stale SHA re-reads and reapplies the
// transform instead of failing the job outright.
func (s *Service) writeListing(ctx context.Context, status PublishStatus, author remote.CommitAuthor, transform func(string) string) error {
	path := listing.Filename(string(status))

	var lastErr error
	for attempt := 0; attempt < listingWriteAttempts; attempt++ {
		sha := ""
		text := ""
		details, err := s.store.GetFile(ctx, path, DefaultBranch)
		switch {
		case err == nil:
			sha = details.SHA
			text = details.Text
		case IsNotFound(err):
			// First guide in this status creates the file.
		default:
			return err
		}

		updated := transform(text)
		if updated == text {
			return nil
		}

		message := fmt.Sprintf("Updating %s guide listing", status)
		_, err = s.store.PutFile(ctx, path, DefaultBranch, updated, sha, author, message)
		if err == nil {
			s.cache.Delete(ctx, cache.ListingKey(string(status)))
			return nil
		}
		if !remote.IsPreconditionFailed(err) && !remote.IsRetryable(err) {
			return err
		}
		s.logger.Warn("listing write retrying",
			slog.String("status", string(status)), slog.String("err", err.Error()))
		lastErr = err
	}
	return lastErr
}
