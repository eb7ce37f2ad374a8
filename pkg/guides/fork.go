package guides

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hackguides/guides/pkg/remote"
)

// CreateOrFork saves content as the author's own guide or as a contributor
// branch of someone else's, depending on who wrote the original.
//
// Path may be empty for a brand new guide. When the path names an existing
// guide by a different author and a SHA is supplied, the save becomes a fork:
// the content lands on a branch named after the contributor and the canonical
// metadata gains a link to that branch.
func (s *Service) CreateOrFork(ctx context.Context, path string, req SaveRequest) (*Article, error) {
	var existing *Article
	if path != "" {
		var err error
		existing, err = s.Read(ctx, path, DefaultBranch, false)
		if err != nil {
			return nil, fmt.Errorf("reading guide to update at %q: %w", path, err)
		}
		// Status and creation commit always follow the original; a
		// contributor cannot move a guide through the lifecycle by saving.
		req.Status = existing.Status
		req.FirstCommit = existing.FirstCommit
	}

	if existing != nil && existing.AuthorName != req.AuthorName && req.SHA != "" {
		// Forks cannot change the categories either, the directory the
		// guide lives in depends on them.
		req.Title = existing.Title
		req.Categories = existing.Categories
		return s.fork(ctx, existing, req)
	}
	return s.Save(ctx, req)
}

// fork commits a contributor's version of the guide to their branch, creating
// the branch from the default branch head the first time.
func (s *Service) fork(ctx context.Context, original *Article, req SaveRequest) (*Article, error) {
	branch := original.ForkBranchName(req.AuthorName)
	bodySHA := req.SHA

	_, err := s.store.BranchHead(ctx, branch)
	switch {
	case IsNotFound(err):
		head, herr := s.store.BranchHead(ctx, DefaultBranch)
		if herr != nil {
			return nil, fmt.Errorf("cannot find %s branch: %w", DefaultBranch, herr)
		}
		if cerr := s.store.CreateBranch(ctx, branch, head); cerr != nil {
			return nil, cerr
		}
	case err != nil:
		return nil, err
	default:
		// The branch exists from an earlier contribution. Pull the default
		// branch in first so the diff against the original stays readable.
		// A failed merge is survivable: the commit still lands, the
		// history just looks odd.
		if _, merr := s.store.Merge(ctx, branch, DefaultBranch,
			"Merging recent changes from "+DefaultBranch); merr != nil {
			s.logger.Warn("merge into contributor branch failed, committing anyway",
				slog.String("branch", branch), slog.String("err", merr.Error()))
		}

		// The file may exist on the branch with a different SHA than the
		// canonical copy the contributor read.
		if details, derr := s.store.GetFile(ctx, original.ContentPath(), branch); derr == nil {
			bodySHA = details.SHA
		}
	}

	req.Branch = branch
	req.SHA = bodySHA
	return s.Save(ctx, req)
}

// saveForkMetadata links or unlinks a contributor branch in the canonical
// metadata on the default branch.
//
// The branch's own details.json is never touched. Keeping branch metadata
// byte-identical to the original keeps metadata out of merges; attribution
// for contributors lives in the branch name and the commits.
func (s *Service) saveForkMetadata(ctx context.Context, article *Article, author remote.CommitAuthor, add bool) error {
	canonical, err := s.Read(ctx, article.Path(), DefaultBranch, false)
	if err != nil {
		return fmt.Errorf("reading canonical metadata: %w", err)
	}

	ref := BranchRef{Author: author.Name, Name: article.Branch}
	if add {
		if canonical.HasBranch(ref) {
			return nil
		}
		canonical.AddBranch(ref)
	} else {
		if !canonical.RemoveBranch(article.Branch) {
			return nil
		}
	}

	return s.SaveMetadata(ctx, canonical, author, DefaultBranch, false)
}
