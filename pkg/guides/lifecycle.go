package guides

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hackguides/guides/pkg/cache"
	"github.com/hackguides/guides/pkg/queue"
	"github.com/hackguides/guides/pkg/remote"
)

// ChangePublishStatus moves a guide to a new lifecycle stage. Because the
// stage is the first segment of the guide's path the whole directory
// relocates, which runs through the change queue so it cannot interleave with
// other relocations or listing writes.
//
// The returned path is where the guide will live once the queued move
// completes.
func (s *Service) ChangePublishStatus(ctx context.Context, article *Article, status PublishStatus, author remote.CommitAuthor) (string, error) {
	if !status.Valid() {
		return "", fmt.Errorf("%w: publish status %q", ErrParse, status)
	}
	if article.Status == status {
		return article.Path(), nil
	}
	if err := s.authorizeTransition(ctx, article, status, author.Name); err != nil {
		return "", err
	}
	oldStatus := article.Status
	oldPath := article.Path()
	article.Status = status
	newPath := article.Path()

	message := fmt.Sprintf("Moving %q to %s", article.Title, status)
	if err := s.relocate(ctx, article, oldPath, newPath, message, author); err != nil {
		article.Status = oldStatus
		return "", err
	}

	// The listing files for both stages change: the guide leaves one and
	// joins the other.
	s.enqueueListingRemove(ctx, oldStatus, article.Title, author)
	s.enqueueListingUpdate(ctx, article, author)
	return newPath, nil
}

// authorizeTransition enforces who may move a guide between stages.
// Repository collaborators may make any transition, including publishing.
// The guide's author may only move it between draft and in-review.
func (s *Service) authorizeTransition(ctx context.Context, article *Article, status PublishStatus, actor string) error {
	collaborator, err := s.store.IsCollaborator(ctx, actor)
	if err != nil {
		return err
	}
	if collaborator {
		return nil
	}
	if actor == article.AuthorName && status != Published && article.Status != Published {
		return nil
	}
	return fmt.Errorf("%w: %s cannot move %q from %s to %s",
		ErrPermission, actor, article.Title, article.Status, status)
}

// ChangeCategory swaps the guide's primary category, relocating its
// directory. Only guides on the default branch can change category.
func (s *Service) ChangeCategory(ctx context.Context, article *Article, newCategory string, author remote.CommitAuthor) (string, error) {
	if article.Branch != DefaultBranch {
		return "", fmt.Errorf("%w: category changes only apply on %s", ErrPermission, DefaultBranch)
	}
	oldPath := article.Path()
	article.Categories[0] = newCategory
	newPath := article.Path()
	if oldPath == newPath {
		return newPath, nil
	}

	message := fmt.Sprintf("Moving %q to the %s category", article.Title, newCategory)
	if err := s.relocate(ctx, article, oldPath, newPath, message, author); err != nil {
		return "", err
	}
	s.enqueueListingUpdate(ctx, article, author)
	return newPath, nil
}

// relocate queues the directory move and drops every cached copy of the old
// location.
func (s *Service) relocate(ctx context.Context, article *Article, oldPath, newPath, message string, author remote.CommitAuthor) error {
	if s.mover == nil {
		return fmt.Errorf("guides: no mover configured, cannot relocate %q", oldPath)
	}

	// Metadata must reflect the new identity before the move lands. It is
	// written into the old directory so the move carries it along.
	if err := s.saveMetadataAt(ctx, article, oldPath+"/"+MetadataFilename, author, DefaultBranch, true); err != nil {
		return err
	}

	job := queue.Job{
		Name: "move " + oldPath,
		Run: func(jctx context.Context) error {
			return s.mover.Move(jctx, oldPath, newPath, message, author)
		},
	}
	if err := s.enqueue(ctx, job); err != nil {
		return err
	}

	s.cache.Delete(ctx, cache.FileKey(oldPath, DefaultBranch))
	s.evict(ctx, article)
	return nil
}

// Delete removes a guide, or a contributor's copy of it, from the repository.
// History is left intact.
//
// On the default branch only the original author may delete, and the
// canonical metadata goes first since it is what makes the guide findable.
// On a contributor branch only the branch owner may delete, and the canonical
// branch link is removed instead.
func (s *Service) Delete(ctx context.Context, article *Article, message string, author remote.CommitAuthor) error {
	if author.Name != article.AuthorName && article.Branch != author.Name {
		s.logger.Error("refusing delete of guide the user does not own",
			slog.String("path", article.ContentPath()),
			slog.String("author", article.AuthorName),
			slog.String("deleter", author.Name))
		return fmt.Errorf("%w: %s cannot delete %q", ErrPermission, author.Name, article.Title)
	}

	// Drop cache first. If the remote delete fails the worst case is
	// re-caching on next read.
	s.evict(ctx, article)

	if article.Branch == DefaultBranch {
		if err := s.store.DeleteFile(ctx, article.MetadataPath(), article.Branch, "", message, author); err != nil {
			return err
		}
	} else {
		if err := s.saveForkMetadata(ctx, article, author, false); err != nil {
			return err
		}
	}

	if err := s.store.DeleteFile(ctx, article.ContentPath(), article.Branch, "", message, author); err != nil {
		return err
	}

	if article.Branch == DefaultBranch {
		s.enqueueListingRemove(ctx, article.Status, article.Title, author)
	}
	return nil
}

// DeleteBranch drops a contributor branch link from the canonical metadata.
// Called when the branch itself disappears from the repository, for example
// after a merged pull request deletes it.
func (s *Service) DeleteBranch(ctx context.Context, article *Article, branch string) error {
	if !article.RemoveBranch(branch) {
		s.logger.Error("branch to delete is not tracked",
			slog.String("branch", branch),
			slog.String("title", article.Title))
		return fmt.Errorf("%w: branch %q on %q", ErrNotFound, branch, article.Title)
	}

	// Committed as the repository owner; no author attribution is available
	// for an event delivered by the hosting service.
	if err := s.SaveMetadata(ctx, article, remote.CommitAuthor{}, DefaultBranch, false); err != nil {
		return fmt.Errorf("saving metadata after branch delete: %w", err)
	}
	s.evict(ctx, article)
	return nil
}

// enqueue submits a job, running it inline when no queue is configured.
func (s *Service) enqueue(ctx context.Context, job queue.Job) error {
	if s.queue == nil {
		return job.Run(ctx)
	}
	return s.queue.Enqueue(job)
}
