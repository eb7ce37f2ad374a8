package guides_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hackguides/guides/pkg/guides"
	"github.com/hackguides/guides/pkg/log"
	"github.com/hackguides/guides/pkg/remote"
)

// memMover relocates guide directories directly in the memory store, standing
// in for the git working copy mover.
type memMover struct {
	store *remote.Memory
}

func (m *memMover) Move(ctx context.Context, oldPath, newPath, message string, author remote.CommitAuthor) error {
	for _, name := range []string{guides.ArticleFilename, guides.MetadataFilename} {
		f, err := m.store.GetFile(ctx, oldPath+"/"+name, guides.DefaultBranch)
		if err != nil {
			return err
		}
		if _, err := m.store.PutFile(ctx, newPath+"/"+name, guides.DefaultBranch, f.Text, "", author, message); err != nil {
			return err
		}
		if err := m.store.DeleteFile(ctx, oldPath+"/"+name, guides.DefaultBranch, f.SHA, message, author); err != nil {
			return err
		}
	}
	return nil
}

// newMovingService is newTestService plus a mover, for the relocation paths.
func newMovingService(t *testing.T) (*guides.Service, *remote.Memory) {
	t.Helper()

	store := remote.NewMemory(guides.DefaultBranch)
	logger, _ := log.NewTestLogger(t)
	svc, err := guides.NewService(guides.Config{
		Store:   store,
		Mover:   &memMover{store: store},
		SiteURL: "http://example.com",
		Logger:  logger,
	})
	require.NoError(t, err)
	return svc, store
}

func TestChangePublishStatusRelocates(t *testing.T) {
	t.Parallel()

	svc, store := newMovingService(t)
	ctx := context.Background()

	article := saveGuide(t, svc, "Error Handling", "gopher")
	author := remote.CommitAuthor{Name: "gopher", Email: "gopher@example.com"}

	newPath, err := svc.ChangePublishStatus(ctx, article, guides.InReview, author)
	require.NoError(t, err)
	require.Equal(t, "in-review/go/error-handling", newPath)

	// Both files moved; nothing remains at the old location.
	_, err = store.GetFile(ctx, "in-review/go/error-handling/article.md", guides.DefaultBranch)
	require.NoError(t, err)
	meta, err := store.GetFile(ctx, "in-review/go/error-handling/details.json", guides.DefaultBranch)
	require.NoError(t, err)
	require.Contains(t, meta.Text, `"in-review"`, "metadata carries the new status through the move")
	_, err = store.GetFile(ctx, "draft/go/error-handling/article.md", guides.DefaultBranch)
	require.ErrorIs(t, err, guides.ErrNotFound)

	got, err := svc.Read(ctx, newPath, "", false)
	require.NoError(t, err)
	require.Equal(t, guides.InReview, got.Status)

	// The guide switched listings.
	drafts, err := svc.List(ctx, guides.Draft)
	require.NoError(t, err)
	require.Empty(t, drafts)
	inReview, err := svc.List(ctx, guides.InReview)
	require.NoError(t, err)
	require.Len(t, inReview, 1)
	require.Equal(t, "Error Handling", inReview[0].Title)
}

func TestPublishRequiresCollaborator(t *testing.T) {
	t.Parallel()

	svc, store := newMovingService(t)
	ctx := context.Background()

	article := saveGuide(t, svc, "Locked Down", "gopher")

	_, err := svc.ChangePublishStatus(ctx, article, guides.Published,
		remote.CommitAuthor{Name: "gopher", Email: "gopher@example.com"})
	require.ErrorIs(t, err, guides.ErrPermission)
	require.Equal(t, guides.Draft, article.Status, "failed transition leaves the status alone")

	store.AddCollaborator("editor")
	newPath, err := svc.ChangePublishStatus(ctx, article, guides.Published,
		remote.CommitAuthor{Name: "editor", Email: "editor@example.com"})
	require.NoError(t, err)
	require.Equal(t, "published/go/locked-down", newPath)
}

func TestAuthorCannotUnpublish(t *testing.T) {
	t.Parallel()

	svc, store := newMovingService(t)
	ctx := context.Background()

	store.AddCollaborator("editor")
	article := saveGuide(t, svc, "Live Guide", "gopher")
	_, err := svc.ChangePublishStatus(ctx, article, guides.Published,
		remote.CommitAuthor{Name: "editor", Email: "editor@example.com"})
	require.NoError(t, err)

	_, err = svc.ChangePublishStatus(ctx, article, guides.Draft,
		remote.CommitAuthor{Name: "gopher", Email: "gopher@example.com"})
	require.ErrorIs(t, err, guides.ErrPermission)
}

func TestChangeCategory(t *testing.T) {
	t.Parallel()

	svc, _ := newMovingService(t)
	ctx := context.Background()

	article := saveGuide(t, svc, "Moving Categories", "gopher")
	author := remote.CommitAuthor{Name: "gopher", Email: "gopher@example.com"}

	newPath, err := svc.ChangeCategory(ctx, article, "Python", author)
	require.NoError(t, err)
	require.Equal(t, "draft/python/moving-categories", newPath)

	got, err := svc.Read(ctx, newPath, "", false)
	require.NoError(t, err)
	require.Equal(t, []string{"Python"}, got.Categories)
}

func TestChangeCategoryRejectedOffDefaultBranch(t *testing.T) {
	t.Parallel()

	svc, _ := newMovingService(t)

	article := guides.NewArticle("Branched", "gopher", []string{"Go"})
	article.Branch = "gopher-go-branched"

	_, err := svc.ChangeCategory(context.Background(), article, "Python",
		remote.CommitAuthor{Name: "gopher"})
	require.ErrorIs(t, err, guides.ErrPermission)
}
