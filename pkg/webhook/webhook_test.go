package webhook_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hackguides/guides/pkg/cache"
	"github.com/hackguides/guides/pkg/guides"
	"github.com/hackguides/guides/pkg/log"
	"github.com/hackguides/guides/pkg/remote"
	"github.com/hackguides/guides/pkg/webhook"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// spyCache records deletions so tests can assert invalidation behavior.
type spyCache struct {
	mu      sync.Mutex
	store   map[string]string
	deleted []string
}

func newSpyCache() *spyCache {
	return &spyCache{store: map[string]string{}}
}

func (c *spyCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.store[key]
	return v, ok
}

func (c *spyCache) Set(_ context.Context, key, value string, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = value
}

func (c *spyCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.deleted = append(c.deleted, key)
}

func (c *spyCache) deletions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.deleted...)
}

var _ cache.Cache = (*spyCache)(nil)

func newRig(t *testing.T, secret string) (*gin.Engine, *guides.Service, *remote.Memory, *spyCache) {
	t.Helper()

	store := remote.NewMemory(guides.DefaultBranch)
	sc := newSpyCache()
	logger, _ := log.NewTestLogger(t)
	svc, err := guides.NewService(guides.Config{
		Store:   store,
		Cache:   sc,
		SiteURL: "http://example.com",
		Logger:  logger,
	})
	require.NoError(t, err)

	r := gin.New()
	webhook.NewHandler(svc, secret, logger).Register(r)
	return r, svc, store, sc
}

func sign(secret, body string) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(body))
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func post(r *gin.Engine, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSignatureValidation(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRig(t, "s3cret")
	body := `{"ref":"refs/heads/master","commits":[]}`

	w := post(r, "/github_push", body, nil)
	require.Equal(t, http.StatusForbidden, w.Code, "missing signature is rejected")

	w = post(r, "/github_push", body, map[string]string{"X-Hub-Signature": "sha1=deadbeef"})
	require.Equal(t, http.StatusForbidden, w.Code, "wrong signature is rejected")

	w = post(r, "/github_push", body, map[string]string{"X-Hub-Signature": "sha256=deadbeef"})
	require.Equal(t, http.StatusNotImplemented, w.Code, "only sha1 is supported")

	w = post(r, "/github_push", body, map[string]string{"X-Hub-Signature": sign("s3cret", body)})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestPushInvalidatesTouchedGuides(t *testing.T) {
	t.Parallel()

	r, _, _, sc := newRig(t, "")
	body := `{
		"ref": "refs/heads/master",
		"commits": [
			{"modified": ["published/go/error-handling/article.md"]},
			{"added": ["published.md"], "removed": ["draft/go/old-guide/article.md"]}
		]
	}`

	w := post(r, "/github_push", body, nil)
	require.Equal(t, http.StatusOK, w.Code)

	deleted := sc.deletions()
	require.Contains(t, deleted, cache.FileKey("published/go/error-handling", "master"))
	require.Contains(t, deleted, cache.FileKey("draft/go/old-guide", "master"))
	require.Contains(t, deleted, cache.ListingKey("published"))
}

func TestPushIgnoresUnrelatedPaths(t *testing.T) {
	t.Parallel()

	r, _, _, sc := newRig(t, "")
	body := `{
		"ref": "refs/heads/master",
		"commits": [{"modified": ["README.md", "published/go/error-handling/details.json"]}]
	}`

	w := post(r, "/github_push", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, sc.deletions())
}

func TestDeleteEventUntracksBranch(t *testing.T) {
	t.Parallel()

	r, svc, _, _ := newRig(t, "")
	ctx := context.Background()

	original, err := svc.Save(ctx, guides.SaveRequest{
		Title:      "Shared Guide",
		Content:    "# Shared Guide\n\nBody.",
		Message:    "Initial save",
		AuthorName: "gopher",
		Email:      "gopher@example.com",
		Categories: []string{"Go"},
	})
	require.NoError(t, err)

	forked, err := svc.CreateOrFork(ctx, original.Path(), guides.SaveRequest{
		Content:    "# Shared Guide\n\nEdited body.",
		Message:    "Suggest an edit",
		AuthorName: "editor",
		Email:      "editor@example.com",
		SHA:        original.SHA,
	})
	require.NoError(t, err)
	require.Equal(t, "editor-go-shared-guide", forked.Branch)

	w := post(r, "/github_delete", `{"ref":"editor-go-shared-guide","ref_type":"branch"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	canonical, err := svc.Read(ctx, original.Path(), "", false)
	require.NoError(t, err)
	require.False(t, canonical.HasBranch(guides.BranchRef{Author: "editor", Name: "editor-go-shared-guide"}))
	require.Empty(t, canonical.Branches)
}

func TestDeleteEventIgnoresTagsAndUnknownBranches(t *testing.T) {
	t.Parallel()

	r, _, _, _ := newRig(t, "")

	w := post(r, "/github_delete", `{"ref":"v1.0.0","ref_type":"tag"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = post(r, "/github_delete", `{"ref":"nobody-go-nothing","ref_type":"branch"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
}
