package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/hackguides/guides/pkg/api"
	"github.com/hackguides/guides/pkg/guides"
	"github.com/hackguides/guides/pkg/log"
	"github.com/hackguides/guides/pkg/remote"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRig(t *testing.T) (*gin.Engine, *guides.Service, *remote.Memory) {
	t.Helper()

	store := remote.NewMemory(guides.DefaultBranch)
	logger, _ := log.NewTestLogger(t)
	svc, err := guides.NewService(guides.Config{
		Store:   store,
		SiteURL: "http://example.com",
		Logger:  logger,
	})
	require.NoError(t, err)

	r := gin.New()
	api.NewHandler(svc, logger).Register(r)
	return r, svc, store
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func saveGuide(t *testing.T, svc *guides.Service, title, author string) *guides.Article {
	t.Helper()

	article, err := svc.Save(context.Background(), guides.SaveRequest{
		Title:      title,
		Content:    "# " + title + "\n\nBody.",
		Message:    "Initial save",
		AuthorName: author,
		Email:      author + "@example.com",
		Categories: []string{"Go"},
	})
	require.NoError(t, err)
	return article
}

func TestReadGuide(t *testing.T) {
	t.Parallel()

	r, svc, _ := newRig(t)
	saved := saveGuide(t, svc, "Error Handling", "gopher")

	w := get(r, "/api/guides/"+saved.Path())
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Title      string   `json:"title"`
		AuthorName string   `json:"author_name"`
		Categories []string `json:"categories"`
		Status     string   `json:"status"`
		Path       string   `json:"path"`
		Content    string   `json:"content"`
		SHA        string   `json:"sha"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "Error Handling", got.Title)
	require.Equal(t, "gopher", got.AuthorName)
	require.Equal(t, []string{"Go"}, got.Categories)
	require.Equal(t, "draft", got.Status)
	require.Equal(t, "draft/go/error-handling", got.Path)
	require.Contains(t, got.Content, "Body.")
	require.NotEmpty(t, got.SHA)
}

func TestReadGuideRendered(t *testing.T) {
	t.Parallel()

	r, svc, _ := newRig(t)
	saved := saveGuide(t, svc, "Rendered Guide", "gopher")

	w := get(r, "/api/guides/"+saved.Path()+"?rendered=1")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Content string `json:"content"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Contains(t, got.Content, "<h1")
}

func TestReadGuideErrors(t *testing.T) {
	t.Parallel()

	r, _, _ := newRig(t)

	w := get(r, "/api/guides/published/go/nope")
	require.Equal(t, http.StatusNotFound, w.Code)

	w = get(r, "/api/guides/not-a-guide-path")
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListGuides(t *testing.T) {
	t.Parallel()

	r, svc, _ := newRig(t)
	saveGuide(t, svc, "First Guide", "gopher")
	saveGuide(t, svc, "Second Guide", "rob")

	w := get(r, "/api/guides?status=draft")
	require.Equal(t, http.StatusOK, w.Code)

	var got struct {
		Guides []struct {
			Title      string `json:"title"`
			AuthorName string `json:"author_name"`
		} `json:"guides"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Guides, 2)

	w = get(r, "/api/guides?status=draft&author=rob")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got.Guides, 1)
	require.Equal(t, "Second Guide", got.Guides[0].Title)

	w = get(r, "/api/guides?status=bogus")
	require.Equal(t, http.StatusBadRequest, w.Code)

	// No listing file exists for published yet; the list is just empty.
	w = get(r, "/api/guides")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Empty(t, got.Guides)
}

func TestGetUser(t *testing.T) {
	t.Parallel()

	r, _, store := newRig(t)
	store.AddUser(remote.UserProfile{
		Login:     "gopher",
		Name:      "Gopher G.",
		AvatarURL: "http://example.com/gopher.png",
	})

	w := get(r, "/api/users/gopher")
	require.Equal(t, http.StatusOK, w.Code)

	var got remote.UserProfile
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, "Gopher G.", got.Name)

	w = get(r, "/api/users/nobody")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()

	r, _, _ := newRig(t)
	w := get(r, "/api/ratelimit")
	require.Equal(t, http.StatusOK, w.Code)

	var got remote.RateLimit
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Equal(t, 5000, got.Limit)
}
