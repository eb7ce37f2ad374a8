// Package api exposes the read side of the guide store over HTTP as JSON.
// Writes happen through the site that embeds this service, so the API here
// is deliberately read-only plus the webhook endpoints mounted next to it.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hackguides/guides/pkg/guides"
	"github.com/hackguides/guides/pkg/log"
)

// Handler serves the JSON API.
type Handler struct {
	svc    *guides.Service
	logger *slog.Logger
}

// NewHandler builds a Handler around the guide service.
func NewHandler(svc *guides.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: log.Or(logger)}
}

// Register mounts the API routes under /api.
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.GET("/guides", h.listGuides)
	api.GET("/guides/*path", h.readGuide)
	api.GET("/featured", h.featured)
	api.GET("/users/:login", h.getUser)
	api.GET("/ratelimit", h.rateLimit)
}

// guideView is the JSON shape of a guide.
type guideView struct {
	Title          string      `json:"title"`
	AuthorName     string      `json:"author_name"`
	AuthorRealName string      `json:"author_real_name,omitempty"`
	Categories     []string    `json:"categories"`
	Status         string      `json:"status"`
	Path           string      `json:"path"`
	Branch         string      `json:"branch,omitempty"`
	Branches       [][2]string `json:"branches,omitempty"`
	Content        string      `json:"content,omitempty"`
	SHA            string      `json:"sha,omitempty"`
	URL            string      `json:"url,omitempty"`
	ImageURL       string      `json:"image_url,omitempty"`
	ThumbnailURL   string      `json:"thumbnail_url,omitempty"`
}

func view(a *guides.Article) guideView {
	v := guideView{
		Title:          a.Title,
		AuthorName:     a.AuthorName,
		AuthorRealName: a.AuthorRealName,
		Categories:     a.Categories,
		Status:         a.Status.String(),
		Path:           a.Path(),
		Branch:         a.Branch,
		Content:        a.Content,
		SHA:            a.SHA,
		URL:            a.ExternalURL,
		ImageURL:       a.ImageURL,
		ThumbnailURL:   a.ThumbnailURL,
	}
	for _, b := range a.Branches {
		v.Branches = append(v.Branches, [2]string{b.Author, b.Name})
	}
	return v
}

func (h *Handler) listGuides(c *gin.Context) {
	status := guides.Published
	if raw := c.Query("status"); raw != "" {
		parsed, err := guides.ParseStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + raw})
			return
		}
		status = parsed
	}

	var (
		articles []*guides.Article
		err      error
	)
	if author := c.Query("author"); author != "" {
		articles, err = h.svc.ListForAuthor(c.Request.Context(), author, status)
	} else {
		articles, err = h.svc.List(c.Request.Context(), status)
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	views := make([]guideView, 0, len(articles))
	for _, a := range articles {
		views = append(views, view(a))
	}
	c.JSON(http.StatusOK, gin.H{"guides": views})
}

func (h *Handler) readGuide(c *gin.Context) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	branch := c.DefaultQuery("branch", guides.DefaultBranch)
	rendered := c.Query("rendered") == "1" || c.Query("rendered") == "true"

	article, err := h.svc.Read(c.Request.Context(), path, branch, rendered)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view(article))
}

func (h *Handler) featured(c *gin.Context) {
	article, err := h.svc.Featured(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, view(article))
}

func (h *Handler) getUser(c *gin.Context) {
	user, err := h.svc.FindUser(c.Request.Context(), c.Param("login"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h *Handler) rateLimit(c *gin.Context) {
	limit, err := h.svc.RemoteRateLimit(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, limit)
}

func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case guides.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, guides.ErrParse):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logger.Error("request failed",
			slog.String("path", c.Request.URL.Path),
			slog.String("err", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
