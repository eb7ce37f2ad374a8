// Package webhook receives push and branch delete events from the hosting
// service and reconciles local state: cached guides are invalidated when
// their files change upstream and branch links are removed from canonical
// metadata when contributor branches disappear.
package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hackguides/guides/pkg/guides"
	"github.com/hackguides/guides/pkg/log"
)

// Handler serves the webhook endpoints.
type Handler struct {
	svc    *guides.Service
	secret string
	logger *slog.Logger
}

// NewHandler builds a Handler. An empty secret disables signature checking,
// which is only sensible in development.
func NewHandler(svc *guides.Service, secret string, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, secret: secret, logger: log.Or(logger)}
}

// Register mounts the webhook routes.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/github_push", h.pushEvent)
	r.POST("/github_delete", h.deleteEvent)
}

// verify checks the event signature and returns the body when it is
// authentic. Only the sha1 scheme is supported, matching what the hosting
// service sends.
func (h *Handler) verify(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatus(http.StatusBadRequest)
		return nil, false
	}
	if h.secret == "" {
		return body, true
	}

	header := c.GetHeader("X-Hub-Signature")
	if header == "" {
		h.logger.Warn("webhook request without signature header")
		c.AbortWithStatus(http.StatusForbidden)
		return nil, false
	}
	scheme, signature, found := strings.Cut(header, "=")
	if !found || scheme != "sha1" {
		h.logger.Warn("unsupported webhook signature scheme", slog.String("header", header))
		c.AbortWithStatus(http.StatusNotImplemented)
		return nil, false
	}

	mac := hmac.New(sha1.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		h.logger.Warn("webhook signature mismatch")
		c.AbortWithStatus(http.StatusForbidden)
		return nil, false
	}
	return body, true
}

type pushPayload struct {
	Ref     string `json:"ref"`
	Commits []struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	} `json:"commits"`
}

// pushEvent invalidates the cache for every guide touched by the pushed
// commits. Events the handler cannot use return 200 anyway; the sender
// retries failures and there is nothing to retry here.
func (h *Handler) pushEvent(c *gin.Context) {
	body, ok := h.verify(c)
	if !ok {
		return
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Ref == "" {
		h.logger.Warn("unusable push event payload")
		c.Status(http.StatusOK)
		return
	}
	branch := payload.Ref[strings.LastIndex(payload.Ref, "/")+1:]

	ctx := c.Request.Context()
	cleared := map[string]bool{}
	for _, commit := range payload.Commits {
		for _, path := range gatherPaths(commit.Added, commit.Modified, commit.Removed) {
			switch {
			case strings.HasSuffix(path, "/"+guides.ArticleFilename):
				dir := strings.TrimSuffix(path, "/"+guides.ArticleFilename)
				if cleared[dir] {
					continue
				}
				h.logger.Debug("invalidating guide from push event",
					slog.String("path", dir), slog.String("branch", branch))
				h.svc.Invalidate(ctx, dir, branch)
				cleared[dir] = true
			case isListingFile(path):
				status, _ := guides.ParseStatus(strings.TrimSuffix(path, ".md"))
				h.svc.InvalidateListing(ctx, status)
			}
		}
	}
	c.Status(http.StatusOK)
}

type deletePayload struct {
	Ref     string `json:"ref"`
	RefType string `json:"ref_type"`
}

// deleteEvent removes the branch link from canonical metadata when a
// contributor branch is deleted upstream, typically after its pull request
// merges.
func (h *Handler) deleteEvent(c *gin.Context) {
	body, ok := h.verify(c)
	if !ok {
		return
	}

	var payload deletePayload
	if err := json.Unmarshal(body, &payload); err != nil || payload.Ref == "" {
		h.logger.Warn("unusable delete event payload")
		c.Status(http.StatusOK)
		return
	}
	if payload.RefType != "branch" || payload.Ref == guides.DefaultBranch {
		c.Status(http.StatusOK)
		return
	}
	branch := payload.Ref[strings.LastIndex(payload.Ref, "/")+1:]

	ctx := c.Request.Context()
	article, err := h.svc.FindByBranch(ctx, branch)
	if err != nil {
		h.logger.Warn("no guide tracks deleted branch", slog.String("branch", branch))
		c.Status(http.StatusOK)
		return
	}
	if err := h.svc.DeleteBranch(ctx, article, branch); err != nil {
		h.logger.Warn("failed untracking deleted branch",
			slog.String("branch", branch), slog.String("err", err.Error()))
	}
	c.Status(http.StatusOK)
}

func gatherPaths(lists ...[]string) []string {
	var out []string
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}

// isListingFile reports whether the path is one of the per-status listing
// files at the repository root.
func isListingFile(path string) bool {
	if strings.Contains(path, "/") || !strings.HasSuffix(path, ".md") {
		return false
	}
	_, err := guides.ParseStatus(strings.TrimSuffix(path, ".md"))
	return err == nil
}
