package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/catalog"
)

// Input validation for the catalog proxy. The volume ID format is the
// catalog's own two-part numeric scheme (e.g. "4050-12345"); the search
// charset keeps user input out of the upstream query syntax.
var (
	volumeIDPattern   = regexp.MustCompile(`^\d+-\d+$`)
	searchTermPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-']+$`)
	whitespaceRun     = regexp.MustCompile(`\s+`)
)

// ComicsHandler proxies catalog lookups. It holds no state beyond the
// client; results pass through unmodified so the frontend sees the
// catalog's own record shapes.
type ComicsHandler struct {
	catalog *catalog.Client
	logger  *slog.Logger
}

// NewComicsHandler creates a ComicsHandler.
func NewComicsHandler(c *catalog.Client, logger *slog.Logger) *ComicsHandler {
	return &ComicsHandler{catalog: c, logger: logger}
}

// HandleVolumeIssues returns a page of fully-resolved issues for a volume.
//
// HTTP: GET /api/comics/volume/{id}?offset=0&limit=10 (behind RequireAuth)
func (h *ComicsHandler) HandleVolumeIssues(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !volumeIDPattern.MatchString(id) {
		writeError(w, apperror.ValidationFailed("id", "Invalid ID format. Expected digits-digits"))
		return
	}

	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 10)

	page, err := h.catalog.VolumeIssues(r.Context(), id, offset, limit)
	if err != nil {
		if errors.Is(err, catalog.ErrNoResults) {
			writeError(w, apperror.NotFound("volume issues", id))
			return
		}
		writeError(w, apperror.Unavailable("failed to fetch issues from volume", err))
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// HandleVolumeSearch searches volumes by name.
//
// HTTP: GET /api/comics/volume/search?name=...&offset=0 (behind RequireAuth)
func (h *ComicsHandler) HandleVolumeSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("name")
	if len(query) < 2 || len(query) > 50 {
		writeError(w, apperror.ValidationFailed("name", "Search term must be between 2 and 50 characters."))
		return
	}
	if !searchTermPattern.MatchString(query) {
		writeError(w, apperror.ValidationFailed("name", "Search term contains invalid characters."))
		return
	}
	cleaned := whitespaceRun.ReplaceAllString(strings.TrimSpace(query), " ")

	offset := queryInt(r, "offset", 0)

	page, err := h.catalog.SearchVolumes(r.Context(), cleaned, offset)
	if err != nil {
		if errors.Is(err, catalog.ErrNoResults) {
			writeError(w, apperror.NotFound("volumes", cleaned))
			return
		}
		writeError(w, apperror.Unavailable("failed to search for volumes", err))
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// queryInt parses an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
