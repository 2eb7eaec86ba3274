package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nwehr/longbox/internal/apperror"
	"github.com/nwehr/longbox/internal/auth"
	"github.com/nwehr/longbox/internal/model"
	"github.com/nwehr/longbox/internal/service"
)

// CollectionHandler exposes the per-user collection operations. Every route
// sits behind RequireAuth; the user is always the authenticated caller —
// there is no way to address another user's collections.
//
//	GET  /api/collection              list collection names
//	GET  /api/collection/{name}       issues of one collection
//	POST /api/collection/create       {name}
//	POST /api/collection/rename       {oldName, newName}
//	POST /api/collection/delete       {name}
//	POST /api/collection/add          {collectionName, issue}
//	POST /api/collection/deleteIssue  {collectionName, issueId}
type CollectionHandler struct {
	collections *service.CollectionService
	logger      *slog.Logger
}

// NewCollectionHandler creates a CollectionHandler.
func NewCollectionHandler(collections *service.CollectionService, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{collections: collections, logger: logger}
}

// identity reads the caller set by RequireAuth. The fallback 401 should be
// unreachable on these routes but costs nothing to keep.
func (h *CollectionHandler) identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, apperror.Unauthorized("valid authentication required"))
	}
	return id, ok
}

// HandleList returns the caller's collection names.
func (h *CollectionHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	names, err := h.collections.List(r.Context(), id.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]string{"collections": names})
}

// HandleGet returns one collection's issues in insertion order. An unknown
// name answers 200 with an empty list, not 404.
func (h *CollectionHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	issues, err := h.collections.Get(r.Context(), id.UserID, name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string][]model.Issue{"collection": issues})
}

// HandleCreate makes a new, empty collection.
func (h *CollectionHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.collections.Create(r.Context(), id.UserID, req.Name); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Collection created"})
}

// HandleRename atomically moves a collection to a new name.
func (h *CollectionHandler) HandleRename(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		OldName string `json:"oldName"`
		NewName string `json:"newName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.collections.Rename(r.Context(), id.UserID, req.OldName, req.NewName); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Collection renamed"})
}

// HandleDelete removes a collection and all its issues.
func (h *CollectionHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.collections.Delete(r.Context(), id.UserID, req.Name); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Collection deleted"})
}

// HandleAddIssue appends an issue snapshot to a collection, creating the
// collection if it does not exist yet. Re-adding an issue already present
// reports success without writing.
func (h *CollectionHandler) HandleAddIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		CollectionName string      `json:"collectionName"`
		Issue          model.Issue `json:"issue"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.collections.AddIssue(r.Context(), id.UserID, req.CollectionName, req.Issue); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Issue added to collection"})
}

// HandleRemoveIssue filters an issue out of a collection.
func (h *CollectionHandler) HandleRemoveIssue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req struct {
		CollectionName string `json:"collectionName"`
		IssueID        string `json:"issueId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	if err := h.collections.RemoveIssue(r.Context(), id.UserID, req.CollectionName, req.IssueID); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Issue removed"})
}
