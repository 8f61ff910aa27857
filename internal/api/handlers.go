package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/skythread/internal/models"
	"github.com/starford/skythread/internal/outline"
	"github.com/starford/skythread/internal/postservice"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *postservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *postservice.Service) *Handler {
	return &Handler{svc: svc}
}

func credentialOf(req CredentialRequest) models.Credential {
	return models.Credential{Identifier: req.Username, Secret: req.Password}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// SearchBlocks handles GET /api/blocks?q=...
//
//	@Summary		Search block text
//	@Tags			blocks
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Maximum results (default 20)"
//	@Success		200		{array}		SearchResult
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks [get]
func (h *Handler) SearchBlocks(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	hits, err := h.svc.SearchBlocks(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, "search blocks", err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// GetBlock handles GET /api/blocks/{id}.
//
//	@Summary		Get a block with its direct children
//	@Tags			blocks
//	@Produce		json
//	@Param			id	path		string	true	"Block uid"
//	@Success		200	{object}	Block
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id} [get]
func (h *Handler) GetBlock(w http.ResponseWriter, r *http.Request) {
	node, err := h.svc.GetBlock(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get block", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// CreateBlock handles POST /api/blocks.
//
//	@Summary		Create a block
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateBlockRequest	true	"Block to create"
//	@Success		201		{object}	Block
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks [post]
func (h *Handler) CreateBlock(w http.ResponseWriter, r *http.Request) {
	var req CreateBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	node, err := h.svc.CreateBlock(r.Context(), outline.NewBlock{
		ID:       req.ID,
		ParentID: req.ParentID,
		Text:     req.Text,
		Order:    req.Order,
	})
	if err != nil {
		writeError(w, "create block", err)
		return
	}
	writeJSON(w, http.StatusCreated, node)
}

// UpdateBlock handles PUT /api/blocks/{id}.
//
//	@Summary		Replace a block's text
//	@Tags			blocks
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Block uid"
//	@Param			body	body		UpdateBlockRequest	true	"New text"
//	@Success		200		{object}	Block
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id} [put]
func (h *Handler) UpdateBlock(w http.ResponseWriter, r *http.Request) {
	var req UpdateBlockRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Text == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("text is required"))
		return
	}
	node, err := h.svc.UpdateBlock(r.Context(), chi.URLParam(r, "id"), *req.Text)
	if err != nil {
		writeError(w, "update block", err)
		return
	}
	writeJSON(w, http.StatusOK, node)
}

// DeleteBlock handles DELETE /api/blocks/{id}.
//
//	@Summary		Delete a block and its descendants
//	@Tags			blocks
//	@Param			id	path	string	true	"Block uid"
//	@Success		204	"Block deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id} [delete]
func (h *Handler) DeleteBlock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteBlock(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete block", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PostThread handles POST /api/blocks/{id}/bluesky.
//
//	@Summary		Post a block and its children as a thread
//	@Tags			bluesky
//	@Produce		json
//	@Param			id	path		string	true	"Root block uid"
//	@Success		200	{object}	PublishResult
//	@Failure		404	{object}	errResponse
//	@Failure		409	{object}	errResponse	"Another thread is being posted"
//	@Failure		412	{object}	errResponse	"No account saved"
//	@Failure		422	{object}	errResponse	"A post is too long"
//	@Failure		502	{object}	errResponse	"The network rejected a request"
//	@Security		BearerAuth
//	@Router			/blocks/{id}/bluesky [post]
func (h *Handler) PostThread(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Post(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "post thread", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PreviewThread handles GET /api/blocks/{id}/bluesky/preview.
//
//	@Summary		Show the thread a post would create
//	@Tags			bluesky
//	@Produce		json
//	@Param			id	path		string	true	"Root block uid"
//	@Success		200	{object}	ThreadPreview
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/blocks/{id}/bluesky/preview [get]
func (h *Handler) PreviewThread(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Preview(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "preview thread", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Settings panel state
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	Settings
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, _ *http.Request) {
	view, err := h.svc.Settings()
	if err != nil {
		writeError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SaveCredential handles PUT /api/settings/credential.
//
//	@Summary		Save the posting account
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CredentialRequest	true	"Account"
//	@Success		200		{object}	Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/credential [put]
func (h *Handler) SaveCredential(w http.ResponseWriter, r *http.Request) {
	var req CredentialRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Login(credentialOf(req)); err != nil {
		writeError(w, "save credential", err)
		return
	}
	h.GetSettings(w, r)
}

// DeleteCredential handles DELETE /api/settings/credential.
//
//	@Summary		Forget the posting account
//	@Tags			settings
//	@Success		204	"Account removed"
//	@Security		BearerAuth
//	@Router			/settings/credential [delete]
func (h *Handler) DeleteCredential(w http.ResponseWriter, _ *http.Request) {
	if err := h.svc.Logout(); err != nil {
		writeError(w, "delete credential", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateAppend handles PUT /api/settings/append.
//
//	@Summary		Update the date-append preference
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AppendRequest	true	"Preference"
//	@Success		200		{object}	Settings
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/append [put]
func (h *Handler) UpdateAppend(w http.ResponseWriter, r *http.Request) {
	var req AppendRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil && req.Template == nil {
		writeJSON(w, http.StatusBadRequest, errorBody("enabled or template is required"))
		return
	}
	if err := h.svc.SetAppend(req.Enabled, req.Template); err != nil {
		writeError(w, "update append", err)
		return
	}
	h.GetSettings(w, r)
}
