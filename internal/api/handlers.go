package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notewiki/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteRef extracts {ref}: a numeric id or a URL-escaped title. chi matches
// on RawPath when the request carries one, and then hands back the escaped
// segment; otherwise the segment is already decoded.
func noteRef(r *http.Request) string {
	raw := chi.URLParam(r, "ref")
	if r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// resolveRef returns the ref to pass to the service. With ?by=title the
// segment is always a title, even one made only of digits.
func (h *Handler) resolveRef(r *http.Request) (string, error) {
	ref := noteRef(r)
	if r.URL.Query().Get("by") != "title" {
		return ref, nil
	}
	id, err := h.svc.IDOf(r.Context(), ref)
	if err != nil {
		return ref, err
	}
	return strconv.FormatUint(uint64(id), 10), nil
}

// decodeNote reads and validates a NoteRequest, writing a 400 on failure.
func decodeNote(w http.ResponseWriter, r *http.Request) (*NoteRequest, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req NoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return nil, false
	}
	return &req, true
}

// ListNotes handles GET /api/notes.
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	items := h.svc.List(r.Context())
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: len(items)})
}

// GetNote handles GET /api/notes/{ref}.
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	ref, err := h.resolveRef(r)
	if err != nil {
		writeError(w, "get note", ref, err)
		return
	}
	note, err := h.svc.Get(r.Context(), ref)
	if err != nil {
		writeError(w, "get note", ref, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Kids handles GET /api/notes/{ref}/kids.
func (h *Handler) Kids(w http.ResponseWriter, r *http.Request) {
	ref, err := h.resolveRef(r)
	if err != nil {
		writeError(w, "kids", ref, err)
		return
	}
	kids, err := h.svc.Kids(r.Context(), ref)
	if err != nil {
		writeError(w, "kids", ref, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: kids, Total: len(kids)})
}

// CreateNote handles POST /api/notes.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeNote(w, r)
	if !ok {
		return
	}
	note, err := h.svc.Create(r.Context(), req.input())
	if err != nil {
		writeError(w, "create note", req.Title, err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{ref}. The body replaces every field,
// tags and kids included.
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	ref, err := h.resolveRef(r)
	if err != nil {
		writeError(w, "update note", ref, err)
		return
	}
	req, ok := decodeNote(w, r)
	if !ok {
		return
	}
	note, err := h.svc.Update(r.Context(), ref, req.input())
	if err != nil {
		writeError(w, "update note", ref, err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// Graph handles GET /api/graph.
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	nodes, links := h.svc.Graph(r.Context())
	writeJSON(w, http.StatusOK, GraphResponse{Nodes: nodes, Links: links})
}
