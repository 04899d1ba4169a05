package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

type LinkHandler struct {
	service ports.LinkService
}

func NewLinkHandler(service ports.LinkService) *LinkHandler {
	return &LinkHandler{service: service}
}

type statusRequest struct {
	Status domain.LinkStatus `json:"status"`
}

type checkLinkRequest struct {
	LinkID string `json:"linkId"`
}

func (h *LinkHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.LinkInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	link, err := h.service.CreateLink(r.Context(), UserID(r.Context()), req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, link)
}

func (h *LinkHandler) Get(w http.ResponseWriter, r *http.Request) {
	link, err := h.service.GetLink(r.Context(), UserID(r.Context()), mux.Vars(r)["id"])
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *LinkHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	filter := domain.LinkFilter{
		Search:   q.Get("search"),
		Tag:      q.Get("tag"),
		Status:   domain.LinkStatus(q.Get("status")),
		DomainID: q.Get("domain_id"),
	}

	links, count, err := h.service.ListLinks(r.Context(), UserID(r.Context()), page, limit, filter)
	if err != nil {
		handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  links,
		"total": count,
		"page":  page,
		"limit": limit,
	})
}

// decodeUpdate reads a link update. Absent fields stay unchanged; "note": null
// or "" and "expire_at": null clear those fields.
func decodeUpdate(r *http.Request) (domain.LinkInput, error) {
	var req domain.LinkInput
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, err
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return req, err
	}
	if raw, ok := fields["note"]; ok && (string(raw) == "null" || req.Note == "") {
		req.ClearNote = true
	}
	if raw, ok := fields["expire_at"]; ok && string(raw) == "null" {
		req.ClearExpireAt = true
	}
	return req, nil
}

func (h *LinkHandler) Update(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUpdate(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	link, err := h.service.UpdateLink(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], req)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *LinkHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	link, err := h.service.UpdateStatus(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *LinkHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteLink(r.Context(), UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *LinkHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.service.ListTags(r.Context(), UserID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"tags": tags})
}

// CheckLink runs the broken-link check for one link and relays the checker's answer.
func (h *LinkHandler) CheckLink(w http.ResponseWriter, r *http.Request) {
	var req checkLinkRequest
	if err := decodeJSON(r, &req); err != nil || req.LinkID == "" {
		writeError(w, http.StatusBadRequest, "Missing linkId")
		return
	}

	raw, err := h.service.CheckLink(r.Context(), UserID(r.Context()), req.LinkID)
	if err != nil {
		var failed *domain.CheckFailedError
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "Link not found")
		case errors.As(err, &failed):
			reportError(r, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to check link", Details: failed.Details})
		default:
			reportError(r, err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to check link", Details: err.Error()})
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(raw)
}
