package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wadjakorntonsri/loopylink/pkg/core/domain"
	"github.com/wadjakorntonsri/loopylink/pkg/ports"
)

type DomainHandler struct {
	service ports.DomainService
}

func NewDomainHandler(service ports.DomainService) *DomainHandler {
	return &DomainHandler{service: service}
}

type addDomainRequest struct {
	Domain string `json:"domain"`
}

type createGroupRequest struct {
	Name string `json:"name"`
}

type verifyRequest struct {
	Method domain.VerificationMethod `json:"method"`
}

func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	domains, err := h.service.ListDomains(r.Context(), UserID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if domains == nil {
		domains = []domain.Domain{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": domains})
}

func (h *DomainHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req addDomainRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	d, err := h.service.AddDomain(r.Context(), UserID(r.Context()), req.Domain)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *DomainHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	g, err := h.service.CreateGroup(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], req.Name)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// Verify accepts an optional {"method": "TXT"|"FILE"}; without one both are tried.
func (h *DomainHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.service.VerifyDomain(r.Context(), UserID(r.Context()), mux.Vars(r)["id"], req.Method)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *DomainHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteDomain(r.Context(), UserID(r.Context()), mux.Vars(r)["id"]); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
