package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/vpshost/internal/api/request"
	"github.com/edvin/vpshost/internal/api/response"
	"github.com/edvin/vpshost/internal/core"
)

type Domain struct {
	svc *core.DomainService
}

func NewDomain(svc *core.DomainService) *Domain {
	return &Domain{svc: svc}
}

// Register godoc
//
//	@Summary		Attach a hostname to an instance
//	@Tags			Domains
//	@Param			instanceID path string true "Instance ID"
//	@Param			body body request.RegisterDomain true "Domain details"
//	@Success		201 {object} model.Domain
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Router			/instances/{instanceID}/domains [post]
func (h *Domain) Register(w http.ResponseWriter, r *http.Request) {
	instanceID, err := request.RequireID(chi.URLParam(r, "instanceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.RegisterDomain
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dom, err := h.svc.Register(r.Context(), instanceID, req.Hostname)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			response.WriteError(w, http.StatusNotFound, "instance not found")
		case errors.Is(err, core.ErrDomainExists):
			response.WriteError(w, http.StatusConflict, err.Error())
		default:
			response.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	response.WriteJSON(w, http.StatusCreated, dom)
}

// ListByInstance godoc
//
//	@Summary		List domains for an instance
//	@Tags			Domains
//	@Param			instanceID path string true "Instance ID"
//	@Success		200 {array} model.Domain
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/instances/{instanceID}/domains [get]
func (h *Domain) ListByInstance(w http.ResponseWriter, r *http.Request) {
	instanceID, err := request.RequireID(chi.URLParam(r, "instanceID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	domains, err := h.svc.ListByInstance(r.Context(), instanceID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, domains)
}

// Get godoc
//
//	@Summary		Get a domain
//	@Tags			Domains
//	@Param			id path string true "Domain ID"
//	@Success		200 {object} model.Domain
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/domains/{id} [get]
func (h *Domain) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dom, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			response.WriteError(w, http.StatusNotFound, "domain not found")
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, dom)
}

// RequestCertificate godoc
//
//	@Summary		Request a certificate for a domain
//	@Tags			Domains
//	@Param			id path string true "Domain ID"
//	@Success		202 {object} model.Domain
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Router			/domains/{id}/certificate [post]
func (h *Domain) RequestCertificate(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	dom, err := h.svc.RequestCertificate(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrNotFound):
			response.WriteError(w, http.StatusNotFound, "domain not found")
		case errors.Is(err, core.ErrInvalidTransition):
			response.WriteError(w, http.StatusConflict, err.Error())
		default:
			response.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// The next reconciliation sweep picks the domain up; 202 reflects that.
	response.WriteJSON(w, http.StatusAccepted, dom)
}

// Delete godoc
//
//	@Summary		Delete a domain
//	@Tags			Domains
//	@Param			id path string true "Domain ID"
//	@Success		204
//	@Failure		404 {object} response.ErrorResponse
//	@Router			/domains/{id} [delete]
func (h *Domain) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			response.WriteError(w, http.StatusNotFound, "domain not found")
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
