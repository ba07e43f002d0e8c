package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/vpshost/internal/api/request"
	"github.com/edvin/vpshost/internal/api/response"
	"github.com/edvin/vpshost/internal/core"
)

type Instance struct {
	svc *core.InstanceService
}

func NewInstance(svc *core.InstanceService) *Instance {
	return &Instance{svc: svc}
}

// Create godoc
//
//	@Summary		Purchase a new instance
//	@Tags			Instances
//	@Param			body body request.CreateInstance true "Instance details"
//	@Success		202 {object} model.Instance
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		409 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/instances [post]
func (h *Instance) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateInstance
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := h.svc.Create(r.Context(), req.CustomerID, req.Plan, req.ChargeRef)
	if err != nil {
		switch {
		case errors.Is(err, core.ErrInstanceExists):
			response.WriteError(w, http.StatusConflict, err.Error())
		default:
			response.WriteError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	// Provisioning continues in the background; 202 tells the caller to poll.
	response.WriteJSON(w, http.StatusAccepted, inst)
}

// List godoc
//
//	@Summary		List instances
//	@Tags			Instances
//	@Param			limit query int false "Page size" default(50)
//	@Param			cursor query string false "Pagination cursor"
//	@Success		200 {object} response.PaginatedResponse{items=[]model.Instance}
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/instances [get]
func (h *Instance) List(w http.ResponseWriter, r *http.Request) {
	pg := request.ParsePagination(r)

	instances, hasMore, err := h.svc.List(r.Context(), pg.Limit, pg.Cursor)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var nextCursor string
	if hasMore && len(instances) > 0 {
		nextCursor = instances[len(instances)-1].ID
	}
	response.WritePaginated(w, http.StatusOK, instances, nextCursor, hasMore)
}

// Get godoc
//
//	@Summary		Get an instance
//	@Tags			Instances
//	@Param			id path string true "Instance ID"
//	@Success		200 {object} model.Instance
//	@Failure		404 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/instances/{id} [get]
func (h *Instance) Get(w http.ResponseWriter, r *http.Request) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	inst, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			response.WriteError(w, http.StatusNotFound, "instance not found")
			return
		}
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusOK, inst)
}
