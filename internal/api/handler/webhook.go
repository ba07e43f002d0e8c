package handler

import (
	"net/http"

	"github.com/edvin/vpshost/internal/api/request"
	"github.com/edvin/vpshost/internal/api/response"
	"github.com/edvin/vpshost/internal/core"
	"github.com/edvin/vpshost/internal/model"
)

type Webhook struct {
	svc *core.RefundService
}

func NewWebhook(svc *core.RefundService) *Webhook {
	return &Webhook{svc: svc}
}

type refundPayload struct {
	ChargeRef string `json:"charge_ref" validate:"required"`
}

// Refund godoc
//
//	@Summary		Handle a payment-refunded event
//	@Tags			Webhooks
//	@Param			body body refundPayload true "Refund event"
//	@Success		202 {object} map[string]string
//	@Failure		400 {object} response.ErrorResponse
//	@Failure		500 {object} response.ErrorResponse
//	@Router			/webhooks/refund [post]
func (h *Webhook) Refund(w http.ResponseWriter, r *http.Request) {
	var payload refundPayload
	if err := request.Decode(r, &payload); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.svc.HandleRefund(r.Context(), model.RefundEvent{ChargeRef: payload.ChargeRef})
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// Teardown runs asynchronously; acknowledge so the provider stops retrying.
	response.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}
