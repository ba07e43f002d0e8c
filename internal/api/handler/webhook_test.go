package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/api/serviceerror"
	temporalmocks "go.temporal.io/sdk/mocks"

	"github.com/edvin/vpshost/internal/core"
)

func TestWebhookRefund_InvalidJSON(t *testing.T) {
	h := NewWebhook(nil)
	rec := httptest.NewRecorder()
	r := newRequestRaw(http.MethodPost, "/webhooks/refund", "{bad")

	h.Refund(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookRefund_MissingChargeRef(t *testing.T) {
	h := NewWebhook(nil)
	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/webhooks/refund", map[string]any{})

	h.Refund(rec, r)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeErrorResponse(rec)
	assert.Contains(t, body["error"], "validation error")
}

func TestWebhookRefund_Accepted(t *testing.T) {
	tc := &temporalmocks.Client{}
	h := NewWebhook(core.NewRefundService(tc))

	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "TeardownInstanceWorkflow", "ch-123").
		Return(&temporalmocks.WorkflowRun{}, nil)

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/webhooks/refund", map[string]any{"charge_ref": "ch-123"})

	h.Refund(rec, r)

	require.Equal(t, http.StatusAccepted, rec.Code)
	tc.AssertExpectations(t)
}

func TestWebhookRefund_Redelivery(t *testing.T) {
	tc := &temporalmocks.Client{}
	h := NewWebhook(core.NewRefundService(tc))

	tc.On("ExecuteWorkflow", mock.Anything, mock.Anything, "TeardownInstanceWorkflow", "ch-123").
		Return(nil, serviceerror.NewWorkflowExecutionAlreadyStarted("already started", "", ""))

	rec := httptest.NewRecorder()
	r := newRequest(http.MethodPost, "/webhooks/refund", map[string]any{"charge_ref": "ch-123"})

	h.Refund(rec, r)

	// A redelivered webhook is still acknowledged.
	require.Equal(t, http.StatusAccepted, rec.Code)
	tc.AssertExpectations(t)
}
