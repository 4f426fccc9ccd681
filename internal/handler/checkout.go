package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"lighthouse-checkout/internal/domain"
	"lighthouse-checkout/internal/service"

	log "github.com/sirupsen/logrus"
)

const checkoutBodyLimit = 64 * 1024

// CheckoutService defines the checkout business logic used by the handler
type CheckoutService interface {
	CreateCheckout(ctx context.Context, req domain.PurchaseRequest, origin string) (string, error)
}

type checkoutResponse struct {
	URL string `json:"url"`
}

type CheckoutHandler struct {
	checkoutService CheckoutService
}

func NewCheckoutHandler(checkoutService CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{checkoutService: checkoutService}
}

func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	var req domain.PurchaseRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, checkoutBodyLimit)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	url, err := h.checkoutService.CreateCheckout(r.Context(), req, r.Header.Get("Origin"))
	switch {
	case errors.Is(err, service.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Name and email are required"})
	case err != nil:
		log.WithError(err).Error("Error in create-payment")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusOK, checkoutResponse{URL: url})
	}
}
