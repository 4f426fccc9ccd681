package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"lighthouse-checkout/internal/dispatch"
	"lighthouse-checkout/internal/metrics"
	"lighthouse-checkout/internal/payment"
	"lighthouse-checkout/internal/service"

	log "github.com/sirupsen/logrus"
)

const webhookBodyLimit = 1024 * 1024 // 1 MiB

// LicenseService defines the webhook business logic used by the handler
type LicenseService interface {
	HandleEvent(ctx context.Context, ev payment.Event) (service.EventResult, error)
}

type webhookStatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type webhookReceivedResponse struct {
	Received bool `json:"received"`
}

// WebhookHandler verifies Stripe notifications and hands them to the
// license service.
type WebhookHandler struct {
	secret         string
	licenseService LicenseService
}

func NewWebhookHandler(secret string, licenseService LicenseService) *WebhookHandler {
	return &WebhookHandler{secret: secret, licenseService: licenseService}
}

func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r) {
		return
	}

	start := time.Now()
	eventType := "unknown"
	status := http.StatusOK
	defer func() {
		metrics.WebhookRequestsTotal.WithLabelValues(eventType, strconv.Itoa(status)).Inc()
		metrics.WebhookDuration.WithLabelValues(eventType).Observe(time.Since(start).Seconds())
	}()

	if r.Method != http.MethodPost {
		status = http.StatusMethodNotAllowed
		writeJSON(w, status, errorResponse{Error: "method not allowed"})
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, webhookBodyLimit))
	if err != nil {
		status = http.StatusBadRequest
		writeText(w, status, "Failed to read request body")
		return
	}

	ev, err := payment.ParseWebhookEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	var sigErr *payment.SignatureError
	switch {
	case errors.Is(err, payment.ErrMissingSignature):
		log.Error("Missing signature or webhook secret")
		status = http.StatusBadRequest
		writeText(w, status, "Missing signature or webhook secret")
		return
	case errors.As(err, &sigErr):
		log.WithError(sigErr.Err).Error("Webhook signature verification failed")
		status = http.StatusBadRequest
		writeText(w, status, "Webhook signature verification failed: "+sigErr.Err.Error())
		return
	case err != nil:
		log.WithError(err).Error("Webhook error")
		status = http.StatusInternalServerError
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	eventType = string(ev.Type)
	log.WithFields(log.Fields{
		"event_id": ev.ID,
		"type":     ev.Type,
	}).Info("Webhook event received")

	res, err := h.licenseService.HandleEvent(r.Context(), ev)
	var dispatchErr *dispatch.Error
	switch {
	case errors.Is(err, service.ErrMissingMetadata):
		status = http.StatusBadRequest
		writeText(w, status, "Missing customer information")
	case errors.Is(err, dispatch.ErrNotConfigured):
		log.Error("GitHub token not configured")
		status = http.StatusInternalServerError
		writeText(w, status, "GitHub token not configured")
	case errors.As(err, &dispatchErr):
		status = http.StatusInternalServerError
		writeJSON(w, status, webhookStatusResponse{Status: "error", Error: dispatchErr.Body})
	case err != nil:
		log.WithError(err).Error("Webhook error")
		status = http.StatusInternalServerError
		writeJSON(w, status, errorResponse{Error: err.Error()})
	case res.Handled:
		writeJSON(w, status, webhookStatusResponse{Status: "success"})
	default:
		writeJSON(w, status, webhookReceivedResponse{Received: true})
	}
}
